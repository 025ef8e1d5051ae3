package crypto

import (
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"veil/internal/domain"
)

// fingerprintBytes is the truncated SHA-256 length used for fingerprints.
const fingerprintBytes = 20

// Fingerprint returns an upper-case hex fingerprint of raw key bytes.
//
// It hashes with SHA-256 and truncates to 20 bytes (40 hex chars).
func Fingerprint(raw []byte) domain.Fingerprint {
	return domain.Fingerprint(strings.ToUpper(hex.EncodeToString(FingerprintRaw(raw))))
}

// FingerprintRaw returns the truncated digest behind Fingerprint.
func FingerprintRaw(raw []byte) []byte {
	sum := sha256.Sum256(raw)
	return sum[:fingerprintBytes]
}

// FingerprintPublicKey fingerprints the PKIX encoding of pub.
func FingerprintPublicKey(pub crypto.PublicKey) (domain.Fingerprint, error) {
	if pub == nil {
		return "", errors.New("no public key")
	}
	der, err := MarshalPublicKey(pub)
	if err != nil {
		return "", err
	}
	return Fingerprint(der), nil
}
