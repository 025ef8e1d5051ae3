package crypto

import (
	"crypto"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"veil/internal/domain"
)

// ErrUnsupportedKey is returned for public keys that are not Ed25519.
var ErrUnsupportedKey = errors.New("unsupported key type")

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// MarshalPublicKey encodes pub as PKIX DER.
func MarshalPublicKey(pub crypto.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// ParsePublicKey decodes a PKIX DER public key.
func ParsePublicKey(der []byte) (crypto.PublicKey, error) {
	return x509.ParsePKIXPublicKey(der)
}

// MarshalKeyPair encodes kp as (PKIX public, PKCS#8 private) DER blobs.
func MarshalKeyPair(kp domain.KeyPair) (pub, priv []byte, err error) {
	if pub, err = x509.MarshalPKIXPublicKey(kp.PublicKey()); err != nil {
		return nil, nil, err
	}
	if priv, err = x509.MarshalPKCS8PrivateKey(kp.PrivateKey()); err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

// ParseKeyPair reverses MarshalKeyPair and checks that both halves match.
func ParseKeyPair(pubDER, privDER []byte) (domain.KeyPair, error) {
	pk, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("public key: %w", err)
	}
	sk, err := x509.ParsePKCS8PrivateKey(privDER)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("private key: %w", err)
	}
	edPub, ok := pk.(ed25519.PublicKey)
	if !ok {
		return domain.KeyPair{}, fmt.Errorf("public key: %w: %T", ErrUnsupportedKey, pk)
	}
	edPriv, ok := sk.(ed25519.PrivateKey)
	if !ok {
		return domain.KeyPair{}, fmt.Errorf("private key: %w: %T", ErrUnsupportedKey, sk)
	}
	if !edPub.Equal(edPriv.Public()) {
		return domain.KeyPair{}, errors.New("key pair halves do not match")
	}
	var kp domain.KeyPair
	copy(kp.Public[:], edPub)
	copy(kp.Private[:], edPriv)
	return kp, nil
}
