package loopback

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"veil/internal/crypto"
	"veil/internal/domain"
	"veil/internal/util/memzero"
)

const (
	keySize   = chacha20poly1305.KeySize
	nonceSize = chacha20poly1305.NonceSize
	kdfInfo   = "veil-loopback-v1"
)

var errShortCiphertext = errors.New("ciphertext too short")

// sessionKeys are the secrets derived from one handshake.
type sessionKeys struct {
	initiatorToResponder []byte
	responderToInitiator []byte
	auth                 []byte
}

func deriveKeys(priv domain.X25519Private, peer domain.X25519Public, initiatorEph, responderEph domain.X25519Public) (sessionKeys, error) {
	shared, err := crypto.DH(priv, peer)
	if err != nil {
		return sessionKeys{}, err
	}
	defer memzero.Zero(shared[:])

	salt := make([]byte, 0, 64)
	salt = append(salt, initiatorEph[:]...)
	salt = append(salt, responderEph[:]...)
	r := hkdf.New(sha256.New, shared[:], salt, []byte(kdfInfo))

	k := sessionKeys{
		initiatorToResponder: make([]byte, keySize),
		responderToInitiator: make([]byte, keySize),
		auth:                 make([]byte, keySize),
	}
	for _, b := range [][]byte{k.initiatorToResponder, k.responderToInitiator, k.auth} {
		if _, err := io.ReadFull(r, b); err != nil {
			return sessionKeys{}, err
		}
	}
	return k, nil
}

func (k sessionKeys) wipe() {
	memzero.Zero(k.initiatorToResponder)
	memzero.Zero(k.responderToInitiator)
	memzero.Zero(k.auth)
}

func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize, nonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, errShortCiphertext
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
}

// commitment binds a shared secret and its question to the session.
func commitment(authKey []byte, question, secret string) []byte {
	h := hmac.New(sha256.New, authKey)
	h.Write([]byte(question))
	h.Write([]byte{0})
	h.Write([]byte(secret))
	return h.Sum(nil)
}
