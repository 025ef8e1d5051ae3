// Package crypto exposes the minimal primitives used by veil.
//
// Contents
//
//   - Ed25519 long-term key pairs for local accounts (GenerateKeyPair,
//     SignEd25519, VerifyEd25519) and their DER encoding (MarshalKeyPair,
//     ParseKeyPair, ParsePublicKey)
//   - X25519 key generation and Diffie–Hellman (GenerateX25519, DH)
//   - Human-verifiable fingerprints of public keys (Fingerprint,
//     FingerprintPublicKey)
//
// # Notes
//
// Key material is returned as fixed-size array types defined in
// internal/domain. The handshake and message encryption of the encryption
// protocol itself live in the transform engine, not here.
package crypto
