// Package loopback is an in-process transform engine.
//
// Two engines attached to the same Network negotiate a session with a
// signed ephemeral X25519 exchange, derive directional keys with HKDF and
// protect messages with ChaCha20-Poly1305. Mutual-secret authentication
// compares HMAC commitments under a key derived from the same handshake.
//
// It exists so the session engine can be exercised end to end without a
// real messaging network. It makes no claim of deniability or forward
// secrecy beyond a single handshake.
package loopback
