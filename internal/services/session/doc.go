// Package session is the session engine.
//
// The engine owns the encryption status of every session identity and
// drives the transform engine that performs the actual handshake:
//   - StartSession, EndSession and RefreshSession are user actions.
//   - Status reports arrive from the transform engine through callbacks.
//   - The establishment timeout is armed on the timeout scheduler.
//
// It also tracks mutual-secret authentication progress per identity,
// the outgoing endpoint selection for parties connected from several
// devices, and a bounded record of messages injected by the protocol.
//
// Per-identity state lives in a concurrent map with one mutex per entry.
// Listeners are always notified outside those locks.
package session
