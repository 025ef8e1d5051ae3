// Package trust is the key and trust store.
//
// It keeps one long-term key pair per local account and, per remote party,
// the list of fingerprints seen together with a verified flag for each.
// Everything is persisted through the domain PropertyStore using the
// following keys:
//
//	account.<account>.publicKey       PKIX DER, base64
//	account.<account>.privateKey      PKCS#8 DER, base64
//	<address>.fingerprints            appended list of fingerprints
//	<address><fp>.fingerprint.verified  bool
//
// Records written by older releases kept a single key per party under
// <address>.publicKey and <address>.publicKey.verified. Those are migrated
// to the list format the first time the party's fingerprints are read.
package trust
