// Package identity resolves remote parties to canonical session identities.
//
// A remote party signed in from several devices appears as one identity per
// endpoint plus an endpoint-less "logical" identity. The resolver guarantees
// at most one SessionIdentity per (party, endpoint) pair, even when many
// goroutines resolve the same new pair concurrently, and forgets every
// identity of an account when its connection is torn down.
package identity
