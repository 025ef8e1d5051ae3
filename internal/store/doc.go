// Package store provides file-based persistence for veil's configuration.
//
// PropertyFileStore implements the domain PropertyStore contract: a flat
// key/value map plus appended lists, kept in memory and written through to
// a JSON file with an atomic temp-file rename. A sealed variant encrypts the
// file at rest with a passphrase (scrypt + ChaCha20-Poly1305). All methods
// are concurrency-safe via internal locking.
package store
