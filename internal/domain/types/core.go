package types

// AccountID identifies a local account (one protocol connection).
type AccountID string

// String returns the string form of the account identifier.
func (a AccountID) String() string { return string(a) }

// Endpoint names a specific connected device/resource of a remote party.
// The empty Endpoint means "any endpoint".
type Endpoint string

// String returns the string form of the endpoint.
func (e Endpoint) String() string { return string(e) }

// Fingerprint is a human-verifiable identifier derived from a public key.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// MessageUID identifies a message handed to the host transport.
type MessageUID string
