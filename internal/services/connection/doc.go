// Package connection relays "connection closed" events from the host's
// protocol layer to the components that cache per-account state.
package connection
