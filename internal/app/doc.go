// Package app wires application dependencies for the CLI.
//
// It loads Config, builds the property store and the services on top of it,
// and exposes them through Wire. App binds a Wire to one local account.
package app
