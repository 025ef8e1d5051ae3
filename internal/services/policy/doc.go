// Package policy resolves the effective encryption policy for a remote
// party from a global default and optional per-contact overrides.
package policy
