// Package scheduler arms one-shot, per-identity status transitions such as
// the session establishment timeout.
package scheduler
