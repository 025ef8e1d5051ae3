// Package event provides listener registries with explicit subscription
// handles.
//
// A Registry hands out a Subscription for every registered listener; the
// owner keeps the handle for its lifetime and calls Unsubscribe when done.
// Notification always runs over a snapshot taken under the registry lock, so
// listeners may subscribe or unsubscribe from inside a callback, and a
// listener added during a fan-out does not receive the in-flight event.
package event
