// Package repository defines the interfaces for the persistence and
// realtime-backend layers.
package repository

// Subscription is the handle for an active realtime listener. Closing it
// detaches the listener; Close is idempotent and guarantees that the
// listener's callback will not fire after Close returns.
type Subscription interface {
	Close() error
}
