// Package delivery defines the entry points that expose the application to
// the outside world.
package delivery

import "context"

// Delivery is a long-running transport server. Serve blocks until the server
// stops; shutdown is driven through the lifecycle hooks.
type Delivery interface {
	Serve(ctx context.Context) error
}
