// Package delivery defines the transports that expose the auth usecase.
package delivery

import "context"

// Delivery is a long-running transport started by main.
type Delivery interface {
	Serve(ctx context.Context) error
}
