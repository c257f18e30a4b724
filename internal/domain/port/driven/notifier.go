package driven

import "context"

// Notifier defines the driven port for outbound human notification. Delivery
// failures are logged by callers but never roll back a recorded reservation.
type Notifier interface {
	Send(ctx context.Context, message string) error
}
