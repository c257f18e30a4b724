package driven

import "github.com/ericfisherdev/baghound/internal/domain/model"

// AuditLog defines the driven port for the durable, append-only record of
// reservation and sellout events. Appends from different accounts in the
// same cycle must be atomic with respect to each other; implementations
// never rewrite existing entries.
type AuditLog interface {
	// AppendReservation records a successful claim in every sink, including
	// the per-account claim history.
	AppendReservation(accountName string, order model.Order, item model.ItemAvailability) error

	// AppendSellout records an observed sellout with the given event type.
	AppendSellout(accountName string, item model.ItemAvailability, eventType model.EventType) error
}
