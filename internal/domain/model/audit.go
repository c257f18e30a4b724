package model

import "time"

// EventType labels an audit event. The string values are the on-disk
// representation in the sellout CSV and must not change.
type EventType string

const (
	// EventTypeReserved records a successful claim.
	EventTypeReserved EventType = "RESERVED"
	// EventTypeSoldOut records a sellout observed during an availability
	// poll (quantity dropped to zero with an API sellout timestamp).
	EventTypeSoldOut EventType = "SOLD_OUT_API"
	// EventTypeSoldOutOrder records a sellout surfaced by a failed claim
	// attempt: the item was gone by the time the order call landed.
	EventTypeSoldOutOrder EventType = "SOLD_OUT_ORDER"
)

// AuditEvent is one immutable, append-only record of a reservation or
// sellout. Owned by the audit log; never mutated after append.
type AuditEvent struct {
	Timestamp    time.Time `json:"timestamp_utc"`
	AccountName  string    `json:"account_name"`
	ItemID       string    `json:"item_id"`
	ItemName     string    `json:"item_name"`
	StoreID      string    `json:"store_id"`
	StoreName    string    `json:"store_name"`
	EventType    EventType `json:"event_type"`
	APISoldOutAt string    `json:"sold_out_at_api,omitempty"`
}
