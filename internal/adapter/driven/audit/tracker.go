package audit

import (
	"errors"
	"sync"
	"time"

	"github.com/ericfisherdev/baghound/internal/domain/model"
	"github.com/ericfisherdev/baghound/internal/domain/port/driven"
)

// recentCapacity bounds the in-memory ring of recent events kept for the
// status API.
const recentCapacity = 100

// Compile-time interface satisfaction check.
var _ driven.AuditLog = (*Tracker)(nil)

// Tracker satisfies the AuditLog port with two sinks -- the shared CSV event
// log and the per-account claim history -- plus a bounded in-memory ring of
// recent events for read-only display. Writes happen only on the scheduler
// loop; the ring is mutex-guarded so display consumers can read it
// concurrently.
type Tracker struct {
	csv     *CSVLog
	history *HistoryLog
	now     func() time.Time

	mu     sync.RWMutex
	recent []model.AuditEvent
}

// NewTracker creates a Tracker over the given sinks.
func NewTracker(csvLog *CSVLog, history *HistoryLog) *Tracker {
	return &Tracker{
		csv:     csvLog,
		history: history,
		now:     time.Now,
	}
}

// AppendReservation records a successful claim in the CSV log and the
// account's claim history. Sink failures are joined and reported, but a
// failure in one sink does not block the other.
func (t *Tracker) AppendReservation(accountName string, order model.Order, item model.ItemAvailability) error {
	ev := t.event(accountName, item, model.EventTypeReserved)

	csvErr := t.csv.Append(ev)
	histErr := t.history.Append(accountName, order, item, ev.Timestamp)
	t.remember(ev)

	return errors.Join(csvErr, histErr)
}

// AppendSellout records an observed sellout in the CSV log.
func (t *Tracker) AppendSellout(accountName string, item model.ItemAvailability, eventType model.EventType) error {
	ev := t.event(accountName, item, eventType)
	err := t.csv.Append(ev)
	t.remember(ev)
	return err
}

// Recent returns up to n of the most recently appended events, newest
// first. Safe for concurrent use with appends.
func (t *Tracker) Recent(n int) []model.AuditEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n <= 0 || n > len(t.recent) {
		n = len(t.recent)
	}
	out := make([]model.AuditEvent, n)
	for i := 0; i < n; i++ {
		out[i] = t.recent[len(t.recent)-1-i]
	}
	return out
}

func (t *Tracker) event(accountName string, item model.ItemAvailability, eventType model.EventType) model.AuditEvent {
	return model.AuditEvent{
		Timestamp:    t.now(),
		AccountName:  accountName,
		ItemID:       item.ItemID,
		ItemName:     item.DisplayName,
		StoreID:      item.StoreID,
		StoreName:    item.StoreName,
		EventType:    eventType,
		APISoldOutAt: item.SoldOutAt,
	}
}

func (t *Tracker) remember(ev model.AuditEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recent = append(t.recent, ev)
	if len(t.recent) > recentCapacity {
		t.recent = t.recent[len(t.recent)-recentCapacity:]
	}
}
