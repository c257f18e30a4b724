// Package audit implements the AuditLog port with two durable sinks behind
// one interface: a shared append-only CSV of reservation and sellout events,
// and a per-account JSON claim history.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ericfisherdev/baghound/internal/domain/model"
)

// csvHeader is the fixed on-disk schema. Column order must not change; the
// header row is written exactly once, when the file is first created.
var csvHeader = []string{
	"timestamp",
	"store_id",
	"store_name",
	"item_id",
	"item_name",
	"account_name",
	"event_type",
	"sold_out_at_api",
}

// missingValue fills columns for which the event carries no data.
const missingValue = "N/A"

// CSVLog is the shared sellout/reservation CSV sink. Appends are serialized
// with a mutex so records from different accounts in the same cycle never
// interleave.
type CSVLog struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewCSVLog opens (or creates) the CSV log at path, writing the schema
// header if the file is new or empty. Existing rows are never touched.
func NewCSVLog(path string) (*CSVLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit log directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat audit log %s: %w", path, err)
	}

	l := &CSVLog{file: f, path: path}
	if info.Size() == 0 {
		if err := l.writeRow(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write audit log header: %w", err)
		}
	}

	return l, nil
}

// Append writes one event as a single CSV row.
func (l *CSVLog) Append(ev model.AuditEvent) error {
	soldOutAt := ev.APISoldOutAt
	if soldOutAt == "" {
		soldOutAt = missingValue
	}

	return l.writeRow([]string{
		ev.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		orMissing(ev.StoreID),
		orMissing(ev.StoreName),
		orMissing(ev.ItemID),
		orMissing(ev.ItemName),
		ev.AccountName,
		string(ev.EventType),
		soldOutAt,
	})
}

// Close flushes and closes the underlying file.
func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *CSVLog) writeRow(row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := csv.NewWriter(l.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush audit row: %w", err)
	}
	return nil
}

func orMissing(s string) string {
	if s == "" {
		return missingValue
	}
	return s
}
