package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/baghound/internal/domain/model"
)

// historyFileName is the per-account claim history file inside the
// account's folder.
const historyFileName = "orders.json"

// historyEntry is one successful claim in an account's history.
type historyEntry struct {
	ID                 string      `json:"id"`
	TimestampUTC       string      `json:"timestamp_utc"`
	ReservationDetails model.Order `json:"reservation_details"`
	ItemDetails        historyItem `json:"item_details_at_reservation"`
}

// historyItem is the item snapshot captured at reservation time.
type historyItem struct {
	ItemID      string `json:"item_id"`
	DisplayName string `json:"display_name"`
	StoreID     string `json:"store_id"`
	StoreName   string `json:"store_name"`
}

// HistoryLog appends successful claims to each account's orders.json. Every
// append rewrites the file through an atomic replace, so a crash mid-write
// can never leave a torn history behind.
type HistoryLog struct {
	dir string
}

// NewHistoryLog creates a HistoryLog rooted at the accounts directory.
func NewHistoryLog(dir string) *HistoryLog {
	return &HistoryLog{dir: dir}
}

// Append adds one claim record to the account's history. A corrupt existing
// file is reset rather than failing the append; losing unreadable history
// beats losing the new record.
func (h *HistoryLog) Append(accountName string, order model.Order, item model.ItemAvailability, at time.Time) error {
	dir := filepath.Join(h.dir, accountName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, historyFileName)

	entries := h.readExisting(path, accountName)
	entries = append(entries, historyEntry{
		ID:                 uuid.NewString(),
		TimestampUTC:       at.UTC().Format(time.RFC3339),
		ReservationDetails: order,
		ItemDetails: historyItem{
			ItemID:      item.ItemID,
			DisplayName: item.DisplayName,
			StoreID:     item.StoreID,
			StoreName:   item.StoreName,
		},
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history for %s: %w", accountName, err)
	}

	if err := atomic.WriteFile(path, strings.NewReader(string(data)+"\n")); err != nil {
		return fmt.Errorf("write history %s: %w", path, err)
	}
	return nil
}

func (h *HistoryLog) readExisting(path, accountName string) []historyEntry {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var entries []historyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("claim history corrupt, resetting", "account", accountName, "path", path, "error", err)
		return nil
	}
	return entries
}
