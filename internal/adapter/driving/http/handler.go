// Package httphandler exposes the read-only status API. It is strictly a
// display consumer: every route reads registry or audit state; all writes
// stay on the scheduler loop.
package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/baghound/internal/domain/model"
)

// AccountDirectory is the read-only slice of registry behavior the API needs.
type AccountDirectory interface {
	Snapshot() []model.Account
}

// EventSource supplies recently appended audit events.
type EventSource interface {
	Recent(n int) []model.AuditEvent
}

// SchedulerStatus reports the poll loop's liveness.
type SchedulerStatus interface {
	Running() bool
	Cycles() uint64
	LastCycleAt() time.Time
}

// Handler serves the status API routes.
type Handler struct {
	accounts  AccountDirectory
	events    EventSource
	scheduler SchedulerStatus
	logger    *slog.Logger
}

// NewHandler creates a Handler over the given read-only sources.
func NewHandler(accounts AccountDirectory, events EventSource, scheduler SchedulerStatus, logger *slog.Logger) *Handler {
	return &Handler{
		accounts:  accounts,
		events:    events,
		scheduler: scheduler,
		logger:    logger,
	}
}

// RegisterAPIRoutes attaches all API routes to the mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/accounts", h.Accounts)
	mux.HandleFunc("GET /api/v1/events", h.Events)
}

// Health reports process liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Status reports the scheduler's liveness and cycle counters.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Running: h.scheduler.Running(),
		Cycles:  h.scheduler.Cycles(),
	}
	if last := h.scheduler.LastCycleAt(); !last.IsZero() {
		resp.LastCycleAt = last.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Accounts returns the current registry snapshot.
func (h *Handler) Accounts(w http.ResponseWriter, _ *http.Request) {
	accounts := h.accounts.Snapshot()
	resp := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		resp = append(resp, toAccountResponse(acc))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Events returns the most recent audit events, newest first.
func (h *Handler) Events(w http.ResponseWriter, _ *http.Request) {
	events := h.events.Recent(50)
	resp := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toEventResponse(ev))
	}
	writeJSON(w, http.StatusOK, resp)
}
