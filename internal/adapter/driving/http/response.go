package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/baghound/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it with the given status code. If
// marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// StatusResponse reports the scheduler's state.
type StatusResponse struct {
	Running     bool   `json:"running"`
	Cycles      uint64 `json:"cycles"`
	LastCycleAt string `json:"last_cycle_at,omitempty"`
}

// AccountResponse is the JSON representation of one account.
type AccountResponse struct {
	Name          string `json:"name"`
	State         string `json:"state"`
	CooldownUntil string `json:"cooldown_until,omitempty"`
}

// EventResponse is the JSON representation of one audit event.
type EventResponse struct {
	Timestamp    string `json:"timestamp"`
	AccountName  string `json:"account_name"`
	ItemID       string `json:"item_id"`
	ItemName     string `json:"item_name"`
	StoreID      string `json:"store_id"`
	StoreName    string `json:"store_name"`
	EventType    string `json:"event_type"`
	APISoldOutAt string `json:"sold_out_at_api,omitempty"`
}

// toAccountResponse converts a domain Account to its JSON representation.
// Credentials never leave the process.
func toAccountResponse(acc model.Account) AccountResponse {
	resp := AccountResponse{
		Name:  acc.Name,
		State: string(acc.State),
	}
	if !acc.CooldownUntil.IsZero() {
		resp.CooldownUntil = acc.CooldownUntil.UTC().Format(time.RFC3339)
	}
	return resp
}

// toEventResponse converts a domain AuditEvent to its JSON representation.
func toEventResponse(ev model.AuditEvent) EventResponse {
	return EventResponse{
		Timestamp:    ev.Timestamp.UTC().Format(time.RFC3339),
		AccountName:  ev.AccountName,
		ItemID:       ev.ItemID,
		ItemName:     ev.ItemName,
		StoreID:      ev.StoreID,
		StoreName:    ev.StoreName,
		EventType:    string(ev.EventType),
		APISoldOutAt: ev.APISoldOutAt,
	}
}
