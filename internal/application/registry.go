// Package application contains the scheduling core: the account registry and
// state machine, error classification, backoff policy, the reservation
// attempt engine, and the supervisory poll scheduler.
package application

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/baghound/internal/domain/model"
)

// ErrUnknownAccount is returned for operations on a name not present in the
// registry. Callers treat it as non-fatal and skip the account.
var ErrUnknownAccount = errors.New("unknown account")

// Registry is the in-memory directory of accounts and the single authority
// on their lifecycle state. All state transitions are visible immediately to
// subsequent calls; both the scheduler and the reservation engine read and
// write through it rather than caching status locally.
//
// Steady-state operation has one writer (the scheduler loop), but mutations
// are serialized with a mutex so the credential-refresh path may also write.
// Presentation consumers read concurrently via Snapshot.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
	now      func() time.Time
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithClock overrides the registry's time source. Intended for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		accounts: make(map[string]*model.Account),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an account in the Active state. Registering an existing name
// replaces its credentials wholesale and leaves its state untouched.
func (r *Registry) Register(name string, creds model.Credentials) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if acc, ok := r.accounts[name]; ok {
		acc.Credentials = creds
		return
	}
	r.accounts[name] = &model.Account{
		Name:        name,
		Credentials: creds,
		State:       model.AccountStateActive,
	}
}

// Names returns the names of all registered accounts in a stable order.
// Callers that poll must shuffle the result themselves each cycle.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a copy of the named account.
func (r *Registry) Get(name string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[name]
	if !ok {
		return model.Account{}, ErrUnknownAccount
	}
	return *acc, nil
}

// SetState transitions the named account to the given state. Transitioning
// into Active or Disabled clears any cooldown expiry; cooldown-bearing
// states should be entered via SetCooldown or SetChallenged instead so the
// expiry invariant holds.
func (r *Registry) SetState(name string, state model.AccountState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[name]
	if !ok {
		return ErrUnknownAccount
	}
	acc.State = state
	if state == model.AccountStateActive || state == model.AccountStateDisabled {
		acc.CooldownUntil = time.Time{}
	}
	return nil
}

// SetCooldown places the account in Cooldown until now+d. A Disabled account
// stays Disabled. Negative durations are clamped to zero.
func (r *Registry) SetCooldown(name string, d time.Duration) error {
	return r.setTimedState(name, model.AccountStateCooldown, d)
}

// SetChallenged places the account in Challenged until now+d. The account
// returns to Active only through cooldown auto-expiry.
func (r *Registry) SetChallenged(name string, d time.Duration) error {
	return r.setTimedState(name, model.AccountStateChallenged, d)
}

func (r *Registry) setTimedState(name string, state model.AccountState, d time.Duration) error {
	if d < 0 {
		d = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[name]
	if !ok {
		return ErrUnknownAccount
	}
	if acc.State == model.AccountStateDisabled {
		return nil
	}
	acc.State = state
	acc.CooldownUntil = r.now().Add(d)
	return nil
}

// Disable marks the account's credentials permanently invalid. Terminal:
// the account is never polled again and no transition re-activates it.
func (r *Registry) Disable(name string) error {
	return r.SetState(name, model.AccountStateDisabled)
}

// Eligible reports whether the named account may be polled right now. An
// expired cooldown (Cooldown or Challenged state) transitions the account
// back to Active as a side effect; this auto-expiry is the only place a
// cooldown is cleared in the hot path. Checking an already-Active account is
// a no-op.
func (r *Registry) Eligible(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[name]
	if !ok {
		return false, ErrUnknownAccount
	}

	switch acc.State {
	case model.AccountStateActive:
		return true, nil
	case model.AccountStateCooldown, model.AccountStateChallenged:
		if !r.now().Before(acc.CooldownUntil) {
			acc.State = model.AccountStateActive
			acc.CooldownUntil = time.Time{}
			return true, nil
		}
		return false, nil
	default:
		return false, nil
	}
}

// Snapshot returns a copy of every account for read-only display.
func (r *Registry) Snapshot() []model.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]model.Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		accounts = append(accounts, *acc)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts
}

// Len returns the number of registered accounts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}
