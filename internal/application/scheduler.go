package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/baghound/internal/domain/model"
	"github.com/ericfisherdev/baghound/internal/domain/port/driven"
)

// Scheduler is the supervisory poll loop. Each cycle it shuffles the
// registered accounts, checks eligibility, fetches availability, and hands
// available items to the reservation engine, pacing everything with
// jittered sleeps. Accounts are processed one at a time: parallel claims
// for the same scarce item would not raise aggregate odds and would only
// multiply the chance of tripping abuse defenses.
type Scheduler struct {
	registry      *Registry
	market        driven.MarketClient
	engine        *Engine
	audit         driven.AuditLog
	classifier    *Classifier
	policy        BackoffPolicy
	trackedStores map[string]bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	cycles    atomic.Uint64
	lastCycle atomic.Int64 // unix nanos of last completed cycle
}

// NewScheduler creates a Scheduler. trackedStoreIDs names the stores whose
// sellouts are audit-worthy even when no claim was attempted.
func NewScheduler(
	registry *Registry,
	market driven.MarketClient,
	engine *Engine,
	audit driven.AuditLog,
	classifier *Classifier,
	policy BackoffPolicy,
	trackedStoreIDs []string,
) *Scheduler {
	tracked := make(map[string]bool, len(trackedStoreIDs))
	for _, id := range trackedStoreIDs {
		if id != "" {
			tracked[id] = true
		}
	}
	return &Scheduler{
		registry:      registry,
		market:        market,
		engine:        engine,
		audit:         audit,
		classifier:    classifier,
		policy:        policy,
		trackedStores: tracked,
	}
}

// Start launches the polling loop in a background goroutine. Calling Start
// on an already-running scheduler is a no-op. The loop also stops when ctx
// is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		slog.Info("scheduler already running")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(loopCtx)
	slog.Info("scheduler started")
}

// Stop requests the loop to finish its current account and return, then
// waits up to timeout for it to do so. Stopping a stopped scheduler is a
// no-op.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
		slog.Info("scheduler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("scheduler did not stop within %s", timeout)
	}
}

// Running reports whether the polling loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Cycles returns how many full poll cycles have completed.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles.Load()
}

// LastCycleAt returns when the last cycle completed, or the zero time if no
// cycle has completed yet.
func (s *Scheduler) LastCycleAt() time.Time {
	n := s.lastCycle.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (s *Scheduler) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		close(s.done)
		s.mu.Unlock()
	}()

	for ctx.Err() == nil {
		names := s.registry.Names()
		if len(names) == 0 {
			// Accounts may load asynchronously or late; wait a full
			// interval and look again.
			slog.Info("no accounts registered, waiting")
			if !sleepCtx(ctx, s.policy.NextPollInterval()) {
				return
			}
			continue
		}

		cycleID := uuid.NewString()[:8]
		start := time.Now()

		// Fresh permutation every cycle so no account habitually goes
		// first or last in the race for scarce inventory.
		rand.Shuffle(len(names), func(i, j int) {
			names[i], names[j] = names[j], names[i]
		})

		var processed, skipped int
		for _, name := range names {
			if ctx.Err() != nil {
				return
			}
			if s.processAccount(ctx, name) {
				processed++
			} else {
				skipped++
			}
			if !sleepCtx(ctx, s.policy.NextStagger()) {
				return
			}
		}

		s.cycles.Add(1)
		s.lastCycle.Store(time.Now().UnixNano())
		slog.Info("poll cycle complete",
			"cycle_id", cycleID,
			"accounts", len(names),
			"processed", processed,
			"skipped", skipped,
			"duration", time.Since(start).Round(time.Millisecond),
		)

		if !sleepCtx(ctx, s.policy.NextPollInterval()) {
			return
		}
	}
}

// processAccount runs one account through eligibility, availability, and
// reservation. It reports whether the account was actually polled. A panic
// while processing must not abort the cycle: it is caught, the account is
// forced into a long cooldown, and the loop moves on.
func (s *Scheduler) processAccount(ctx context.Context, name string) (polled bool) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("unexpected failure processing account",
				"account", name, "panic", v)
			if err := s.registry.SetCooldown(name, s.policy.PenaltyCooldown); err != nil {
				slog.Error("penalty cooldown failed", "account", name, "error", err)
			}
		}
	}()

	eligible, err := s.registry.Eligible(name)
	if err != nil {
		// Unknown accounts are non-fatal; the registry may have changed
		// under us via a credential reload.
		slog.Warn("eligibility check failed", "account", name, "error", err)
		return false
	}
	if !eligible {
		slog.Debug("account not eligible, skipping", "account", name)
		return false
	}

	account, err := s.registry.Get(name)
	if err != nil {
		slog.Warn("account vanished before poll", "account", name, "error", err)
		return false
	}

	items, err := s.market.FetchFavorites(ctx, account.Credentials)
	if err != nil {
		s.handleFetchError(name, err)
		return true
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return true
		}

		if item.ItemsAvailable > 0 {
			slog.Info("item available",
				"account", name,
				"item", item.ItemID,
				"item_name", item.DisplayName,
				"store", item.StoreName,
				"quantity", item.ItemsAvailable,
			)
			res := s.engine.Attempt(ctx, account, item)
			if res.Outcome == OutcomeChallenge {
				// The account is burned for a while; stop touching it.
				if err := s.registry.SetChallenged(name, s.policy.ChallengeCooldown); err != nil {
					slog.Error("challenge transition failed", "account", name, "error", err)
				}
				return true
			}
			// Success, sold-out, and exhausted all leave the account
			// Active: losing a race is not a reason to stop racing.
			if res.Outcome == OutcomeExhausted {
				slog.Warn("reservation attempts exhausted",
					"account", name, "item", item.ItemID, "attempts", res.Attempts)
			}
			continue
		}

		if s.trackedStores[item.StoreID] && item.SoldOutAt != "" {
			if err := s.audit.AppendSellout(name, item, model.EventTypeSoldOut); err != nil {
				slog.Error("sellout audit write failed",
					"account", name, "item", item.ItemID, "error", err)
			}
		}
	}

	return true
}

// handleFetchError converts an availability-fetch failure into the account's
// next state.
func (s *Scheduler) handleFetchError(name string, err error) {
	msg := err.Error()
	if s.classifier.Classify(msg) == ClassChallenge {
		slog.Warn("challenge during availability fetch", "account", name, "error", msg)
		if serr := s.registry.SetChallenged(name, s.policy.ChallengeCooldown); serr != nil {
			slog.Error("challenge transition failed", "account", name, "error", serr)
		}
		return
	}
	slog.Warn("availability fetch failed", "account", name, "error", msg)
	if serr := s.registry.SetCooldown(name, s.policy.TransientCooldown); serr != nil {
		slog.Error("cooldown transition failed", "account", name, "error", serr)
	}
}

// sleepCtx sleeps for d or until ctx is canceled, reporting whether the full
// sleep elapsed. Non-positive durations return immediately.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
