package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/baghound/internal/domain/model"
	"github.com/ericfisherdev/baghound/internal/domain/port/driven"
)

// Outcome is the result of one bounded reservation loop.
type Outcome string

const (
	// OutcomeSuccess means the claim was accepted; OrderID is set.
	OutcomeSuccess Outcome = "success"
	// OutcomeSoldOut means the item was gone before a claim landed.
	// Expected and frequent, not a failure.
	OutcomeSoldOut Outcome = "sold_out"
	// OutcomeChallenge means the remote system answered with an
	// abuse-defense response; the loop aborts without consuming the
	// remaining attempts since the account is about to cool down anyway.
	OutcomeChallenge Outcome = "challenge"
	// OutcomeExhausted means every attempt failed transiently.
	OutcomeExhausted Outcome = "exhausted"
)

// Result carries the outcome of a reservation loop along with the order
// identifier (on success) and how many claim calls were made.
type Result struct {
	Outcome  Outcome
	OrderID  string
	Attempts int
}

// Engine drives the bounded-retry claim loop for a single account against a
// single available item. On success it records the reservation and fires a
// notification; on sellout it records the sellout. Account state transitions
// stay with the caller.
type Engine struct {
	market     driven.MarketClient
	audit      driven.AuditLog
	notifier   driven.Notifier
	classifier *Classifier
	policy     BackoffPolicy
}

// NewEngine creates a reservation Engine.
func NewEngine(
	market driven.MarketClient,
	audit driven.AuditLog,
	notifier driven.Notifier,
	classifier *Classifier,
	policy BackoffPolicy,
) *Engine {
	return &Engine{
		market:     market,
		audit:      audit,
		notifier:   notifier,
		classifier: classifier,
		policy:     policy,
	}
}

// Attempt tries to claim one unit of item for the account, making at most
// MaxAttempts claim calls. It stops immediately on the first challenge or
// sold-out result; only generic transient errors consume further attempts,
// each separated by a short jittered delay.
func (e *Engine) Attempt(ctx context.Context, account model.Account, item model.ItemAvailability) Result {
	delays := e.policy.AttemptSchedule()

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		order, err := e.market.CreateOrder(ctx, account.Credentials, item.ItemID)
		if err == nil {
			e.recordReservation(ctx, account.Name, *order, item)
			return Result{Outcome: OutcomeSuccess, OrderID: order.ID, Attempts: attempt}
		}

		msg := err.Error()
		if e.classifier.Classify(msg) == ClassChallenge {
			slog.Warn("challenge during claim",
				"account", account.Name,
				"item", item.ItemID,
				"attempt", attempt,
				"error", msg,
			)
			return Result{Outcome: OutcomeChallenge, Attempts: attempt}
		}
		if e.classifier.IsSoldOut(msg) {
			slog.Info("item sold out during claim",
				"account", account.Name,
				"item", item.ItemID,
				"item_name", item.DisplayName,
				"attempt", attempt,
			)
			if auditErr := e.audit.AppendSellout(account.Name, item, model.EventTypeSoldOutOrder); auditErr != nil {
				slog.Error("sellout audit write failed",
					"account", account.Name, "item", item.ItemID, "error", auditErr)
			}
			return Result{Outcome: OutcomeSoldOut, Attempts: attempt}
		}

		slog.Warn("claim attempt failed",
			"account", account.Name,
			"item", item.ItemID,
			"attempt", attempt,
			"max_attempts", e.policy.MaxAttempts,
			"error", msg,
		)
		if attempt < e.policy.MaxAttempts {
			if !sleepCtx(ctx, delays.NextBackOff()) {
				return Result{Outcome: OutcomeExhausted, Attempts: attempt}
			}
		}
	}

	return Result{Outcome: OutcomeExhausted, Attempts: e.policy.MaxAttempts}
}

// recordReservation appends the audit record and then notifies. The audit
// append happens first: a delivery failure is logged but never unwinds a
// recorded reservation.
func (e *Engine) recordReservation(ctx context.Context, accountName string, order model.Order, item model.ItemAvailability) {
	slog.Info("reservation succeeded",
		"account", accountName,
		"item", item.ItemID,
		"item_name", item.DisplayName,
		"store", item.StoreName,
		"order_id", order.ID,
	)

	if err := e.audit.AppendReservation(accountName, order, item); err != nil {
		slog.Error("reservation audit write failed",
			"account", accountName, "item", item.ItemID, "order_id", order.ID, "error", err)
	}

	message := fmt.Sprintf(
		"Reserved %q from %s on account %s! Complete payment in the app ASAP. Order ID: %s",
		item.DisplayName, item.StoreName, accountName, order.ID,
	)
	if err := e.notifier.Send(ctx, message); err != nil {
		slog.Error("notification delivery failed",
			"account", accountName, "order_id", order.ID, "error", err)
	}
}
