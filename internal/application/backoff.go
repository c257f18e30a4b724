package application

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffPolicy computes cooldown durations, pacing intervals, and the
// bounded retry schedule from configuration. Every interval it hands out is
// a base value plus a bounded random perturbation, so request timing never
// synchronizes across accounts or across process restarts.
type BackoffPolicy struct {
	// TransientCooldown is applied after a generic remote failure.
	TransientCooldown time.Duration
	// ChallengeCooldown is applied after an abuse-defense response. Long
	// enough that retrying sooner would be pointless.
	ChallengeCooldown time.Duration
	// PenaltyCooldown is applied when processing an account fails in an
	// unexpected way, so one bug cannot stall every account.
	PenaltyCooldown time.Duration

	// PollInterval and PollJitter pace the main cycle: each cycle sleeps
	// PollInterval ± uniform(PollJitter).
	PollInterval time.Duration
	PollJitter   time.Duration

	// StaggerMin/StaggerMax bound the randomized pause between accounts
	// within one cycle.
	StaggerMin time.Duration
	StaggerMax time.Duration

	// AttemptDelayMin/AttemptDelayMax bound the delay between claim
	// attempts, and MaxAttempts bounds how many are made.
	AttemptDelayMin time.Duration
	AttemptDelayMax time.Duration
	MaxAttempts     int
}

// NextPollInterval returns the jittered sleep until the next cycle boundary.
// Never negative.
func (p BackoffPolicy) NextPollInterval() time.Duration {
	return clampDuration(p.PollInterval + uniform(-p.PollJitter, p.PollJitter))
}

// NextStagger returns the randomized pause between two accounts in a cycle.
func (p BackoffPolicy) NextStagger() time.Duration {
	return clampDuration(uniform(p.StaggerMin, p.StaggerMax))
}

// AttemptSchedule returns a fresh inter-attempt delay schedule for one
// reservation loop: exponential from AttemptDelayMin, capped at
// AttemptDelayMax, randomized so parallel deployments do not fire in step.
func (p BackoffPolicy) AttemptSchedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.AttemptDelayMin
	b.MaxInterval = p.AttemptDelayMax
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// uniform returns a random duration in [lo, hi]. Returns lo when the bounds
// are inverted or equal.
func uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)+1))
}

// clampDuration clamps a requested negative wait to zero.
func clampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
