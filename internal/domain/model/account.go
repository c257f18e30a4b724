package model

import "time"

// AccountState represents where an account sits in its polling lifecycle.
type AccountState string

const (
	// AccountStateActive means the account is eligible for polling.
	AccountStateActive AccountState = "active"
	// AccountStateCooldown means the account is deliberately not polled
	// until its cooldown expiry passes.
	AccountStateCooldown AccountState = "cooldown"
	// AccountStateChallenged means the remote system flagged the account
	// with an abuse-defense response (e.g. a CAPTCHA). Functionally a long
	// cooldown, kept distinct so operators can see why.
	AccountStateChallenged AccountState = "challenged"
	// AccountStateDisabled is terminal: the account's credentials are
	// permanently invalid and it is never polled again.
	AccountStateDisabled AccountState = "disabled"
)

// Credentials is the auth material for one marketplace account. The
// scheduler treats it as opaque: it is never mutated in place, only
// replaced wholesale when the credential store reloads.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Cookie       string `json:"cookie"`
	UserID       string `json:"user_id"`
}

// Complete reports whether the credential blob carries everything the
// marketplace API requires. Incomplete credentials are never registered.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && c.Cookie != ""
}

// Account is one independently-authenticated marketplace account. Name is
// the unique, stable key; accounts are never deleted during a run (a
// permanently broken account becomes Disabled instead, so audit history
// keyed by its name stays meaningful).
type Account struct {
	Name        string
	Credentials Credentials
	State       AccountState
	// CooldownUntil is non-zero only while State is Cooldown or Challenged.
	CooldownUntil time.Time
}
