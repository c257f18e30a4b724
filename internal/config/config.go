// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration. Every field is read from a
// BAGHOUND_-prefixed environment variable, with a .env file honored when
// present.
type Config struct {
	// ListenAddr is where the read-only status API binds.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:"127.0.0.1:8080" validate:"required"`

	// APIBaseURL is the marketplace API root.
	APIBaseURL string `envconfig:"API_BASE_URL" default:"https://marketplace.example.com" validate:"required,url"`
	// RequestTimeout bounds every remote call; a timeout is classified as a
	// transient error.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"20s"`

	// AccountsPath is the directory of per-account credential folders; it
	// also receives the per-account claim history files.
	AccountsPath string `envconfig:"ACCOUNTS_PATH" default:"./accounts" validate:"required"`
	// SelloutLogPath is the shared append-only CSV audit log.
	SelloutLogPath string `envconfig:"SELLOUT_LOG_PATH" default:"./sellout_log.csv" validate:"required"`

	// BasePollInterval and PollJitter pace the main cycle: sleep
	// BasePollInterval ± uniform(PollJitter) between cycles.
	BasePollInterval time.Duration `envconfig:"BASE_POLL_INTERVAL" default:"70s"`
	PollJitter       time.Duration `envconfig:"POLL_JITTER" default:"10s"`

	// TransientCooldown is applied after a generic remote failure,
	// ChallengeCooldown after an abuse-defense response, and
	// PenaltyCooldown after an unexpected processing failure.
	TransientCooldown time.Duration `envconfig:"TRANSIENT_COOLDOWN" default:"5m"`
	ChallengeCooldown time.Duration `envconfig:"CHALLENGE_COOLDOWN" default:"1h"`
	PenaltyCooldown   time.Duration `envconfig:"PENALTY_COOLDOWN" default:"15m"`

	// MaxReservationAttempts bounds the claim loop for one available item.
	MaxReservationAttempts int `envconfig:"MAX_RESERVATION_ATTEMPTS" default:"3" validate:"min=1"`
	// AttemptDelayMin/AttemptDelayMax bound the jittered delay between
	// claim attempts.
	AttemptDelayMin time.Duration `envconfig:"ATTEMPT_DELAY_MIN" default:"1s"`
	AttemptDelayMax time.Duration `envconfig:"ATTEMPT_DELAY_MAX" default:"3s"`

	// StaggerMin/StaggerMax bound the randomized pause between accounts
	// within a cycle.
	StaggerMin time.Duration `envconfig:"STAGGER_MIN" default:"1s"`
	StaggerMax time.Duration `envconfig:"STAGGER_MAX" default:"3s"`

	// TrackedStoreIDs names the stores whose sellouts are audit-worthy even
	// when no claim was attempted. Comma-separated.
	TrackedStoreIDs []string `envconfig:"TRACKED_STORE_IDS"`
	// ChallengeKeywords overrides the abuse-signal keyword list.
	// Comma-separated; empty keeps the built-in defaults.
	ChallengeKeywords []string `envconfig:"CHALLENGE_KEYWORDS"`

	// NotifyCommand is an external command run on each successful claim
	// with the message appended as its final argument. Empty disables
	// outbound notification (sends are logged only).
	NotifyCommand string        `envconfig:"NOTIFY_COMMAND"`
	NotifyTimeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`

	// CredentialBackend selects where credentials are loaded from:
	// "file" (directory of credentials.json files) or "sqlite"
	// (encrypted database).
	CredentialBackend string `envconfig:"CREDENTIAL_BACKEND" default:"file" validate:"oneof=file sqlite"`
	// DBPath is the sqlite database path for the sqlite backend.
	DBPath string `envconfig:"DB_PATH" default:"./baghound.db"`
	// SecretKey is the base64-encoded 32-byte AES-256 key for the sqlite
	// backend's credential encryption. Optional for the file backend.
	SecretKey string `envconfig:"SECRET_KEY"`
}

// NotifyCommandArgs splits NotifyCommand into argv form. Returns nil when
// notification is disabled.
func (c *Config) NotifyCommandArgs() []string {
	fields := strings.Fields(c.NotifyCommand)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Load reads configuration from the environment (and a .env file when
// present) and returns a validated Config.
func Load() (*Config, error) {
	// A missing .env file is fine; real environments set variables directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("baghound", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	if err := cfg.checkDurations(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// checkDurations enforces the cross-field constraints the struct tags cannot
// express.
func (c *Config) checkDurations() error {
	positives := map[string]time.Duration{
		"BAGHOUND_BASE_POLL_INTERVAL": c.BasePollInterval,
		"BAGHOUND_REQUEST_TIMEOUT":    c.RequestTimeout,
		"BAGHOUND_TRANSIENT_COOLDOWN": c.TransientCooldown,
		"BAGHOUND_CHALLENGE_COOLDOWN": c.ChallengeCooldown,
		"BAGHOUND_PENALTY_COOLDOWN":   c.PenaltyCooldown,
	}
	for name, d := range positives {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.PollJitter < 0 {
		return fmt.Errorf("BAGHOUND_POLL_JITTER must not be negative, got %s", c.PollJitter)
	}
	if c.PollJitter >= c.BasePollInterval {
		return fmt.Errorf("BAGHOUND_POLL_JITTER (%s) must be smaller than the base poll interval (%s)",
			c.PollJitter, c.BasePollInterval)
	}
	if c.AttemptDelayMin < 0 || c.AttemptDelayMax < c.AttemptDelayMin {
		return fmt.Errorf("attempt delay bounds invalid: min %s, max %s", c.AttemptDelayMin, c.AttemptDelayMax)
	}
	if c.StaggerMin < 0 || c.StaggerMax < c.StaggerMin {
		return fmt.Errorf("stagger bounds invalid: min %s, max %s", c.StaggerMin, c.StaggerMax)
	}

	return nil
}
