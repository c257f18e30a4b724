package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/baghound/internal/application"
	"github.com/ericfisherdev/baghound/internal/domain/model"
)

func testCreds(suffix string) model.Credentials {
	return model.Credentials{
		AccessToken:  "access-" + suffix,
		RefreshToken: "refresh-" + suffix,
		Cookie:       "cookie-" + suffix,
		UserID:       "user-" + suffix,
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := application.NewRegistry()
	reg.Register("alice", testCreds("a"))

	acc, err := reg.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Name)
	assert.Equal(t, model.AccountStateActive, acc.State)
	assert.Equal(t, "access-a", acc.Credentials.AccessToken)
	assert.True(t, acc.CooldownUntil.IsZero())
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := application.NewRegistry()

	_, err := reg.Get("nobody")
	assert.ErrorIs(t, err, application.ErrUnknownAccount)
}

func TestRegistryReRegisterReplacesCredentialsKeepsState(t *testing.T) {
	reg := application.NewRegistry()
	reg.Register("alice", testCreds("old"))
	require.NoError(t, reg.SetCooldown("alice", time.Hour))

	reg.Register("alice", testCreds("new"))

	acc, err := reg.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "access-new", acc.Credentials.AccessToken)
	assert.Equal(t, model.AccountStateCooldown, acc.State, "re-registration must not reset state")
	assert.False(t, acc.CooldownUntil.IsZero())
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := application.NewRegistry()
	reg.Register("carol", testCreds("c"))
	reg.Register("alice", testCreds("a"))
	reg.Register("bob", testCreds("b"))

	assert.Equal(t, []string{"alice", "bob", "carol"}, reg.Names())
	assert.Equal(t, 3, reg.Len())
}

func TestRegistryCooldownBlocksUntilExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := application.NewRegistry(application.WithClock(func() time.Time { return now }))
	reg.Register("alice", testCreds("a"))

	require.NoError(t, reg.SetCooldown("alice", 5*time.Minute))

	eligible, err := reg.Eligible("alice")
	require.NoError(t, err)
	assert.False(t, eligible)

	// One nanosecond before expiry: still blocked.
	now = now.Add(5*time.Minute - time.Nanosecond)
	eligible, err = reg.Eligible("alice")
	require.NoError(t, err)
	assert.False(t, eligible)

	// At the boundary the account becomes eligible again.
	now = now.Add(time.Nanosecond)
	eligible, err = reg.Eligible("alice")
	require.NoError(t, err)
	assert.True(t, eligible)

	acc, err := reg.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, model.AccountStateActive, acc.State)
	assert.True(t, acc.CooldownUntil.IsZero(), "expiry must clear the cooldown timestamp")
}

func TestRegistryEligibleIdempotentOnceExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := application.NewRegistry(application.WithClock(func() time.Time { return now }))
	reg.Register("alice", testCreds("a"))

	require.NoError(t, reg.SetChallenged("alice", time.Minute))
	now = now.Add(2 * time.Minute)

	for range 3 {
		eligible, err := reg.Eligible("alice")
		require.NoError(t, err)
		assert.True(t, eligible)
	}
}

func TestRegistryChallengedCarriesExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := application.NewRegistry(application.WithClock(func() time.Time { return now }))
	reg.Register("alice", testCreds("a"))

	require.NoError(t, reg.SetChallenged("alice", time.Hour))

	acc, err := reg.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, model.AccountStateChallenged, acc.State)
	assert.Equal(t, now.Add(time.Hour), acc.CooldownUntil)
}

func TestRegistryNegativeCooldownClampedToZero(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := application.NewRegistry(application.WithClock(func() time.Time { return now }))
	reg.Register("alice", testCreds("a"))

	require.NoError(t, reg.SetCooldown("alice", -time.Minute))

	// Expiry is now, so the very next check reactivates.
	eligible, err := reg.Eligible("alice")
	require.NoError(t, err)
	assert.True(t, eligible)
}

func TestRegistryDisableIsTerminal(t *testing.T) {
	reg := application.NewRegistry()
	reg.Register("alice", testCreds("a"))

	require.NoError(t, reg.Disable("alice"))

	eligible, err := reg.Eligible("alice")
	require.NoError(t, err)
	assert.False(t, eligible)

	// Cooldown transitions must not resurrect a disabled account.
	require.NoError(t, reg.SetCooldown("alice", time.Nanosecond))
	require.NoError(t, reg.SetChallenged("alice", time.Nanosecond))

	acc, err := reg.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, model.AccountStateDisabled, acc.State)

	eligible, err = reg.Eligible("alice")
	require.NoError(t, err)
	assert.False(t, eligible)
}

func TestRegistryEligibleUnknown(t *testing.T) {
	reg := application.NewRegistry()

	_, err := reg.Eligible("nobody")
	assert.ErrorIs(t, err, application.ErrUnknownAccount)
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	reg := application.NewRegistry()
	reg.Register("alice", testCreds("a"))
	reg.Register("bob", testCreds("b"))

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "alice", snap[0].Name)
	assert.Equal(t, "bob", snap[1].Name)

	snap[0].State = model.AccountStateDisabled

	acc, err := reg.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, model.AccountStateActive, acc.State, "mutating a snapshot must not touch the registry")
}
