package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/baghound/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by encrypted credential backends when
// BAGHOUND_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set BAGHOUND_SECRET_KEY")

// CredentialStore defines the driven port for account credential loading.
// Entries that are missing, corrupt, or incomplete are excluded from the
// result rather than reported as errors; the registry only ever sees
// accounts that can actually be polled.
type CredentialStore interface {
	// LoadAll returns the credentials of every loadable account, keyed by
	// account name.
	LoadAll(ctx context.Context) (map[string]model.Credentials, error)
}
