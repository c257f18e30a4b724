package driven

import (
	"context"

	"github.com/ericfisherdev/baghound/internal/domain/model"
)

// MarketClient defines the driven port for the remote marketplace API. The
// core never inspects transport details of this port; failures are
// classified purely from the returned error's text.
type MarketClient interface {
	// FetchFavorites returns the current availability snapshot for the
	// account's favorite items.
	FetchFavorites(ctx context.Context, creds model.Credentials) ([]model.ItemAvailability, error)

	// CreateOrder attempts to claim one unit of the given item. The remote
	// system is the arbiter of success; a non-nil Order means the claim was
	// accepted and must be paid out-of-band.
	CreateOrder(ctx context.Context, creds model.Credentials, itemID string) (*model.Order, error)
}
