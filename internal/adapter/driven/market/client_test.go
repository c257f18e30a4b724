package market_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/baghound/internal/adapter/driven/market"
	"github.com/ericfisherdev/baghound/internal/domain/model"
)

func testCreds() model.Credentials {
	return model.Credentials{
		AccessToken:  "token-123",
		RefreshToken: "refresh-123",
		Cookie:       "datadome=abc",
		UserID:       "user-9",
	}
}

func TestFetchFavorites(t *testing.T) {
	var gotAuth, gotCookie, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCookie = r.Header.Get("Cookie")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{
			"items": [
				{
					"item": {"item_id": "item-1"},
					"display_name": "Surprise Bag",
					"items_available": 2,
					"sold_out_at": "",
					"store": {"store_id": "store-1", "store_name": "Corner Bakery"}
				},
				{
					"item": {"item_id": "item-2"},
					"display_name": "Pastry Box",
					"items_available": 0,
					"sold_out_at": "2026-03-01T08:15:00Z",
					"store": {"store_id": "store-2", "store_name": "Patisserie"}
				}
			]
		}`))
	}))
	defer srv.Close()

	client := market.NewClientWithHTTPClient(srv.Client(), srv.URL)

	items, err := client.FetchFavorites(context.Background(), testCreds())
	require.NoError(t, err)

	assert.Equal(t, "/api/item/", gotPath)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "datadome=abc", gotCookie)
	assert.Equal(t, "user-9", gotBody["user_id"])
	assert.Equal(t, true, gotBody["favorites_only"])

	require.Len(t, items, 2)
	assert.Equal(t, model.ItemAvailability{
		ItemID:         "item-1",
		StoreID:        "store-1",
		StoreName:      "Corner Bakery",
		DisplayName:    "Surprise Bag",
		ItemsAvailable: 2,
	}, items[0])
	assert.Equal(t, 0, items[1].ItemsAvailable)
	assert.Equal(t, "2026-03-01T08:15:00Z", items[1].SoldOutAt)
}

func TestFetchFavoritesEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	client := market.NewClientWithHTTPClient(srv.Client(), srv.URL)

	items, err := client.FetchFavorites(context.Background(), testCreds())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchFavoritesErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("captcha required"))
	}))
	defer srv.Close()

	client := market.NewClientWithHTTPClient(srv.Client(), srv.URL)

	_, err := client.FetchFavorites(context.Background(), testCreds())
	require.Error(t, err)
	// The classifier reads the message text, so both the status line and the
	// body must survive into the error.
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "captcha required")
}

func TestCreateOrder(t *testing.T) {
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id": "order-55", "state": "RESERVED"}`))
	}))
	defer srv.Close()

	client := market.NewClientWithHTTPClient(srv.Client(), srv.URL)

	order, err := client.CreateOrder(context.Background(), testCreds(), "item-1")
	require.NoError(t, err)

	assert.Equal(t, "/api/order/item-1/create", gotPath)
	assert.Equal(t, "order-55", order.ID)
	assert.Equal(t, "RESERVED", order.State)
	assert.Equal(t, "item-1", order.ItemID)
}

func TestCreateOrderMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"state": "FAILED"}`))
	}))
	defer srv.Close()

	client := market.NewClientWithHTTPClient(srv.Client(), srv.URL)

	_, err := client.CreateOrder(context.Background(), testCreds(), "item-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no order id")
}

func TestCreateOrderSoldOutBodySurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error": "sold out"}`))
	}))
	defer srv.Close()

	client := market.NewClientWithHTTPClient(srv.Client(), srv.URL)

	_, err := client.CreateOrder(context.Background(), testCreds(), "item-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sold out")
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	client := market.NewClientWithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}, srv.URL)

	_, err := client.FetchFavorites(context.Background(), testCreds())
	assert.Error(t, err)
}
