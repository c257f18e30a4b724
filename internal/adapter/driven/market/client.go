// Package market implements the MarketClient port against the marketplace's
// private JSON API.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/baghound/internal/domain/model"
	"github.com/ericfisherdev/baghound/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MarketClient = (*Client)(nil)

const (
	favoritesPath = "/api/item/"
	orderPath     = "/api/order/"

	// The marketplace rejects unknown user agents; present a mobile one.
	userAgent = "Marketplace/24.1.0 (Android 13)"
)

// Client implements the driven.MarketClient port over the marketplace's
// HTTP API. Credentials are supplied per call; one Client serves every
// account.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a marketplace API client. timeout bounds each request;
// a timeout surfaces as an ordinary transport error and is classified as
// transient upstream.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client. This
// constructor is intended for testing, allowing injection of an httptest
// server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// favoritesRequest is the listing request body. FavoritesOnly limits the
// response to items the account has favorited, which is the whole watch
// list for this system.
type favoritesRequest struct {
	UserID        string `json:"user_id"`
	FavoritesOnly bool   `json:"favorites_only"`
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
}

// itemEnvelope mirrors the marketplace's nested listing entry.
type itemEnvelope struct {
	Item struct {
		ItemID string `json:"item_id"`
	} `json:"item"`
	DisplayName    string `json:"display_name"`
	ItemsAvailable int    `json:"items_available"`
	SoldOutAt      string `json:"sold_out_at"`
	Store          struct {
		StoreID   string `json:"store_id"`
		StoreName string `json:"store_name"`
	} `json:"store"`
}

type favoritesResponse struct {
	Items []itemEnvelope `json:"items"`
}

// FetchFavorites retrieves the account's favorite items with their current
// availability and maps them to domain types.
func (c *Client) FetchFavorites(ctx context.Context, creds model.Credentials) ([]model.ItemAvailability, error) {
	reqBody := favoritesRequest{
		UserID:        creds.UserID,
		FavoritesOnly: true,
		Page:          1,
		PageSize:      100,
	}

	var resp favoritesResponse
	if err := c.post(ctx, favoritesPath, creds, reqBody, &resp); err != nil {
		return nil, fmt.Errorf("fetch favorites: %w", err)
	}

	items := make([]model.ItemAvailability, 0, len(resp.Items))
	for _, env := range resp.Items {
		items = append(items, model.ItemAvailability{
			ItemID:         env.Item.ItemID,
			StoreID:        env.Store.StoreID,
			StoreName:      env.Store.StoreName,
			DisplayName:    env.DisplayName,
			ItemsAvailable: env.ItemsAvailable,
			SoldOutAt:      env.SoldOutAt,
		})
	}
	return items, nil
}

type orderRequest struct {
	ItemCount int `json:"item_count"`
}

type orderResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// CreateOrder attempts to claim one unit of the given item. An accepted
// claim returns the marketplace's order record; every other response comes
// back as an error carrying the status line and body so the caller's
// classifier can read it.
func (c *Client) CreateOrder(ctx context.Context, creds model.Credentials, itemID string) (*model.Order, error) {
	var resp orderResponse
	if err := c.post(ctx, orderPath+itemID+"/create", creds, orderRequest{ItemCount: 1}, &resp); err != nil {
		return nil, fmt.Errorf("create order for item %s: %w", itemID, err)
	}

	if resp.ID == "" {
		return nil, fmt.Errorf("create order for item %s: response carried no order id (state %q)", itemID, resp.State)
	}

	return &model.Order{ID: resp.ID, State: resp.State, ItemID: itemID}, nil
}

// post sends an authenticated JSON request and decodes the response into
// out. Non-2xx responses become errors embedding the status and (truncated)
// body text.
func (c *Client) post(ctx context.Context, path string, creds model.Credentials, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Cookie", creds.Cookie)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// Bounded read: error bodies only matter for their leading text.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
