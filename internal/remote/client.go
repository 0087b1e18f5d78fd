// Package remote wraps the commerce system of record's HTTP API: session
// probing, credential submission, sign-out, and the server-side cart and
// favorites endpoints targeted by reconciliation.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meridian-shop/meridian/internal/authz"
	"github.com/meridian-shop/meridian/internal/gueststore"
	"github.com/meridian-shop/meridian/internal/shared"
)

// Profile is the success shape of the session and login endpoints.
type Profile struct {
	Identity     authz.Identity      `json:"identity"`
	Roles        []string            `json:"roles"`
	Permissions  []string            `json:"permissions"`
	Subscription *authz.Subscription `json:"subscription,omitempty"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult couples the profile with the bearer token for later calls.
type LoginResult struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

// Client talks to the system of record.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client. The transport timeout doubles as the
// probe/submission timeout: a hung call surfaces as a transport error, never
// as an indefinite authenticating state.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) do(ctx context.Context, op, method, path, token string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("remote: encode %s: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("remote: build %s: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shared.Transport(op, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// Probe asks the system of record whether a valid session exists for the
// token. A 204 means "no session", which is an expected outcome and maps to
// shared.ErrNoSession rather than a transport error.
func (c *Client) Probe(ctx context.Context, token string) (*Profile, error) {
	resp, err := c.do(ctx, "probe", http.MethodGet, "/api/v1/session", token, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusUnauthorized:
		return nil, shared.ErrNoSession
	case resp.StatusCode >= 400:
		return nil, shared.Transport("probe", fmt.Errorf("status %d", resp.StatusCode))
	}
	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, shared.Transport("probe", err)
	}
	return &profile, nil
}

// Login submits credentials. A 401 maps to shared.ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	resp, err := c.do(ctx, "login", http.MethodPost, "/api/v1/session", "", creds)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, shared.ErrInvalidCredentials
	case resp.StatusCode >= 400:
		return nil, shared.Transport("login", fmt.Errorf("status %d", resp.StatusCode))
	}
	var result LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, shared.Transport("login", err)
	}
	return &result, nil
}

// Logout invalidates the token server-side. Callers treat it as
// fire-and-forget; local state is cleared regardless of the outcome.
func (c *Client) Logout(ctx context.Context, token string) error {
	resp, err := c.do(ctx, "logout", http.MethodDelete, "/api/v1/session", token, nil)
	if err != nil {
		return err
	}
	drain(resp)
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnauthorized {
		return shared.Transport("logout", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

type cartLinePayload struct {
	ProductID int64  `json:"product_id"`
	SizeID    *int64 `json:"size_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// UpsertCartLine submits one guest cart line to the authenticated cart. The
// server upserts by (product, size) and sums quantities, so a line already
// present from a prior session is added to, not overwritten.
func (c *Client) UpsertCartLine(ctx context.Context, token string, line gueststore.CartLine) error {
	resp, err := c.do(ctx, "cart upsert", http.MethodPost, "/api/v1/cart/items", token, cartLinePayload{
		ProductID: line.ProductID,
		SizeID:    line.SizeID,
		Quantity:  line.Quantity,
	})
	if err != nil {
		return err
	}
	drain(resp)
	if resp.StatusCode >= 400 {
		return shared.Transport("cart upsert", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

type favoritePayload struct {
	ProductID int64                      `json:"product_id"`
	Product   gueststore.ProductSnapshot `json:"product"`
}

// AddFavorite submits one guest favorite. A 409 means the product is already
// favorited, which callers tolerate as success.
func (c *Client) AddFavorite(ctx context.Context, token string, fav gueststore.Favorite) error {
	resp, err := c.do(ctx, "favorite add", http.MethodPost, "/api/v1/favorites", token, favoritePayload{
		ProductID: fav.ProductID,
		Product:   fav.Product,
	})
	if err != nil {
		return err
	}
	drain(resp)
	switch {
	case resp.StatusCode == http.StatusConflict:
		return shared.ErrAlreadyExists
	case resp.StatusCode >= 400:
		return shared.Transport("favorite add", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}
