package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/luminoshop/cartsync/pkg/config"
	pkgerrors "github.com/luminoshop/cartsync/pkg/errors"
	"github.com/luminoshop/cartsync/pkg/logger"
	"github.com/luminoshop/cartsync/pkg/types"
)

// Client talks to the authoritative cart API. Every call is single-attempt:
// the server's idempotency contract for replayed mutations is unconfirmed, so
// retry policy stays with the caller.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	sessionHeader string
	sessionID     string
	logg          *logger.Logger
}

// NewClient validates the upstream config and builds the API client.
func NewClient(cfg config.UpstreamConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upstream base url is required")
	}
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		baseURL:       baseURL,
		sessionHeader: cfg.SessionHeader,
		sessionID:     cfg.SessionID,
		logg:          logg,
	}, nil
}

// AddItemRequest is the payload for creating a cart line.
type AddItemRequest struct {
	ProductID        string  `json:"product_id"`
	ProductVariantID *string `json:"product_variant_id,omitempty"`
	Quantity         int     `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type applyPromotionsRequest struct {
	Codes []string `json:"codes"`
}

type emailCartRequest struct {
	Email string `json:"email"`
	Share bool   `json:"share"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// FetchCart loads the authoritative cart for the session.
func (c *Client) FetchCart(ctx context.Context) (*types.Cart, error) {
	var cart types.Cart
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem creates a line and returns the full updated cart.
func (c *Client) AddItem(ctx context.Context, req AddItemRequest) (*types.Cart, error) {
	var cart types.Cart
	if err := c.do(ctx, http.MethodPost, "/cart/items", req, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateItem changes a line's quantity and returns the full updated cart.
func (c *Client) UpdateItem(ctx context.Context, itemID string, quantity int) (*types.Cart, error) {
	var cart types.Cart
	path := "/cart/items/" + itemID
	if err := c.do(ctx, http.MethodPatch, path, updateItemRequest{Quantity: quantity}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveItem deletes a line and returns the full updated cart.
func (c *Client) RemoveItem(ctx context.Context, itemID string) (*types.Cart, error) {
	var cart types.Cart
	path := "/cart/items/" + itemID
	if err := c.do(ctx, http.MethodDelete, path, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// ApplyPromotions replaces the cart's promotion set server-side and returns
// the updated cart. Rejections carry the server message verbatim.
func (c *Client) ApplyPromotions(ctx context.Context, codes []string) (*types.Cart, error) {
	var cart types.Cart
	if err := c.do(ctx, http.MethodPost, "/cart/promotions", applyPromotionsRequest{Codes: codes}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// EmailCart triggers the server-side email send. No cart mutation.
func (c *Client) EmailCart(ctx context.Context, email string, share bool) error {
	return c.do(ctx, http.MethodPost, "/cart/email", emailCartRequest{Email: email, Share: share}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionHeader != "" && c.sessionID != "" {
		req.Header.Set(c.sessionHeader, c.sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode cart response")
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return pkgerrors.New(pkgerrors.CodeRejected, rejectionMessage(resp.Body)).
			WithDetails(map[string]any{"status": resp.StatusCode})
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("cart api returned %d", resp.StatusCode))
	}
}

func rejectionMessage(body io.Reader) string {
	var payload errorPayload
	if err := json.NewDecoder(body).Decode(&payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	return "operation rejected"
}
