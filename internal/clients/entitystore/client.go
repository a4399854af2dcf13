// Package entitystore provides the REST client for the entity store, the
// service that owns clients, assets and allocations.
package entitystore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single request when no timeout is configured
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is read
const maxErrorBody = 64 << 10

// Client talks to the entity store REST API
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new entity store client for baseURL.
// A zero timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "entitystore").Logger(),
	}
}

// BaseURL returns the configured API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListClients fetches every client
func (c *Client) ListClients(ctx context.Context) ([]domain.Client, error) {
	var clients []domain.Client
	if err := c.do(ctx, http.MethodGet, "/clients", nil, &clients); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

// GetClient fetches a single client
func (c *Client) GetClient(ctx context.Context, id string) (domain.Client, error) {
	var client domain.Client
	if err := c.do(ctx, http.MethodGet, "/clients/"+url.PathEscape(id), nil, &client); err != nil {
		return domain.Client{}, fmt.Errorf("failed to get client %s: %w", id, err)
	}
	return client, nil
}

// CreateClient creates a client
func (c *Client) CreateClient(ctx context.Context, in domain.ClientInput) (domain.Client, error) {
	var client domain.Client
	if err := c.do(ctx, http.MethodPost, "/clients", in, &client); err != nil {
		return domain.Client{}, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// UpdateClient replaces the editable fields of a client
func (c *Client) UpdateClient(ctx context.Context, id string, in domain.ClientInput) (domain.Client, error) {
	var client domain.Client
	if err := c.do(ctx, http.MethodPut, "/clients/"+url.PathEscape(id), in, &client); err != nil {
		return domain.Client{}, fmt.Errorf("failed to update client %s: %w", id, err)
	}
	return client, nil
}

// UpdateClientStatus changes only the status of a client
func (c *Client) UpdateClientStatus(ctx context.Context, id string, status domain.ClientStatus) (domain.Client, error) {
	var client domain.Client
	body := domain.StatusInput{Status: status}
	if err := c.do(ctx, http.MethodPatch, "/clients/"+url.PathEscape(id)+"/status", body, &client); err != nil {
		return domain.Client{}, fmt.Errorf("failed to update status of client %s: %w", id, err)
	}
	return client, nil
}

// ListAssets fetches every asset
func (c *Client) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	var assets []domain.Asset
	if err := c.do(ctx, http.MethodGet, "/assets", nil, &assets); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

// GetAsset fetches a single asset
func (c *Client) GetAsset(ctx context.Context, id string) (domain.Asset, error) {
	var asset domain.Asset
	if err := c.do(ctx, http.MethodGet, "/assets/"+url.PathEscape(id), nil, &asset); err != nil {
		return domain.Asset{}, fmt.Errorf("failed to get asset %s: %w", id, err)
	}
	return asset, nil
}

// CreateAsset creates an asset
func (c *Client) CreateAsset(ctx context.Context, in domain.AssetInput) (domain.Asset, error) {
	var asset domain.Asset
	if err := c.do(ctx, http.MethodPost, "/assets", in, &asset); err != nil {
		return domain.Asset{}, fmt.Errorf("failed to create asset: %w", err)
	}
	return asset, nil
}

// UpdateAsset replaces the editable fields of an asset
func (c *Client) UpdateAsset(ctx context.Context, id string, in domain.AssetInput) (domain.Asset, error) {
	var asset domain.Asset
	if err := c.do(ctx, http.MethodPut, "/assets/"+url.PathEscape(id), in, &asset); err != nil {
		return domain.Asset{}, fmt.Errorf("failed to update asset %s: %w", id, err)
	}
	return asset, nil
}

// ListAllocations fetches every allocation with the joins the store could resolve
func (c *Client) ListAllocations(ctx context.Context) ([]domain.Allocation, error) {
	var allocations []domain.Allocation
	if err := c.do(ctx, http.MethodGet, "/allocations", nil, &allocations); err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	return allocations, nil
}

// CreateAllocation creates an allocation
func (c *Client) CreateAllocation(ctx context.Context, in domain.AllocationInput) (domain.Allocation, error) {
	var allocation domain.Allocation
	if err := c.do(ctx, http.MethodPost, "/allocations", in, &allocation); err != nil {
		return domain.Allocation{}, fmt.Errorf("failed to create allocation: %w", err)
	}
	return allocation, nil
}

// DeleteAllocation removes an allocation
func (c *Client) DeleteAllocation(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/allocations/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete allocation %s: %w", id, err)
	}
	return nil
}

// do performs one request. body is sent as JSON when non-nil; out receives
// the decoded response when non-nil. Any non-2xx status becomes an *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("Request failed")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Entity store request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
