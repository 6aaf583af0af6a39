// Package powerbi collects Power BI admin metadata: capacities, workspaces
// and the artifacts inside each workspace.
package powerbi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fabricmgr/fabricmgr/internal/config"
	"github.com/fabricmgr/fabricmgr/internal/credentials"
	"github.com/fabricmgr/fabricmgr/internal/logger"
)

// TokenSource supplies bearer tokens for admin API calls.
type TokenSource interface {
	Token(ctx context.Context, scopes []string) (string, error)
}

// Item is one raw JSON object from a list response.
type Item = map[string]any

// listResponse is the admin API list envelope. Large listings carry a
// continuation link to the next page; the field name varies by endpoint.
type listResponse struct {
	Value           []Item `json:"value"`
	ContinuationURI string `json:"continuationUri"`
	NextLink        string `json:"@odata.nextLink"`
}

// Client is a Power BI admin REST client. Every request waits on the shared
// rate limiter first; the admin API throttles aggressively.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	log     logger.Logger
}

// NewClient creates a client over the configured endpoint and rate budget.
func NewClient(log logger.Logger, cfg config.PowerBI, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: 60 * time.Second},
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		log:     log,
	}
}

// Capacities lists the tenant's Premium capacities.
func (c *Client) Capacities(ctx context.Context) ([]Item, error) {
	return c.list(ctx, "/admin/capacities", nil)
}

// Workspaces lists every workspace in the tenant. The admin endpoint
// requires an explicit $top.
func (c *Client) Workspaces(ctx context.Context) ([]Item, error) {
	return c.list(ctx, "/admin/groups", url.Values{"$top": {"5000"}})
}

// WorkspaceUsers lists the principals with access to one workspace.
func (c *Client) WorkspaceUsers(ctx context.Context, workspaceID string) ([]Item, error) {
	return c.list(ctx, "/admin/groups/"+url.PathEscape(workspaceID)+"/users", nil)
}

// Dashboards lists one workspace's dashboards.
func (c *Client) Dashboards(ctx context.Context, workspaceID string) ([]Item, error) {
	return c.list(ctx, "/admin/groups/"+url.PathEscape(workspaceID)+"/dashboards", nil)
}

// Dataflows lists one workspace's dataflows.
func (c *Client) Dataflows(ctx context.Context, workspaceID string) ([]Item, error) {
	return c.list(ctx, "/admin/groups/"+url.PathEscape(workspaceID)+"/dataflows", nil)
}

// Datasets lists one workspace's datasets.
func (c *Client) Datasets(ctx context.Context, workspaceID string) ([]Item, error) {
	return c.list(ctx, "/admin/groups/"+url.PathEscape(workspaceID)+"/datasets", nil)
}

// list walks every page of an admin listing, following the continuation
// link until absent.
func (c *Client) list(ctx context.Context, path string, query url.Values) ([]Item, error) {
	next := c.baseURL + path
	if len(query) > 0 {
		next += "?" + query.Encode()
	}

	var items []Item
	for next != "" {
		page, err := c.getPage(ctx, next)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Value...)
		next = page.ContinuationURI
		if next == "" {
			next = page.NextLink
		}
	}
	return items, nil
}

func (c *Client) getPage(ctx context.Context, rawURL string) (*listResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	token, err := c.tokens.Token(ctx, []string{credentials.PowerBIScope})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("powerbi API returned %d for %s: %s",
			resp.StatusCode, rawURL, strings.TrimSpace(string(snippet)))
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &page, nil
}
