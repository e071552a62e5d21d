package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/classroute/routeconsole/pkg/models"
)

// TeacherHeader carries the active identity on every request.
const TeacherHeader = "X-Teacher-Id"

// Client is the HTTP implementation of Backend.
type Client struct {
	baseURL  string
	client   *http.Client
	identity atomic.Value // string
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
	c.identity.Store("")
	return c
}

// SetIdentity switches the teacher identity sent with subsequent requests.
func (c *Client) SetIdentity(id string) {
	c.identity.Store(id)
}

// Identity returns the currently active teacher identity.
func (c *Client) Identity() string {
	v, _ := c.identity.Load().(string)
	return v
}

// do issues one JSON request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := c.Identity(); id != "" {
		req.Header.Set(TeacherHeader, id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) FetchOverview(ctx context.Context) (*models.Overview, error) {
	var ov models.Overview
	if err := c.do(ctx, http.MethodGet, "/routing/overview", nil, &ov); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	return &ov, nil
}

func (c *Client) FetchRegistry(ctx context.Context) ([]models.RegistryEntry, error) {
	var entries []models.RegistryEntry
	if err := c.do(ctx, http.MethodGet, "/providers", nil, &entries); err != nil {
		return nil, fmt.Errorf("provider registry: %w", err)
	}
	return entries, nil
}

func (c *Client) Simulate(ctx context.Context, req *models.SimulateRequest) (*models.Decision, error) {
	var dec models.Decision
	if err := c.do(ctx, http.MethodPost, "/routing/simulate", req, &dec); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	return &dec, nil
}

func (c *Client) CreateProposal(ctx context.Context, req *models.ProposalRequest) (*models.Proposal, error) {
	var p models.Proposal
	if err := c.do(ctx, http.MethodPost, "/routing/proposals", req, &p); err != nil {
		return nil, fmt.Errorf("create proposal: %w", err)
	}
	return &p, nil
}

func (c *Client) ReviewProposal(ctx context.Context, id string, approve bool, note string) (*models.Proposal, error) {
	payload := map[string]any{"approve": approve, "note": note}
	var p models.Proposal
	if err := c.do(ctx, http.MethodPost, "/routing/proposals/"+url.PathEscape(id)+"/review", payload, &p); err != nil {
		return nil, fmt.Errorf("review proposal: %w", err)
	}
	return &p, nil
}

func (c *Client) ProposalDetail(ctx context.Context, id string) (*models.Proposal, error) {
	var p models.Proposal
	if err := c.do(ctx, http.MethodGet, "/routing/proposals/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, fmt.Errorf("proposal detail: %w", err)
	}
	return &p, nil
}

func (c *Client) Rollback(ctx context.Context, version int, note string) error {
	payload := map[string]any{"version": version, "note": note}
	if err := c.do(ctx, http.MethodPost, "/routing/rollback", payload, nil); err != nil {
		return fmt.Errorf("rollback to version %d: %w", version, err)
	}
	return nil
}

func (c *Client) CreateRegistryEntry(ctx context.Context, entry *models.RegistryEntry) (*models.RegistryEntry, error) {
	var out models.RegistryEntry
	if err := c.do(ctx, http.MethodPost, "/providers", entry, &out); err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateRegistryEntry(ctx context.Context, id string, entry *models.RegistryEntry) (*models.RegistryEntry, error) {
	var out models.RegistryEntry
	if err := c.do(ctx, http.MethodPatch, "/providers/"+url.PathEscape(id), entry, &out); err != nil {
		return nil, fmt.Errorf("update provider: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteRegistryEntry(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/providers/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete provider: %w", err)
	}
	return nil
}

func (c *Client) ProbeModels(ctx context.Context, provider string) ([]string, error) {
	var out struct {
		Models []string `json:"models"`
	}
	if err := c.do(ctx, http.MethodPost, "/providers/"+url.PathEscape(provider)+"/probe-models", nil, &out); err != nil {
		return nil, fmt.Errorf("probe models: %w", err)
	}
	return out.Models, nil
}

var _ Backend = (*Client)(nil)
