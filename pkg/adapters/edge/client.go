// Package edge is the HTTP client of the ticket backend edge functions.
//
// Endpoints:
//
//	POST  /tickets/draft            DraftRequest -> DraftTicket
//	PATCH /tickets/{id}             TicketPatch  -> 204
//	POST  /tickets/{id}/finalize                 -> 204
//	POST  /tickets/{id}/media       {files}      -> SignedUploads
//
// Error responses carry {"error", "code", "fields"}; 404, 409 and 422 map to
// domain.ErrTicketNotFound, domain.ErrTicketNotDraft and validation errors.
package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/pkg/domain"
)

// DefaultTimeout bounds one backend call.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client implements ports.TicketService over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("edge: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("edge: invalid base URL %q: %w", baseURL, err)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateDraft asks the backend for the draft of req.
func (c *Client) CreateDraft(ctx context.Context, req domain.DraftRequest) (domain.DraftTicket, error) {
	var out domain.DraftTicket
	if err := c.do(ctx, http.MethodPost, "/tickets/draft", req, &out); err != nil {
		return domain.DraftTicket{}, err
	}
	if out.TicketID == "" {
		return domain.DraftTicket{}, fmt.Errorf("edge: draft response without ticket_id")
	}
	return out, nil
}

// Update patches a draft.
func (c *Client) Update(ctx context.Context, ticketID string, patch domain.TicketPatch) error {
	return c.do(ctx, http.MethodPatch, "/tickets/"+url.PathEscape(ticketID), patch, nil)
}

// Finalize submits a draft.
func (c *Client) Finalize(ctx context.Context, ticketID string) error {
	return c.do(ctx, http.MethodPost, "/tickets/"+url.PathEscape(ticketID)+"/finalize", nil, nil)
}

// SignUpload requests upload slots.
func (c *Client) SignUpload(ctx context.Context, ticketID string, files []domain.FileSpec) (domain.SignedUploads, error) {
	var out domain.SignedUploads
	body := MediaRequest{Files: files}
	if err := c.do(ctx, http.MethodPost, "/tickets/"+url.PathEscape(ticketID)+"/media", body, &out); err != nil {
		return domain.SignedUploads{}, err
	}
	return out, nil
}

// do performs a JSON request. out may be nil when no body is expected.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var bodyReader io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("edge: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("edge: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("edge: request to %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("edge: failed to read response body: %w", err)
	}
	c.logger.Debug("edge call", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("edge: failed to parse %s %s response: %w", method, path, err)
		}
		return nil
	}
	return decodeError(resp.StatusCode, method, path, body)
}
