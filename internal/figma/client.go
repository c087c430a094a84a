package figma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"figmagen/internal/types"
)

const DefaultBaseURL = "https://api.figma.com"

// Options configures a Client. Zero values pick defaults.
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	MaxAttempts int
	BaseDelay   time.Duration
	// RPS throttles outgoing requests; <= 0 disables throttling.
	RPS   float64
	Burst int
}

// Client talks to the Figma REST API for a single file.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	fileKey string

	maxAttempts int
	baseDelay   time.Duration
	limiter     *rpsLimiter
}

func NewClient(fileKey, token string, opts Options) (*Client, error) {
	fileKey = strings.TrimSpace(fileKey)
	if fileKey == "" {
		return nil, fmt.Errorf("figma: file key is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("figma: access token is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 300 * time.Millisecond
	}
	return &Client{
		http:        hc,
		baseURL:     base,
		token:       token,
		fileKey:     fileKey,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		limiter:     newRPSLimiter(opts.RPS, opts.Burst),
	}, nil
}

func (c *Client) FileKey() string { return c.fileKey }

// Close stops the request limiter.
func (c *Client) Close() error {
	c.limiter.Stop()
	return nil
}

func (c *Client) File(ctx context.Context) (*File, error) {
	var out File
	if err := c.getJSON(ctx, "/v1/files/"+url.PathEscape(c.fileKey), nil, &out); err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if out.Document == nil {
		return nil, fmt.Errorf("get file: %w: response has no document", types.ErrMalformedNode)
	}
	return &out, nil
}

func (c *Client) ImageFills(ctx context.Context) (map[string]string, error) {
	var out imageFillsResponse
	if err := c.getJSON(ctx, "/v1/files/"+url.PathEscape(c.fileKey)+"/images", nil, &out); err != nil {
		return nil, fmt.Errorf("get image fills: %w", err)
	}
	if out.Error {
		return nil, fmt.Errorf("get image fills: api reported error (status %d)", out.Status)
	}
	return nonNullURLs(out.Meta.Images), nil
}

func (c *Client) RenderImages(ctx context.Context, ids []string, format string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	if format == "" {
		format = "svg"
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("format", format)
	var out renderResponse
	if err := c.getJSON(ctx, "/v1/images/"+url.PathEscape(c.fileKey), q, &out); err != nil {
		return nil, fmt.Errorf("render images: %w", err)
	}
	if out.Err != nil && *out.Err != "" {
		return nil, fmt.Errorf("render images: %s", *out.Err)
	}
	return nonNullURLs(out.Images), nil
}

func (c *Client) Nodes(ctx context.Context, ids []string) (map[string]*types.Node, error) {
	if len(ids) == 0 {
		return map[string]*types.Node{}, nil
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	var out nodesResponse
	if err := c.getJSON(ctx, "/v1/files/"+url.PathEscape(c.fileKey)+"/nodes", q, &out); err != nil {
		return nil, fmt.Errorf("get nodes: %w", err)
	}
	nodes := make(map[string]*types.Node, len(out.Nodes))
	for id, entry := range out.Nodes {
		if entry == nil || entry.Document == nil {
			continue
		}
		nodes[id] = entry.Document
	}
	return nodes, nil
}

// getJSON retries transient failures with exponential backoff starting at
// baseDelay. Permanent errors and context cancellation stop immediately.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	var last error
	for i := 0; i < c.maxAttempts; i++ {
		err := c.do(ctx, path, q, out)
		if err == nil {
			return nil
		}
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return err
		}
		last = err
		if i == c.maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.baseDelay * time.Duration(1<<i)):
		}
	}
	return last
}

func (c *Client) do(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return err
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return NewPermanentError(err)
	}
	req.Header.Set("X-Figma-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classify(resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// a body that does not decode will not decode on retry either
		return NewPermanentError(fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}
