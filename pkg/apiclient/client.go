package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harun/apigate/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 20 * time.Second

// maxBodySize caps how much of an upstream response is read.
const maxBodySize = 10 << 20

// AuthScheme selects how the credential is attached to requests.
type AuthScheme int

const (
	// AuthNone sends no credential. Only AuthNone clients accept absolute URLs.
	AuthNone AuthScheme = iota
	// AuthBearer sends "Authorization: Bearer <credential>".
	AuthBearer
	// AuthQueryToken sends the credential as the access_token query parameter.
	AuthQueryToken
)

func (s AuthScheme) String() string {
	switch s {
	case AuthBearer:
		return "bearer"
	case AuthQueryToken:
		return "query_token"
	default:
		return "none"
	}
}

// Config configures a Client.
type Config struct {
	// API names the upstream in error messages and metrics ("GHL", "Meta").
	API     string
	BaseURL string
	// Version is inserted as a path segment after BaseURL when non-empty.
	Version    string
	Auth       AuthScheme
	Credential string
	// Headers are sent with every request, e.g. a pinned API version header.
	Headers    map[string]string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is an authenticated client for one external API. It is immutable
// and safe for concurrent use.
type Client struct {
	api        string
	base       *url.URL
	auth       AuthScheme
	credential string
	headers    map[string]string
	httpClient *http.Client
}

// Request describes one upstream call.
type Request struct {
	Method string
	// Path is appended to the versioned base URL. AuthNone clients may pass
	// an absolute http(s) URL instead.
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body interface{}
	// AcceptText allows a non-JSON 2xx body.
	AcceptText bool
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.API == "" {
		return nil, fmt.Errorf("api name cannot be empty")
	}
	if cfg.Auth != AuthNone && cfg.Credential == "" {
		return nil, fmt.Errorf("%s: credential required for %s auth", cfg.API, cfg.Auth)
	}

	var base *url.URL
	if cfg.BaseURL != "" {
		parsed, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("%s: invalid base url: %w", cfg.API, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, fmt.Errorf("%s: base url must be http or https", cfg.API)
		}
		if cfg.Version != "" {
			parsed = parsed.JoinPath(cfg.Version)
		}
		base = parsed
	} else if cfg.Auth != AuthNone {
		return nil, fmt.Errorf("%s: base url required", cfg.API)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Client{
		api:        cfg.API,
		base:       base,
		auth:       cfg.Auth,
		credential: cfg.Credential,
		headers:    headers,
		httpClient: httpClient,
	}, nil
}

// API returns the upstream name.
func (c *Client) API() string {
	return c.api
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body interface{}) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Query: query, Body: body})
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Do executes req. The credential is attached exactly once according to the
// client's AuthScheme, replacing any caller-supplied value.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request body: %w", c.api, err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.api, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	if c.auth == AuthBearer {
		httpReq.Header.Set("Authorization", "Bearer "+c.credential)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		observability.RecordUpstreamRequest(c.api, method, 0, time.Since(startTime))
		return nil, c.networkError(ctx, method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	duration := time.Since(startTime)
	observability.RecordUpstreamRequest(c.api, method, resp.StatusCode, duration)
	if err != nil {
		return nil, c.networkError(ctx, method, err)
	}

	log.Debug().
		Str("api", c.api).
		Str("method", method).
		Str("path", target.Path).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("Upstream request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{API: c.api, Status: resp.StatusCode, Body: string(raw)}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		trimmed = []byte(`{}`)
	} else if !req.AcceptText && !gjson.ValidBytes(trimmed) {
		return nil, &APIError{API: c.api, Status: resp.StatusCode, Body: "invalid JSON response: " + truncate(string(trimmed), 200)}
	}

	return &Response{status: resp.StatusCode, body: trimmed, header: resp.Header}, nil
}

func (c *Client) resolve(req Request) (*url.URL, error) {
	var target *url.URL

	if strings.HasPrefix(req.Path, "http://") || strings.HasPrefix(req.Path, "https://") {
		if c.auth != AuthNone {
			return nil, fmt.Errorf("%s: absolute urls are not allowed for authenticated clients", c.api)
		}
		parsed, err := url.Parse(req.Path)
		if err != nil || parsed.Host == "" {
			return nil, fmt.Errorf("%s: invalid url %q", c.api, req.Path)
		}
		target = parsed
	} else {
		if c.base == nil {
			return nil, fmt.Errorf("%s: relative path %q without base url", c.api, req.Path)
		}
		target = c.base.JoinPath(req.Path)
		// JoinPath drops a trailing slash some APIs route on
		if strings.HasSuffix(req.Path, "/") && !strings.HasSuffix(target.Path, "/") {
			target.Path += "/"
		}
	}

	query := target.Query()
	for k, vs := range req.Query {
		query[k] = vs
	}
	switch c.auth {
	case AuthQueryToken:
		query.Set("access_token", c.credential)
	case AuthBearer:
		query.Del("access_token")
	}
	target.RawQuery = query.Encode()

	return target, nil
}

func (c *Client) networkError(ctx context.Context, method string, err error) error {
	// url.Error embeds the full request URL, which may carry the credential
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return &NetworkError{API: c.api, Method: method, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
