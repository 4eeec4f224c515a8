// Package gateway talks to the hosted backend: the PostgREST row API, its
// RPC procedures and the password auth endpoint.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 15 * time.Second

// Options configures a Client.
type Options struct {
	// URL is the project base URL, e.g. https://xyz.supabase.co.
	URL         string
	AnonKey     string
	AccessToken string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Client issues authenticated requests against the backend.
type Client struct {
	base    *url.URL
	anonKey string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client. URL and AnonKey are required.
func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("backend url is required")
	}
	if opts.AnonKey == "" {
		return nil, errors.New("backend anon key is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		base:    base,
		anonKey: opts.AnonKey,
		token:   opts.AccessToken,
		http:    httpClient,
		logger:  logger,
	}, nil
}

// WithToken returns a copy of c that authenticates as the holder of token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Authenticated reports whether c carries a user access token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

// do sends req and returns the response body. Non-2xx responses are
// decoded into *Error.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	u := *c.base
	u.Path = c.base.Path + req.path
	if len(req.query) > 0 {
		u.RawQuery = encodeQuery(req.query)
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("apikey", c.anonKey)
	bearer := c.anonKey
	if c.token != "" {
		bearer = c.token
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("X-Request-Id", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	c.logger.Debug("backend request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp.StatusCode, data)
	}
	return data, nil
}

// encodeQuery keeps PostgREST operator syntax readable: parentheses,
// commas, stars and dots are left unescaped.
func encodeQuery(q url.Values) string {
	var b strings.Builder
	for _, key := range slices.Sorted(maps.Keys(q)) {
		for _, v := range q[key] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(escapeValue(v))
		}
	}
	return b.String()
}

var valueEscaper = strings.NewReplacer("%28", "(", "%29", ")", "%2C", ",", "%2A", "*", "%21", "!", "%3A", ":")

func escapeValue(v string) string {
	return valueEscaper.Replace(url.QueryEscape(v))
}
