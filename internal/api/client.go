// Package api is the REST client of the portal backend.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/crm-portal/portal-agent/internal/apperror"
	"github.com/crm-portal/portal-agent/internal/config"
	restylog "github.com/crm-portal/portal-agent/internal/logger/adapter/resty"
)

// HeaderRequestID is sent with every request for correlation with backend logs.
const HeaderRequestID = "X-Request-ID"

// Client talks to the portal backend. Reads are retried, writes are not.
type Client struct {
	baseURL string
	reads   *resty.Client
	writes  *resty.Client
	tokens  oauth2.TokenSource
}

// Option customizes a Client.
type Option func(*Client)

// WithTokenSource replaces the token source derived from the config.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// New creates a client for cfg.
func New(cfg config.API, opts ...Option) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		baseURL: baseURL,
		tokens:  NewTokenSource(cfg),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.reads = c.newResty(cfg, cfg.RetryCount)
	c.writes = c.newResty(cfg, 0)

	return c
}

func (c *Client) newResty(cfg config.API, retries int) *resty.Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	r := resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetLogger(restylog.New()).
		SetDebug(cfg.Debug).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	if cfg.UserAgent != "" {
		r.SetHeader("User-Agent", cfg.UserAgent)
	}

	// server errors and throttling are worth a retry, client errors are not
	r.AddRetryCondition(func(resp *resty.Response, _ error) bool {
		if resp == nil {
			return false
		}

		code := resp.StatusCode()

		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	})

	r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return c.prepare(req)
	})

	return r
}

// prepare sets auth and request id headers.
func (c *Client) prepare(req *resty.Request) error {
	if req.Header.Get(HeaderRequestID) == "" {
		req.SetHeader(HeaderRequestID, uuid.NewString())
	}

	if c.tokens == nil {
		return nil
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return &apperror.AuthError{StatusCode: http.StatusUnauthorized, Message: "failed to obtain access token", Err: err}
	}

	if tok.AccessToken != "" {
		req.SetAuthToken(tok.AccessToken)
	}

	return nil
}

// do runs one request. out may be nil; the payload may be bare or wrapped in
// {"data": ...} or in one of the extra wrapper keys.
func (c *Client) do(ctx context.Context, method, path, resource string, body, out any, wrappers ...string) error {
	client := c.writes
	if method == http.MethodGet {
		client = c.reads
	}

	req := client.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if apperror.IsAuth(err) {
			return err
		}

		return &apperror.TransportError{Operation: method, URL: c.baseURL + path, Err: err}
	}

	if resp.IsError() {
		return c.handleError(resp, method, path, resource)
	}

	if out == nil {
		return nil
	}

	if err := decode(resp.Body(), out, wrappers...); err != nil {
		return &apperror.TransportError{
			Operation:  method,
			URL:        c.baseURL + path,
			StatusCode: resp.StatusCode(),
			Err:        err,
		}
	}

	return nil
}

// decode unwraps the first present wrapper key and unmarshals the payload into out.
func decode(body []byte, out any, wrappers ...string) error {
	if len(body) == 0 {
		return ErrEmptyBody
	}

	payload := json.RawMessage(body)

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, key := range append([]string{"data"}, wrappers...) {
			if raw, ok := envelope[key]; ok && len(raw) > 0 && string(raw) != "null" {
				payload = raw
				break
			}
		}
	}

	return json.Unmarshal(payload, out)
}
