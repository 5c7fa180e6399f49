// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Client wraps an http.Client with a request throttle, 429 retries, and
// shared headers. The zero value is not usable; build one with NewClient.
type Client struct {
	HTTP       *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
	UserAgent  string
	Logger     *slog.Logger
}

// NewClient builds a Client from cfg. A zero RequestsPerSecond leaves the
// client unthrottled.
func NewClient(cfg types.HTTPConfig, logger *slog.Logger) *Client {
	c := &Client{
		HTTP:       &http.Client{Timeout: cfg.Timeout},
		MaxRetries: cfg.MaxRetries,
		UserAgent:  cfg.UserAgent,
		Logger:     logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Do waits for the throttle, sets the User-Agent header, and executes req
// with 429 retries.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	return doWithRetry(ctx, client, req, c.MaxRetries, c.Logger)
}
