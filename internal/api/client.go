// Package api is the client of the learning platform REST API. It attaches
// the bearer token of the bound token store and, on a 401, refreshes the
// access token once and re-issues the call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tumioparbe/web/internal/metrics"
	"github.com/tumioparbe/web/internal/model"
	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/tokens"
)

const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 15 * time.Second

	refreshPath  = "/accounts/token/refresh/"
	maxErrorBody = 64 << 10
)

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Client talks to the platform API. The Client returned by New carries no
// tokens; WithTokens binds it to one browser's token store.
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
	refresh *singleflight.Group

	tokens tokens.Store
}

func New(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    hc,
		metrics: opts.Metrics,
		refresh: &singleflight.Group{},
	}
}

// WithTokens returns a copy of c bound to ts. The copy shares the transport
// and the refresh group.
func (c *Client) WithTokens(ts tokens.Store) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	// anonymous calls carry no bearer token and are never retried
	anonymous bool
}

// do runs a call with at most one refresh and one retry.
func (c *Client) do(ctx context.Context, cl call) error {
	access := ""
	if !cl.anonymous && c.tokens != nil {
		if pair := c.tokens.Load(ctx); pair != nil {
			access = pair.Access
		}
	}

	err := c.send(ctx, cl, access)
	if cl.anonymous || c.tokens == nil || !IsUnauthorized(err) {
		return err
	}

	newAccess, rerr := c.refreshAccess(ctx)
	if errors.Is(rerr, ErrNoRefreshToken) {
		return err
	}
	if rerr != nil {
		return rerr
	}

	return c.send(ctx, cl, newAccess)
}

// refreshAccess trades the stored refresh token for a new access token and
// saves it next to the same refresh token. On any failure the token store
// is cleared.
func (c *Client) refreshAccess(ctx context.Context) (string, error) {
	log := logctx.From(ctx)

	pair := c.tokens.Load(ctx)
	if pair == nil || pair.Refresh == "" {
		c.clearTokens(ctx)
		c.metrics.Refresh(metrics.RefreshNoToken)
		return "", ErrNoRefreshToken
	}

	// Concurrent refreshes of one refresh token share a single backend call.
	v, err, shared := c.refresh.Do(pair.Refresh, func() (any, error) {
		return c.RefreshToken(context.WithoutCancel(ctx), pair.Refresh)
	})
	if shared {
		c.metrics.Refresh(metrics.RefreshCollapsed)
	}
	if err != nil {
		log.Info("token_refresh_failed", slog.String("err", err.Error()))
		c.clearTokens(ctx)
		c.metrics.Refresh(metrics.RefreshFailed)
		return "", err
	}

	access := v.(string)
	if err := c.tokens.Save(ctx, model.TokenPair{Access: access, Refresh: pair.Refresh}); err != nil {
		log.Warn("token_refresh_save_failed", slog.String("err", err.Error()))
	}
	c.metrics.Refresh(metrics.RefreshOK)
	log.Debug("token_refreshed")
	return access, nil
}

func (c *Client) clearTokens(ctx context.Context) {
	if err := c.tokens.Clear(ctx); err != nil {
		logctx.From(ctx).Warn("tokens_clear_failed", slog.String("err", err.Error()))
	}
}

func (c *Client) send(ctx context.Context, cl call, access string) error {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", cl.method, cl.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveAPI(cl.method, 0, time.Since(start))
		return fmt.Errorf("api: %s %s: %w", cl.method, cl.path, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveAPI(cl.method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeError(resp.StatusCode, raw)
	}

	if cl.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("api: decode %s %s: %w", cl.method, cl.path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, call{method: http.MethodGet, path: path, query: query, out: out})
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, call{method: http.MethodPost, path: path, body: body, out: out})
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, call{method: http.MethodPut, path: path, body: body, out: out})
}
