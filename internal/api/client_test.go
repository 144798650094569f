package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumioparbe/web/internal/metrics"
	"github.com/tumioparbe/web/internal/model"
	"github.com/tumioparbe/web/internal/storage"
	"github.com/tumioparbe/web/internal/storage/memory"
	"github.com/tumioparbe/web/internal/tokens"
)

// backend is a fake platform API. Profile answers 200 only to the bearer in
// validAccess; refresh answers with newAccess unless refreshStatus is set.
type backend struct {
	validAccess   string
	newAccess     string
	refreshStatus int
	refreshDelay  time.Duration

	profileCalls atomic.Int32
	refreshCalls atomic.Int32
	lastRefresh  atomic.Value
	lastAuth     atomic.Value
}

func (b *backend) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/accounts/profile/", func(w http.ResponseWriter, r *http.Request) {
		b.profileCalls.Add(1)
		b.lastAuth.Store(r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer "+b.validAccess {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token_not_valid"})
			return
		}
		writeJSON(w, http.StatusOK, model.User{ID: 7, Name: "Rahim", Phone: "01712345678"})
	})
	r.Post("/accounts/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		var body struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.lastRefresh.Store(body.Refresh)
		if b.refreshDelay > 0 {
			time.Sleep(b.refreshDelay)
		}
		if b.refreshStatus != 0 {
			writeJSON(w, b.refreshStatus, map[string]string{"detail": "refresh expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": b.newAccess})
	})
	r.Post("/accounts/register/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation failed",
			"details": map[string][]string{"phone": {"already registered"}},
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type browserTokens struct {
	st      storage.Storage
	rec     *httptest.ResponseRecorder
	cookies *tokens.CookieStore
	store   *tokens.Dual
}

func newBrowserTokens(t *testing.T, pair *model.TokenPair) *browserTokens {
	t.Helper()
	st := storage.Scope(memory.New(), "sid")
	rec := httptest.NewRecorder()
	cookies := tokens.NewCookieStore(rec, httptest.NewRequest(http.MethodGet, "/", nil), tokens.DefaultCookieConfig)
	bt := &browserTokens{st: st, rec: rec, cookies: cookies, store: tokens.NewDual(tokens.NewLocalStore(st), cookies)}
	if pair != nil {
		require.NoError(t, bt.store.Save(context.Background(), *pair))
	}
	return bt
}

func setup(t *testing.T, b *backend) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(b.routes())
	t.Cleanup(srv.Close)
	m := metrics.New()
	return New(Options{BaseURL: srv.URL + "/", Metrics: m}), m
}

func TestClient_AttachesBearer(t *testing.T) {
	b := &backend{validAccess: "a1"}
	c, _ := setup(t, b)
	bt := newBrowserTokens(t, &model.TokenPair{Access: "a1", Refresh: "r1"})

	user, err := c.WithTokens(bt.store).GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Bearer a1", b.lastAuth.Load())
	assert.Zero(t, b.refreshCalls.Load())
}

func TestClient_NoTokensNoHeader(t *testing.T) {
	b := &backend{validAccess: "a1"}
	c, _ := setup(t, b)

	_, err := c.GetProfile(context.Background())
	require.True(t, IsUnauthorized(err))
	assert.Equal(t, "", b.lastAuth.Load())
	assert.Zero(t, b.refreshCalls.Load(), "an unbound client never refreshes")
}

func TestClient_RefreshesOnceAndRetries(t *testing.T) {
	ctx := context.Background()
	b := &backend{validAccess: "fresh", newAccess: "fresh"}
	c, _ := setup(t, b)
	bt := newBrowserTokens(t, &model.TokenPair{Access: "stale", Refresh: "r1"})

	user, err := c.WithTokens(bt.store).GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rahim", user.Name)

	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.Equal(t, "r1", b.lastRefresh.Load())
	assert.Equal(t, int32(2), b.profileCalls.Load())
	assert.Equal(t, &model.TokenPair{Access: "fresh", Refresh: "r1"}, bt.store.Load(ctx))
	assert.Equal(t, "fresh", bt.cookies.AccessToken())
}

func TestClient_AtMostOneRefreshPerCall(t *testing.T) {
	ctx := context.Background()
	// refresh succeeds but the new token is still rejected
	b := &backend{validAccess: "never", newAccess: "also-stale"}
	c, _ := setup(t, b)
	bt := newBrowserTokens(t, &model.TokenPair{Access: "stale", Refresh: "r1"})

	_, err := c.WithTokens(bt.store).GetProfile(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.Equal(t, int32(2), b.profileCalls.Load())
}

func TestClient_RefreshFailureClearsTokens(t *testing.T) {
	ctx := context.Background()
	b := &backend{validAccess: "fresh", refreshStatus: http.StatusUnauthorized}
	c, m := setup(t, b)
	bt := newBrowserTokens(t, &model.TokenPair{Access: "stale", Refresh: "r1"})

	_, err := c.WithTokens(bt.store).GetProfile(ctx)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "refresh expired", apiErr.Message, "the refresh error is returned")
	assert.Equal(t, int32(1), b.profileCalls.Load())

	assert.Nil(t, bt.store.Load(ctx))
	_, gerr := bt.st.Get(ctx, tokens.StorageKey)
	assert.ErrorIs(t, gerr, storage.ErrNotFound)
	assert.Empty(t, bt.cookies.AccessToken())

	body := scrape(t, m)
	assert.Contains(t, body, `tumio_web_token_refresh_total{result="failed"} 1`)
}

func TestClient_NoRefreshTokenReturnsOriginal401(t *testing.T) {
	ctx := context.Background()
	b := &backend{validAccess: "fresh"}
	c, _ := setup(t, b)
	bt := newBrowserTokens(t, nil)

	_, err := c.WithTokens(bt.store).GetProfile(ctx)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "token_not_valid", apiErr.Message)
	assert.Zero(t, b.refreshCalls.Load())
	assert.Nil(t, bt.store.Load(ctx))
}

func TestClient_DecodesErrorEnvelope(t *testing.T) {
	c, _ := setup(t, &backend{})

	_, err := c.Register(context.Background(), model.RegistrationRequest{Phone: "01712345678"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "validation failed", apiErr.Message)
	assert.Equal(t, []string{"phone: already registered"}, apiErr.FieldErrors())
	assert.Equal(t, "validation failed", Message(err, "fallback"))
	assert.Equal(t, "fallback", Message(context.Canceled, "fallback"))
}

// syncTokens is a goroutine-safe token store for concurrency tests
type syncTokens struct {
	mu   sync.Mutex
	pair *model.TokenPair
}

func (s *syncTokens) Save(_ context.Context, p model.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = &p
	return nil
}

func (s *syncTokens) Load(context.Context) *model.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil {
		return nil
	}
	out := *s.pair
	return &out
}

func (s *syncTokens) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}

func TestClient_ConcurrentRefreshesCollapse(t *testing.T) {
	const callers = 5
	b := &backend{newAccess: "fresh", refreshDelay: 300 * time.Millisecond}

	var waiting sync.WaitGroup
	waiting.Add(callers)
	released := make(chan struct{})
	go func() { waiting.Wait(); close(released) }()

	r := b.routes()
	r.Get("/slow/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer fresh" {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
			return
		}
		// hold every first attempt until all callers have one in flight
		waiting.Done()
		<-released
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL}).WithTokens(&syncTokens{pair: &model.TokenPair{Access: "stale", Refresh: "r1"}})

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.get(context.Background(), "/slow/", nil, nil)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), b.refreshCalls.Load())
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}
