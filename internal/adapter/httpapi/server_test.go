package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/moonbaby-storefront/internal/adapter/cache"
	"github.com/example/moonbaby-storefront/internal/adapter/memstore"
	"github.com/example/moonbaby-storefront/internal/domain"
	"github.com/example/moonbaby-storefront/internal/usecase"
)

// fakeAuth accepts id tokens of the form "id:<uid>" and issues "sess:<uid>" cookies.
type fakeAuth struct {
	signOutErr error
	resolveErr error
}

func (a *fakeAuth) SignIn(_ context.Context, cred string) (domain.Session, string, error) {
	uid, ok := strings.CutPrefix(cred, "id:")
	if !ok {
		return domain.Session{}, "", errors.New("bad token")
	}
	return domain.Session{UID: uid}, "sess:" + uid, nil
}

func (a *fakeAuth) Resolve(_ context.Context, token string) (domain.Session, error) {
	if a.resolveErr != nil {
		return domain.Session{}, a.resolveErr
	}
	uid, ok := strings.CutPrefix(token, "sess:")
	if !ok {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return domain.Session{UID: uid}, nil
}

func (a *fakeAuth) SignOut(context.Context, domain.Session) error { return a.signOutErr }

type failingCatalog struct{}

func (failingCatalog) List(context.Context, string) ([]domain.Product, error) {
	return nil, errors.New("firestore unavailable")
}

type failingCounter struct{}

func (failingCounter) Bump(context.Context) (int64, error) { return 0, errors.New("permission denied") }

type testEnv struct {
	srv    *Server
	stores *memstore.Store
	auth   *fakeAuth
}

func newTestEnv(t *testing.T, catalog domain.ProductCatalog, counter domain.VisitorCounter) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stores := memstore.NewStore()
	auth := &fakeAuth{}
	srv, err := NewServer(Deps{
		Gate:       usecase.SessionGate{Logger: logger},
		Renderer:   usecase.ProductRenderer{Catalog: catalog, Logger: logger},
		Visitors:   usecase.TrackVisitor{Counter: counter, Logger: logger},
		Auth:       auth,
		Stores:     stores,
		Logger:     logger,
		SessionTTL: time.Hour,
	})
	require.NoError(t, err)
	return &testEnv{srv: srv, stores: stores, auth: auth}
}

func seededCatalog() *cache.MemoryProductCache {
	c := cache.NewMemoryProductCache()
	c.Set("b1", domain.Product{ID: "b1", Name: "Romper", Price: 12.5, Stock: 2, Sizes: []string{"S", "M"}, Category: "boys",
		Colors: []domain.Color{{Name: "Blue", Code: "#00f"}}})
	c.Set("g1", domain.Product{ID: "g1", Name: "Dress", Price: 20, Sizes: []string{"M"}, Category: "girls"})
	return c
}

const visitor = "6f1c1f54-3c1e-4d1a-9a57-8a0f7c2d9e11"

func (e *testEnv) do(method, target, body, uid string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: visitor})
	if uid != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess:" + uid})
	}
	w := httptest.NewRecorder()
	e.srv.Router.ServeHTTP(w, req)
	return w
}

func TestProtectedPathRedirectsAnonymous(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})

	for _, p := range []string{"/cart.html", "/checkout.html"} {
		w := e.do(http.MethodGet, p, "", "")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login.html?redirect="+strings.ReplaceAll(p, "/", "%2F"), w.Header().Get("Location"))
	}
}

func TestProtectedPathServedWithSession(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})

	w := e.do(http.MethodGet, "/cart.html", "", "u1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your cart is empty")
	assert.Contains(t, w.Body.String(), ">Logout<")
}

func TestProductsPageRendersCardsInOrder(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})

	w := e.do(http.MethodGet, "/products.html", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Less(t, strings.Index(body, "Romper"), strings.Index(body, "Dress"))
	assert.Contains(t, body, "$12.50")
	assert.Contains(t, body, "images/products/default.jpg")
	assert.Contains(t, body, "All Products")
	assert.Contains(t, body, `<option value="M">M</option>`)
}

func TestProductsPageFiltersByCategory(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})

	w := e.do(http.MethodGet, "/products.html?category=boys", "", "")

	body := w.Body.String()
	assert.Contains(t, body, "Boys Collection")
	assert.Contains(t, body, "Romper")
	assert.NotContains(t, body, "Dress")
	assert.Contains(t, body, `filter-btn active" data-category="boys"`)
}

func TestProductsPageEmptyResult(t *testing.T) {
	e := newTestEnv(t, cache.NewMemoryProductCache(), &memstore.Counter{})

	w := e.do(http.MethodGet, "/products.html?category=girls", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<div class="no-products">No products found</div>`)
	assert.NotContains(t, w.Body.String(), `class="error"`)
}

func TestProductsPageFetchFailure(t *testing.T) {
	e := newTestEnv(t, failingCatalog{}, &memstore.Counter{})

	w := e.do(http.MethodGet, "/products.html", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Error loading products. Please try again.")
}

func TestIndexShowsVisitorCount(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})

	e.do(http.MethodGet, "/", "", "")
	w := e.do(http.MethodGet, "/", "", "")

	assert.Contains(t, w.Body.String(), `<span id="visitor-count">2</span>`)
	assert.Contains(t, w.Body.String(), `href="/login.html">Login<`)
}

func TestIndexVisitorCountFallback(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), failingCounter{})

	w := e.do(http.MethodGet, "/", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<span id="visitor-count">1000&#43;</span>`)
}

func TestAddToCartRequiresSession(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})

	w := e.do(http.MethodPost, "/api/cart", `{"productId":"b1","size":"S","returnTo":"/products.html?category=boys"}`, "")

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, usecase.LoginRequired, body["error"])
	assert.Equal(t, "/login.html?redirect=%2Fproducts.html%3Fcategory%3Dboys", body["redirect"])
}

func TestAddToCartMergesAndCounts(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})

	e.do(http.MethodPost, "/api/cart", `{"productId":"b1","size":"S"}`, "u1")
	w := e.do(http.MethodPost, "/api/cart", `{"productId":"b1","size":"S"}`, "u1")

	require.Equal(t, http.StatusOK, w.Code)
	var resp addToCartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.NotNil(t, resp.Notification)
	assert.Equal(t, usecase.AddedNotice, resp.Notification.Text)
	assert.Equal(t, int64(2000), resp.Notification.TTLMs)

	w = e.do(http.MethodGet, "/cart.html", "", "u1")
	assert.Contains(t, w.Body.String(), "<td>b1</td><td>S</td><td>Blue</td><td>2</td>")
	assert.NotContains(t, w.Body.String(), `class="notification"`)

	w = e.do(http.MethodGet, "/api/cart/count", "", "u1")
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
}

func TestFlashShownOnce(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})
	require.NoError(t, e.stores.Flash(visitor).Notify(context.Background(), "Welcome back", time.Hour))

	w := e.do(http.MethodGet, "/products.html", "", "u1")
	assert.Contains(t, w.Body.String(), `<div class="notification">Welcome back</div>`)

	w = e.do(http.MethodGet, "/products.html", "", "u1")
	assert.NotContains(t, w.Body.String(), "Welcome back")
}

func TestAddToCartValidation(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/cart", `{"productId":"b1"}`, "u1").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/cart", `{`, "u1").Code)
}

func TestCartCountMalformedStorageIsZero(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})
	require.NoError(t, e.stores.Storage(visitor).SetItem(context.Background(), usecase.CartKey, `{"oops":true}`))

	w := e.do(http.MethodGet, "/api/cart/count", "", "u1")

	assert.JSONEq(t, `{"count":0}`, w.Body.String())
}

func TestSignInSetsCookieAndSanitisesRedirect(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})

	w := e.do(http.MethodPost, "/api/session", `{"idToken":"id:u1","redirect":"/cart.html"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"redirect":"/cart.html"}`, w.Body.String())
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.Equal(t, "sess:u1", session.Value)
	assert.True(t, session.HttpOnly)

	w = e.do(http.MethodPost, "/api/session", `{"idToken":"id:u1","redirect":"https://evil.example/x"}`, "")
	assert.JSONEq(t, `{"redirect":"/products.html"}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/session", `{"idToken":"bogus"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutClearsCart(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})
	e.do(http.MethodPost, "/api/cart", `{"productId":"b1","size":"S"}`, "u1")

	w := e.do(http.MethodPost, "/logout", "", "u1")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	_, ok, _ := e.stores.Storage(visitor).GetItem(context.Background(), usecase.CartKey)
	assert.False(t, ok)
}

func TestLogoutFailureKeepsCart(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})
	e.auth.signOutErr = errors.New("network")
	e.do(http.MethodPost, "/api/cart", `{"productId":"b1","size":"S"}`, "u1")

	w := e.do(http.MethodPost, "/logout", "", "u1")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	_, ok, _ := e.stores.Storage(visitor).GetItem(context.Background(), usecase.CartKey)
	assert.True(t, ok)
}

func sessionCookieCleared(w *httptest.ResponseRecorder) bool {
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestStaleSessionCookieCleared(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})
	e.auth.resolveErr = domain.ErrUnauthenticated

	w := e.do(http.MethodGet, "/products.html", "", "u1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, sessionCookieCleared(w))
}

func TestSessionCookieKeptWhenAuthUnreachable(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})
	e.auth.resolveErr = errors.New("verify session cookie: dial tcp: i/o timeout")

	w := e.do(http.MethodGet, "/products.html", "", "u1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, sessionCookieCleared(w))

	w = e.do(http.MethodGet, "/cart.html", "", "u1")
	assert.False(t, sessionCookieCleared(w))
}

func TestVisitorCookieIssued(t *testing.T) {
	e := newTestEnv(t, seededCatalog(), &memstore.Counter{})
	req := httptest.NewRequest(http.MethodGet, "/products.html", nil)
	w := httptest.NewRecorder()

	e.srv.Router.ServeHTTP(w, req)

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == VisitorCookie {
			found = c.Value != ""
		}
	}
	assert.True(t, found)
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]string{
		"":                      DefaultAfterLogin,
		"/cart.html":            "/cart.html",
		"/products.html?c=boys": "/products.html?c=boys",
		"//evil.example":        DefaultAfterLogin,
		"https://evil.example/": DefaultAfterLogin,
		`/\evil.example`:        DefaultAfterLogin,
		"products.html":         DefaultAfterLogin,
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeRedirect(in), in)
	}
}

func BenchmarkProductsPage(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(Deps{
		Renderer: usecase.ProductRenderer{Catalog: seededCatalog(), Logger: logger},
		Visitors: usecase.TrackVisitor{Counter: &memstore.Counter{}, Logger: logger},
		Stores:   memstore.NewStore(),
		Logger:   logger,
	})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req := httptest.NewRequest(http.MethodGet, "/products.html?category=boys", nil)
			req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: visitor})
			w := httptest.NewRecorder()
			srv.Router.ServeHTTP(w, req)
		}
	})
}
