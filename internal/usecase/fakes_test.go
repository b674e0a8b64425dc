package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/example/moonbaby-storefront/internal/domain"
)

var errBackend = errors.New("backend unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mapStorage struct {
	mu     sync.Mutex
	items  map[string]string
	getErr error
}

func newMapStorage() *mapStorage { return &mapStorage{items: map[string]string{}} }

func (m *mapStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *mapStorage) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.items[key] = value
	m.mu.Unlock()
	return nil
}

func (m *mapStorage) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

type badge struct{ counts []int }

func (b *badge) SetCount(n int) { b.counts = append(b.counts, n) }

type navigator struct{ targets []string }

func (n *navigator) Redirect(url string) { n.targets = append(n.targets, url) }

// manualSource delivers the initial session on subscribe and later ones on emit.
type manualSource struct {
	current domain.Session
	fns     []func(domain.Session)
}

func (s *manualSource) Subscribe(fn func(domain.Session)) func() {
	s.fns = append(s.fns, fn)
	fn(s.current)
	return func() { s.fns = nil }
}

func (s *manualSource) emit(sess domain.Session) {
	s.current = sess
	for _, fn := range s.fns {
		fn(sess)
	}
}

type fakeAuth struct {
	signOutErr error
	signedOut  []string
}

func (a *fakeAuth) SignIn(context.Context, string) (domain.Session, string, error) {
	return domain.Session{}, "", errors.New("not used")
}

func (a *fakeAuth) Resolve(context.Context, string) (domain.Session, error) {
	return domain.Session{}, nil
}

func (a *fakeAuth) SignOut(_ context.Context, s domain.Session) error {
	if a.signOutErr != nil {
		return a.signOutErr
	}
	a.signedOut = append(a.signedOut, s.UID)
	return nil
}

type recordingGrid struct {
	states []string
	text   string
	cards  []ProductCard
}

func (g *recordingGrid) ShowLoading(text string) {
	g.states = append(g.states, "loading")
	g.text = text
}

func (g *recordingGrid) ShowEmpty(text string) {
	g.states = append(g.states, "empty")
	g.text = text
}

func (g *recordingGrid) ShowError(text string) {
	g.states = append(g.states, "error")
	g.text = text
}

func (g *recordingGrid) ShowProducts(cards []ProductCard) {
	g.states = append(g.states, "products")
	g.cards = cards
}

type fakeCatalog struct {
	products []domain.Product
	err      error
	asked    []string
}

func (c *fakeCatalog) List(_ context.Context, category string) ([]domain.Product, error) {
	c.asked = append(c.asked, category)
	if c.err != nil {
		return nil, c.err
	}
	var out []domain.Product
	for _, p := range c.products {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

type notice struct {
	text string
	ttl  time.Duration
}

type fakeNotifier struct{ notices []notice }

func (n *fakeNotifier) Notify(_ context.Context, text string, ttl time.Duration) error {
	n.notices = append(n.notices, notice{text, ttl})
	return nil
}

type fakeCounter struct {
	n   int64
	err error
}

func (c *fakeCounter) Bump(context.Context) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.n++
	return c.n, nil
}
