// Package memstore хранит данные посетителей, flash-сообщения и счётчик
// посещений в памяти процесса. Используется для локального запуска и тестов.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/moonbaby-storefront/internal/domain"
)

type Store struct {
	mu     sync.Mutex
	items  map[string]string
	timers map[string]*time.Timer
}

func NewStore() *Store {
	return &Store{items: make(map[string]string), timers: make(map[string]*time.Timer)}
}

func (s *Store) Storage(visitorID string) domain.LocalStorage {
	return scoped{store: s, prefix: "visitor:" + visitorID + ":"}
}

func (s *Store) Flash(visitorID string) domain.FlashMessages {
	return flash{store: s, key: "flash:" + visitorID}
}

func (s *Store) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}

// set сохраняет значение; при ttl > 0 оно удаляется по таймеру, если не перезаписано раньше.
func (s *Store) set(key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
	s.items[key] = value
	if ttl <= 0 {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(ttl, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.timers[key] == t {
			delete(s.timers, key)
			delete(s.items, key)
		}
	})
	s.timers[key] = t
}

func (s *Store) remove(key string) {
	s.take(key)
}

func (s *Store) take(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
	v, ok := s.items[key]
	delete(s.items, key)
	return v, ok
}

type scoped struct {
	store  *Store
	prefix string
}

func (s scoped) GetItem(_ context.Context, key string) (string, bool, error) {
	v, ok := s.store.get(s.prefix + key)
	return v, ok, nil
}

func (s scoped) SetItem(_ context.Context, key, value string) error {
	s.store.set(s.prefix+key, value, 0)
	return nil
}

func (s scoped) RemoveItem(_ context.Context, key string) error {
	s.store.remove(s.prefix + key)
	return nil
}

type flash struct {
	store *Store
	key   string
}

func (f flash) Notify(_ context.Context, text string, ttl time.Duration) error {
	f.store.set(f.key, text, ttl)
	return nil
}

func (f flash) Take(_ context.Context) (string, bool, error) {
	v, ok := f.store.take(f.key)
	return v, ok, nil
}

// Counter — счётчик посещений в памяти процесса.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Bump(context.Context) (int64, error) {
	return c.n.Add(1), nil
}

var (
	_ domain.VisitorStorage = (*Store)(nil)
	_ domain.VisitorCounter = (*Counter)(nil)
)
