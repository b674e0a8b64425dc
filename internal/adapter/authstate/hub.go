// Package authstate доставляет изменения сессии наблюдателям в порядке публикации.
package authstate

import (
	"sync"

	"github.com/example/moonbaby-storefront/internal/domain"
)

// Hub — источник изменений сессии: текущее состояние при подписке, затем каждое Publish.
//
// Уведомления ставятся в очередь и доставляются по одному тем вызовом, который
// застал очередь пустой. Наблюдатель может вызывать Publish и Subscribe из
// своего обработчика: такое уведомление уйдёт после текущего.
type Hub struct {
	mu         sync.Mutex
	current    domain.Session
	nextID     int
	subs       map[int]func(domain.Session)
	queue      []notice
	delivering bool
}

// notice получают подписчики с id меньше upTo, либо один only, если only >= 0.
type notice struct {
	session domain.Session
	upTo    int
	only    int
}

func NewHub(initial domain.Session) *Hub {
	return &Hub{current: initial, subs: make(map[int]func(domain.Session))}
}

func (h *Hub) Subscribe(fn func(domain.Session)) (cancel func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.queue = append(h.queue, notice{session: h.current, only: id})
	h.mu.Unlock()

	h.drain()
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish делает s текущей сессией и уведомляет всех наблюдателей.
func (h *Hub) Publish(s domain.Session) {
	h.mu.Lock()
	h.current = s
	h.queue = append(h.queue, notice{session: s, upTo: h.nextID, only: -1})
	h.mu.Unlock()

	h.drain()
}

func (h *Hub) Current() domain.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// drain доставляет очередь, если этим уже не занят другой вызов.
// Возвращается только когда очередь пуста.
func (h *Hub) drain() {
	h.mu.Lock()
	if h.delivering {
		h.mu.Unlock()
		return
	}
	h.delivering = true
	for len(h.queue) > 0 {
		n := h.queue[0]
		h.queue = h.queue[1:]
		targets := h.targets(n)
		h.mu.Unlock()

		for _, fn := range targets {
			fn(n.session)
		}

		h.mu.Lock()
	}
	h.delivering = false
	h.mu.Unlock()
}

// targets вызывается под mu.
func (h *Hub) targets(n notice) []func(domain.Session) {
	if n.only >= 0 {
		if fn, ok := h.subs[n.only]; ok {
			return []func(domain.Session){fn}
		}
		return nil
	}
	fns := make([]func(domain.Session), 0, len(h.subs))
	for i := 0; i < n.upTo; i++ {
		if fn, ok := h.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

var _ domain.SessionSource = (*Hub)(nil)
