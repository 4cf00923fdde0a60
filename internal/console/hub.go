package console

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/subscriptions"
)

// Hub shares one session per hotel across the API.
type Hub struct {
	reg  *subscriptions.Registry
	opts []Option

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewHub(reg *subscriptions.Registry, opts ...Option) *Hub {
	return &Hub{reg: reg, opts: opts, sessions: make(map[string]*Session)}
}

// Session returns the hotel's session, opening it on first use. A session
// whose subscriptions failed is reopened.
func (h *Hub) Session(ctx context.Context, hotelID string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, docstore.ErrClosed
	}
	if s, ok := h.sessions[hotelID]; ok {
		if s.Err() == nil {
			return s, nil
		}
		_ = s.Close()
		delete(h.sessions, hotelID)
	}
	s, err := Open(ctx, h.reg, hotelID, h.opts...)
	if err != nil {
		return nil, err
	}
	h.sessions[hotelID] = s
	return s, nil
}

func (h *Hub) snapshot() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// Refresh recomputes every open dashboard. Scheduled for day rollover.
func (h *Hub) Refresh() {
	for _, s := range h.snapshot() {
		s.Refresh()
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// PriceStay lets the gateway price new reservations from the live rules.
func (h *Hub) PriceStay(ctx context.Context, hotelID, roomID string, in, out time.Time) (float64, error) {
	s, err := h.Session(ctx, hotelID)
	if err != nil {
		return 0, err
	}
	if err := s.WaitReady(ctx); err != nil {
		return 0, err
	}
	return s.PriceStay(roomID, in, out)
}

func (h *Hub) Close() error {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.closed = true
	h.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
	}
	return nil
}
