// Package console binds one hotel scope to its mirrors, its live dashboard
// and its price resolver.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-hotel-console/internal/dashboard"
	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/hotel"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
	"github.com/ariefcatur/go-hotel-console/internal/mirror"
	"github.com/ariefcatur/go-hotel-console/internal/pricing"
	"github.com/ariefcatur/go-hotel-console/internal/subscriptions"
)

var ErrUnknownRoom = errors.New("room not found in hotel")

// scope is everything that belongs to one hotel binding.
type scope struct {
	hotelID      string
	rooms        *subscriptions.Lease[hotel.Room]
	reservations *subscriptions.Lease[hotel.Reservation]
	rules        *subscriptions.Lease[hotel.PricingRule]
	agg          *dashboard.Aggregator
	group        subscriptions.Group
	ready        chan struct{}
}

type Session struct {
	reg      *subscriptions.Registry
	trend    dashboard.Trend
	now      func() time.Time
	resolver *pricing.Resolver

	mu  sync.RWMutex
	cur *scope
}

type Option func(*Session)

func WithTrend(t dashboard.Trend) Option { return func(s *Session) { s.trend = t } }
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// Open binds a new session to hotelID.
func Open(ctx context.Context, reg *subscriptions.Registry, hotelID string, opts ...Option) (*Session, error) {
	s := &Session{reg: reg, trend: dashboard.SyntheticTrend{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.resolver = pricing.NewResolver(pricing.RuleSourceFunc(s.Rules))
	if err := s.SwitchHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	return s, nil
}

// SwitchHotel releases the current scope's subscriptions and binds hotelID.
// Switching to the current hotel is a no-op.
func (s *Session) SwitchHotel(ctx context.Context, hotelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil && s.cur.hotelID == hotelID {
		return nil
	}
	if s.cur != nil {
		s.cur.group.ReleaseAll()
		s.cur = nil
	}
	sc, err := s.bind(ctx, hotelID)
	if err != nil {
		return err
	}
	s.cur = sc
	logging.For("console").WithField("hotel", hotelID).Info("session bound")
	return nil
}

func (s *Session) bind(ctx context.Context, hotelID string) (*scope, error) {
	f := docstore.Where(hotel.ScopeField, hotelID)
	sc := &scope{
		hotelID: hotelID,
		agg:     dashboard.NewAggregator(s.trend, s.now),
		ready:   make(chan struct{}),
	}

	rooms, err := subscriptions.AcquireMirror(ctx, s.reg, hotel.CollectionRooms, f, hotel.DecodeRoom)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", hotelID, err)
	}
	sc.group.Add(rooms)
	reservations, err := subscriptions.AcquireMirror(ctx, s.reg, hotel.CollectionReservations, f, hotel.DecodeReservation)
	if err != nil {
		sc.group.ReleaseAll()
		return nil, fmt.Errorf("bind %s: %w", hotelID, err)
	}
	sc.group.Add(reservations)
	rules, err := subscriptions.AcquireMirror(ctx, s.reg, hotel.CollectionPricingRules, f, hotel.DecodePricingRule)
	if err != nil {
		sc.group.ReleaseAll()
		return nil, fmt.Errorf("bind %s: %w", hotelID, err)
	}
	sc.group.Add(rules)
	sc.rooms, sc.reservations, sc.rules = rooms, reservations, rules

	mark := readiness(sc.ready, 3)
	var roomsSeen, resSeen, rulesSeen sync.Once
	rooms.Observe(func(ev mirror.Event[hotel.Room]) {
		sc.agg.OnRooms(ev)
		roomsSeen.Do(mark)
	})
	reservations.Observe(func(ev mirror.Event[hotel.Reservation]) {
		sc.agg.OnReservations(ev)
		resSeen.Do(mark)
	})
	rules.Observe(func(mirror.Event[hotel.PricingRule]) { rulesSeen.Do(mark) })
	return sc, nil
}

// readiness returns a func that closes ch on its n-th call.
func readiness(ch chan struct{}, n int) func() {
	var mu sync.Mutex
	return func() {
		mu.Lock()
		defer mu.Unlock()
		n--
		if n == 0 {
			close(ch)
		}
	}
}

func (s *Session) current() *scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Session) HotelID() string {
	if sc := s.current(); sc != nil {
		return sc.hotelID
	}
	return ""
}

// WaitReady blocks until every mirror of the current scope has emitted once
// (a snapshot or a terminal error).
func (s *Session) WaitReady(ctx context.Context) error {
	sc := s.current()
	if sc == nil {
		return docstore.ErrClosed
	}
	select {
	case <-sc.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err reports the first terminal subscription error of the current scope.
func (s *Session) Err() error {
	sc := s.current()
	if sc == nil {
		return docstore.ErrClosed
	}
	for _, err := range []error{sc.rooms.Mirror().Err(), sc.reservations.Mirror().Err(), sc.rules.Mirror().Err()} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Rooms returns the rooms ordered by room number.
func (s *Session) Rooms() []hotel.Room {
	sc := s.current()
	if sc == nil {
		return nil
	}
	out := sc.rooms.Snapshot()
	hotel.SortRoomsByNumber(out)
	return out
}

// Reservations returns the reservations newest first.
func (s *Session) Reservations() []hotel.Reservation {
	sc := s.current()
	if sc == nil {
		return nil
	}
	out := sc.reservations.Snapshot()
	hotel.SortReservationsByCreatedDesc(out)
	return out
}

func (s *Session) Rules() []hotel.PricingRule {
	sc := s.current()
	if sc == nil {
		return nil
	}
	return sc.rules.Snapshot()
}

func (s *Session) Metrics() dashboard.Metrics {
	sc := s.current()
	if sc == nil {
		return dashboard.Metrics{}
	}
	return sc.agg.Latest()
}

// SubscribeMetrics follows the current scope's dashboard. The subscription
// ends when the session switches hotel or closes.
func (s *Session) SubscribeMetrics(fn func(dashboard.Metrics)) (cancel func()) {
	sc := s.current()
	if sc == nil {
		return func() {}
	}
	return sc.agg.Subscribe(fn)
}

// Refresh recomputes the dashboard with a fresh clock reading.
func (s *Session) Refresh() {
	if sc := s.current(); sc != nil {
		sc.agg.Refresh()
	}
}

func (s *Session) Quote(base float64, roomType string, date time.Time) pricing.Quote {
	return s.resolver.NightlyRate(base, roomType, date)
}

// PriceStay prices a stay in one of this hotel's mirrored rooms.
func (s *Session) PriceStay(roomID string, in, out time.Time) (float64, error) {
	for _, r := range s.Rooms() {
		if r.ID == roomID {
			return s.resolver.StayTotal(r.BasePrice, r.Type, in, out)
		}
	}
	return 0, fmt.Errorf("%s: %w", roomID, ErrUnknownRoom)
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		s.cur.group.ReleaseAll()
		s.cur = nil
	}
	return nil
}
