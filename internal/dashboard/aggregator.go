package dashboard

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-hotel-console/internal/hotel"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
	"github.com/ariefcatur/go-hotel-console/internal/mirror"
)

// Aggregator recomputes Metrics whenever either mirror emits. A mirror that
// has not emitted yet counts as an empty set.
type Aggregator struct {
	trend Trend
	now   func() time.Time
	log   *logrus.Entry

	// pubMu serializes recompute+deliver so subscribers never see an older
	// result after a newer one.
	pubMu sync.Mutex

	mu           sync.Mutex
	rooms        []hotel.Room
	reservations []hotel.Reservation
	roomsErr     error
	resErr       error
	latest       Metrics
	subs         map[int]func(Metrics)
	nextID       int
}

func NewAggregator(trend Trend, now func() time.Time) *Aggregator {
	if trend == nil {
		trend = SyntheticTrend{}
	}
	if now == nil {
		now = time.Now
	}
	a := &Aggregator{
		trend: trend,
		now:   now,
		log:   logging.For("dashboard"),
		subs:  make(map[int]func(Metrics)),
	}
	a.latest = Compute(nil, nil, now(), trend)
	return a
}

// OnRooms is a mirror observer for the room mirror.
func (a *Aggregator) OnRooms(ev mirror.Event[hotel.Room]) {
	a.update(func() {
		a.rooms = ev.Items
		a.roomsErr = ev.Err
	})
}

// OnReservations is a mirror observer for the reservation mirror.
func (a *Aggregator) OnReservations(ev mirror.Event[hotel.Reservation]) {
	a.update(func() {
		a.reservations = ev.Items
		a.resErr = ev.Err
	})
}

// Refresh recomputes with a fresh clock reading so "today" rolls over
// without a mirror change.
func (a *Aggregator) Refresh() { a.update(func() {}) }

func (a *Aggregator) update(set func()) {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()

	a.mu.Lock()
	set()
	m := Compute(a.rooms, a.reservations, a.now(), a.trend)
	m.Stale = a.roomsErr != nil || a.resErr != nil
	a.latest = m
	subs := a.subscribersLocked()
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"occupancy": m.OccupancyPct,
		"rooms":     m.TotalRooms,
		"checkins":  m.CheckInsToday,
	}).Debug("metrics recomputed")
	for _, fn := range subs {
		fn(m.clone())
	}
}

// caller holds a.mu
func (a *Aggregator) subscribersLocked() []func(Metrics) {
	ids := make([]int, 0, len(a.subs))
	for id := range a.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Metrics), 0, len(ids))
	for _, id := range ids {
		out = append(out, a.subs[id])
	}
	return out
}

func (a *Aggregator) Latest() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest.clone()
}

// Subscribe registers fn and immediately hands it the latest metrics.
func (a *Aggregator) Subscribe(fn func(Metrics)) (cancel func()) {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	m := a.latest.clone()
	a.mu.Unlock()

	fn(m)
	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}
