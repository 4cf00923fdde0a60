package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-hotel-console/internal/dashboard"
	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/docstore/memory"
	"github.com/ariefcatur/go-hotel-console/internal/gateway"
	"github.com/ariefcatur/go-hotel-console/internal/hotel"
	"github.com/ariefcatur/go-hotel-console/internal/subscriptions"
)

var today = time.Date(2025, 10, 6, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return today }

func seed(t *testing.T, s *memory.Store) {
	t.Helper()
	ctx := context.Background()
	g := gateway.New(s, gateway.WithClock(clock))
	for _, n := range []string{"10", "9", "101"} {
		_, err := g.Execute(ctx, gateway.CreateRoom{HotelID: "H1", Number: n, Type: "double", Capacity: 2, BasePrice: 100})
		require.NoError(t, err)
	}
	_, err := g.Execute(ctx, gateway.CreateRoom{HotelID: "H2", Number: "1", Type: "suite", Capacity: 4, BasePrice: 300})
	require.NoError(t, err)
	_, err = g.Execute(ctx, gateway.CreatePricingRule{
		HotelID: "H1", Name: "autumn", RuleKind: "seasonal", RoomTypes: []string{"double"},
		StartDate: today.AddDate(0, 0, -1), EndDate: today.AddDate(0, 0, 1), Adjustment: 20, Priority: 1, Active: true,
	})
	require.NoError(t, err)
}

func ready(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.WaitReady(ctx))
}

func TestSessionViews(t *testing.T) {
	st := memory.New()
	seed(t, st)
	reg := subscriptions.NewRegistry(st)
	defer reg.Close()

	s, err := Open(context.Background(), reg, "H1", WithClock(clock))
	require.NoError(t, err)
	defer s.Close()
	ready(t, s)

	var numbers []string
	for _, r := range s.Rooms() {
		numbers = append(numbers, r.Number)
	}
	assert.Equal(t, []string{"9", "10", "101"}, numbers)
	assert.Len(t, s.Rules(), 1)
	assert.Equal(t, 120.0, s.Quote(100, "double", today).Price)
	assert.Equal(t, 100.0, s.Quote(100, "double", today.AddDate(0, 0, 5)).Price)
	assert.Equal(t, 3, s.Metrics().TotalRooms)
	assert.NoError(t, s.Err())
}

func TestSwitchHotelReleasesOldScope(t *testing.T) {
	st := memory.New()
	seed(t, st)
	reg := subscriptions.NewRegistry(st)
	defer reg.Close()

	s, err := Open(context.Background(), reg, "H1", WithClock(clock))
	require.NoError(t, err)
	defer s.Close()
	ready(t, s)
	assert.Equal(t, 3, reg.Len())

	require.NoError(t, s.SwitchHotel(context.Background(), "H2"))
	ready(t, s)
	assert.Equal(t, "H2", s.HotelID())
	assert.Equal(t, 3, reg.Len(), "old handles released, new ones opened")
	for _, k := range reg.Live() {
		assert.Equal(t, "hotelId=H2", k.Scope)
	}
	require.Len(t, s.Rooms(), 1)
	assert.Equal(t, "suite", s.Rooms()[0].Type)

	require.NoError(t, s.SwitchHotel(context.Background(), "H2"))
	assert.Equal(t, 3, reg.Len())
}

func TestSessionsShareSubscriptions(t *testing.T) {
	st := memory.New()
	reg := subscriptions.NewRegistry(st)
	defer reg.Close()

	a, err := Open(context.Background(), reg, "H1")
	require.NoError(t, err)
	b, err := Open(context.Background(), reg, "H1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Subscribers(hotel.CollectionRooms))

	require.NoError(t, a.Close())
	assert.Equal(t, 1, st.Subscribers(hotel.CollectionRooms))
	require.NoError(t, b.Close())
	assert.Equal(t, 0, reg.Len())
}

func TestLiveDashboard(t *testing.T) {
	st := memory.New()
	seed(t, st)
	reg := subscriptions.NewRegistry(st)
	defer reg.Close()
	s, err := Open(context.Background(), reg, "H1", WithClock(clock))
	require.NoError(t, err)
	defer s.Close()
	ready(t, s)

	got := make(chan dashboard.Metrics, 32)
	cancel := s.SubscribeMetrics(func(m dashboard.Metrics) { got <- m })
	defer cancel()
	<-got

	roomID := s.Rooms()[0].ID
	g := gateway.New(st, gateway.WithClock(clock))
	_, err = g.Execute(context.Background(), gateway.ChangeRoomStatus{RoomID: roomID, To: "ocupada"})
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-got:
			if m.RoomsByStatus[hotel.RoomOccupied] == 1 {
				assert.Equal(t, 33, m.OccupancyPct)
				return
			}
		case <-deadline:
			t.Fatal("dashboard never reflected the status change")
		}
	}
}

func TestHubPricesStays(t *testing.T) {
	st := memory.New()
	seed(t, st)
	reg := subscriptions.NewRegistry(st)
	hub := NewHub(reg, WithClock(clock))
	defer hub.Close()

	s, err := hub.Session(context.Background(), "H1")
	require.NoError(t, err)
	ready(t, s)
	again, err := hub.Session(context.Background(), "H1")
	require.NoError(t, err)
	assert.Same(t, s, again)

	roomID := s.Rooms()[0].ID
	total, err := hub.PriceStay(context.Background(), "H1", roomID, today, today.AddDate(0, 0, 3))
	require.NoError(t, err)
	// rule covers day -1..+1: nights on today and tomorrow at 120, the third at 100
	assert.Equal(t, 340.0, total)

	_, err = hub.PriceStay(context.Background(), "H1", "nope", today, today.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrUnknownRoom)

	g := gateway.New(st, gateway.WithClock(clock), gateway.WithPricer(hub))
	res, err := g.Execute(context.Background(), gateway.CreateReservation{
		HotelID: "H1", GuestName: "Cy", Guests: 1, RoomID: roomID, CheckIn: today, CheckOut: today.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 120.0, res.TotalPrice)
}

func TestHubReopensFailedSession(t *testing.T) {
	st := memory.New()
	reg := subscriptions.NewRegistry(st)
	hub := NewHub(reg)
	defer hub.Close()

	s, err := hub.Session(context.Background(), "H1")
	require.NoError(t, err)
	ready(t, s)

	st.FailSubscriptions(hotel.CollectionRooms, errors.New("dropped"))
	require.Eventually(t, func() bool { return s.Err() != nil }, 2*time.Second, 10*time.Millisecond)

	fresh, err := hub.Session(context.Background(), "H1")
	require.NoError(t, err)
	assert.NotSame(t, s, fresh)
	ready(t, fresh)
	assert.NoError(t, fresh.Err())
	assert.Equal(t, 1, hub.Len())

	require.NoError(t, hub.Close())
	_, err = hub.Session(context.Background(), "H1")
	assert.ErrorIs(t, err, docstore.ErrClosed)
}
