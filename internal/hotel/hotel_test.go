package hotel

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
)

var now = time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

func TestRoomTransitions(t *testing.T) {
	assert.True(t, CanTransitionRoom(RoomAvailable, RoomOccupied))
	assert.True(t, CanTransitionRoom(RoomOccupied, RoomCleaning))
	assert.True(t, CanTransitionRoom(RoomCleaning, RoomAvailable))
	assert.True(t, CanTransitionRoom(RoomOutOfService, RoomMaintenance))
	assert.False(t, CanTransitionRoom(RoomOccupied, RoomMaintenance))
	assert.False(t, CanTransitionRoom(RoomCleaning, RoomOccupied))
	assert.False(t, CanTransitionRoom(RoomAvailable, RoomAvailable))
	assert.False(t, CanTransitionRoom("bogus", RoomAvailable))
}

func TestReservationTransitions(t *testing.T) {
	assert.True(t, CanTransitionReservation(ReservationPending, ReservationConfirmed))
	assert.True(t, CanTransitionReservation(ReservationConfirmed, ReservationCompleted))
	assert.False(t, CanTransitionReservation(ReservationCancelled, ReservationConfirmed))
	assert.False(t, CanTransitionReservation(ReservationCompleted, ReservationCancelled))
	assert.False(t, CanTransitionReservation(ReservationPending, ReservationCompleted))
}

func TestParseRoomStatusAliases(t *testing.T) {
	for in, want := range map[string]RoomStatus{
		"occupied":       RoomOccupied,
		"Ocupada":        RoomOccupied,
		"out_of_service": RoomOutOfService,
		"limpieza":       RoomCleaning,
	} {
		got, ok := ParseRoomStatus(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseRoomStatus("flooded")
	assert.False(t, ok)
}

func TestNights(t *testing.T) {
	in := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, Nights(in, in.Add(48*time.Hour)))
	assert.Equal(t, 1, Nights(in, in.Add(20*time.Hour)), "a started night counts")
	assert.Equal(t, 0, Nights(in, in))
	assert.Equal(t, 0, Nights(in, in.Add(-time.Hour)))
}

func TestDecodeRoomDefaults(t *testing.T) {
	r := DecodeRoom(docstore.Document{ID: "r1", Fields: map[string]any{
		"hotelId":   "H1",
		"number":    float64(101),
		"basePrice": "120.5",
		"features":  []any{"wifi", 3, "tv"},
		"status":    "weird",
	}}, now)

	assert.Equal(t, "101", r.Number)
	assert.Equal(t, 120.5, r.BasePrice)
	assert.Equal(t, []string{"wifi", "tv"}, r.Features)
	assert.Equal(t, RoomAvailable, r.Status)
	assert.Equal(t, now, r.CreatedAt, "missing timestamps default to now")
	assert.Equal(t, now, r.LastCleaned)
}

func TestDecodeReservationDates(t *testing.T) {
	in := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	r := DecodeReservation(docstore.Document{ID: "x", Fields: map[string]any{
		"checkIn":   docstore.TimestampOf(in),
		"checkOut":  map[string]any{"_seconds": float64(in.Add(72 * time.Hour).Unix()), "_nanoseconds": float64(0)},
		"createdAt": "2025-06-01T10:00:00Z",
		"status":    "confirmed",
	}}, now)

	assert.Equal(t, in, r.CheckIn)
	assert.Equal(t, 3, r.Nights())
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), r.CreatedAt)
	assert.Equal(t, now, r.UpdatedAt)
	assert.Equal(t, ReservationConfirmed, r.Status)
}

func TestEncodeDecodePricingRule(t *testing.T) {
	p := PricingRule{
		HotelID: "H1", Name: "summer", Kind: RuleSeasonal,
		RoomTypes: []string{"double"}, StartDate: now, EndDate: now.AddDate(0, 1, 0),
		Adjustment: 15, Priority: 3, Active: true,
	}
	got := DecodePricingRule(docstore.Document{ID: "p1", Fields: EncodePricingRule(p)}, now)
	p.ID = "p1"
	p.CreatedAt, p.UpdatedAt = now, now
	assert.Equal(t, p, got)
	assert.True(t, got.AppliesTo("double"))
	assert.False(t, got.AppliesTo("suite"))
}

func TestSortRoomsByNumber(t *testing.T) {
	rooms := []Room{{ID: "a", Number: "10"}, {ID: "b", Number: "9"}, {ID: "c", Number: "A1"}, {ID: "d", Number: "101"}}
	SortRoomsByNumber(rooms)
	var got []string
	for _, r := range rooms {
		got = append(got, r.Number)
	}
	assert.Equal(t, []string{"9", "10", "101", "A1"}, got)
}

func TestSortRoomsByNumberExtremes(t *testing.T) {
	rooms := []Room{
		{ID: "a", Number: strconv.Itoa(math.MaxInt)},
		{ID: "b", Number: "-5"},
		{ID: "c", Number: strconv.Itoa(math.MinInt)},
	}
	SortRoomsByNumber(rooms)
	assert.Equal(t, []string{"c", "b", "a"}, []string{rooms[0].ID, rooms[1].ID, rooms[2].ID})
}

func TestSortReservationsByCreatedDesc(t *testing.T) {
	rs := []Reservation{
		{ID: "old", CreatedAt: now.Add(-time.Hour)},
		{ID: "new", CreatedAt: now},
		{ID: "mid", CreatedAt: now.Add(-time.Minute)},
	}
	SortReservationsByCreatedDesc(rs)
	assert.Equal(t, "new", rs[0].ID)
	assert.Equal(t, "mid", rs[1].ID)
	assert.Equal(t, "old", rs[2].ID)
}
