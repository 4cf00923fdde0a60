// Package dashboard derives occupancy and revenue figures from the room and
// reservation mirrors. Nothing here is persisted.
package dashboard

import (
	"maps"
	"math"
	"slices"
	"time"

	"github.com/ariefcatur/go-hotel-console/internal/hotel"
)

type Metrics struct {
	OccupancyPct    int                      `json:"occupancyPct"`
	RevenueToday    float64                  `json:"revenueToday"`
	CheckInsToday   int                      `json:"checkInsToday"`
	RoomsByStatus   map[hotel.RoomStatus]int `json:"roomsByStatus"`
	TotalRooms      int                      `json:"totalRooms"`
	WeeklyOccupancy []float64                `json:"weeklyOccupancy"`
	MonthlyRevenue  []float64                `json:"monthlyRevenue"`
	ComputedAt      time.Time                `json:"computedAt"`
	// Stale is set when a source subscription failed and its last
	// known-good snapshot is being used.
	Stale bool `json:"stale"`
}

// clone copies the map and slices so a caller can mutate its Metrics
// without touching anyone else's.
func (m Metrics) clone() Metrics {
	m.RoomsByStatus = maps.Clone(m.RoomsByStatus)
	m.WeeklyOccupancy = slices.Clone(m.WeeklyOccupancy)
	m.MonthlyRevenue = slices.Clone(m.MonthlyRevenue)
	return m
}

// Compute is pure: the inputs are only read. "Today" is the calendar day of
// now in now's location.
func Compute(rooms []hotel.Room, reservations []hotel.Reservation, now time.Time, trend Trend) Metrics {
	m := Metrics{
		RoomsByStatus: make(map[hotel.RoomStatus]int, len(hotel.RoomStatuses)),
		TotalRooms:    len(rooms),
		ComputedAt:    now,
	}
	for _, s := range hotel.RoomStatuses {
		m.RoomsByStatus[s] = 0
	}

	byID := make(map[string]hotel.Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
		m.RoomsByStatus[r.Status]++
	}
	m.OccupancyPct = occupancy(m.RoomsByStatus[hotel.RoomOccupied], len(rooms))

	start := startOfDay(now)
	end := start.AddDate(0, 0, 1)
	for _, res := range reservations {
		if res.Status == hotel.ReservationCancelled {
			continue
		}
		in := res.CheckIn.In(now.Location())
		if in.Before(start) || !in.Before(end) {
			continue
		}
		m.CheckInsToday++
		m.RevenueToday += float64(res.Nights()) * nightlyPrice(res, byID)
	}
	m.RevenueToday = math.Round(m.RevenueToday*100) / 100

	if trend == nil {
		trend = SyntheticTrend{}
	}
	m.WeeklyOccupancy = trend.WeeklyOccupancy(m.OccupancyPct, now)
	m.MonthlyRevenue = trend.MonthlyRevenue(m.RevenueToday, now)
	return m
}

func occupancy(occupied, total int) int {
	if total == 0 {
		return 0
	}
	pct := int(math.Round(float64(occupied) * 100 / float64(total)))
	return max(0, min(100, pct))
}

// nightlyPrice prefers the mirrored room's base price and falls back to the
// reservation's own total spread over its nights.
func nightlyPrice(res hotel.Reservation, rooms map[string]hotel.Room) float64 {
	if r, ok := rooms[res.RoomID]; ok {
		return r.BasePrice
	}
	if n := res.Nights(); n > 0 {
		return res.TotalPrice / float64(n)
	}
	return 0
}

func startOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
