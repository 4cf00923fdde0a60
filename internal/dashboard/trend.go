package dashboard

import (
	"math"
	"time"
)

// Trend supplies the trailing series. Implementations backed by real
// history can replace SyntheticTrend without touching Compute.
type Trend interface {
	// WeeklyOccupancy returns seven daily percentages, oldest first.
	WeeklyOccupancy(current int, now time.Time) []float64
	// MonthlyRevenue returns six monthly totals, oldest first.
	MonthlyRevenue(today float64, now time.Time) []float64
}

// SyntheticTrend smooths the current figures into plausible series. It is an
// approximation, not history.
type SyntheticTrend struct{}

var (
	weeklyOffsets  = [7]float64{-8, -5, -3, 2, -2, 4, 0}
	monthlyFactors = [6]float64{0.82, 0.88, 0.91, 0.95, 0.97, 1}
)

func (SyntheticTrend) WeeklyOccupancy(current int, _ time.Time) []float64 {
	out := make([]float64, len(weeklyOffsets))
	for i, off := range weeklyOffsets {
		out[i] = math.Max(0, math.Min(100, float64(current)+off))
	}
	return out
}

func (SyntheticTrend) MonthlyRevenue(today float64, now time.Time) []float64 {
	days := float64(daysIn(now))
	out := make([]float64, len(monthlyFactors))
	for i, f := range monthlyFactors {
		out[i] = math.Round(today*days*f*100) / 100
	}
	return out
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
