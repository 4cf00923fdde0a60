package hotel

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// SortRoomsByNumber orders rooms by numeric room number ("9" before "10").
// Non-numeric numbers sort after numeric ones, lexically; ties fall back to ID.
func SortRoomsByNumber(rooms []Room) {
	slices.SortStableFunc(rooms, func(a, b Room) int {
		an, aerr := strconv.Atoi(strings.TrimSpace(a.Number))
		bn, berr := strconv.Atoi(strings.TrimSpace(b.Number))
		switch {
		case aerr == nil && berr == nil && an != bn:
			return cmp.Compare(an, bn)
		case aerr == nil && berr != nil:
			return -1
		case aerr != nil && berr == nil:
			return 1
		}
		if c := strings.Compare(a.Number, b.Number); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// SortReservationsByCreatedDesc puts the newest reservation first.
func SortReservationsByCreatedDesc(rs []Reservation) {
	slices.SortStableFunc(rs, func(a, b Reservation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
