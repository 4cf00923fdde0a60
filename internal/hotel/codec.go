package hotel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
)

// fields is a read-only view over a raw document that defaults every access.
type fields map[string]any

func (f fields) str(k string) string {
	switch v := f[k].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (f fields) float(k string) float64 {
	switch v := f[k].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		n, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n
	}
	return 0
}

func (f fields) int(k string) int { return int(f.float(k)) }

func (f fields) bool(k string) bool {
	switch v := f[k].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func (f fields) strings(k string) []string {
	switch v := f[k].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

// time decodes any supported date encoding; missing or unreadable dates
// become now.
func (f fields) time(k string, now time.Time) time.Time {
	if t, ok := docstore.ToTime(f[k]); ok {
		return t
	}
	return now
}

func DecodeRoom(d docstore.Document, now time.Time) Room {
	f := fields(d.Fields)
	status, ok := ParseRoomStatus(f.str("status"))
	if !ok {
		status = RoomAvailable
	}
	return Room{
		ID:              d.ID,
		HotelID:         f.str(ScopeField),
		Number:          f.str("number"),
		Type:            f.str("type"),
		Capacity:        f.int("capacity"),
		BasePrice:       f.float("basePrice"),
		Features:        f.strings("features"),
		Status:          status,
		LastCleaned:     f.time("lastCleaned", now),
		NextMaintenance: f.time("nextMaintenance", now),
		CreatedAt:       f.time("createdAt", now),
		UpdatedAt:       f.time("updatedAt", now),
	}
}

func DecodeReservation(d docstore.Document, now time.Time) Reservation {
	f := fields(d.Fields)
	status, ok := ParseReservationStatus(f.str("status"))
	if !ok {
		status = ReservationPending
	}
	return Reservation{
		ID:         d.ID,
		HotelID:    f.str(ScopeField),
		GuestName:  f.str("guestName"),
		GuestEmail: f.str("guestEmail"),
		GuestPhone: f.str("guestPhone"),
		Guests:     f.int("guests"),
		RoomID:     f.str("roomId"),
		CheckIn:    f.time("checkIn", now),
		CheckOut:   f.time("checkOut", now),
		TotalPrice: f.float("totalPrice"),
		Status:     status,
		Notes:      f.str("notes"),
		CreatedAt:  f.time("createdAt", now),
		UpdatedAt:  f.time("updatedAt", now),
	}
}

func DecodePricingRule(d docstore.Document, now time.Time) PricingRule {
	f := fields(d.Fields)
	return PricingRule{
		ID:         d.ID,
		HotelID:    f.str(ScopeField),
		Name:       f.str("name"),
		Kind:       RuleKind(f.str("type")),
		RoomTypes:  f.strings("roomTypes"),
		StartDate:  f.time("startDate", now),
		EndDate:    f.time("endDate", now),
		Adjustment: f.float("adjustment"),
		Priority:   f.int("priority"),
		Active:     f.bool("active"),
		CreatedAt:  f.time("createdAt", now),
		UpdatedAt:  f.time("updatedAt", now),
	}
}

// EncodeRoom returns the writable field set of r. Id and audit stamps are
// left to the writer.
func EncodeRoom(r Room) map[string]any {
	m := map[string]any{
		ScopeField:  r.HotelID,
		"number":    r.Number,
		"type":      r.Type,
		"capacity":  r.Capacity,
		"basePrice": r.BasePrice,
		"features":  append([]string{}, r.Features...),
		"status":    string(r.Status),
	}
	if !r.LastCleaned.IsZero() {
		m["lastCleaned"] = docstore.TimestampOf(r.LastCleaned)
	}
	if !r.NextMaintenance.IsZero() {
		m["nextMaintenance"] = docstore.TimestampOf(r.NextMaintenance)
	}
	return m
}

func EncodeReservation(r Reservation) map[string]any {
	m := map[string]any{
		ScopeField:   r.HotelID,
		"guestName":  r.GuestName,
		"guestEmail": r.GuestEmail,
		"guestPhone": r.GuestPhone,
		"guests":     r.Guests,
		"roomId":     r.RoomID,
		"checkIn":    docstore.TimestampOf(r.CheckIn),
		"checkOut":   docstore.TimestampOf(r.CheckOut),
		"totalPrice": r.TotalPrice,
		"status":     string(r.Status),
	}
	if r.Notes != "" {
		m["notes"] = r.Notes
	}
	return m
}

func EncodePricingRule(p PricingRule) map[string]any {
	return map[string]any{
		ScopeField:   p.HotelID,
		"name":       p.Name,
		"type":       string(p.Kind),
		"roomTypes":  append([]string{}, p.RoomTypes...),
		"startDate":  docstore.TimestampOf(p.StartDate),
		"endDate":    docstore.TimestampOf(p.EndDate),
		"adjustment": p.Adjustment,
		"priority":   p.Priority,
		"active":     p.Active,
	}
}
