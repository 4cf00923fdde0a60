// Package hotel holds the strongly typed entities the console works with and
// the decoders that build them from raw store documents.
package hotel

import (
	"math"
	"time"
)

const (
	CollectionRooms        = "rooms"
	CollectionReservations = "reservations"
	CollectionPricingRules = "pricingRules"

	// ScopeField is the owning-hotel field every collection is scoped by.
	ScopeField = "hotelId"
)

type Room struct {
	ID              string     `json:"id"`
	HotelID         string     `json:"hotelId"`
	Number          string     `json:"number"`
	Type            string     `json:"type"`
	Capacity        int        `json:"capacity"`
	BasePrice       float64    `json:"basePrice"`
	Features        []string   `json:"features"`
	Status          RoomStatus `json:"status"` // see status.go
	LastCleaned     time.Time  `json:"lastCleaned"`
	NextMaintenance time.Time  `json:"nextMaintenance"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type Reservation struct {
	ID         string            `json:"id"`
	HotelID    string            `json:"hotelId"`
	GuestName  string            `json:"guestName"`
	GuestEmail string            `json:"guestEmail"`
	GuestPhone string            `json:"guestPhone"`
	Guests     int               `json:"guests"`
	RoomID     string            `json:"roomId"`
	CheckIn    time.Time         `json:"checkIn"`
	CheckOut   time.Time         `json:"checkOut"`
	TotalPrice float64           `json:"totalPrice"`
	Status     ReservationStatus `json:"status"`
	Notes      string            `json:"notes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Nights is derived from the stay interval, never read from a stored field.
func (r Reservation) Nights() int {
	return Nights(r.CheckIn, r.CheckOut)
}

// Nights counts started 24h periods in [in, out). Empty or inverted
// intervals have zero nights.
func Nights(in, out time.Time) int {
	if !out.After(in) {
		return 0
	}
	return int(math.Ceil(out.Sub(in).Hours() / 24))
}

type RuleKind string

const (
	RuleSeasonal  RuleKind = "seasonal"
	RuleDiscount  RuleKind = "discount"
	RulePromotion RuleKind = "promotion"
)

func (k RuleKind) Valid() bool {
	switch k {
	case RuleSeasonal, RuleDiscount, RulePromotion:
		return true
	}
	return false
}

type PricingRule struct {
	ID         string    `json:"id"`
	HotelID    string    `json:"hotelId"`
	Name       string    `json:"name"`
	Kind       RuleKind  `json:"type"`
	RoomTypes  []string  `json:"roomTypes"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Adjustment float64   `json:"adjustment"` // signed percentage
	Priority   int       `json:"priority"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (p PricingRule) AppliesTo(roomType string) bool {
	for _, t := range p.RoomTypes {
		if t == roomType {
			return true
		}
	}
	return false
}
