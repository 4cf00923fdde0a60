package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-hotel-console/internal/hotel"
)

type Kind string

const (
	KindCreateRoom        Kind = "room.create"
	KindUpdateRoom        Kind = "room.update"
	KindChangeRoomStatus  Kind = "room.status"
	KindDeleteRoom        Kind = "room.delete"
	KindCreateReservation Kind = "reservation.create"
	KindUpdateReservation Kind = "reservation.update"
	KindCancelReservation Kind = "reservation.cancel"
	KindCheckIn           Kind = "reservation.checkin"
	KindCheckOut          Kind = "reservation.checkout"
	KindCreatePricingRule Kind = "pricing_rule.create"
	KindUpdatePricingRule Kind = "pricing_rule.update"
	KindDeletePricingRule Kind = "pricing_rule.delete"
)

// Command is one mutation request. Each kind has its own payload type.
type Command interface {
	Kind() Kind
}

// creator is implemented by commands that create a document in a hotel.
type creator interface {
	inHotel(hotelID string) Command
}

// targeter is implemented by commands that address an existing document.
type targeter interface {
	target() (collection, id string)
}

type CreateRoom struct {
	HotelID   string   `json:"hotelId" validate:"required"`
	Number    string   `json:"number" validate:"required"`
	Type      string   `json:"type" validate:"required"`
	Capacity  int      `json:"capacity" validate:"gte=1,lte=20"`
	BasePrice float64  `json:"basePrice" validate:"gte=0"`
	Features  []string `json:"features"`
	Status    string   `json:"status"` // defaults to disponible
}

type UpdateRoom struct {
	RoomID          string     `json:"roomId" validate:"required"`
	Number          *string    `json:"number,omitempty" validate:"omitempty,min=1"`
	Type            *string    `json:"type,omitempty" validate:"omitempty,min=1"`
	Capacity        *int       `json:"capacity,omitempty" validate:"omitempty,gte=1,lte=20"`
	BasePrice       *float64   `json:"basePrice,omitempty" validate:"omitempty,gte=0"`
	Features        *[]string  `json:"features,omitempty"`
	LastCleaned     *time.Time `json:"lastCleaned,omitempty"`
	NextMaintenance *time.Time `json:"nextMaintenance,omitempty"`
}

// ChangeRoomStatus moves a room through its lifecycle. From is optional; when
// set it must match the stored status.
type ChangeRoomStatus struct {
	RoomID string `json:"roomId" validate:"required"`
	From   string `json:"from,omitempty"`
	To     string `json:"to" validate:"required"`
}

type DeleteRoom struct {
	RoomID string `json:"roomId" validate:"required"`
}

type CreateReservation struct {
	HotelID    string    `json:"hotelId" validate:"required"`
	GuestName  string    `json:"guestName" validate:"required"`
	GuestEmail string    `json:"guestEmail" validate:"omitempty,email"`
	GuestPhone string    `json:"guestPhone"`
	Guests     int       `json:"guests" validate:"gte=1"`
	RoomID     string    `json:"roomId" validate:"required"`
	CheckIn    time.Time `json:"checkIn" validate:"required"`
	CheckOut   time.Time `json:"checkOut" validate:"required"`
	// TotalPrice is resolved from the pricing rules when zero.
	TotalPrice float64 `json:"totalPrice" validate:"gte=0"`
	Notes      string  `json:"notes"`
}

type UpdateReservation struct {
	ReservationID string     `json:"reservationId" validate:"required"`
	GuestName     *string    `json:"guestName,omitempty" validate:"omitempty,min=1"`
	GuestEmail    *string    `json:"guestEmail,omitempty" validate:"omitempty,email"`
	GuestPhone    *string    `json:"guestPhone,omitempty"`
	Guests        *int       `json:"guests,omitempty" validate:"omitempty,gte=1"`
	RoomID        *string    `json:"roomId,omitempty" validate:"omitempty,min=1"`
	CheckIn       *time.Time `json:"checkIn,omitempty"`
	CheckOut      *time.Time `json:"checkOut,omitempty"`
	TotalPrice    *float64   `json:"totalPrice,omitempty" validate:"omitempty,gte=0"`
	Notes         *string    `json:"notes,omitempty"`
}

type CancelReservation struct {
	ReservationID string `json:"reservationId" validate:"required"`
}

// CheckIn confirms the reservation and occupies its room: two independent
// writes.
type CheckIn struct {
	ReservationID string `json:"reservationId" validate:"required"`
}

// CheckOut completes the reservation and sends its room to cleaning.
type CheckOut struct {
	ReservationID string `json:"reservationId" validate:"required"`
}

type CreatePricingRule struct {
	HotelID    string    `json:"hotelId" validate:"required"`
	Name       string    `json:"name" validate:"required"`
	RuleKind   string    `json:"type" validate:"required,oneof=seasonal discount promotion"`
	RoomTypes  []string  `json:"roomTypes" validate:"required,min=1,dive,required"`
	StartDate  time.Time `json:"startDate" validate:"required"`
	EndDate    time.Time `json:"endDate" validate:"required"`
	Adjustment float64   `json:"adjustment"`
	Priority   int       `json:"priority"`
	Active     bool      `json:"active"`
}

type UpdatePricingRule struct {
	RuleID     string     `json:"ruleId" validate:"required"`
	Name       *string    `json:"name,omitempty" validate:"omitempty,min=1"`
	RuleKind   *string    `json:"type,omitempty" validate:"omitempty,oneof=seasonal discount promotion"`
	RoomTypes  *[]string  `json:"roomTypes,omitempty" validate:"omitempty,min=1,dive,required"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Adjustment *float64   `json:"adjustment,omitempty"`
	Priority   *int       `json:"priority,omitempty"`
	Active     *bool      `json:"active,omitempty"`
}

type DeletePricingRule struct {
	RuleID string `json:"ruleId" validate:"required"`
}

func (CreateRoom) Kind() Kind        { return KindCreateRoom }
func (UpdateRoom) Kind() Kind        { return KindUpdateRoom }
func (ChangeRoomStatus) Kind() Kind  { return KindChangeRoomStatus }
func (DeleteRoom) Kind() Kind        { return KindDeleteRoom }
func (CreateReservation) Kind() Kind { return KindCreateReservation }
func (UpdateReservation) Kind() Kind { return KindUpdateReservation }
func (CancelReservation) Kind() Kind { return KindCancelReservation }
func (CheckIn) Kind() Kind           { return KindCheckIn }
func (CheckOut) Kind() Kind          { return KindCheckOut }
func (CreatePricingRule) Kind() Kind { return KindCreatePricingRule }
func (UpdatePricingRule) Kind() Kind { return KindUpdatePricingRule }
func (DeletePricingRule) Kind() Kind { return KindDeletePricingRule }

func (c CreateRoom) inHotel(h string) Command        { c.HotelID = h; return c }
func (c CreateReservation) inHotel(h string) Command { c.HotelID = h; return c }
func (c CreatePricingRule) inHotel(h string) Command { c.HotelID = h; return c }

func (c UpdateRoom) target() (string, string)        { return hotel.CollectionRooms, c.RoomID }
func (c ChangeRoomStatus) target() (string, string)  { return hotel.CollectionRooms, c.RoomID }
func (c DeleteRoom) target() (string, string)        { return hotel.CollectionRooms, c.RoomID }
func (c UpdateReservation) target() (string, string) { return hotel.CollectionReservations, c.ReservationID }
func (c CancelReservation) target() (string, string) { return hotel.CollectionReservations, c.ReservationID }
func (c CheckIn) target() (string, string)           { return hotel.CollectionReservations, c.ReservationID }
func (c CheckOut) target() (string, string)          { return hotel.CollectionReservations, c.ReservationID }
func (c UpdatePricingRule) target() (string, string) { return hotel.CollectionPricingRules, c.RuleID }
func (c DeletePricingRule) target() (string, string) { return hotel.CollectionPricingRules, c.RuleID }

var decoders = map[Kind]func(json.RawMessage) (Command, error){
	KindCreateRoom:        decodeAs[CreateRoom],
	KindUpdateRoom:        decodeAs[UpdateRoom],
	KindChangeRoomStatus:  decodeAs[ChangeRoomStatus],
	KindDeleteRoom:        decodeAs[DeleteRoom],
	KindCreateReservation: decodeAs[CreateReservation],
	KindUpdateReservation: decodeAs[UpdateReservation],
	KindCancelReservation: decodeAs[CancelReservation],
	KindCheckIn:           decodeAs[CheckIn],
	KindCheckOut:          decodeAs[CheckOut],
	KindCreatePricingRule: decodeAs[CreatePricingRule],
	KindUpdatePricingRule: decodeAs[UpdatePricingRule],
	KindDeletePricingRule: decodeAs[DeletePricingRule],
}

func decodeAs[T Command](raw json.RawMessage) (Command, error) {
	var c T
	if len(raw) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode %T payload: %w", c, err)
	}
	return c, nil
}

// DecodeCommand builds a command from its wire kind and JSON payload.
func DecodeCommand(kind string, payload json.RawMessage) (Command, error) {
	dec, ok := decoders[Kind(kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return dec(payload)
}
