package hotel

import "strings"

type RoomStatus string

const (
	RoomAvailable    RoomStatus = "disponible"
	RoomOccupied     RoomStatus = "ocupada"
	RoomCleaning     RoomStatus = "limpieza"
	RoomMaintenance  RoomStatus = "mantenimiento"
	RoomOutOfService RoomStatus = "fuera_servicio"
)

var RoomStatuses = []RoomStatus{RoomAvailable, RoomOccupied, RoomCleaning, RoomMaintenance, RoomOutOfService}

var roomNext = map[RoomStatus]map[RoomStatus]bool{
	RoomAvailable:    {RoomOccupied: true, RoomCleaning: true, RoomMaintenance: true, RoomOutOfService: true},
	RoomOccupied:     {RoomCleaning: true, RoomAvailable: true},
	RoomCleaning:     {RoomAvailable: true, RoomMaintenance: true},
	RoomMaintenance:  {RoomAvailable: true, RoomOutOfService: true},
	RoomOutOfService: {RoomMaintenance: true, RoomAvailable: true},
}

var roomAliases = map[string]RoomStatus{
	"available":      RoomAvailable,
	"occupied":       RoomOccupied,
	"cleaning":       RoomCleaning,
	"maintenance":    RoomMaintenance,
	"out_of_service": RoomOutOfService,
}

// ParseRoomStatus accepts the canonical values and their English aliases.
func ParseRoomStatus(s string) (RoomStatus, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if _, ok := roomNext[RoomStatus(v)]; ok {
		return RoomStatus(v), true
	}
	st, ok := roomAliases[v]
	return st, ok
}

func (s RoomStatus) Valid() bool {
	_, ok := roomNext[s]
	return ok
}

func CanTransitionRoom(from, to RoomStatus) bool {
	return roomNext[from][to]
}

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

var reservationNext = map[ReservationStatus]map[ReservationStatus]bool{
	ReservationPending:   {ReservationConfirmed: true, ReservationCancelled: true},
	ReservationConfirmed: {ReservationCompleted: true, ReservationCancelled: true},
	ReservationCancelled: {},
	ReservationCompleted: {},
}

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	v := ReservationStatus(strings.ToLower(strings.TrimSpace(s)))
	_, ok := reservationNext[v]
	return v, ok
}

func (s ReservationStatus) Valid() bool {
	_, ok := reservationNext[s]
	return ok
}

func CanTransitionReservation(from, to ReservationStatus) bool {
	return reservationNext[from][to]
}
