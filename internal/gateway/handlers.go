package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/hotel"
)

func (g *Gateway) createRoom(ctx context.Context, c CreateRoom) (Result, error) {
	status := hotel.RoomAvailable
	if c.Status != "" {
		st, ok := hotel.ParseRoomStatus(c.Status)
		if !ok {
			return Result{}, invalid(KindCreateRoom, "Status", "unknown room status")
		}
		status = st
	}
	fields := hotel.EncodeRoom(hotel.Room{
		HotelID:   c.HotelID,
		Number:    c.Number,
		Type:      c.Type,
		Capacity:  c.Capacity,
		BasePrice: c.BasePrice,
		Features:  c.Features,
		Status:    status,
	})
	id, err := g.create(ctx, hotel.CollectionRooms, fields)
	return Result{ID: id}, err
}

func (g *Gateway) updateRoom(ctx context.Context, c UpdateRoom) (Result, error) {
	patch := map[string]any{}
	if c.Number != nil {
		patch["number"] = *c.Number
	}
	if c.Type != nil {
		patch["type"] = *c.Type
	}
	if c.Capacity != nil {
		patch["capacity"] = *c.Capacity
	}
	if c.BasePrice != nil {
		patch["basePrice"] = *c.BasePrice
	}
	if c.Features != nil {
		patch["features"] = append([]string{}, (*c.Features)...)
	}
	if c.LastCleaned != nil {
		patch["lastCleaned"] = docstore.TimestampOf(*c.LastCleaned)
	}
	if c.NextMaintenance != nil {
		patch["nextMaintenance"] = docstore.TimestampOf(*c.NextMaintenance)
	}
	if len(patch) == 0 {
		return Result{ID: c.RoomID}, invalid(KindUpdateRoom, "RoomID", "nothing to update")
	}
	return Result{ID: c.RoomID}, g.update(ctx, hotel.CollectionRooms, c.RoomID, patch)
}

func (g *Gateway) changeRoomStatus(ctx context.Context, c ChangeRoomStatus) (Result, error) {
	res := Result{ID: c.RoomID}
	to, ok := hotel.ParseRoomStatus(c.To)
	if !ok {
		return res, invalid(KindChangeRoomStatus, "To", "unknown room status")
	}
	doc, err := g.get(ctx, hotel.CollectionRooms, c.RoomID)
	if err != nil {
		return res, err
	}
	cur := hotel.DecodeRoom(doc, g.now()).Status
	if c.From != "" {
		from, ok := hotel.ParseRoomStatus(c.From)
		if !ok {
			return res, invalid(KindChangeRoomStatus, "From", "unknown room status")
		}
		if from != cur {
			return res, &TransitionError{Entity: "room", ID: c.RoomID, From: string(cur), To: string(to)}
		}
	}
	if !hotel.CanTransitionRoom(cur, to) {
		return res, &TransitionError{Entity: "room", ID: c.RoomID, From: string(cur), To: string(to)}
	}
	patch := map[string]any{"status": string(to)}
	if cur == hotel.RoomCleaning {
		patch["lastCleaned"] = g.stamp()
	}
	return res, g.update(ctx, hotel.CollectionRooms, c.RoomID, patch)
}

// deleteRoom refuses rooms with pending or confirmed reservations. The check
// and the delete are not atomic.
func (g *Gateway) deleteRoom(ctx context.Context, c DeleteRoom) (Result, error) {
	res := Result{ID: c.RoomID}
	docs, err := g.store.Query(ctx, hotel.CollectionReservations, docstore.Where("roomId", c.RoomID))
	if err != nil {
		return res, fmt.Errorf("check reservations: %w", err)
	}
	for _, d := range docs {
		switch hotel.DecodeReservation(d, g.now()).Status {
		case hotel.ReservationPending, hotel.ReservationConfirmed:
			return res, fmt.Errorf("room %s: %w", c.RoomID, ErrRoomInUse)
		}
	}
	if err := g.store.Delete(ctx, hotel.CollectionRooms, c.RoomID); err != nil {
		return res, fmt.Errorf("delete room %s: %w", c.RoomID, err)
	}
	return res, nil
}

func checkInterval(kind Kind, in, out time.Time) error {
	if !in.Before(out) {
		return invalid(kind, "CheckOut", "must be after CheckIn")
	}
	return nil
}

func (g *Gateway) createReservation(ctx context.Context, c CreateReservation) (Result, error) {
	if err := checkInterval(KindCreateReservation, c.CheckIn, c.CheckOut); err != nil {
		return Result{}, err
	}
	total := c.TotalPrice
	if total == 0 && g.pricer != nil {
		p, err := g.pricer.PriceStay(ctx, c.HotelID, c.RoomID, c.CheckIn, c.CheckOut)
		if err != nil {
			return Result{}, fmt.Errorf("price stay: %w", err)
		}
		total = p
	}
	fields := hotel.EncodeReservation(hotel.Reservation{
		HotelID:    c.HotelID,
		GuestName:  c.GuestName,
		GuestEmail: c.GuestEmail,
		GuestPhone: c.GuestPhone,
		Guests:     c.Guests,
		RoomID:     c.RoomID,
		CheckIn:    c.CheckIn,
		CheckOut:   c.CheckOut,
		TotalPrice: total,
		Status:     hotel.ReservationPending,
		Notes:      c.Notes,
	})
	id, err := g.create(ctx, hotel.CollectionReservations, fields)
	return Result{ID: id, TotalPrice: total}, err
}

func (g *Gateway) updateReservation(ctx context.Context, c UpdateReservation) (Result, error) {
	res := Result{ID: c.ReservationID}
	patch := map[string]any{}
	if c.GuestName != nil {
		patch["guestName"] = *c.GuestName
	}
	if c.GuestEmail != nil {
		patch["guestEmail"] = *c.GuestEmail
	}
	if c.GuestPhone != nil {
		patch["guestPhone"] = *c.GuestPhone
	}
	if c.Guests != nil {
		patch["guests"] = *c.Guests
	}
	if c.RoomID != nil {
		patch["roomId"] = *c.RoomID
	}
	if c.TotalPrice != nil {
		patch["totalPrice"] = *c.TotalPrice
	}
	if c.Notes != nil {
		patch["notes"] = *c.Notes
	}
	if c.CheckIn != nil || c.CheckOut != nil {
		var in, out time.Time
		if c.CheckIn == nil || c.CheckOut == nil {
			doc, err := g.get(ctx, hotel.CollectionReservations, c.ReservationID)
			if err != nil {
				return res, err
			}
			cur := hotel.DecodeReservation(doc, g.now())
			in, out = cur.CheckIn, cur.CheckOut
		}
		if c.CheckIn != nil {
			in = *c.CheckIn
			patch["checkIn"] = docstore.TimestampOf(in)
		}
		if c.CheckOut != nil {
			out = *c.CheckOut
			patch["checkOut"] = docstore.TimestampOf(out)
		}
		if err := checkInterval(KindUpdateReservation, in, out); err != nil {
			return res, err
		}
	}
	if len(patch) == 0 {
		return res, invalid(KindUpdateReservation, "ReservationID", "nothing to update")
	}
	return res, g.update(ctx, hotel.CollectionReservations, c.ReservationID, patch)
}

func (g *Gateway) loadReservation(ctx context.Context, id string) (hotel.Reservation, error) {
	doc, err := g.get(ctx, hotel.CollectionReservations, id)
	if err != nil {
		return hotel.Reservation{}, err
	}
	return hotel.DecodeReservation(doc, g.now()), nil
}

func (g *Gateway) loadRoom(ctx context.Context, id string) (hotel.Room, error) {
	doc, err := g.get(ctx, hotel.CollectionRooms, id)
	if err != nil {
		return hotel.Room{}, err
	}
	return hotel.DecodeRoom(doc, g.now()), nil
}

func (g *Gateway) cancelReservation(ctx context.Context, c CancelReservation) (Result, error) {
	res := Result{ID: c.ReservationID}
	r, err := g.loadReservation(ctx, c.ReservationID)
	if err != nil {
		return res, err
	}
	if !hotel.CanTransitionReservation(r.Status, hotel.ReservationCancelled) {
		return res, &TransitionError{Entity: "reservation", ID: r.ID, From: string(r.Status), To: string(hotel.ReservationCancelled)}
	}
	return res, g.update(ctx, hotel.CollectionReservations, r.ID, map[string]any{"status": string(hotel.ReservationCancelled)})
}

func (g *Gateway) checkIn(ctx context.Context, c CheckIn) (Result, error) {
	res := Result{ID: c.ReservationID}
	r, err := g.loadReservation(ctx, c.ReservationID)
	if err != nil {
		return res, err
	}
	if r.Status != hotel.ReservationPending && r.Status != hotel.ReservationConfirmed {
		return res, &TransitionError{Entity: "reservation", ID: r.ID, From: string(r.Status), To: string(hotel.ReservationConfirmed)}
	}
	room, err := g.loadRoom(ctx, r.RoomID)
	if err != nil {
		return res, err
	}
	if !hotel.CanTransitionRoom(room.Status, hotel.RoomOccupied) {
		return res, &TransitionError{Entity: "room", ID: room.ID, From: string(room.Status), To: string(hotel.RoomOccupied)}
	}
	return res, g.twoWrites(ctx,
		r.ID, map[string]any{"status": string(hotel.ReservationConfirmed)},
		room.ID, map[string]any{"status": string(hotel.RoomOccupied)},
	)
}

func (g *Gateway) checkOut(ctx context.Context, c CheckOut) (Result, error) {
	res := Result{ID: c.ReservationID}
	r, err := g.loadReservation(ctx, c.ReservationID)
	if err != nil {
		return res, err
	}
	if !hotel.CanTransitionReservation(r.Status, hotel.ReservationCompleted) {
		return res, &TransitionError{Entity: "reservation", ID: r.ID, From: string(r.Status), To: string(hotel.ReservationCompleted)}
	}
	room, err := g.loadRoom(ctx, r.RoomID)
	if err != nil {
		return res, err
	}
	if !hotel.CanTransitionRoom(room.Status, hotel.RoomCleaning) {
		return res, &TransitionError{Entity: "room", ID: room.ID, From: string(room.Status), To: string(hotel.RoomCleaning)}
	}
	return res, g.twoWrites(ctx,
		r.ID, map[string]any{"status": string(hotel.ReservationCompleted)},
		room.ID, map[string]any{"status": string(hotel.RoomCleaning)},
	)
}

// twoWrites updates the reservation, then the room. They are independent
// writes; a failure of the second is reported, not compensated.
func (g *Gateway) twoWrites(ctx context.Context, resID string, resPatch map[string]any, roomID string, roomPatch map[string]any) error {
	if err := g.update(ctx, hotel.CollectionReservations, resID, resPatch); err != nil {
		return err
	}
	if err := g.update(ctx, hotel.CollectionRooms, roomID, roomPatch); err != nil {
		return &PartialWriteError{
			Completed: hotel.CollectionReservations + "/" + resID,
			Failed:    hotel.CollectionRooms + "/" + roomID,
			Err:       err,
		}
	}
	return nil
}

func (g *Gateway) createPricingRule(ctx context.Context, c CreatePricingRule) (Result, error) {
	if c.EndDate.Before(c.StartDate) {
		return Result{}, invalid(KindCreatePricingRule, "EndDate", "must not be before StartDate")
	}
	fields := hotel.EncodePricingRule(hotel.PricingRule{
		HotelID:    c.HotelID,
		Name:       c.Name,
		Kind:       hotel.RuleKind(c.RuleKind),
		RoomTypes:  c.RoomTypes,
		StartDate:  c.StartDate,
		EndDate:    c.EndDate,
		Adjustment: c.Adjustment,
		Priority:   c.Priority,
		Active:     c.Active,
	})
	id, err := g.create(ctx, hotel.CollectionPricingRules, fields)
	return Result{ID: id}, err
}

func (g *Gateway) updatePricingRule(ctx context.Context, c UpdatePricingRule) (Result, error) {
	res := Result{ID: c.RuleID}
	patch := map[string]any{}
	if c.Name != nil {
		patch["name"] = *c.Name
	}
	if c.RuleKind != nil {
		patch["type"] = *c.RuleKind
	}
	if c.RoomTypes != nil {
		patch["roomTypes"] = append([]string{}, (*c.RoomTypes)...)
	}
	if c.Adjustment != nil {
		patch["adjustment"] = *c.Adjustment
	}
	if c.Priority != nil {
		patch["priority"] = *c.Priority
	}
	if c.Active != nil {
		patch["active"] = *c.Active
	}
	if c.StartDate != nil || c.EndDate != nil {
		var start, end time.Time
		if c.StartDate == nil || c.EndDate == nil {
			doc, err := g.get(ctx, hotel.CollectionPricingRules, c.RuleID)
			if err != nil {
				return res, err
			}
			cur := hotel.DecodePricingRule(doc, g.now())
			start, end = cur.StartDate, cur.EndDate
		}
		if c.StartDate != nil {
			start = *c.StartDate
			patch["startDate"] = docstore.TimestampOf(start)
		}
		if c.EndDate != nil {
			end = *c.EndDate
			patch["endDate"] = docstore.TimestampOf(end)
		}
		if end.Before(start) {
			return res, invalid(KindUpdatePricingRule, "EndDate", "must not be before StartDate")
		}
	}
	if len(patch) == 0 {
		return res, invalid(KindUpdatePricingRule, "RuleID", "nothing to update")
	}
	return res, g.update(ctx, hotel.CollectionPricingRules, c.RuleID, patch)
}

func (g *Gateway) deletePricingRule(ctx context.Context, c DeletePricingRule) (Result, error) {
	if err := g.store.Delete(ctx, hotel.CollectionPricingRules, c.RuleID); err != nil {
		return Result{ID: c.RuleID}, fmt.Errorf("delete pricing rule %s: %w", c.RuleID, err)
	}
	return Result{ID: c.RuleID}, nil
}
