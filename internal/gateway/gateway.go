// Package gateway validates mutation commands and turns them into document
// writes. Dates are written as store timestamps; creates stamp createdAt and
// updatedAt, every other write stamps updatedAt.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
	"github.com/ariefcatur/go-hotel-console/internal/hotel"
	"github.com/ariefcatur/go-hotel-console/internal/logging"
)

// StayPricer prices a stay when a reservation is created without a total.
type StayPricer interface {
	PriceStay(ctx context.Context, hotelID, roomID string, in, out time.Time) (float64, error)
}

type Result struct {
	Kind       Kind    `json:"kind"`
	ID         string  `json:"id"`
	TotalPrice float64 `json:"totalPrice,omitempty"`
}

// Outcome is what Submit reports once the command has run.
type Outcome struct {
	Result Result
	Err    error
}

type Gateway struct {
	store        docstore.Store
	validate     *validator.Validate
	now          func() time.Time
	pricer       StayPricer
	writeTimeout time.Duration
	log          *logrus.Entry
}

type Option func(*Gateway)

func WithClock(now func() time.Time) Option { return func(g *Gateway) { g.now = now } }
func WithPricer(p StayPricer) Option        { return func(g *Gateway) { g.pricer = p } }
func WithWriteTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.writeTimeout = d }
}

func New(store docstore.Store, opts ...Option) *Gateway {
	g := &Gateway{
		store:        store,
		validate:     validator.New(),
		now:          time.Now,
		writeTimeout: 10 * time.Second,
		log:          logging.For("gateway"),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Submit runs cmd in the background with its own timeout and always reports
// the outcome, both on the returned channel and in the log. Closing a view
// does not cancel an in-flight write.
func (g *Gateway) Submit(cmd Command) <-chan Outcome {
	return g.submit(func(ctx context.Context) (Result, error) { return g.Execute(ctx, cmd) }, cmd)
}

// SubmitIn is Submit restricted to one hotel, see ExecuteIn.
func (g *Gateway) SubmitIn(hotelID string, cmd Command) <-chan Outcome {
	return g.submit(func(ctx context.Context) (Result, error) { return g.ExecuteIn(ctx, hotelID, cmd) }, cmd)
}

func (g *Gateway) submit(run func(context.Context) (Result, error), cmd Command) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		ctx, cancel := context.WithTimeout(context.Background(), g.writeTimeout)
		defer cancel()

		res, err := run(ctx)
		entry := g.log.WithField("kind", cmd.Kind()).WithField("id", res.ID)
		if err != nil {
			entry.WithError(err).Error("command failed")
		} else {
			entry.Info("command applied")
		}
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}

// ExecuteIn runs cmd on behalf of one hotel: creates are forced into that
// hotel and commands addressing an existing document are rejected when the
// document belongs to another hotel.
func (g *Gateway) ExecuteIn(ctx context.Context, hotelID string, cmd Command) (Result, error) {
	if c, ok := cmd.(creator); ok {
		cmd = c.inHotel(hotelID)
	}
	if t, ok := cmd.(targeter); ok {
		coll, id := t.target()
		if err := g.owned(ctx, hotelID, coll, id); err != nil {
			return Result{Kind: cmd.Kind()}, err
		}
	}
	// a reservation may only book or move to a room of the same hotel
	var room string
	switch c := cmd.(type) {
	case CreateReservation:
		room = c.RoomID
	case UpdateReservation:
		if c.RoomID != nil {
			room = *c.RoomID
		}
	}
	if err := g.owned(ctx, hotelID, hotel.CollectionRooms, room); err != nil {
		return Result{Kind: cmd.Kind()}, err
	}
	return g.Execute(ctx, cmd)
}

func (g *Gateway) owned(ctx context.Context, hotelID, coll, id string) error {
	if id == "" {
		return nil
	}
	doc, err := g.store.Get(ctx, coll, id)
	if err != nil {
		return err
	}
	if owner, _ := doc.Fields[hotel.ScopeField].(string); owner != hotelID {
		return fmt.Errorf("%s/%s: %w", coll, id, docstore.ErrPermissionDenied)
	}
	return nil
}

// Execute validates cmd and performs its writes synchronously.
func (g *Gateway) Execute(ctx context.Context, cmd Command) (Result, error) {
	if cmd == nil {
		return Result{}, invalid("", "kind", "missing command")
	}
	if err := g.validate.Struct(cmd); err != nil {
		return Result{Kind: cmd.Kind()}, fromValidator(cmd.Kind(), err)
	}

	var (
		res Result
		err error
	)
	switch c := cmd.(type) {
	case CreateRoom:
		res, err = g.createRoom(ctx, c)
	case UpdateRoom:
		res, err = g.updateRoom(ctx, c)
	case ChangeRoomStatus:
		res, err = g.changeRoomStatus(ctx, c)
	case DeleteRoom:
		res, err = g.deleteRoom(ctx, c)
	case CreateReservation:
		res, err = g.createReservation(ctx, c)
	case UpdateReservation:
		res, err = g.updateReservation(ctx, c)
	case CancelReservation:
		res, err = g.cancelReservation(ctx, c)
	case CheckIn:
		res, err = g.checkIn(ctx, c)
	case CheckOut:
		res, err = g.checkOut(ctx, c)
	case CreatePricingRule:
		res, err = g.createPricingRule(ctx, c)
	case UpdatePricingRule:
		res, err = g.updatePricingRule(ctx, c)
	case DeletePricingRule:
		res, err = g.deletePricingRule(ctx, c)
	default:
		return Result{Kind: cmd.Kind()}, fmt.Errorf("%w: %T", ErrUnknownKind, cmd)
	}
	res.Kind = cmd.Kind()
	return res, err
}

func (g *Gateway) stamp() docstore.Timestamp { return docstore.TimestampOf(g.now()) }

func (g *Gateway) create(ctx context.Context, coll string, fields map[string]any) (string, error) {
	ts := g.stamp()
	fields["createdAt"] = ts
	fields["updatedAt"] = ts
	id, err := g.store.Create(ctx, coll, fields)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", coll, err)
	}
	return id, nil
}

func (g *Gateway) update(ctx context.Context, coll, id string, patch map[string]any) error {
	patch["updatedAt"] = g.stamp()
	if err := g.store.Update(ctx, coll, id, patch); err != nil {
		return fmt.Errorf("update %s/%s: %w", coll, id, err)
	}
	return nil
}

func (g *Gateway) get(ctx context.Context, coll, id string) (docstore.Document, error) {
	d, err := g.store.Get(ctx, coll, id)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("load %s/%s: %w", coll, id, err)
	}
	return d, nil
}
