package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-hotel-console/internal/apperr"
	"github.com/ariefcatur/go-hotel-console/internal/auth"
	"github.com/ariefcatur/go-hotel-console/internal/changefeed"
	"github.com/ariefcatur/go-hotel-console/internal/console"
	"github.com/ariefcatur/go-hotel-console/internal/gateway"
)

// DashboardCache stores rendered dashboard bodies per hotel.
type DashboardCache interface {
	Get(ctx context.Context, hotelID string) ([]byte, bool, error)
	Set(ctx context.Context, hotelID string, body []byte) error
	Delete(ctx context.Context, hotelID string) error
}

type ConsoleHandler struct {
	Hub     *console.Hub
	Gateway *gateway.Gateway
	Cache   DashboardCache // optional
}

type CommandReq struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Register mounts the console API behind authn.
func (h *ConsoleHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/dashboard", h.ownDashboard)
		r.Route("/hotels/{hotelID}", func(r chi.Router) {
			r.Use(requireHotel)
			r.Get("/dashboard", h.dashboard)
			r.Get("/rooms", h.rooms)
			r.Get("/reservations", h.reservations)
			r.Get("/pricing-rules", h.rules)
			r.Get("/quote", h.quote)
			r.Post("/commands", h.command)
		})
	})
}

func requireHotel(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok {
			apperr.RespondErrorWithCode(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "Missing credentials", nil)
			return
		}
		if !claims.CanAccess(chi.URLParam(r, "hotelID")) {
			apperr.Respond(w, apperr.Forbidden("No access to this hotel"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// session returns the hotel's session once its first snapshots are in.
func (h *ConsoleHandler) session(ctx context.Context, hotelID string) (*console.Session, error) {
	s, err := h.Hub.Session(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	if err := s.WaitReady(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (h *ConsoleHandler) ownDashboard(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	if claims == nil || claims.HotelID == "" {
		apperr.RespondErrorWithCode(w, http.StatusBadRequest, apperr.CodeInvalidPayload, "Token carries no hotel", nil)
		return
	}
	h.serveDashboard(w, r, claims.HotelID)
}

func (h *ConsoleHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	h.serveDashboard(w, r, chi.URLParam(r, "hotelID"))
}

func (h *ConsoleHandler) serveDashboard(w http.ResponseWriter, r *http.Request, hotelID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// 1) try cache
	if h.Cache != nil {
		if b, ok, err := h.Cache.Get(ctx, hotelID); err == nil && ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(b)
			return
		}
	}

	// 2) live session
	s, err := h.session(ctx, hotelID)
	if err != nil {
		respondErr(w, err)
		return
	}
	b, err := json.Marshal(s.Metrics())
	if err != nil {
		respondErr(w, err)
		return
	}
	if h.Cache != nil {
		_ = h.Cache.Set(ctx, hotelID, b)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *ConsoleHandler) rooms(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *console.Session) any { return s.Rooms() })
}

func (h *ConsoleHandler) reservations(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *console.Session) any { return s.Reservations() })
}

func (h *ConsoleHandler) rules(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *console.Session) any { return s.Rules() })
}

func (h *ConsoleHandler) withSession(w http.ResponseWriter, r *http.Request, view func(*console.Session) any) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	s, err := h.session(ctx, chi.URLParam(r, "hotelID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, view(s))
}

// quote prices one night: ?roomType=suite&base=100&date=2024-07-15
func (h *ConsoleHandler) quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomType := q.Get("roomType")
	base, err := strconv.ParseFloat(q.Get("base"), 64)
	if roomType == "" || err != nil || base < 0 {
		apperr.Respond(w, apperr.BadRequest("roomType and a non-negative base are required", err))
		return
	}
	date := time.Now()
	if d := q.Get("date"); d != "" {
		if date, err = time.Parse(time.DateOnly, d); err != nil {
			apperr.Respond(w, apperr.BadRequest("date must be YYYY-MM-DD", err))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	s, err := h.session(ctx, chi.URLParam(r, "hotelID"))
	if err != nil {
		respondErr(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, s.Quote(base, roomType, date))
}

func (h *ConsoleHandler) command(w http.ResponseWriter, r *http.Request) {
	var req CommandReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Respond(w, apperr.BadRequest("invalid json", err))
		return
	}
	cmd, err := gateway.DecodeCommand(req.Kind, req.Payload)
	if err != nil {
		apperr.Respond(w, apperr.BadRequest(err.Error(), err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	ctx = changefeed.WithTraceID(ctx, middleware.GetReqID(r.Context()))

	hotelID := chi.URLParam(r, "hotelID")
	res, err := h.Gateway.ExecuteIn(ctx, hotelID, cmd)
	if err != nil {
		respondErr(w, err)
		return
	}
	// the next dashboard read must see this write
	if h.Cache != nil {
		_ = h.Cache.Delete(ctx, hotelID)
	}
	apperr.WriteJSON(w, http.StatusOK, res)
}
