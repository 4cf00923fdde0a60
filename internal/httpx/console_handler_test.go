package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-hotel-console/internal/apperr"
	"github.com/ariefcatur/go-hotel-console/internal/auth"
	"github.com/ariefcatur/go-hotel-console/internal/console"
	"github.com/ariefcatur/go-hotel-console/internal/docstore/memory"
	"github.com/ariefcatur/go-hotel-console/internal/gateway"
	"github.com/ariefcatur/go-hotel-console/internal/hotel"
	"github.com/ariefcatur/go-hotel-console/internal/subscriptions"
)

var secret = []byte("test-secret")

type memCache struct {
	mu   sync.Mutex
	body map[string][]byte
	hits int
}

func (c *memCache) Get(_ context.Context, hotelID string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.body[hotelID]
	if ok {
		c.hits++
	}
	return b, ok, nil
}

func (c *memCache) Set(_ context.Context, hotelID string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.body[hotelID] = body
	return nil
}

func (c *memCache) Delete(_ context.Context, hotelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.body, hotelID)
	return nil
}

func (c *memCache) cached(hotelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.body[hotelID]
	return ok
}

type fixture struct {
	srv   *httptest.Server
	cache *memCache
	rooms map[string]string // hotel -> first room id
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	reg := subscriptions.NewRegistry(st)
	hub := console.NewHub(reg)
	gw := gateway.New(st, gateway.WithPricer(hub))
	t.Cleanup(func() {
		_ = hub.Close()
		_ = reg.Close()
	})

	f := &fixture{cache: &memCache{body: map[string][]byte{}}, rooms: map[string]string{}}
	ctx := context.Background()
	for _, seed := range []struct{ hotel, number string }{{"H1", "101"}, {"H1", "102"}, {"H2", "201"}} {
		res, err := gw.Execute(ctx, gateway.CreateRoom{HotelID: seed.hotel, Number: seed.number, Type: "double", Capacity: 2, BasePrice: 100})
		require.NoError(t, err)
		if _, ok := f.rooms[seed.hotel]; !ok {
			f.rooms[seed.hotel] = res.ID
		}
	}

	r := NewRouter(nil)
	(&ConsoleHandler{Hub: hub, Gateway: gw, Cache: f.cache}).Register(r, auth.Middleware(secret))
	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func token(t *testing.T, hotelID, role string) string {
	t.Helper()
	tok, err := auth.Issue(secret, "u-"+hotelID, hotelID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, tok string, body any) (int, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func errCode(t *testing.T, body []byte) string {
	t.Helper()
	var e apperr.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Code
}

func TestHealthz(t *testing.T) {
	f := setup(t)
	code, body := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", string(body))
}

func TestAuthAndHotelScope(t *testing.T) {
	f := setup(t)

	code, _ := f.do(t, http.MethodGet, "/hotels/H1/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := f.do(t, http.MethodGet, "/hotels/H2/rooms", token(t, "H1", auth.RoleStaff), nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, apperr.CodeForbidden, errCode(t, body))

	code, _ = f.do(t, http.MethodGet, "/hotels/H2/rooms", token(t, "", auth.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestListRooms(t *testing.T) {
	f := setup(t)
	code, body := f.do(t, http.MethodGet, "/hotels/H1/rooms", token(t, "H1", auth.RoleStaff), nil)
	require.Equal(t, http.StatusOK, code)

	var rooms []hotel.Room
	require.NoError(t, json.Unmarshal(body, &rooms))
	require.Len(t, rooms, 2)
	assert.Equal(t, "101", rooms[0].Number)
	assert.Equal(t, "102", rooms[1].Number)
}

func TestQuote(t *testing.T) {
	f := setup(t)
	tok := token(t, "H1", auth.RoleStaff)

	code, body := f.do(t, http.MethodGet, "/hotels/H1/quote?roomType=double&base=100&date=2030-01-10", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var q struct {
		Price float64 `json:"price"`
	}
	require.NoError(t, json.Unmarshal(body, &q))
	assert.Equal(t, 100.0, q.Price)

	code, _ = f.do(t, http.MethodGet, "/hotels/H1/quote?roomType=double&base=abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateReservationIsPriced(t *testing.T) {
	f := setup(t)
	tok := token(t, "H1", auth.RoleStaff)

	code, body := f.do(t, http.MethodPost, "/hotels/H1/commands", tok, CommandReq{
		Kind: string(gateway.KindCreateReservation),
		Payload: mustJSON(t, map[string]any{
			"guestName": "Ana",
			"guests":    2,
			"roomId":    f.rooms["H1"],
			"checkIn":   "2030-01-10T15:00:00Z",
			"checkOut":  "2030-01-12T11:00:00Z",
		}),
	})
	require.Equal(t, http.StatusOK, code, string(body))
	var res gateway.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 200.0, res.TotalPrice)

	assert.Eventually(t, func() bool {
		_, body := f.do(t, http.MethodGet, "/hotels/H1/reservations", tok, nil)
		var list []hotel.Reservation
		return json.Unmarshal(body, &list) == nil && len(list) == 1 && list[0].ID == res.ID
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCommandErrors(t *testing.T) {
	f := setup(t)
	tok := token(t, "H1", auth.RoleStaff)

	code, body := f.do(t, http.MethodPost, "/hotels/H1/commands", tok, CommandReq{Kind: "room.explode"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.CodeInvalidPayload, errCode(t, body))

	code, body = f.do(t, http.MethodPost, "/hotels/H1/commands", tok, CommandReq{
		Kind:    string(gateway.KindCreateRoom),
		Payload: mustJSON(t, map[string]any{"number": "103", "type": "double", "capacity": 0}),
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.CodeValidation, errCode(t, body))

	// a room of another hotel cannot be addressed
	code, _ = f.do(t, http.MethodPost, "/hotels/H1/commands", tok, CommandReq{
		Kind:    string(gateway.KindChangeRoomStatus),
		Payload: mustJSON(t, map[string]any{"roomId": f.rooms["H2"], "to": "ocupada"}),
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.do(t, http.MethodPost, "/hotels/H1/commands", tok, CommandReq{
		Kind:    string(gateway.KindChangeRoomStatus),
		Payload: mustJSON(t, map[string]any{"roomId": "missing", "to": "ocupada"}),
	})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodPost, "/hotels/H1/commands", tok, CommandReq{
		Kind:    string(gateway.KindChangeRoomStatus),
		Payload: mustJSON(t, map[string]any{"roomId": f.rooms["H1"], "to": "ocupada"}),
	})
	require.Equal(t, http.StatusOK, code)
	code, body = f.do(t, http.MethodPost, "/hotels/H1/commands", tok, CommandReq{
		Kind:    string(gateway.KindChangeRoomStatus),
		Payload: mustJSON(t, map[string]any{"roomId": f.rooms["H1"], "to": "mantenimiento"}),
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, apperr.CodeConflict, errCode(t, body))
}

func TestDashboardUsesCache(t *testing.T) {
	f := setup(t)
	tok := token(t, "H1", auth.RoleStaff)

	code, body := f.do(t, http.MethodGet, "/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var m struct {
		TotalRooms int `json:"totalRooms"`
	}
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, 2, m.TotalRooms)
	assert.Equal(t, 0, f.cache.hits)

	code, again := f.do(t, http.MethodGet, "/hotels/H1/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, string(body), string(again))
	assert.Equal(t, 1, f.cache.hits)

	code, _ = f.do(t, http.MethodGet, "/dashboard", token(t, "", auth.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCommandInvalidatesDashboardCache(t *testing.T) {
	f := setup(t)
	tok := token(t, "H1", auth.RoleStaff)

	code, _ := f.do(t, http.MethodGet, "/hotels/H1/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, code)
	_, _ = f.do(t, http.MethodGet, "/hotels/H2/dashboard", token(t, "H2", auth.RoleStaff), nil)
	require.True(t, f.cache.cached("H1"))
	require.True(t, f.cache.cached("H2"))

	code, body := f.do(t, http.MethodPost, "/hotels/H1/commands", tok, CommandReq{
		Kind:    string(gateway.KindCreateRoom),
		Payload: mustJSON(t, map[string]any{"number": "103", "type": "single", "capacity": 1, "basePrice": 80}),
	})
	require.Equal(t, http.StatusOK, code, string(body))
	assert.False(t, f.cache.cached("H1"), "a successful command drops the hotel's cached dashboard")
	assert.True(t, f.cache.cached("H2"))

	// rejected commands leave the cache alone
	_, _ = f.do(t, http.MethodGet, "/hotels/H1/dashboard", tok, nil)
	code, _ = f.do(t, http.MethodPost, "/hotels/H1/commands", tok, CommandReq{Kind: "room.explode"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.True(t, f.cache.cached("H1"))

	assert.Eventually(t, func() bool {
		_ = f.cache.Delete(context.Background(), "H1")
		_, body := f.do(t, http.MethodGet, "/hotels/H1/dashboard", tok, nil)
		var m struct {
			TotalRooms int `json:"totalRooms"`
		}
		return json.Unmarshal(body, &m) == nil && m.TotalRooms == 3
	}, 2*time.Second, 20*time.Millisecond)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
