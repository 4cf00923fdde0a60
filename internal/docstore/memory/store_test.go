package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-hotel-console/internal/docstore"
)

func next(t *testing.T, st docstore.Stream) docstore.Notification {
	t.Helper()
	select {
	case n, ok := <-st.Notifications():
		require.True(t, ok, "stream closed early")
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	return docstore.Notification{}
}

func TestSubscribeReplaysThenForwards(t *testing.T) {
	ctx := context.Background()
	s := New()
	id1, err := s.Create(ctx, "rooms", map[string]any{"hotelId": "H1", "number": "101"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "rooms", map[string]any{"hotelId": "H2", "number": "201"})
	require.NoError(t, err)

	st, err := s.Subscribe(ctx, "rooms", docstore.Where("hotelId", "H1"))
	require.NoError(t, err)
	defer st.Close()

	n := next(t, st)
	require.NoError(t, n.Err)
	assert.Equal(t, docstore.Added, n.Change.Kind)
	assert.Equal(t, id1, n.Change.Doc.ID)
	assert.True(t, next(t, st).Synced)

	require.NoError(t, s.Update(ctx, "rooms", id1, map[string]any{"number": "102"}))
	n = next(t, st)
	assert.Equal(t, docstore.Modified, n.Change.Kind)
	assert.Equal(t, "102", n.Change.Doc.Fields["number"])
	assert.Equal(t, "H1", n.Change.Doc.Fields["hotelId"], "partial update keeps other fields")

	// moving the room to another hotel removes it from this scope
	require.NoError(t, s.Update(ctx, "rooms", id1, map[string]any{"hotelId": "H2"}))
	n = next(t, st)
	assert.Equal(t, docstore.Removed, n.Change.Kind)
	assert.Equal(t, 1, s.Subscribers("rooms"))
}

func TestDeleteAndNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Create(ctx, "rooms", map[string]any{"hotelId": "H1"})
	require.NoError(t, err)

	st, err := s.Subscribe(ctx, "rooms", docstore.Filter{})
	require.NoError(t, err)
	defer st.Close()
	assert.Equal(t, docstore.Added, next(t, st).Change.Kind)
	assert.True(t, next(t, st).Synced)

	require.NoError(t, s.Delete(ctx, "rooms", id))
	n := next(t, st)
	assert.Equal(t, docstore.Removed, n.Change.Kind)

	assert.ErrorIs(t, s.Delete(ctx, "rooms", id), docstore.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, "rooms", id, map[string]any{"x": 1}), docstore.ErrNotFound)
	_, err = s.Get(ctx, "rooms", id)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestFailuresAreTerminal(t *testing.T) {
	ctx := context.Background()
	s := New()

	st, err := s.Subscribe(ctx, "rooms", docstore.Filter{})
	require.NoError(t, err)
	assert.True(t, next(t, st).Synced)

	boom := errors.New("network lost")
	s.FailSubscriptions("rooms", boom)

	n := next(t, st)
	assert.ErrorIs(t, n.Err, boom)
	_, ok := <-st.Notifications()
	assert.False(t, ok, "closed after terminal error")
	assert.Equal(t, 0, s.Subscribers("rooms"))

	s.Deny("rooms", true)
	st, err = s.Subscribe(ctx, "rooms", docstore.Filter{})
	require.NoError(t, err)
	n = next(t, st)
	assert.ErrorIs(t, n.Err, docstore.ErrPermissionDenied)
}

func TestCloseStopsDelivery(t *testing.T) {
	ctx := context.Background()
	s := New()
	st, err := s.Subscribe(ctx, "rooms", docstore.Filter{})
	require.NoError(t, err)
	assert.True(t, next(t, st).Synced)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	_, err = s.Create(ctx, "rooms", map[string]any{"hotelId": "H1"})
	require.NoError(t, err)
	for n := range st.Notifications() {
		t.Fatalf("unexpected notification after close: %+v", n)
	}
	assert.Equal(t, 0, s.Subscribers("rooms"))
}

func TestStoreCloseFailsSubscribers(t *testing.T) {
	ctx := context.Background()
	s := New()
	st, err := s.Subscribe(ctx, "rooms", docstore.Filter{})
	require.NoError(t, err)
	assert.True(t, next(t, st).Synced)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, next(t, st).Err, docstore.ErrClosed)
	_, err = s.Subscribe(ctx, "rooms", docstore.Filter{})
	assert.ErrorIs(t, err, docstore.ErrClosed)
}

func TestFailWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("unavailable")
	s.FailWrites("rooms", boom)
	_, err := s.Create(ctx, "rooms", map[string]any{})
	assert.ErrorIs(t, err, boom)
	s.FailWrites("rooms", nil)
	_, err = s.Create(ctx, "rooms", map[string]any{})
	assert.NoError(t, err)
}

func TestCreateNormalizesDates(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	id, err := s.Create(ctx, "reservations", map[string]any{"checkIn": at})
	require.NoError(t, err)
	d, err := s.Get(ctx, "reservations", id)
	require.NoError(t, err)
	assert.Equal(t, docstore.TimestampOf(at), d.Fields["checkIn"])
}
