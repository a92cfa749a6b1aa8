package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizdesk-portal/internal/model"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := NewStore(rdb, testKey, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	return store, mr
}

func sampleRecord(t *testing.T) *Record {
	t.Helper()
	snap, err := SnapshotOf(model.User{MongoID: "u1", Name: "Ada", Email: "ada@example.com", Role: model.BackendRoleUser, IsSubscribed: true})
	require.NoError(t, err)
	return &Record{
		ID:           "sid-1",
		Token:        "backend-token-secret",
		User:         snap,
		Role:         model.RoleUser,
		Capabilities: model.CapabilitiesFor(model.RoleUser),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestNewStore_RejectsShortKey(t *testing.T) {
	_, err := NewStore(nil, []byte("short"), time.Hour, zerolog.Nop())
	assert.ErrorIs(t, err, ErrSealKey)
}

func TestSnapshotOf_UsesBackendID(t *testing.T) {
	snap, err := SnapshotOf(model.User{UserID: "abc", Name: "Bo", Role: model.BackendRoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "abc", snap.UserID)
	assert.Equal(t, "Bo", snap.Name)
	assert.Equal(t, model.BackendRoleAdmin, snap.Role)
}

func TestStore_SaveGet(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	rec := sampleRecord(t)

	require.NoError(t, store.Save(ctx, rec))

	raw, err := mr.Get("session:sid-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "backend-token-secret", "token must be sealed at rest")
	assert.Equal(t, time.Hour, mr.TTL("session:sid-1"))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Token, got.Token)
	assert.Equal(t, rec.User, got.User)
	assert.Equal(t, rec.Capabilities, got.Capabilities)
	assert.Equal(t, model.RoleUser, got.Role)
}

func TestStore_SealedTokenBoundToSession(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleRecord(t)))

	raw, err := mr.Get("session:sid-1")
	require.NoError(t, err)
	require.NoError(t, mr.Set("session:sid-2", raw))

	_, err = store.Get(ctx, "sid-2")
	assert.Error(t, err)
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateUserKeepsTTLAndCapabilities(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	rec := sampleRecord(t)
	require.NoError(t, store.Save(ctx, rec))
	mr.FastForward(10 * time.Minute)

	got, err := store.UpdateUser(ctx, "sid-1", model.User{Name: "Ada L.", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.User.Name)
	assert.Equal(t, "u1", got.User.UserID)
	assert.Equal(t, rec.Capabilities, got.Capabilities)
	assert.Equal(t, 50*time.Minute, mr.TTL("session:sid-1"))

	again, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", again.User.Name)
	assert.Equal(t, "backend-token-secret", again.Token)
}

func TestStore_DeletePublishes(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, store.Save(ctx, sampleRecord(t)))

	events, stop, err := store.Subscribe(ctx, "sid-1")
	require.NoError(t, err)
	defer stop()

	require.NoError(t, store.Delete(ctx, "sid-1"))

	select {
	case ev := <-events:
		assert.Equal(t, Event{Kind: EventDeleted, SessionID: "sid-1"}, ev)
	case <-ctx.Done():
		t.Fatal("no event received")
	}

	_, err = store.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
