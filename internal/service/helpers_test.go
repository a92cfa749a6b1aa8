package service

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/session"
)

// fakeBackend routes "METHOD /path" to handlers and counts hits.
type fakeBackend struct {
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

func (f *fakeBackend) handle(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = h
}

func (f *fakeBackend) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.hits[route]++
	h, ok := f.routes[route]
	f.mu.Unlock()
	if !ok {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		return
	}
	h(w, r)
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newFakeBackend(t *testing.T) (*fakeBackend, *backend.Client) {
	t.Helper()
	fb := &fakeBackend{routes: map[string]http.HandlerFunc{}, hits: map[string]int{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return fb, backend.New(srv.URL, 5*time.Second, zerolog.Nop())
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func newSessionStore(t *testing.T, rdb *redis.Client) *session.Store {
	t.Helper()
	store, err := session.NewStore(rdb, []byte("0123456789abcdef0123456789abcdef"), time.Hour, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func userRecord(id string) *session.Record {
	return &session.Record{
		ID:           "sid-" + id,
		Token:        "backend-token-" + id,
		User:         session.Snapshot{UserID: id, Name: "User " + id, Email: id + "@example.com", Role: model.BackendRoleUser},
		Role:         model.RoleUser,
		Capabilities: model.CapabilitiesFor(model.RoleUser),
	}
}

func adminRecord() *session.Record {
	return &session.Record{
		ID:           "sid-admin",
		Token:        "backend-token-admin",
		User:         session.Snapshot{UserID: "admin", Name: "Admin", Role: model.BackendRoleAdmin},
		Role:         model.RoleAdmin,
		Capabilities: model.CapabilitiesFor(model.RoleAdmin),
	}
}
