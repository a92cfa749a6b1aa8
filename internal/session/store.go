// Package session keeps the signed-in user's backend token and profile snapshot in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/model"
)

// ErrNotFound means the session expired or was logged out.
var ErrNotFound = errors.New("session not found")

// Snapshot is the slice of the backend user the portal keeps per session.
type Snapshot struct {
	UserID           string            `json:"userId"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	Role             model.BackendRole `json:"backendRole"`
	SubscriptionType model.PlanType    `json:"subscriptionType,omitempty"`
	IsSubscribed     bool              `json:"isSubscribed"`
	TeamName         string            `json:"teamName,omitempty"`
}

// SnapshotOf projects a backend user onto a Snapshot.
func SnapshotOf(u model.User) (Snapshot, error) {
	var snap Snapshot
	if err := copier.Copy(&snap, &u); err != nil {
		return Snapshot{}, fmt.Errorf("project user: %w", err)
	}
	snap.UserID = u.Identity()
	return snap, nil
}

// Record is one login.
type Record struct {
	ID           string     `json:"id"`
	Token        string     `json:"-"`
	User         Snapshot   `json:"user"`
	Role         model.Role `json:"role"`
	Capabilities []string   `json:"capabilities"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type storedRecord struct {
	Record
	SealedToken string `json:"sealedToken"`
}

// EventKind names a session change.
type EventKind string

const (
	EventSaved   EventKind = "saved"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event is published on every session change.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"sessionId"`
}

// Store persists sessions under session:<sid>.
type Store struct {
	rdb    *redis.Client
	sealer *sealer
	ttl    time.Duration
	log    zerolog.Logger
}

// NewStore creates a Store. sealKey must be 32 bytes.
func NewStore(rdb *redis.Client, sealKey []byte, ttl time.Duration, log zerolog.Logger) (*Store, error) {
	s, err := newSealer(sealKey)
	if err != nil {
		return nil, err
	}
	return &Store{
		rdb:    rdb,
		sealer: s,
		ttl:    ttl,
		log:    log.With().Str("component", "session_store").Logger(),
	}, nil
}

// Save writes rec with the store TTL and notifies subscribers.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if err := s.write(ctx, rec, s.ttl); err != nil {
		return err
	}
	s.publish(ctx, rec.ID, EventSaved)
	return nil
}

// Get loads a session and unseals its backend token.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.SessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var stored storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	token, err := s.sealer.open(sessionID, stored.SealedToken)
	if err != nil {
		return nil, fmt.Errorf("open session token: %w", err)
	}
	rec := stored.Record
	rec.Token = token
	return &rec, nil
}

// UpdateUser refreshes the user snapshot in place, keeping the remaining TTL.
// Role and capabilities are not re-evaluated.
func (s *Store) UpdateUser(ctx context.Context, sessionID string, u model.User) (*Record, error) {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	id := rec.User.UserID
	if err := copier.CopyWithOption(&rec.User, &u, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, fmt.Errorf("project user: %w", err)
	}
	rec.User.UserID = id

	if err := s.write(ctx, rec, redis.KeepTTL); err != nil {
		return nil, err
	}
	s.publish(ctx, sessionID, EventUpdated)
	return rec, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, config.CacheKey.SessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.publish(ctx, sessionID, EventDeleted)
	return nil
}

// Subscribe streams change events for one session until ctx is done or the
// returned cancel func is called.
func (s *Store) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	ps := s.rdb.Subscribe(ctx, config.CacheKey.SessionEventsChannel(sessionID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe session events: %w", err)
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Dropping malformed session event")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { _ = ps.Close() }, nil
}

func (s *Store) write(ctx context.Context, rec *Record, ttl time.Duration) error {
	sealed, err := s.sealer.seal(rec.ID, rec.Token)
	if err != nil {
		return fmt.Errorf("seal session token: %w", err)
	}
	payload, err := json.Marshal(storedRecord{Record: *rec, SealedToken: sealed})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.SessionKey(rec.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *Store) publish(ctx context.Context, sessionID string, kind EventKind) {
	payload, _ := json.Marshal(Event{Kind: kind, SessionID: sessionID})
	if err := s.rdb.Publish(ctx, config.CacheKey.SessionEventsChannel(sessionID), payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Str("kind", string(kind)).Msg("Failed to publish session event")
	}
}
