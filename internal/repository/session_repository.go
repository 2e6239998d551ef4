package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/slot-booking/internal/models"
	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

const sessionKeyPrefix = "session:"

// SessionRepository keeps the session table in Redis, one key per client.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository constructs a Redis backed session store. A ttl of zero
// keeps sessions without expiry.
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{client: client, ttl: ttl}
}

// SessionKey returns the Redis key for a client id.
func SessionKey(clientID int64) string {
	return sessionKeyPrefix + models.SubjectFor(clientID)
}

// Get returns the session for clientID or ErrSessionNotFound.
func (r *SessionRepository) Get(ctx context.Context, clientID int64) (*models.Session, error) {
	if r.client == nil {
		return nil, appErrors.ErrSessionNotFound
	}

	key := SessionKey(clientID)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", key, err)
	}
	return &session, nil
}

// Put stores or overwrites the session of its client.
func (r *SessionRepository) Put(ctx context.Context, session models.Session) error {
	if r.client == nil {
		return errors.New("redis session store not configured")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %d: %w", session.ClientID, err)
	}

	key := SessionKey(session.ClientID)
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *SessionRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
