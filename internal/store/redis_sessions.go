package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/ayush/useradmin/internal/models"
)

// Redis key layout.
const (
	sessionKeyPrefix     = "session:"
	userSessionsPrefix   = "user_sessions:"
	userSessionsScanSize = 100
)

func sessionKey(id string) string { return sessionKeyPrefix + id }
func userSessionsKey(userID string) string { return userSessionsPrefix + userID }

// RedisSessionRepository stores each session as a JSON value under
// session:<id> with a TTL matching its lifetime, and indexes session ids
// per user in the set user_sessions:<userID>.
type RedisSessionRepository struct {
	rdb redis.Cmdable
}

// NewRedisSessionRepository creates a Redis-backed session repository.
func NewRedisSessionRepository(rdb redis.Cmdable) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb}
}

// Create stores s and adds it to its owner's index.
func (r *RedisSessionRepository) Create(ctx context.Context, s *models.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return oops.With("operation", "encode session").Wrap(err)
	}
	ttl := s.ExpiresAt.Sub(s.CreatedAt)

	if err := r.rdb.Set(ctx, sessionKey(s.ID), payload, ttl).Err(); err != nil {
		return oops.With("operation", "store session").Wrap(err)
	}
	if err := r.rdb.SAdd(ctx, userSessionsKey(s.UserID), s.ID).Err(); err != nil {
		return oops.With("operation", "index session").With("user_id", s.UserID).Wrap(err)
	}
	if err := r.rdb.Expire(ctx, userSessionsKey(s.UserID), ttl).Err(); err != nil {
		return oops.With("operation", "expire session index").With("user_id", s.UserID).Wrap(err)
	}
	return nil
}

// FindByID returns the session with id.
func (r *RedisSessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get session").Wrap(err)
	}

	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, oops.With("operation", "decode session").Wrap(err)
	}
	return &s, nil
}

// DeleteByID removes the session and its index entry. Missing sessions are
// ignored.
func (r *RedisSessionRepository) DeleteByID(ctx context.Context, id string) error {
	s, err := r.FindByID(ctx, id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return oops.With("operation", "delete session").Wrap(err)
	}
	if s != nil {
		if err := r.rdb.SRem(ctx, userSessionsKey(s.UserID), id).Err(); err != nil {
			return oops.With("operation", "unindex session").With("user_id", s.UserID).Wrap(err)
		}
	}
	return nil
}

// DeleteAllForUser removes every session listed in the user's index and
// the index itself.
func (r *RedisSessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	ids, err := r.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return oops.With("operation", "list user sessions").With("user_id", userID).Wrap(err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return oops.With("operation", "delete user sessions").With("user_id", userID).Wrap(err)
	}
	return nil
}

// DeleteExpired drops index entries whose session keys Redis has already
// expired, returning how many were removed. now is unused: Redis TTLs
// decide expiry.
func (r *RedisSessionRepository) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	var removed int64
	iter := r.rdb.Scan(ctx, 0, userSessionsPrefix+"*", userSessionsScanSize).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		ids, err := r.rdb.SMembers(ctx, indexKey).Result()
		if err != nil {
			return removed, oops.With("operation", "list indexed sessions").With("key", indexKey).Wrap(err)
		}
		for _, id := range ids {
			n, err := r.rdb.Exists(ctx, sessionKey(id)).Result()
			if err != nil {
				return removed, oops.With("operation", "check session").Wrap(err)
			}
			if n > 0 {
				continue
			}
			if err := r.rdb.SRem(ctx, indexKey, id).Err(); err != nil {
				return removed, oops.With("operation", "unindex expired session").With("key", indexKey).Wrap(err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, oops.With("operation", "scan session indexes").Wrap(err)
	}
	return removed, nil
}
