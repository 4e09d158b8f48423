package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"clinic-scheduling-api/internal/model"
)

const DefaultUserCacheTTL = 10 * time.Minute

// NewRedisClient connects to the server at redisURL (redis://host:port/db) and pings it.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		slog.Error("redis connection failed", "addr", opt.Addr, "error", err)
		return nil, err
	}
	slog.Info("redis connection successful", "addr", opt.Addr)
	return rdb, nil
}

// CachedUsers decorates a Backend with a Redis read-through cache for
// UserByID, the lookup made on every authenticated request. All other
// methods go straight to the wrapped backend. A nil client disables caching.
type CachedUsers struct {
	Backend
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedUsers(inner Backend, rdb *redis.Client, ttl time.Duration) *CachedUsers {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	return &CachedUsers{Backend: inner, rdb: rdb, ttl: ttl}
}

type cachedUser struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Type         string    `json:"type"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(id int64) string {
	return "users:" + strconv.FormatInt(id, 10)
}

func (c *CachedUsers) UserByID(ctx context.Context, id int64) (*model.User, error) {
	if c.rdb == nil {
		return c.Backend.UserByID(ctx, id)
	}
	key := userKey(id)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var cu cachedUser
		if err := json.Unmarshal(b, &cu); err == nil {
			return &model.User{
				ID:           cu.ID,
				Name:         cu.Name,
				Email:        cu.Email,
				PasswordHash: cu.PasswordHash,
				Type:         cu.Type,
				CreatedAt:    cu.CreatedAt,
			}, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	u, err := c.Backend.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// best effort
	b, err := json.Marshal(cachedUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Type:         u.Type,
		CreatedAt:    u.CreatedAt,
	})
	if err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "user cache write failed", slog.Int64("user_id", id), slog.Any("error", err))
		}
	}
	return u, nil
}
