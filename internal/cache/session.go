package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rolodexhq/rolodex/internal/storage"
)

const (
	keyPrefix  = "user:"
	DefaultTTL = 900 * time.Second
)

// ErrMiss is returned when no entry exists for the email.
var ErrMiss = errors.New("session cache miss")

// SessionCache is a read-through lookaside over the user store. Entries are
// never authoritative: a snapshot can lag storage by up to the TTL, and no
// user-mutation path invalidates it.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SessionCache{client: client, ttl: ttl}
}

func (c *SessionCache) Get(ctx context.Context, email string) (*storage.User, error) {
	payload, err := c.client.Get(ctx, keyPrefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("session cache get: %w", err)
	}

	var user storage.User
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, fmt.Errorf("session cache decode: %w", err)
	}
	return &user, nil
}

// Put overwrites any existing entry and resets the expiry.
func (c *SessionCache) Put(ctx context.Context, email string, user *storage.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session cache encode: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+email, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("session cache put: %w", err)
	}
	return nil
}

func (c *SessionCache) Invalidate(ctx context.Context, email string) error {
	if err := c.client.Del(ctx, keyPrefix+email).Err(); err != nil {
		return fmt.Errorf("session cache invalidate: %w", err)
	}
	return nil
}
