package auth

import (
	"context"
	"errors"

	"log/slog"

	"github.com/rolodexhq/rolodex/internal/cache"
	"github.com/rolodexhq/rolodex/internal/metrics"
	"github.com/rolodexhq/rolodex/internal/security"
	"github.com/rolodexhq/rolodex/internal/storage"
)

// ErrUnauthorized covers every resolution failure: bad token, wrong scope,
// expired token, unknown subject.
var ErrUnauthorized = errors.New("could not validate credentials")

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
}

type UserCache interface {
	Get(ctx context.Context, email string) (*storage.User, error)
	Put(ctx context.Context, email string, user *storage.User) error
	Invalidate(ctx context.Context, email string) error
}

// Resolver turns a bearer access token into the authenticated user. The
// session cache is consulted first; a hit never touches storage, so a
// snapshot can trail mutations made elsewhere for up to the cache TTL.
type Resolver struct {
	Tokens *security.TokenService
	Cache  UserCache
	Store  UserStore
	Logger *slog.Logger
}

func NewResolver(tokens *security.TokenService, userCache UserCache, store UserStore, logger *slog.Logger) *Resolver {
	return &Resolver{Tokens: tokens, Cache: userCache, Store: store, Logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, bearer string) (*storage.User, error) {
	email, err := r.Tokens.VerifyAccess(bearer)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := r.Cache.Get(ctx, email)
	if err == nil {
		metrics.SessionCacheHits.Inc()
		return user, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		// A broken cache degrades to a storage lookup instead of failing
		// the request.
		r.Logger.Warn("session cache lookup failed", "error", err)
	}
	metrics.SessionCacheMisses.Inc()

	user, err = r.Store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if err := r.Cache.Put(ctx, email, user); err != nil {
		r.Logger.Warn("session cache put failed", "error", err)
	}
	return user, nil
}
