package auth

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/rolodexhq/rolodex/internal/cache"
	"github.com/rolodexhq/rolodex/internal/security"
	"github.com/rolodexhq/rolodex/internal/storage"
)

type fakeStore struct {
	mu    sync.Mutex
	users map[string]*storage.User
	gets  int
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*storage.User
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*storage.User{}}
}

func (f *fakeCache) Get(ctx context.Context, email string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.entries[email]
	if !ok {
		return nil, cache.ErrMiss
	}
	return user, nil
}

func (f *fakeCache) Put(ctx context.Context, email string, user *storage.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[email] = user
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, email)
	return nil
}

func testResolver(store *fakeStore, userCache UserCache) (*Resolver, *security.TokenService) {
	tokens := security.NewTokenService("test-secret", 0, 0, 0)
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	return NewResolver(tokens, userCache, store, logger), tokens
}

func TestResolveMissPopulatesCache(t *testing.T) {
	user := &storage.User{ID: uuid.New(), Email: "user@example.com", Confirmed: true, CreatedAt: time.Now()}
	store := &fakeStore{users: map[string]*storage.User{user.Email: user}}
	userCache := newFakeCache()
	resolver, tokens := testResolver(store, userCache)

	token, err := tokens.IssueAccessToken(user.Email, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected stored user")
	}
	if _, ok := userCache.entries[user.Email]; !ok {
		t.Fatalf("expected cache populated on miss")
	}
}

func TestResolveHitSkipsStorage(t *testing.T) {
	user := &storage.User{ID: uuid.New(), Email: "user@example.com"}
	store := &fakeStore{users: map[string]*storage.User{user.Email: user}}
	userCache := newFakeCache()
	resolver, tokens := testResolver(store, userCache)

	token, err := tokens.IssueAccessToken(user.Email, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := resolver.Resolve(context.Background(), token); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), token); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if store.gets != 1 {
		t.Fatalf("expected a single storage lookup, got %d", store.gets)
	}
}

func TestResolveUnknownSubject(t *testing.T) {
	store := &fakeStore{users: map[string]*storage.User{}}
	resolver, tokens := testResolver(store, newFakeCache())

	token, err := tokens.IssueAccessToken("ghost@example.com", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := resolver.Resolve(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolveRejectsRefreshToken(t *testing.T) {
	user := &storage.User{ID: uuid.New(), Email: "user@example.com"}
	store := &fakeStore{users: map[string]*storage.User{user.Email: user}}
	resolver, tokens := testResolver(store, newFakeCache())

	refresh, err := tokens.IssueRefreshToken(user.Email, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := resolver.Resolve(context.Background(), refresh); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for refresh scope, got %v", err)
	}
}

func TestResolveStaleCacheWins(t *testing.T) {
	user := &storage.User{ID: uuid.New(), Email: "user@example.com", Confirmed: false}
	store := &fakeStore{users: map[string]*storage.User{user.Email: user}}
	userCache := newFakeCache()
	resolver, tokens := testResolver(store, userCache)

	token, err := tokens.IssueAccessToken(user.Email, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := resolver.Resolve(context.Background(), token); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Mutate storage behind the cache; within the TTL the resolver keeps
	// serving the old snapshot.
	confirmed := *user
	confirmed.Confirmed = true
	store.users[user.Email] = &confirmed

	got, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Confirmed {
		t.Fatalf("expected stale snapshot from cache")
	}
}
