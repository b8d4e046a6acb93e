package security

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (f fakeClock) Now() time.Time { return f.now }

func newTestService(now time.Time) *TokenService {
	return NewTokenService("test-secret", 0, 0, 0).WithClock(fakeClock{now: now})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC))

	token, err := svc.IssueAccessToken("user@example.com", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	subject, err := svc.VerifyAccess(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "user@example.com" {
		t.Fatalf("expected subject, got %q", subject)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	issued := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)
	svc := newTestService(issued)

	token, err := svc.IssueAccessToken("user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	late := newTestService(issued.Add(2 * time.Hour))
	if _, err := late.VerifyAccess(token); !errors.Is(err, ErrCredentials) {
		t.Fatalf("expected ErrCredentials for expired token, got %v", err)
	}
}

func TestScopeConfusionRejected(t *testing.T) {
	svc := newTestService(time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC))

	refresh, err := svc.IssueRefreshToken("user@example.com", 0)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	email, err := svc.IssueEmailToken("user@example.com")
	if err != nil {
		t.Fatalf("issue email: %v", err)
	}
	access, err := svc.IssueAccessToken("user@example.com", 0)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	// A long-lived refresh token must not authenticate API calls, and a
	// mailed confirmation token must not either.
	if _, err := svc.VerifyAccess(refresh); !errors.Is(err, ErrCredentials) {
		t.Fatalf("expected ErrCredentials for refresh-as-access, got %v", err)
	}
	if _, err := svc.VerifyAccess(email); !errors.Is(err, ErrCredentials) {
		t.Fatalf("expected ErrCredentials for email-as-access, got %v", err)
	}
	if _, err := svc.VerifyRefresh(access); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope for access-as-refresh, got %v", err)
	}
	if _, err := svc.VerifyEmail(access); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope for access-as-email, got %v", err)
	}
}

func TestEmailTokenDecodeFailureIsUnprocessable(t *testing.T) {
	svc := newTestService(time.Now())

	if _, err := svc.VerifyEmail("not-a-token"); !errors.Is(err, ErrUnprocessableToken) {
		t.Fatalf("expected ErrUnprocessableToken, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	now := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	other := NewTokenService("other-secret", 0, 0, 0).WithClock(fakeClock{now: now})

	token, err := svc.IssueAccessToken("user@example.com", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.VerifyAccess(token); !errors.Is(err, ErrCredentials) {
		t.Fatalf("expected ErrCredentials for wrong secret, got %v", err)
	}
}

func TestAccessTokenTTLOverride(t *testing.T) {
	issued := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)
	svc := newTestService(issued)

	token, err := svc.IssueAccessToken("user@example.com", 30*time.Second)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	within := newTestService(issued.Add(20 * time.Second))
	if _, err := within.VerifyAccess(token); err != nil {
		t.Fatalf("expected valid within override ttl: %v", err)
	}

	beyond := newTestService(issued.Add(2 * time.Minute))
	if _, err := beyond.VerifyAccess(token); !errors.Is(err, ErrCredentials) {
		t.Fatalf("expected expiry beyond override ttl, got %v", err)
	}
}
