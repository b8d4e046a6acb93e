package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token scopes. A single signing key is shared by all three token classes, so
// the scope claim is the only barrier between them: a refresh token must never
// be accepted where an access token is expected, and an email-confirmation
// token must never authenticate an API call.
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
	ScopeEmail   = "email_token"
)

const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultEmailTTL   = 24 * time.Hour
)

var (
	// ErrCredentials covers every access-token failure mode and refresh-token
	// decode failures: bad signature, expiry, malformed payload.
	ErrCredentials = errors.New("could not validate credentials")
	// ErrInvalidScope is a well-formed token presented to the wrong operation.
	ErrInvalidScope = errors.New("invalid scope for token")
	// ErrUnprocessableToken is a malformed email-confirmation token, kept
	// distinct so the confirmation flow can answer 422 instead of 401.
	ErrUnprocessableToken = errors.New("invalid token for email verification")
)

type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// TokenService issues and verifies the three scope-tagged token classes.
// The secret is process-wide configuration, set once at startup.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	clock      Clock
}

func NewTokenService(secret string, accessTTL, refreshTTL, emailTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if emailTTL <= 0 {
		emailTTL = DefaultEmailTTL
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		emailTTL:   emailTTL,
		clock:      systemClock{},
	}
}

// WithClock replaces the time source; tests use this to pin expiry behavior.
func (s *TokenService) WithClock(clock Clock) *TokenService {
	s.clock = clock
	return s
}

// IssueAccessToken signs an access token for subject. A non-zero ttl overrides
// the configured default.
func (s *TokenService) IssueAccessToken(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.accessTTL
	}
	return s.issue(subject, ScopeAccess, ttl)
}

func (s *TokenService) IssueRefreshToken(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.refreshTTL
	}
	return s.issue(subject, ScopeRefresh, ttl)
}

func (s *TokenService) IssueEmailToken(subject string) (string, error) {
	return s.issue(subject, ScopeEmail, s.emailTTL)
}

func (s *TokenService) issue(subject, scope string, ttl time.Duration) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyAccess decodes an access token and returns its subject. Every failure
// collapses into ErrCredentials: callers answer a uniform 401.
func (s *TokenService) VerifyAccess(tokenString string) (string, error) {
	claims, err := s.decode(tokenString)
	if err != nil {
		return "", ErrCredentials
	}
	if claims.Scope != ScopeAccess || claims.Subject == "" {
		return "", ErrCredentials
	}
	return claims.Subject, nil
}

func (s *TokenService) VerifyRefresh(tokenString string) (string, error) {
	claims, err := s.decode(tokenString)
	if err != nil {
		return "", ErrCredentials
	}
	if claims.Scope != ScopeRefresh {
		return "", ErrInvalidScope
	}
	return claims.Subject, nil
}

func (s *TokenService) VerifyEmail(tokenString string) (string, error) {
	claims, err := s.decode(tokenString)
	if err != nil {
		return "", ErrUnprocessableToken
	}
	if claims.Scope != ScopeEmail {
		return "", ErrInvalidScope
	}
	return claims.Subject, nil
}

func (s *TokenService) decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrCredentials
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrCredentials
	}
	return claims, nil
}
