// Package token mints and verifies the signed completion links embedded in
// reminder emails. A token binds a reminder id to its issue time; it is
// valid for a fixed maximum age and cannot be forged or altered without the
// server secret.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// DefaultMaxAge is how long a completion link stays usable.
const DefaultMaxAge = 7 * 24 * time.Hour

// maxClockSkew bounds how far ahead of the local clock an issue time may be.
const maxClockSkew = time.Minute

var (
	// ErrInvalid covers malformed, tampered, or foreign-key tokens.
	ErrInvalid = errors.New("token: invalid")
	// ErrExpired is returned for well-formed tokens older than the maximum age.
	ErrExpired = errors.New("token: expired")
)

type claims struct {
	ReminderID int64 `json:"rid"`
	jwt.RegisteredClaims
}

// Service mints and verifies completion tokens.
type Service struct {
	key     []byte
	context string
	maxAge  time.Duration
	clock   clock.Clock
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMaxAge overrides DefaultMaxAge.
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// New derives a signing key from secret and the purpose string ctx, so
// tokens minted for one purpose never verify under another.
func New(secret, ctx string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token: secret is required")
	}
	if ctx == "" {
		return nil, errors.New("token: context is required")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ctx))

	s := &Service{
		key:     mac.Sum(nil),
		context: ctx,
		maxAge:  DefaultMaxAge,
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Mint returns a URL-safe token for reminderID issued now.
func (s *Service) Mint(reminderID int64) (string, error) {
	issued := s.clock.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ReminderID: reminderID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Audience: jwt.ClaimStrings{s.context},
			IssuedAt: jwt.NewNumericDate(issued),
		},
	})
	return tok.SignedString(s.key)
}

// Verify returns the reminder id bound into raw. It fails with ErrExpired
// when the token is authentic but older than the maximum age and with
// ErrInvalid for anything else, including an issue time in the future.
func (s *Service) Verify(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return 0, ErrInvalid
	}
	// jwt accepts non-canonical trailing bits in the signature segment.
	if _, err := base64.RawURLEncoding.Strict().DecodeString(parts[2]); err != nil {
		return 0, ErrInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var c claims
	if _, err := parser.ParseWithClaims(raw, &c, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	}); err != nil {
		return 0, ErrInvalid
	}

	if c.IssuedAt == nil || c.ReminderID <= 0 || !c.VerifyAudience(s.context, true) {
		return 0, ErrInvalid
	}
	now := s.clock.Now()
	if c.IssuedAt.Time.After(now.Add(maxClockSkew)) {
		return 0, ErrInvalid
	}
	if now.Sub(c.IssuedAt.Time) > s.maxAge {
		return 0, ErrExpired
	}
	return c.ReminderID, nil
}

// MaxAge reports the configured validity window.
func (s *Service) MaxAge() time.Duration {
	return s.maxAge
}
