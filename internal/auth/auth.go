package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTokenTTL = 60 * time.Minute

var ErrBadToken = errors.New("invalid token")

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Claims carries exp twice: the registered claim in whole seconds, rounded
// up, and ExpiresAtNano with the exact instant used for validation.
type Claims struct {
	UserID        int64 `json:"user_id"`
	ExpiresAtNano int64 `json:"exp_ns,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) expiry() time.Time {
	if c.ExpiresAtNano != 0 {
		return time.Unix(0, c.ExpiresAtNano)
	}
	return c.ExpiresAt.Time
}

// Tokens issues and parses HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Tokens)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(t *Tokens) { t.now = now }
}

func NewTokens(secret string, ttl time.Duration, opts ...Option) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	t := &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tokens) TTL() time.Duration { return t.ttl }

func (t *Tokens) Make(uid int64) (string, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	c := Claims{
		UserID:        uid,
		ExpiresAtNano: exp.UnixNano(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp.Add(time.Second - time.Nanosecond)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// Parse verifies signature and expiry. A token stays valid up to and
// including its exp instant.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrBadToken
	}
	p := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	tok, err := p.ParseWithClaims(raw, &Claims{}, func(tk *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.UserID == 0 {
		return nil, ErrBadToken
	}
	if c.ExpiresAt == nil {
		return nil, jwt.ErrTokenRequiredClaimMissing
	}
	if t.now().After(c.expiry()) {
		return nil, jwt.ErrTokenExpired
	}
	return c, nil
}
