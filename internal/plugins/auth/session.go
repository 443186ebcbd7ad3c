package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errEmptyToken  = errors.New("empty token")
	errExpired     = errors.New("token expired")
	errMissingRole = errors.New("token has no role claim")
)

// Decoder turns a JWT cookie value into an Identity. It is the single place
// tokens are decoded; middleware, handlers and templates all go through it.
type Decoder struct {
	secret []byte
	now    func() time.Time
}

// NewDecoder creates a decoder. With an empty secret, signatures are not
// checked (the upstream API verifies them on every call) but expiry still
// is. With a secret, only HS256 tokens signed with it are accepted.
func NewDecoder(secret string) *Decoder {
	return &Decoder{secret: []byte(secret), now: time.Now}
}

// DecodeSession returns the identity carried by token, or nil when the
// token is absent, malformed, expired or has no role. Callers treat nil as
// "not logged in".
func (d *Decoder) DecodeSession(token string) *Identity {
	claims, err := d.parse(token)
	if err != nil {
		return nil
	}
	return &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		FullName: claims.FullName,
	}
}

// parse decodes and validates the token's claims.
func (d *Decoder) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, errEmptyToken
	}

	claims := &Claims{}
	if len(d.secret) > 0 {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return d.secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(d.now),
		)
		if err != nil {
			return nil, fmt.Errorf("verifying token: %w", err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("decoding token: %w", err)
		}
		if claims.ExpiresAt != nil && !d.now().Before(claims.ExpiresAt.Time) {
			return nil, errExpired
		}
	}

	if claims.Role == "" {
		return nil, errMissingRole
	}
	return claims, nil
}
