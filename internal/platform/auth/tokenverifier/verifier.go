// Package tokenverifier validates bearer tokens and extracts the calling
// user.
package tokenverifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/groupventure/booking-api/internal/domain"
	"github.com/groupventure/booking-api/internal/platform/config"
)

var ErrUnauthorized = errors.New("unauthorized")

// Verifier checks HS256-signed JWTs. The authenticated user is the `sub`
// claim.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	skew     time.Duration
}

func New(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		skew:     cfg.ClockSkew,
	}
}

func (v *Verifier) Verify(ctx context.Context, token string) (domain.UserID, error) {
	_ = ctx

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.skew),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return domain.UserID(claims.Subject), nil
}
