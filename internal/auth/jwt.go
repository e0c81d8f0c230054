// Package auth verifies caller access tokens locally against the project's
// HS256 signing secret, without a round trip to the identity endpoint.
package auth

import (
	"context"
	"time"

	"travel-admin-api/internal/model"
	"travel-admin-api/internal/service"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by access tokens issued by the identity service.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthenticator implements service.Authenticator by verifying the token
// signature and expiry.
type JWTAuthenticator struct {
	secretKey []byte
	leeway    time.Duration
}

// NewJWTAuthenticator creates an authenticator for tokens signed with secret.
func NewJWTAuthenticator(secret string, leeway time.Duration) *JWTAuthenticator {
	return &JWTAuthenticator{
		secretKey: []byte(secret),
		leeway:    leeway,
	}
}

// Authenticate verifies token and returns its subject.
func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (model.Subject, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(a.leeway))
	if err != nil {
		return model.Subject{}, errors.Mark(errors.Wrap(err, "verify access token"), service.ErrInvalidToken)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return model.Subject{}, service.ErrInvalidToken
	}
	if claims.Subject == "" {
		return model.Subject{}, service.ErrUnverifiedSubject
	}

	return model.Subject{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}
