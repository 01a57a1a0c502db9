// Package auth verifies the access tokens issued by the identity provider
// and carries the authenticated owner through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the owner identifier.
type Claims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"owner_id"`
}

// GenerateToken signs an HS256 token for ownerID. The server never issues
// tokens itself; this exists for devtoken and tests.
func GenerateToken(ownerID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		OwnerID: ownerID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetOwnerIDFromToken validates tokenString and returns the owner it names.
// Every failure wraps common.ErrInvalidToken.
func GetOwnerIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", common.ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	owner := claims.OwnerID
	if owner == "" {
		owner = claims.Subject
	}
	if owner == "" {
		return "", fmt.Errorf("%w: no owner", common.ErrInvalidToken)
	}
	return owner, nil
}

type ctxKey struct{}

// WithOwner returns a context carrying the authenticated owner.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

// OwnerFromContext returns the owner stored by WithOwner.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ctxKey{}).(string)
	return owner, ok && owner != ""
}
