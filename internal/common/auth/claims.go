package auth

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims carries the authenticated driver identity.
type Claims struct {
	UserID string `json:"user_id"`
	jwtlib.RegisteredClaims
}

func NewUserClaims(userID string, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
}
