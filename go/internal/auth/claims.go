package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token fields the client reads.
// The signature is never verified here; the server is the authority.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// ParseClaims decodes a JWT access token without verifying it.
func ParseClaims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, fmt.Errorf("parse claims: empty token")
	}

	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return Claims{}, fmt.Errorf("parse claims: %w", err)
	}

	claims := Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}
