package credstore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var unverified = jwt.NewParser()

// AccessExpiry returns the "exp" claim of a JWT access token, read without
// verifying the signature. Returns the zero time for opaque tokens or tokens
// without an expiry; callers treat that as "unknown".
func AccessExpiry(access string) time.Time {
	if access == "" {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := unverified.ParseUnverified(access, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
