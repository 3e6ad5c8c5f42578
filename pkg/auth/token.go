package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ExpiryHint extracts the expiry claim from an access token when the token
// happens to be a JWT. The signature is deliberately not verified: the hint
// only schedules refreshes, the token service remains the authority. Opaque
// tokens return ok=false.
func ExpiryHint(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
