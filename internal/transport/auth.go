package transport

// auth.go builds the Authorization header and inspects the API key

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/blake2b"
)

// oauthPrefix starts Linear OAuth access tokens (personal API keys start with "lin_api_")
const oauthPrefix = "lin_oauth_"

// Authorization returns the Authorization header value for a key.  Personal API keys are sent
// as is, OAuth access tokens (opaque or JWT) use the Bearer scheme.
func Authorization(key string) string {
	if strings.HasPrefix(key, "Bearer ") {
		return key
	}
	if strings.HasPrefix(key, oauthPrefix) || isJWT(key) {
		return "Bearer " + key
	}
	return key
}

// isJWT reports whether key parses as a JWT (signature is not checked)
func isJWT(key string) bool {
	if strings.Count(key, ".") != 2 {
		return false
	}
	_, _, err := jwt.NewParser().ParseUnverified(key, &jwt.RegisteredClaims{})
	return err == nil
}

// Expiry returns the expiry time of a JWT key, with false if the key is not a JWT or has no expiry
func Expiry(key string) (time.Time, bool) {
	key = strings.TrimPrefix(key, "Bearer ")
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// CheckKey returns ErrTokenExpired if key is a JWT that expired before now
func CheckKey(key string, now time.Time) error {
	if exp, ok := Expiry(key); ok && !now.Before(exp) {
		return fmt.Errorf("%w at %s", ErrTokenExpired, exp.Format(time.RFC3339))
	}
	return nil
}

// Fingerprint identifies a key in logs without revealing it
func Fingerprint(key string) string {
	if key == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}
