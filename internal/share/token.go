package share

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// tokenBytes gives 256 bits of entropy, 43 base64url characters.
const tokenBytes = 32

// DefaultDays is the validity used when the caller gives no usable value.
const DefaultDays = 7

func newToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// ParseDays turns a raw days value into a validity period. Empty or
// non-numeric input yields fallback; numbers are clamped to [1, max].
func ParseDays(raw string, fallback, max int) int {
	if fallback < 1 {
		fallback = DefaultDays
	}
	if max < 1 {
		max = fallback
	}

	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		days = fallback
	}
	return clampDays(days, max)
}

func clampDays(days, max int) int {
	if days < 1 {
		return 1
	}
	if days > max {
		return max
	}
	return days
}

// validToken rejects values that newToken could never have produced.
func validToken(token string) bool {
	if len(token) != base64.RawURLEncoding.EncodedLen(tokenBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil
}
