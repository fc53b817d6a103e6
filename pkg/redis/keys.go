package redis

import "strings"

const keyNamespace = "sf"

// key families; every key the storefront writes lives under sf:<family>:...
const (
	familyIdempotency = "idempotency"
	familyRateLimit   = "rate_limit"
	familySession     = "session"
)

// IdempotencyKey returns a namespaced key for idempotency storage.
func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(familyIdempotency, scope, id)
}

// RateLimitKey returns a namespaced key for rate limit counters.
func (c *Client) RateLimitKey(scope string) string {
	return joinKey(familyRateLimit, scope)
}

// AccessSessionKey returns the key holding the refresh session for an access token id.
func (c *Client) AccessSessionKey(accessID string) string {
	return joinKey(familySession, "access", accessID)
}

// joinKey trims each part and skips empty ones.
func joinKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
