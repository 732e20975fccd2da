package utils

import (
	"context"
	"sync"
	"time"
)

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.Mutex
)

// RevokeToken blacklists a token until its natural expiry to support logout.
func RevokeToken(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "jwt:revoked:"+token, "1", ttl).Err(); err == nil {
			return
		}
	}
	now := time.Now()
	revokedMu.Lock()
	for k, exp := range revoked {
		if now.After(exp) {
			delete(revoked, k)
		}
	}
	revoked[token] = expiresAt
	revokedMu.Unlock()
}

// IsTokenRevoked reports whether a token was revoked before expiring.
func IsTokenRevoked(ctx context.Context, token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, "jwt:revoked:"+token).Result()
		if err == nil && n > 0 {
			return true
		}
	}

	revokedMu.Lock()
	defer revokedMu.Unlock()
	expiresAt, ok := revoked[token]
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		delete(revoked, token)
		return false
	}
	return true
}
