package utils

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikiquest/wikiquest/config"
)

func TestMain(m *testing.M) {
	UseRedis(nil)
	config.Set(config.AppConfig{JWTSecret: "utils-test-secret", TokenTTLHours: 1})
	os.Exit(m.Run())
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute)
	var got map[string]int
	require.True(t, c.GetJSON(ctx, "k", &got))
	assert.Equal(t, 1, got["a"])

	now = now.Add(2 * time.Minute)
	assert.False(t, c.GetJSON(ctx, "k", &got))

	c.SetJSON(ctx, "k", 5, 0)
	c.Delete(ctx, "k")
	var n int
	assert.False(t, c.GetJSON(ctx, "k", &n))
}

func TestNewCacheFallsBackToMemory(t *testing.T) {
	_, ok := NewCache().(*MemoryCache)
	assert.True(t, ok)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "fixed a typo", PlainText("  <b>fixed</b> a <script>alert(1)</script>typo ", 0))
	assert.Equal(t, "Tom & Jerry", PlainText("Tom &amp; Jerry", 0))
	assert.Equal(t, "Ünic", PlainText("Ünicode", 4))

	for _, in := range []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&#60;img src=x onerror=alert(1)&#62;",
		"&amp;lt;b&amp;gt;bold&amp;lt;/b&amp;gt;",
	} {
		out := PlainText(in, 64)
		assert.NotContains(t, out, "<", in)
		assert.NotContains(t, out, ">", in)
	}
}

func TestPasswordRules(t *testing.T) {
	assert.NoError(t, ValidatePassword("abcdefg1"))
	assert.ErrorIs(t, ValidatePassword("abc1"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("abcdefgh"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("12345678"), ErrWeakPassword)

	hash, err := HashPassword("abcdefg1")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "abcdefg1"))
	assert.False(t, CheckPassword(hash, "abcdefg2"))
}

func TestTokenRoundTrip(t *testing.T) {
	token, expiresAt, err := GenerateToken(42, "ada")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "ada", claims.Username)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)

	_, err = ParseToken("garbage")
	assert.Error(t, err)
}

func TestRevokeToken(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsTokenRevoked(ctx, "tok-1"))

	RevokeToken(ctx, "tok-1", time.Now().Add(time.Hour))
	assert.True(t, IsTokenRevoked(ctx, "tok-1"))

	// Already expired tokens are not stored.
	RevokeToken(ctx, "tok-2", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenRevoked(ctx, "tok-2"))
}

func TestRevokeTokenDropsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	revokedMu.Lock()
	revoked["stale-1"] = time.Now().Add(-time.Hour)
	revoked["stale-2"] = time.Now().Add(-time.Second)
	revokedMu.Unlock()

	RevokeToken(ctx, "fresh", time.Now().Add(time.Hour))

	revokedMu.Lock()
	_, stale1 := revoked["stale-1"]
	_, stale2 := revoked["stale-2"]
	_, fresh := revoked["fresh"]
	revokedMu.Unlock()
	assert.False(t, stale1)
	assert.False(t, stale2)
	assert.True(t, fresh)
}
