package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "hello")
	t.Setenv("X_BOOL", "true")
	t.Setenv("X_INT", "42")
	t.Setenv("X_DUR", "250ms")

	assert.Equal(t, "hello", envStr("X_STR", "d"))
	assert.Equal(t, "d", envStr("X_MISSING", "d"))
	assert.True(t, envBool("X_BOOL", false))
	assert.False(t, envBool("X_MISSING", false))
	assert.Equal(t, 42, envInt("X_INT", 1))
	assert.Equal(t, 1, envInt("X_MISSING", 1))
	assert.Equal(t, 250*time.Millisecond, envDur("X_DUR", time.Second))
	assert.Equal(t, time.Second, envDur("X_MISSING", time.Second))
}

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()
	assert.True(t, cfg.Capacity > 0)
	assert.True(t, cfg.RefillTokens > 0)
	assert.True(t, cfg.RefillInterval > 0)
	assert.True(t, cfg.TTL >= cfg.RefillInterval)
	assert.NotEmpty(t, cfg.Prefix)
}
