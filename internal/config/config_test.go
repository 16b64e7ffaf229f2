package config

import (
	"bytes"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setKeys(t *testing.T) {
	t.Helper()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x01}, 32))
	t.Setenv("COOKIE_HASH_KEY", key)
	t.Setenv("COOKIE_BLOCK_KEY", key)
	t.Setenv("CRED_ENC_KEY", key)
}

func TestFromEnvDefaults(t *testing.T) {
	setKeys(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.ListenAddr)
	assert.Equal(t, "sk_ba_panoramacity2", cfg.GarageSlug)
	assert.Equal(t, "273", cfg.ArticleID)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.SessionMaxAge)
	assert.Equal(t, 30*time.Second, cfg.AcquireBackoff)
	assert.Len(t, cfg.CredEncKey, 32)
}

func TestFromEnvOverrides(t *testing.T) {
	setKeys(t)
	t.Setenv("PORTAL_BASE_URL", "https://portal.example.com/")
	t.Setenv("WORKER_POLL_SECONDS", "3")

	cfg, err := FromEnv()
	require.NoError(t, err)

	// trailing slash stripped so joined URLs stay clean
	assert.Equal(t, "https://portal.example.com", cfg.PortalBaseURL)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
}

func TestFromEnvRejectsBadInterval(t *testing.T) {
	setKeys(t)
	t.Setenv("WORKER_POLL_SECONDS", "0")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "WORKER_POLL_SECONDS")
}

func TestFromEnvRequiresKeys(t *testing.T) {
	setKeys(t)
	t.Setenv("CRED_ENC_KEY", "")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "CRED_ENC_KEY")
}

func TestFromEnvRejectsShortEncKey(t *testing.T) {
	setKeys(t)
	t.Setenv("CRED_ENC_KEY", base64.StdEncoding.EncodeToString([]byte("short")))

	_, err := FromEnv()
	assert.ErrorContains(t, err, "32 bytes")
}
