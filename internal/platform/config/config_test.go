package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"IDADMIN_ADDR",
		"IDADMIN_DATABASE_URL",
		"IDADMIN_ADMIN_SIGNING_KEY",
		"IDADMIN_REQUEST_TIMEOUT",
		"IDADMIN_AUTO_SAVE_CHANGES",
		"IDADMIN_AUDIT_BUFFER",
		"IDADMIN_DEFAULT_PAGE_SIZE",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.AutoSaveChanges)
	assert.Equal(t, 256, cfg.AuditBuffer)
	assert.Equal(t, 10, cfg.DefaultPageSize)
	// No baked-in signing key; Validate refuses to run without one.
	assert.Empty(t, cfg.AdminSigningKey)
}

func TestValidate_RequiresSigningKey(t *testing.T) {
	cfg := Server{}
	require.Error(t, cfg.Validate())

	cfg.AdminSigningKey = "s3cret"
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("IDADMIN_ADDR", ":9090")
	t.Setenv("IDADMIN_ADMIN_SIGNING_KEY", "s3cret")
	t.Setenv("IDADMIN_REQUEST_TIMEOUT", "5s")
	t.Setenv("IDADMIN_AUTO_SAVE_CHANGES", "false")
	t.Setenv("IDADMIN_DEFAULT_PAGE_SIZE", "25")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "s3cret", cfg.AdminSigningKey)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.AutoSaveChanges)
	assert.Equal(t, 25, cfg.DefaultPageSize)
}
