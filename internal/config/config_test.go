package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.Policy.AllowCreatorRegistration)
	assert.Contains(t, cfg.DB.DSN(), "dbname=campusevents")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_SECRET", "0123456789abcdef")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("POLICY_WAITLIST_DEFAULT", "true")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("CORS_ORIGINS", "https://events.campus.edu")
	t.Setenv("AUTH_ADMIN_EMAILS", "dean@campus.edu,registrar@campus.edu")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.DB.SQLitePath)
	assert.True(t, cfg.Policy.WaitlistDefault)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, []string{"https://events.campus.edu"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"dean@campus.edu", "registrar@campus.edu"}, cfg.Auth.AdminEmails)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	t.Setenv("AUTH_SECRET", "short")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AUTH_SECRET", "0123456789abcdef")
	t.Setenv("DB_DRIVER", "mysql")
	_, err = Load()
	assert.ErrorContains(t, err, "DB_DRIVER")
}
