package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func validConfig() *Config {
	return &Config{
		CalendarSync: CalendarSyncConfig{
			TokenEncryptionKey: validKey,
			Workers:            4,
			RemoteTimeout:      5 * time.Second,
		},
	}
}

func TestValidate_AcceptsValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_EncryptionKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "missing", key: "", wantErr: "required"},
		{name: "not hex", key: strings.Repeat("zz", 32), wantErr: "not valid hex"},
		{name: "too short", key: "0011", wantErr: "32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.CalendarSync.TokenEncryptionKey = tt.key

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_RejectsNonPositiveWorkers(t *testing.T) {
	cfg := validConfig()
	cfg.CalendarSync.Workers = 0

	require.Error(t, cfg.Validate())
}

func TestValidate_RemoteTimeoutBelowRefreshLock(t *testing.T) {
	cfg := validConfig()
	cfg.CalendarSync.RemoteTimeout = time.Minute

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh lock")
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("CALENDAR_TOKEN_ENCRYPTION_KEY", validKey)
	t.Setenv("CALENDAR_SYNC_WORKERS", "3")
	t.Setenv("CALENDAR_REMOTE_TIMEOUT", "7s")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_NAME", "orgsync_test")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.CalendarSync.Workers)
	assert.Equal(t, 7*time.Second, cfg.CalendarSync.RemoteTimeout)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "orgsync_test", cfg.Database.DBName)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "primary", cfg.CalendarSync.DefaultCalendarID)

	got, ok := GetSafe()
	require.True(t, ok)
	assert.Same(t, cfg, got)
}

func TestLoad_FailsFastWithoutKey(t *testing.T) {
	t.Setenv("CALENDAR_TOKEN_ENCRYPTION_KEY", "")

	_, err := Load()
	require.Error(t, err)
}
