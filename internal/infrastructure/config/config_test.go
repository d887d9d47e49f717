package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// productionEnv sets the minimum valid production environment; individual
// subtests knock out one key at a time.
func productionEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LPAI_APP_ENV", "production")
	t.Setenv("LPAI_JWT_SECRET", "a-production-secret-of-32-chars!")
	t.Setenv("LPAI_DATABASE_PASSWORD", "s3cret")
	t.Setenv("LPAI_DATABASE_SSLMODE", "require")
	t.Setenv("LPAI_CRM_CLIENT_ID", "client-1")
	t.Setenv("LPAI_CRM_CLIENT_SECRET", "client-secret-1")
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults when nothing is set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "lpai-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "localhost", cfg.Redis.Host)
		assert.Equal(t, 6379, cfg.Redis.Port)
		assert.Equal(t, "lpai-backend", cfg.JWT.Issuer)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "https://services.leadconnectorhq.com", cfg.CRM.BaseURL)
		assert.Equal(t, "2021-07-28", cfg.CRM.APIVersion)
		assert.Equal(t, time.Hour, cfg.CRM.RefreshWindow)
		assert.Equal(t, 24*time.Hour, cfg.CRM.RederiveAge)
		assert.Equal(t, 50, cfg.Sync.PageSize)
		assert.Equal(t, 100, cfg.Sync.FullSyncBatchSize)
		assert.Equal(t, 1000, cfg.Sync.ThrottleAfter)
		assert.Equal(t, 2*time.Second, cfg.Sync.ThrottleDelay)
		assert.Equal(t, 2, cfg.Sync.DispatchWorkers)
		assert.Equal(t, 15*time.Minute, cfg.Lock.TTL)
		assert.Equal(t, 5*time.Second, cfg.Notify.Timeout)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("LPAI_APP_NAME", "sync-svc")
		t.Setenv("LPAI_APP_PORT", "9090")
		t.Setenv("LPAI_DATABASE_HOST", "db.internal")
		t.Setenv("LPAI_DATABASE_PORT", "5433")
		t.Setenv("LPAI_REDIS_DB", "3")
		t.Setenv("LPAI_CRM_BASE_URL", "https://crm.example.com")
		t.Setenv("LPAI_CRM_REFRESH_WINDOW", "30m")
		t.Setenv("LPAI_SYNC_PAGE_SIZE", "25")
		t.Setenv("LPAI_LOCK_TTL", "5m")
		t.Setenv("LPAI_NOTIFY_WEBHOOK_URL", "https://hooks.example.com/ops")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sync-svc", cfg.App.Name)
		assert.Equal(t, "9090", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 3, cfg.Redis.DB)
		assert.Equal(t, "https://crm.example.com", cfg.CRM.BaseURL)
		assert.Equal(t, 30*time.Minute, cfg.CRM.RefreshWindow)
		assert.Equal(t, 25, cfg.Sync.PageSize)
		assert.Equal(t, 5*time.Minute, cfg.Lock.TTL)
		assert.Equal(t, "https://hooks.example.com/ops", cfg.Notify.WebhookURL)
	})

	t.Run("rejects idle connections exceeding open connections", func(t *testing.T) {
		t.Setenv("LPAI_DATABASE_MAX_OPEN_CONNS", "5")
		t.Setenv("LPAI_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
	})

	t.Run("rejects a lock TTL below one minute", func(t *testing.T) {
		t.Setenv("LPAI_LOCK_TTL", "10s")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lock.ttl")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("valid production config loads", func(t *testing.T) {
		productionEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"missing jwt secret", "LPAI_JWT_SECRET", "", "jwt.secret is required"},
		{"short jwt secret", "LPAI_JWT_SECRET", "too-short", "at least 32 characters"},
		{"missing database password", "LPAI_DATABASE_PASSWORD", "", "database.password is required"},
		{"sslmode disable", "LPAI_DATABASE_SSLMODE", "disable", "sslmode"},
		{"missing crm credentials", "LPAI_CRM_CLIENT_SECRET", "", "crm.client_id and crm.client_secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			productionEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "app",
		Password: "p@ss w/slash",
		DBName:   "lpai",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters in the password must be escaped.
	assert.NotContains(t, dsn, "p@ss w/slash")
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
