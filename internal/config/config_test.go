package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/popularity/internal/domain"
)

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
live: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
  read_timeout: 5
  write_timeout: 5
  idle_timeout: 60
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
redis:
  addr: "redis.internal:6379"
  password: secret
  db: 2
session:
  cookie_name: shop_session
  viewed_ttl: "12h"
scoring:
  view: 2
  list_add: 4
  cart_add: 6
  purchase: 20
auth:
  api_keys:
    - key-one
    - key-two
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.True(t, cfg.Live)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 5, cfg.Server.ReadTimeout)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "testuser", cfg.Database.User)
				assert.Equal(t, "testpass", cfg.Database.Password)
				assert.Equal(t, "testdb", cfg.Database.DBName)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
				assert.Equal(t, "secret", cfg.Redis.Password)
				assert.Equal(t, 2, cfg.Redis.DB)
				assert.Equal(t, "shop_session", cfg.Session.CookieName)
				assert.Equal(t, 12*time.Hour, cfg.Session.ViewedTTL)
				assert.Equal(t, 2, cfg.Scoring.View)
				assert.Equal(t, 4, cfg.Scoring.ListAdd)
				assert.Equal(t, 6, cfg.Scoring.CartAdd)
				assert.Equal(t, 20, cfg.Scoring.Purchase)
				assert.Equal(t, []string{"key-one", "key-two"}, cfg.Auth.APIKeys)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				// Check defaults
				assert.False(t, cfg.Debug)
				assert.False(t, cfg.Live)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
				assert.Equal(t, "popularity_session", cfg.Session.CookieName)
				assert.Equal(t, 24*time.Hour, cfg.Session.ViewedTTL)
				assert.Equal(t, 1, cfg.Scoring.View)
				assert.Equal(t, 3, cfg.Scoring.ListAdd)
				assert.Equal(t, 5, cfg.Scoring.CartAdd)
				assert.Equal(t, 10, cfg.Scoring.Purchase)
			},
		},
		{
			name: "invalid yaml",
			configFile: `
				database:
				  host: localhost
				  port: invalid
			`,
			expectError: true, // Invalid port should cause unmarshal error
			validate:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configFile := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
			require.NoError(t, err)

			cfg, err := LoadAPIConfig(configFile, "")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				if tt.validate != nil {
					tt.validate(t, cfg)
				}
			}
		})
	}
}

func TestLoadAPIConfigFromEnv(t *testing.T) {
	t.Setenv("POPULARITY_DATABASE_HOST", "db.internal")
	t.Setenv("POPULARITY_DATABASE_DBNAME", "popularity")
	t.Setenv("POPULARITY_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("POPULARITY_SCORING_PURCHASE", "25")
	t.Setenv("POPULARITY_LIVE", "true")

	cfg, err := LoadAPIConfig("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "popularity", cfg.Database.DBName)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 25, cfg.Scoring.Purchase)
	assert.True(t, cfg.Live)
}

func TestLoadSweeperConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *SweeperConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: false
batch_size: 250
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
worker:
  pool_size: 4
  queue_size: 32
`,
			expectError: false,
			validate: func(t *testing.T, cfg *SweeperConfig) {
				assert.Equal(t, 250, cfg.BatchSize)
				assert.Equal(t, 4, cfg.Worker.WorkerPoolSize)
				assert.Equal(t, 32, cfg.Worker.WorkerQueueSize)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "testdb", cfg.Database.DBName)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`,
			expectError: false,
			validate: func(t *testing.T, cfg *SweeperConfig) {
				assert.Equal(t, 500, cfg.BatchSize)
				assert.Equal(t, 10, cfg.Worker.WorkerPoolSize)
				assert.Equal(t, 100, cfg.Worker.WorkerQueueSize)
				assert.Equal(t, 5, cfg.Database.MaxOpenConns)
				assert.Equal(t, 2, cfg.Database.MaxIdleConns)
				assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
				assert.Equal(t, 10*time.Minute, cfg.Database.ConnMaxIdleTime)
			},
		},
		{
			name: "missing database host",
			configFile: `
database:
  dbname: testdb
`,
			expectError: true,
			validate:    nil,
		},
		{
			name: "missing database name",
			configFile: `
database:
  host: localhost
`,
			expectError: true,
			validate:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configFile := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
			require.NoError(t, err)

			cfg, err := LoadSweeperConfig(configFile, "")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				if tt.validate != nil {
					tt.validate(t, cfg)
				}
			}
		})
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "pass",
		DBName:   "popularity",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=localhost port=5432 user=user password=pass dbname=popularity sslmode=disable", cfg.DSN())
}

func TestScoringConfigWeights(t *testing.T) {
	cfg := ScoringConfig{View: 1, ListAdd: 3, CartAdd: 5, Purchase: 10}
	assert.Equal(t, domain.DefaultWeights(), cfg.Weights())
}
