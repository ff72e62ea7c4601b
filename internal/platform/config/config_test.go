package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/ems",
		MaxBodyBytes:       1048576,
		ImageMaxBytes:      1024,
		RateLimitPerMinute: 60,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid development config", mutate: func(*Config) {}},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = " " }, wantErr: true},
		{name: "production without jwt secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{
			name: "production with secrets and seed disabled",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.JWTSecret = "secret"
				c.DataEncryptionKey = "key"
			},
		},
		{name: "body limit too small", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: true},
		{name: "zero image limit", mutate: func(c *Config) { c.ImageMaxBytes = 0 }, wantErr: true},
		{name: "email enabled without host", mutate: func(c *Config) { c.EmailEnabled = true }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9999")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ALLOW_SELF_SIGNUP", "false")
	t.Setenv("DASHBOARD_CACHE_TTL", "2m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()

	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, 3, cfg.RedisDB)
	require.False(t, cfg.AllowSelfSignup)
	require.Equal(t, 2*time.Minute, cfg.DashboardCacheTTL)
	require.Equal(t, 60, cfg.RateLimitPerMinute)
}
