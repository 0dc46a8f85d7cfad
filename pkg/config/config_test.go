package config

import (
	"testing"
	"time"
)

// helper to build a minimal valid config that can be tweaked in tests.
func validBaseConfig() *Config {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 10
	cfg.RateLimiting.HTTP.Burst = 20
	cfg.RateLimiting.HTTP.MaxConcurrent = 5
	return cfg
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	// Zero out rate limiting values to ensure they are ignored when disabled.
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestValidate_RateLimiting_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "http rps must be > 0",
			mutate: func(c *Config) {
				c.RateLimiting.HTTP.RequestsPerSecond = 0
			},
		},
		{
			name: "http burst must be > 0",
			mutate: func(c *Config) {
				c.RateLimiting.HTTP.Burst = 0
			},
		},
		{
			name: "http max concurrent must be >= 0",
			mutate: func(c *Config) {
				c.RateLimiting.HTTP.MaxConcurrent = -1
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig()
			// ensure other timing fields are valid to isolate rate limiting
			cfg.Server.ReadTimeout = time.Second
			cfg.Server.WriteTimeout = time.Second
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestValidate_Publish_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "cache ttl must be > 0",
			mutate: func(c *Config) {
				c.Publish.CacheTTL = 0
			},
		},
		{
			name: "retry attempts must be > 0",
			mutate: func(c *Config) {
				c.Publish.RetryAttempts = 0
			},
		},
		{
			name: "retry delay must be > 0",
			mutate: func(c *Config) {
				c.Publish.RetryDelay = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestValidate_Tracing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.JaegerURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty jaeger url")
	}

	cfg = DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.SampleRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for sample rate > 1")
	}
}

func TestValidate_Backup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backup.Enabled = true
	cfg.Backup.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty backup dir")
	}

	cfg = DefaultConfig()
	cfg.Backup.Enabled = true
	cfg.Backup.Keep = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for backup keep <= 0")
	}

	cfg = DefaultConfig()
	cfg.Backup.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("enabled backup with defaults must validate, got error: %v", err)
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate, got error: %v", err)
	}
}
