package dashauth

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.PasswordReset.CodeTTL != 10*time.Minute || cfg.Token.TTL != 24*time.Hour {
		t.Fatalf("unexpected defaults: reset ttl %v, token ttl %v", cfg.PasswordReset.CodeTTL, cfg.Token.TTL)
	}
	if len(cfg.Seed.Users) != 3 {
		t.Fatalf("expected 3 demo users, got %d", len(cfg.Seed.Users))
	}
}

func TestConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty prefix", func(c *Config) { c.KeyPrefix = " " }},
		{"zero token ttl", func(c *Config) { c.Token.TTL = 0 }},
		{"unknown method", func(c *Config) { c.Token.SigningMethod = "rs256" }},
		{"ed25519 without key", func(c *Config) { c.Token.SigningMethod = "ed25519" }},
		{"leeway too large", func(c *Config) { c.Token.Leeway = time.Hour }},
		{"weak argon memory", func(c *Config) { c.Password.Memory = 1 }},
		{"strength out of range", func(c *Config) { c.Password.MinStrength = 6 }},
		{"login window missing", func(c *Config) { c.Login.Window = 0 }},
		{"reset ttl", func(c *Config) { c.PasswordReset.CodeTTL = 0 }},
		{"reset attempts", func(c *Config) { c.PasswordReset.MaxAttempts = 0 }},
		{"reset window missing", func(c *Config) { c.PasswordReset.RequestWindow = 0 }},
		{"audit buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }},
		{"seed role", func(c *Config) { c.Seed.Users = []SeedUser{{Email: "a@b.c", Role: "root"}} }},
		{"seed email", func(c *Config) { c.Seed.Users = []SeedUser{{Email: "nobody"}} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDisabledLimitsNeedNoWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Login.MaxAttempts = 0
	cfg.Login.Window = 0
	cfg.PasswordReset.MaxRequests = 0
	cfg.PasswordReset.RequestWindow = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestWithConfigCopiesSlices(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	b := New().WithConfig(cfg)

	cfg.Token.PrivateKey[0] = 'X'
	cfg.Seed.Users[0].Email = "changed@demo.com"

	if b.config.Token.PrivateKey[0] != '0' || b.config.Seed.Users[0].Email != "admin@demo.com" {
		t.Fatal("builder config aliases caller slices")
	}
}
