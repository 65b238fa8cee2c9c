package dashauth

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/dashauth/password"
	"github.com/MrEthical07/dashauth/token"
)

// Config is the engine configuration. Start from DefaultConfig and override
// what you need; Build validates the result.
type Config struct {
	// KeyPrefix namespaces every key the engine writes.
	KeyPrefix     string
	Token         TokenConfig
	Password      PasswordConfig
	Login         LoginConfig
	PasswordReset PasswordResetConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Seed          SeedConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures session token signing.
type TokenConfig struct {
	TTL time.Duration
	// SigningMethod is "hs256" (default) or "ed25519".
	SigningMethod string
	// PrivateKey is the HMAC secret or Ed25519 private key. For hs256 an
	// empty key makes the engine generate one and keep it in the store, so
	// tokens stay valid across restarts against the same store.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and the strength policy applied to
// new passwords.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	// MinStrength is the lowest password.Score accepted for new secrets.
	MinStrength    int
	UpgradeOnLogin bool
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig configures failed-login throttling. MaxAttempts 0 disables it.
type LoginConfig struct {
	MaxAttempts      int
	Window           time.Duration
	EnableIPThrottle bool
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig configures the reset-code flow.
type PasswordResetConfig struct {
	CodeTTL     time.Duration
	MaxAttempts int
	// Retention keeps an expired slot around so late attempts are told the
	// code expired.
	Retention     time.Duration
	MaxRequests   int
	RequestWindow time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SEED CONFIG
====================================
*/

// SeedUser is a demo account written into an empty store.
type SeedUser struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

type SeedConfig struct {
	Enabled bool
	Users   []SeedUser
}

// DemoUsers are the three dashboard demo accounts.
func DemoUsers() []SeedUser {
	return []SeedUser{
		{Name: "Admin User", Email: "admin@demo.com", Password: "admin123", Role: RoleAdmin},
		{Name: "John Moderator", Email: "mod@demo.com", Password: "mod123", Role: RoleModerator},
		{Name: "User Demo", Email: "user@demo.com", Password: "user123", Role: RoleUser},
	}
}

// DefaultConfig returns the demo dashboard defaults.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		KeyPrefix: "dashauth:",
		Token: TokenConfig{
			TTL:           token.DefaultTTL,
			SigningMethod: string(token.MethodHS256),
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			MinLength:      pw.MinLength,
			MinStrength:    int(password.MinStrength),
			UpgradeOnLogin: true,
		},
		Login: LoginConfig{
			MaxAttempts:      5,
			Window:           15 * time.Minute,
			EnableIPThrottle: false,
		},
		PasswordReset: PasswordResetConfig{
			CodeTTL:       10 * time.Minute,
			MaxAttempts:   5,
			Retention:     time.Hour,
			MaxRequests:   3,
			RequestWindow: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Seed: SeedConfig{
			Enabled: true,
			Users:   DemoUsers(),
		},
	}
}

func cloneConfig(c Config) Config {
	out := c
	out.Token.PrivateKey = append([]byte(nil), c.Token.PrivateKey...)
	out.Token.PublicKey = append([]byte(nil), c.Token.PublicKey...)
	out.Seed.Users = append([]SeedUser(nil), c.Seed.Users...)
	return out
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
		MinLength:   c.Password.MinLength,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.KeyPrefix) == "" {
		return errors.New("KeyPrefix must not be empty")
	}

	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	switch token.Method(c.Token.SigningMethod) {
	case token.MethodHS256:
	case token.MethodEd25519:
		if len(c.Token.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	default:
		return errors.New("unsupported token signing method")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Password
	if err := c.passwordConfig().Validate(); err != nil {
		return err
	}
	if c.Password.MinStrength < 0 || c.Password.MinStrength > 5 {
		return errors.New("Password MinStrength must be between 0 and 5")
	}

	// Login
	if c.Login.MaxAttempts < 0 {
		return errors.New("Login MaxAttempts must be >= 0")
	}
	if c.Login.MaxAttempts > 0 && c.Login.Window <= 0 {
		return errors.New("Login Window must be > 0 when throttling is enabled")
	}

	// Password reset
	if c.PasswordReset.CodeTTL <= 0 {
		return errors.New("PasswordReset CodeTTL must be > 0")
	}
	if c.PasswordReset.MaxAttempts <= 0 {
		return errors.New("PasswordReset MaxAttempts must be > 0")
	}
	if c.PasswordReset.Retention < 0 {
		return errors.New("PasswordReset Retention must be >= 0")
	}
	if c.PasswordReset.MaxRequests < 0 {
		return errors.New("PasswordReset MaxRequests must be >= 0")
	}
	if c.PasswordReset.MaxRequests > 0 && c.PasswordReset.RequestWindow <= 0 {
		return errors.New("PasswordReset RequestWindow must be > 0 when throttling is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Seed
	if c.Seed.Enabled {
		for _, u := range c.Seed.Users {
			if !strings.Contains(u.Email, "@") {
				return errors.New("Seed user email is invalid: " + u.Email)
			}
			if u.Role != "" && !u.Role.Valid() {
				return errors.New("Seed user role is invalid: " + string(u.Role))
			}
		}
	}
	return nil
}
