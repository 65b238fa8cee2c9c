// Package config resolves command configuration: built-in defaults, then an
// optional YAML file, then environment variables, then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/dashauth"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendMiniredis = "miniredis"
	BackendMemory    = "memory"
)

// ConfigFileEnv names the variable holding the YAML file path when no
// -config flag is given.
const ConfigFileEnv = "DASHAUTH_CONFIG"

// Config is the resolved command configuration.
type Config struct {
	Log   Log   `yaml:"log" envPrefix:"LOG_"`
	Store Store `yaml:"store" envPrefix:"DASHAUTH_STORE_"`
	HTTP  HTTP  `yaml:"http" envPrefix:"DASHAUTH_HTTP_"`
	Auth  Auth  `yaml:"auth" envPrefix:"DASHAUTH_"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Store selects and addresses the key-value backend.
type Store struct {
	Backend       string `yaml:"backend" env:"BACKEND"`
	Path          string `yaml:"path" env:"PATH"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
}

// HTTP configures the API server.
type HTTP struct {
	Addr              string        `yaml:"addr" env:"ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Auth carries the engine settings exposed to operators.
type Auth struct {
	KeyPrefix        string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	TokenSecret      string        `yaml:"token_secret" env:"TOKEN_SECRET"`
	TokenTTL         time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	SeedDemoUsers    bool          `yaml:"seed_demo_users" env:"SEED_DEMO_USERS"`
	LoginMaxAttempts int           `yaml:"login_max_attempts" env:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow      time.Duration `yaml:"login_window" env:"LOGIN_WINDOW"`
	ResetCodeTTL     time.Duration `yaml:"reset_code_ttl" env:"RESET_CODE_TTL"`
	ResetMaxAttempts int           `yaml:"reset_max_attempts" env:"RESET_MAX_ATTEMPTS"`
	AuditLog         bool          `yaml:"audit_log" env:"AUDIT_LOG"`
	Metrics          bool          `yaml:"metrics" env:"METRICS"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	ec := dashauth.DefaultConfig()
	return &Config{
		Log: Log{Level: "info", Format: "text"},
		Store: Store{
			Backend:   BackendSQLite,
			Path:      "dashauth.db",
			RedisAddr: "localhost:6379",
		},
		HTTP: HTTP{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Auth: Auth{
			KeyPrefix:        ec.KeyPrefix,
			TokenTTL:         ec.Token.TTL,
			SeedDemoUsers:    true,
			LoginMaxAttempts: ec.Login.MaxAttempts,
			LoginWindow:      ec.Login.Window,
			ResetCodeTTL:     ec.PasswordReset.CodeTTL,
			ResetMaxAttempts: ec.PasswordReset.MaxAttempts,
			Metrics:          true,
		},
	}
}

type flagValues struct {
	configFile string
	backend    string
	path       string
	redisAddr  string
	addr       string
	logLevel   string
	logFormat  string
	seed       bool
}

// Load parses the global flags in args and layers file, environment and
// flags over the defaults. environ replaces the process environment when
// non-nil. The arguments left after the flags are returned.
func Load(name string, args []string, environ map[string]string) (*Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var fl flagValues
	fs.StringVar(&fl.configFile, "config", "", "YAML configuration file (env "+ConfigFileEnv+")")
	fs.StringVar(&fl.backend, "store", "", "store backend: sqlite, redis, miniredis or memory")
	fs.StringVar(&fl.path, "db", "", "sqlite database file")
	fs.StringVar(&fl.redisAddr, "redis", "", "redis address")
	fs.StringVar(&fl.addr, "addr", "", "HTTP listen address")
	fs.StringVar(&fl.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&fl.logFormat, "log-format", "", "log format: text or json")
	fs.BoolVar(&fl.seed, "seed", true, "seed the demo users into an empty store")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg := Default()

	path := fl.configFile
	if path == "" {
		path = lookupEnv(environ, ConfigFileEnv)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "store":
			cfg.Store.Backend = fl.backend
		case "db":
			cfg.Store.Path = fl.path
		case "redis":
			cfg.Store.RedisAddr = fl.redisAddr
		case "addr":
			cfg.HTTP.Addr = fl.addr
		case "log-level":
			cfg.Log.Level = fl.logLevel
		case "log-format":
			cfg.Log.Format = fl.logFormat
		case "seed":
			cfg.Auth.SeedDemoUsers = fl.seed
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func lookupEnv(environ map[string]string, key string) string {
	if environ != nil {
		return environ[key]
	}
	return os.Getenv(key)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return errors.New("sqlite store needs a path")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			return errors.New("redis store needs an address")
		}
	case BackendMiniredis, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Auth.TokenSecret != "" && len(c.Auth.TokenSecret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	return nil
}

// Engine translates the operator settings into an engine configuration.
func (c *Config) Engine() dashauth.Config {
	ec := dashauth.DefaultConfig()
	ec.KeyPrefix = c.Auth.KeyPrefix
	ec.Token.TTL = c.Auth.TokenTTL
	if c.Auth.TokenSecret != "" {
		ec.Token.PrivateKey = []byte(c.Auth.TokenSecret)
	}
	ec.Login.MaxAttempts = c.Auth.LoginMaxAttempts
	ec.Login.Window = c.Auth.LoginWindow
	ec.PasswordReset.CodeTTL = c.Auth.ResetCodeTTL
	ec.PasswordReset.MaxAttempts = c.Auth.ResetMaxAttempts
	ec.Seed.Enabled = c.Auth.SeedDemoUsers
	ec.Audit.Enabled = c.Auth.AuditLog
	ec.Metrics.Enabled = c.Auth.Metrics
	return ec
}
