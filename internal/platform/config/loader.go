package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at the config file.
const EnvConfigPath = "TENSOSENSE_CONFIG"

var defaultSearchPaths = []string{".config.yaml", "config.yaml"}

// Loader reads the YAML file on top of DefaultConfig and applies environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that honours .env, TENSOSENSE_CONFIG and the default search paths.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the config file location.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// WithEnv overrides the environment lookup (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load resolves the config file, falls back to defaults when none exists and validates the result.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// a missing .env is normal outside development
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else {
		path = "default"
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	applyFallbacks(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

func (l *Loader) resolvePath() (string, error) {
	if l.path != "" {
		return l.path, nil
	}
	if p, ok := l.lookupEnv(EnvConfigPath); ok && strings.TrimSpace(p) != "" {
		return strings.TrimSpace(p), nil
	}
	for _, candidate := range defaultSearchPaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.lookupEnv("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := l.lookupEnv("JWT_SECRET"); ok && v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := l.lookupEnv("LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := l.lookupEnv("REDIS_ADDR"); ok && v != "" {
		cfg.Auth.Store.Redis.Addr = v
	}
	return nil
}

func applyFallbacks(cfg *Config) {
	def := DefaultConfig()
	if cfg.Server.WebsocketPath == "" {
		cfg.Server.WebsocketPath = def.Server.WebsocketPath
	}
	if cfg.Server.HandshakeTimeout <= 0 {
		cfg.Server.HandshakeTimeout = def.Server.HandshakeTimeout
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = def.Auth.TokenTTL
	}
	if cfg.Auth.Store.Type == "" {
		cfg.Auth.Store.Type = def.Auth.Store.Type
	}
	t := &cfg.Telemetry
	if t.Capacity <= 0 {
		t.Capacity = def.Telemetry.Capacity
	}
	if t.SnapshotLimit <= 0 || t.SnapshotLimit > t.Capacity {
		t.SnapshotLimit = t.Capacity
	}
	if t.HistoryDefaultLimit <= 0 {
		t.HistoryDefaultLimit = def.Telemetry.HistoryDefaultLimit
	}
	if t.ClassifyThreshold == 0 {
		t.ClassifyThreshold = def.Telemetry.ClassifyThreshold
	}
	if t.IdleTimeout <= 0 {
		t.IdleTimeout = def.Telemetry.IdleTimeout
	}
	if t.SweepInterval <= 0 {
		t.SweepInterval = def.Telemetry.SweepInterval
	}
	if t.SendBuffer <= 0 {
		t.SendBuffer = def.Telemetry.SendBuffer
	}
	if t.WriteTimeout <= 0 {
		t.WriteTimeout = def.Telemetry.WriteTimeout
	}
	if t.MaxMessageBytes <= 0 {
		t.MaxMessageBytes = def.Telemetry.MaxMessageBytes
	}
	if cfg.EventBus.Workers <= 0 {
		cfg.EventBus.Workers = def.EventBus.Workers
	}
	if cfg.EventBus.QueueSize <= 0 {
		cfg.EventBus.QueueSize = def.EventBus.QueueSize
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	switch strings.ToLower(cfg.Auth.Store.Type) {
	case "", "memory", "sqlite":
	case "redis":
		if cfg.Auth.Store.Redis.Addr == "" {
			return fmt.Errorf("auth.store.redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unsupported auth store type %q", cfg.Auth.Store.Type)
	}
	seen := make(map[string]struct{}, len(cfg.Auth.Users))
	for _, u := range cfg.Auth.Users {
		if u.Username == "" || u.PasswordHash == "" {
			return fmt.Errorf("auth.users entries need username and password_hash")
		}
		if _, dup := seen[u.Username]; dup {
			return fmt.Errorf("duplicate user %q", u.Username)
		}
		seen[u.Username] = struct{}{}
	}
	return nil
}
