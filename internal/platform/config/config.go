package config

import (
	"time"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus" mapstructure:"eventbus"`
}

// ServerConfig controls the HTTP listener that also hosts the websocket endpoint.
type ServerConfig struct {
	IP               string        `yaml:"ip" mapstructure:"ip"`
	Port             int           `yaml:"port" mapstructure:"port"`
	WebsocketPath    string        `yaml:"ws_path" mapstructure:"ws_path"`
	StaticDir        string        `yaml:"static_dir" mapstructure:"static_dir"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" mapstructure:"handshake_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	// ProtectAPI requires a bearer token on the stats and history endpoints.
	ProtectAPI     bool     `yaml:"protect_api" mapstructure:"protect_api"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"log_level" mapstructure:"log_level"`
	Dir   string `yaml:"log_dir" mapstructure:"log_dir"`
	File  string `yaml:"log_file" mapstructure:"log_file"`
	Quiet bool   `yaml:"quiet" mapstructure:"quiet"`
}

// AuthConfig covers token signing, password hashing and the user store.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
	Store      StoreConfig   `yaml:"store" mapstructure:"store"`
	Users      []UserConfig  `yaml:"users" mapstructure:"users"`
}

type StoreConfig struct {
	Type  string          `yaml:"type" mapstructure:"type"`
	Redis AuthRedisStore  `yaml:"redis,omitempty" mapstructure:"redis"`
	SQL   AuthSQLiteStore `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
}

type AuthRedisStore struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username,omitempty" mapstructure:"username"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `yaml:"db,omitempty" mapstructure:"db"`
	Prefix   string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

type AuthSQLiteStore struct {
	DSN string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// UserConfig seeds one account into the user store at startup.
type UserConfig struct {
	ID           int64  `yaml:"id" mapstructure:"id"`
	Username     string `yaml:"username" mapstructure:"username"`
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
	Role         string `yaml:"role" mapstructure:"role"`
}

// TelemetryConfig tunes ingestion, retention and fan-out.
type TelemetryConfig struct {
	Capacity            int           `yaml:"capacity" mapstructure:"capacity"`
	SnapshotLimit       int           `yaml:"snapshot_limit" mapstructure:"snapshot_limit"`
	HistoryDefaultLimit int           `yaml:"history_default_limit" mapstructure:"history_default_limit"`
	ClassifyThreshold   float64       `yaml:"classify_threshold" mapstructure:"classify_threshold"`
	IdleTimeout         time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	SweepInterval       time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	SendBuffer          int           `yaml:"send_buffer" mapstructure:"send_buffer"`
	WriteTimeout        time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxMessageBytes     int64         `yaml:"max_message_bytes" mapstructure:"max_message_bytes"`
}

type StorageConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	File string `yaml:"file" mapstructure:"file"`
}

type EventBusConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
	// Persist records device lifecycle events in the sqlite audit table.
	Persist   bool          `yaml:"persist" mapstructure:"persist"`
	Retention time.Duration `yaml:"retention" mapstructure:"retention"`
}
