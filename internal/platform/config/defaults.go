package config

import "time"

// seedPasswordHash is bcrypt("password"), cost 10.
const seedPasswordHash = "$2a$10$92IXUNpkjO0rOQ5byMi.Ye4oKoEa3Ro9llC/.og/at2.uheWG/igi"

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:               "0.0.0.0",
			Port:             8000,
			WebsocketPath:    "/ws",
			StaticDir:        "./public",
			HandshakeTimeout: 10 * time.Second,
			ShutdownTimeout:  10 * time.Second,
			AllowedOrigins:   []string{"*"},
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Auth: AuthConfig{
			JWTSecret:  "tensosense-secret-key-2025",
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
			Store: StoreConfig{
				Type: "memory",
				Redis: AuthRedisStore{
					Prefix: "tensosense:user:",
				},
			},
			Users: []UserConfig{
				{ID: 1, Username: "admin", PasswordHash: seedPasswordHash, Role: "admin"},
				{ID: 2, Username: "tensosense", PasswordHash: seedPasswordHash, Role: "user"},
			},
		},
		Telemetry: TelemetryConfig{
			Capacity:            1000,
			SnapshotLimit:       1000,
			HistoryDefaultLimit: 100,
			ClassifyThreshold:   50,
			IdleTimeout:         60 * time.Second,
			SweepInterval:       30 * time.Second,
			SendBuffer:          256,
			WriteTimeout:        10 * time.Second,
			MaxMessageBytes:     64 * 1024,
		},
		Storage: StorageConfig{
			Dir:  "./data",
			File: "tensosense.db",
		},
		EventBus: EventBusConfig{
			Workers:   4,
			QueueSize: 1024,
			Retention: 7 * 24 * time.Hour,
		},
	}
}
