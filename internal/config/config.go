package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the story pipeline and its tools.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Walls    WallsConfig    `yaml:"walls"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Service  ServiceConfig  `yaml:"service"`
}

// PipelineConfig holds ramp detection and story assignment settings.
type PipelineConfig struct {
	// DoorTypes lists the generator door types that are real doorways.
	// A room holding one of these can never be a ramp.
	DoorTypes []int `yaml:"door_types"`

	// Seed drives the tie-break between equal ramps in an even cluster.
	// 0 picks a time-based seed.
	Seed int64 `yaml:"seed"`

	// Unreachable is what to do with rooms the entrance cannot reach:
	// "leave" (stay unassigned), "error" (abort), or "fallback".
	Unreachable string `yaml:"unreachable"`

	// FallbackStory is the story given to unreachable rooms under "fallback".
	FallbackStory int `yaml:"fallback_story"`
}

// WallsConfig controls the optional wall derivation stage.
type WallsConfig struct {
	Enabled bool  `yaml:"enabled"`
	Seed    int64 `yaml:"seed"` // Ceiling height draws; 0 = time-based
}

// ArchiveConfig selects where processed layouts are recorded.
type ArchiveConfig struct {
	Enabled    bool           `yaml:"enabled"`
	Driver     string         `yaml:"driver"` // "sqlite" or "postgres"
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN renders the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ServiceConfig holds the WebSocket processing service settings.
type ServiceConfig struct {
	Address     string            `yaml:"address"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`

	// Workers bounds how many dungeons are processed at once.
	Workers int `yaml:"workers"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections to the service.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum layout message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DoorTypes:     []int{1, 2, 4, 6, 7},
			Unreachable:   "leave",
			FallbackStory: -9,
		},
		Archive: ArchiveConfig{
			Driver:     "sqlite",
			SQLitePath: "data/archive.db",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Service: ServiceConfig{
			Address: ":4460",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{}, // Same-origin only by default
				MaxMessageSize: 1 << 20,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 3,
				MaxTotal: 100,
			},
			Workers: 4,
		},
	}
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, returns the default config.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return config, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Pipeline.Unreachable {
	case "", "leave", "error", "fallback":
	default:
		return fmt.Errorf("config: pipeline.unreachable must be leave, error or fallback, got %q", c.Pipeline.Unreachable)
	}
	if c.Pipeline.DoorTypes != nil && len(c.Pipeline.DoorTypes) == 0 {
		return fmt.Errorf("config: pipeline.door_types must list at least one door type; omit it for the defaults")
	}
	switch c.Archive.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: archive.driver must be sqlite or postgres, got %q", c.Archive.Driver)
	}
	if c.Service.Workers < 0 {
		return fmt.Errorf("config: service.workers must not be negative")
	}
	return nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // Non-browser clients send no Origin header
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
