package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Radium configuration.
//
// This structure captures all configurable aspects of the Radium server
// including:
//   - Logging configuration
//   - Server-wide settings (shutdown, metrics endpoint)
//   - Namespace behavior (URL scheme, system metadata keys, chunking)
//   - Store selection and configuration per concern (node, blob, event,
//     principal), each store-specific
//   - Message broker configuration
//   - Bootstrap defaults (groups and the initial administrator)
//
// Configuration sources (in order of precedence):
//  1. Environment variables (RADIUM_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type and factory
// function. The Config struct contains type-specific sections (e.g.
// node.badger, blob.s3) and only the section matching the selected type is
// used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Namespace controls the hierarchy behavior
	Namespace NamespaceConfig `mapstructure:"namespace"`

	// Node specifies the tree-node store type and type-specific configuration
	Node NodeConfig `mapstructure:"node"`

	// Blob specifies the blob store type and type-specific configuration
	Blob BlobConfig `mapstructure:"blob"`

	// Event specifies the event store type and type-specific configuration
	Event EventConfig `mapstructure:"event"`

	// Principal specifies the principal store type and type-specific
	// configuration
	Principal PrincipalConfig `mapstructure:"principal"`

	// Broker configures the MQTT publisher
	Broker BrokerConfig `mapstructure:"broker"`

	// GC configures blob garbage collection
	GC GCConfig `mapstructure:"gc"`

	// Bootstrap lists the groups and the administrator created on first run
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized
	// to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the metrics HTTP server.
type MetricsConfig struct {
	// Enabled turns metrics collection and the /metrics endpoint on
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics server port (default 9090)
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// NamespaceConfig controls the hierarchy behavior.
type NamespaceConfig struct {
	// Scheme prefixes the URLs of resources stored in the blob store
	Scheme string `mapstructure:"scheme"`

	// ChunkSize is the content chunk size in bytes
	ChunkSize int `mapstructure:"chunk_size" validate:"gte=0"`

	// Compress stores new content chunks compressed
	Compress bool `mapstructure:"compress"`

	// SystemSender is the identity recorded on mutations without a sender
	SystemSender string `mapstructure:"system_sender"`

	// Meta names the system-metadata keys
	Meta MetaKeysConfig `mapstructure:"meta"`
}

// MetaKeysConfig names the system-metadata keys.
type MetaKeysConfig struct {
	CreateTS string `mapstructure:"create_ts"`
	ModifyTS string `mapstructure:"modify_ts"`
	Mimetype string `mapstructure:"mimetype"`
	Size     string `mapstructure:"size"`
}

// NodeConfig specifies tree-node store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type NodeConfig struct {
	// Type specifies which node store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// BlobConfig specifies blob store configuration.
type BlobConfig struct {
	// Type specifies which blob store implementation to use
	// Valid values: memory, filesystem, s3
	Type string `mapstructure:"type" validate:"required,oneof=memory filesystem s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// EventConfig specifies event store configuration.
type EventConfig struct {
	// Type specifies which event store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// PrincipalConfig specifies principal store configuration.
type PrincipalConfig struct {
	// Type specifies which principal store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// BcryptCost overrides the password hashing cost (0 uses the bcrypt
	// default)
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"gte=0,lte=31"`
}

// BrokerConfig configures the MQTT publisher. When disabled, notifications
// are still recorded in the event store but published to an in-process
// publisher only.
type BrokerConfig struct {
	// Enabled connects to the broker on startup
	Enabled bool `mapstructure:"enabled"`

	// URL is the broker address, e.g. "tcp://localhost:1883"
	URL string `mapstructure:"url"`

	// ClientID identifies this client to the broker
	ClientID string `mapstructure:"client_id"`

	// Username and Password are optional broker credentials
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// ConnectTimeout bounds the initial connection
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// RequestsPerSecond limits the sustained rate of inbound requests
	// (0 disables limiting)
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the maximum burst of inbound requests above the sustained
	// rate
	Burst uint `mapstructure:"burst"`
}

// GCConfig configures the blob garbage collector.
type GCConfig struct {
	// Enabled turns periodic orphan collection on
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often to run collection
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`

	// DryRun logs orphans without deleting them
	DryRun bool `mapstructure:"dry_run"`
}

// BootstrapConfig lists the principals created on first run.
type BootstrapConfig struct {
	// Groups are created if missing
	Groups []string `mapstructure:"groups"`

	// Admin is the initial administrator account, created if missing
	Admin AdminConfig `mapstructure:"admin"`
}

// AdminConfig describes the initial administrator account.
type AdminConfig struct {
	Login    string `mapstructure:"login"`
	Password string `mapstructure:"password"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (RADIUM_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the RADIUM_ prefix and underscores
	// Example: RADIUM_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("RADIUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/radium/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "radium")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "radium")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
