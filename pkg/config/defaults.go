package config

import (
	"strings"
	"time"

	"github.com/radium-data/radium/pkg/namespace"
)

// Default bootstrap principals.
var DefaultGroups = []string{"admins", "users"}

// DefaultAdminLogin is the login of the administrator created on first run.
const DefaultAdminLogin = "admin"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyNamespaceDefaults(&cfg.Namespace)
	applyNodeDefaults(&cfg.Node)
	applyBlobDefaults(&cfg.Blob)
	applyEventDefaults(&cfg.Event)
	applyPrincipalDefaults(&cfg.Principal)
	applyBrokerDefaults(&cfg.Broker)
	applyGCDefaults(&cfg.GC)
	applyBootstrapDefaults(&cfg.Bootstrap)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyNamespaceDefaults sets hierarchy defaults.
func applyNamespaceDefaults(cfg *NamespaceConfig) {
	if cfg.Scheme == "" {
		cfg.Scheme = namespace.DefaultScheme
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = namespace.DefaultChunkSize
	}
	if cfg.SystemSender == "" {
		cfg.SystemSender = namespace.DefaultSystemSender
	}
	if cfg.Meta.CreateTS == "" {
		cfg.Meta.CreateTS = namespace.DefaultMetaCreateTS
	}
	if cfg.Meta.ModifyTS == "" {
		cfg.Meta.ModifyTS = namespace.DefaultMetaModifyTS
	}
	if cfg.Meta.Mimetype == "" {
		cfg.Meta.Mimetype = namespace.DefaultMetaMimetype
	}
	if cfg.Meta.Size == "" {
		cfg.Meta.Size = namespace.DefaultMetaSize
	}
}

// applyNodeDefaults sets node store defaults.
func applyNodeDefaults(cfg *NodeConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/var/lib/radium/nodes"
	}
}

// applyBlobDefaults sets blob store defaults.
func applyBlobDefaults(cfg *BlobConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "/var/lib/radium/blobs"
	}
}

// applyEventDefaults sets event store defaults.
func applyEventDefaults(cfg *EventConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/var/lib/radium/events"
	}
}

// applyPrincipalDefaults sets principal store defaults.
func applyPrincipalDefaults(cfg *PrincipalConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/var/lib/radium/principals"
	}
	// BcryptCost 0 lets the hasher pick the bcrypt default
}

// applyBrokerDefaults sets broker defaults.
func applyBrokerDefaults(cfg *BrokerConfig) {
	if cfg.URL == "" {
		cfg.URL = "tcp://localhost:1883"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "radium"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
}

// applyGCDefaults sets garbage collector defaults.
func applyGCDefaults(cfg *GCConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = 24 * time.Hour
	}
}

// applyBootstrapDefaults sets bootstrap defaults.
func applyBootstrapDefaults(cfg *BootstrapConfig) {
	if len(cfg.Groups) == 0 {
		cfg.Groups = append([]string(nil), DefaultGroups...)
	}
	if cfg.Admin.Login == "" {
		cfg.Admin.Login = DefaultAdminLogin
	}
	// An empty admin password leaves the account creation to the operator
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
