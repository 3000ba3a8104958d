package payload

// Typed views of the object part of an envelope, decoded through Bind.
// Field names follow the wire format of the envelopes.

// CollectionState is the object part of a collection envelope.
type CollectionState struct {
	UUID      string         `mapstructure:"uuid"`
	Container string         `mapstructure:"container"`
	Name      string         `mapstructure:"name"`
	Path      string         `mapstructure:"path"`
	Created   string         `mapstructure:"created"`
	UserMeta  map[string]any `mapstructure:"user_meta"`
	SysMeta   map[string]any `mapstructure:"sys_meta"`
	CanRead   bool           `mapstructure:"can_read"`
	CanWrite  bool           `mapstructure:"can_write"`
	CanEdit   bool           `mapstructure:"can_edit"`
	CanDelete bool           `mapstructure:"can_delete"`
}

// ResourceState is the object part of a resource envelope.
type ResourceState struct {
	UUID        string         `mapstructure:"uuid"`
	Container   string         `mapstructure:"container"`
	Name        string         `mapstructure:"name"`
	Path        string         `mapstructure:"path"`
	URL         string         `mapstructure:"url"`
	IsReference bool           `mapstructure:"is_reference"`
	Mimetype    string         `mapstructure:"mimetype"`
	Type        string         `mapstructure:"type"`
	Size        int64          `mapstructure:"size"`
	Created     string         `mapstructure:"created"`
	UserMeta    map[string]any `mapstructure:"user_meta"`
	SysMeta     map[string]any `mapstructure:"sys_meta"`
	CanRead     bool           `mapstructure:"can_read"`
	CanWrite    bool           `mapstructure:"can_write"`
	CanEdit     bool           `mapstructure:"can_edit"`
	CanDelete   bool           `mapstructure:"can_delete"`
}

// UserState is the object part of a user envelope.
type UserState struct {
	UUID          string   `mapstructure:"uuid"`
	Login         string   `mapstructure:"login"`
	Fullname      string   `mapstructure:"fullname"`
	Password      string   `mapstructure:"password"`
	Email         string   `mapstructure:"email"`
	Administrator bool     `mapstructure:"administrator"`
	Active        bool     `mapstructure:"active"`
	LDAP          bool     `mapstructure:"ldap"`
	Groups        []string `mapstructure:"groups"`
}

// GroupState is the object part of a group envelope.
type GroupState struct {
	UUID     string `mapstructure:"uuid"`
	Name     string `mapstructure:"name"`
	CreateTS string `mapstructure:"create_ts"`
}
