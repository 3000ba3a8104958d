// Package node defines the tree-node model backing the hierarchy and the
// store interface used to persist it.
//
// A TreeNode is one physical row: (container, name, version) is the
// identity. The container is the parent path and always ends with "/";
// collection names end with "/" while data object names do not, following
// the CDMI convention. Rows sharing a container are siblings and co-locate
// in the backing store.
package node

import (
	"context"
	"strings"

	"github.com/radium-data/radium/pkg/acl"
)

// CurrentVersion asks the store to resolve the highest version present.
const CurrentVersion = -1

// Root row identity. The root collection is the single row with
// name "." under container "/".
const (
	RootContainer = "/"
	RootName      = "."
)

// TreeNode is one row of the hierarchy, either a collection or a data
// object. Metadata values are stored as JSON-encoded strings (see
// namespace.EncodeMeta).
type TreeNode struct {
	// Container is the parent path, always ending with "/"
	Container string `json:"container"`

	// Name is the final path segment. Collections end with "/"
	Name string `json:"name"`

	// Version distinguishes stored generations of the same path. It is
	// settable at creation and never bumped automatically by updates
	Version int `json:"version"`

	// UUID is the CDMI object identifier
	UUID string `json:"uuid"`

	// IsObject is true for data objects, false for collections
	IsObject bool `json:"is_object"`

	// ObjectURL locates the content of a data object. URLs with the
	// internal scheme point at the blob store, any other absolute URL is
	// an external reference, and an empty URL marks a broken resource
	ObjectURL string `json:"object_url,omitempty"`

	// SysMeta holds system metadata (timestamps, mimetype, size)
	SysMeta map[string]string `json:"sys_meta,omitempty"`

	// UserMeta holds user metadata
	UserMeta map[string]string `json:"user_meta,omitempty"`

	// ACL maps a principal identifier to its access-control entry
	ACL map[string]acl.Ace `json:"acl,omitempty"`
}

// Path returns the full path of the node, container and name merged.
func (n *TreeNode) Path() string {
	return Merge(n.Container, n.Name)
}

// IsRoot reports whether the node is the root collection row.
func (n *TreeNode) IsRoot() bool {
	return n.Container == RootContainer && n.Name == RootName
}

// Merge builds a full path from a container path and a final segment
// without duplicating the separator.
func Merge(container, name string) string {
	if container == "/" {
		return container + name
	}
	return strings.TrimSuffix(container, "/") + "/" + name
}

// Split parses a full path into the container (with its trailing slash)
// and the final segment. A collection path keeps its trailing slash on the
// segment; the root path splits into its row identity.
func Split(path string) (container, name string) {
	if path == "/" {
		return RootContainer, RootName
	}
	trimmed := strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return RootContainer, path
	}
	container = trimmed[:idx+1]
	name = path[idx+1:]
	return container, name
}

// Store persists tree nodes. It owns no business rules beyond
// existence and uniqueness queries; path semantics live in the namespace
// layer.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Get returns the node at (container, name, version). Pass
	// CurrentVersion to resolve the highest version present. Returns a
	// StoreError with ErrNotFound when no such row exists.
	Get(ctx context.Context, container, name string, version int) (*TreeNode, error)

	// List returns every row whose container matches, all versions
	// included, ordered by (name, version descending).
	List(ctx context.Context, container string) ([]*TreeNode, error)

	// Put upserts a whole row keyed by (container, name, version).
	Put(ctx context.Context, node *TreeNode) error

	// Delete removes every version of (container, name). Deleting a row
	// that does not exist is not an error.
	Delete(ctx context.Context, container, name string) error

	// SetACL replaces the ACL map of one row.
	SetACL(ctx context.Context, container, name string, version int, entries map[string]acl.Ace) error

	// MergeACL unions entries into the existing ACL map of one row.
	// Entries with matching identifiers are overwritten.
	MergeACL(ctx context.Context, container, name string, version int, entries map[string]acl.Ace) error

	// Healthcheck verifies the store can serve requests.
	Healthcheck(ctx context.Context) error

	// Close releases backing resources.
	Close() error
}
