package badger

import "fmt"

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so node rows map onto prefixed keys that
// preserve the (container, name, version) clustering the tree layer relies
// on:
//
// Data Type   Prefix   Key Format                                   Value Type
// ============================================================================
// Node Row    "n:"     n:<container>\x00<name>\x00<invVersion>      TreeNode (JSON)
//
// Key Design Rationale:
//
// 1. Container clustering
//    - All rows sharing a container share the key prefix
//      "n:<container>\x00", so listing a container is a single range scan
//    - The NUL separator cannot appear in paths, so no name can escape its
//      container's range
//
// 2. Version ordering
//    - The version is encoded inverted and zero-padded, so an ascending key
//      scan yields versions in descending order and the first match under
//      "n:<container>\x00<name>\x00" is always the current version
const (
	// prefixNode is the key prefix for node rows
	prefixNode = "n:"

	// keySep separates the key components. Paths never contain NUL.
	keySep = "\x00"

	// versionCeiling bounds encodable versions; versions are inverted
	// against it so higher versions sort first
	versionCeiling = 9999999999
)

// containerKeyPrefix returns the scan prefix covering every row of one
// container.
func containerKeyPrefix(container string) []byte {
	return []byte(prefixNode + container + keySep)
}

// rowKeyPrefix returns the scan prefix covering every version of one row.
func rowKeyPrefix(container, name string) []byte {
	return []byte(prefixNode + container + keySep + name + keySep)
}

// rowKey returns the key of one row version.
func rowKey(container, name string, version int) []byte {
	return fmt.Appendf(rowKeyPrefix(container, name), "%010d", versionCeiling-version)
}
