// Package acl implements the CDMI access-control model used on every node
// of the hierarchy: access-control entries, the bitmask encoding of
// permissions, and the conversions between masks and the human/CDMI string
// forms.
package acl

import (
	"strings"

	"github.com/radium-data/radium/internal/logger"
)

// ACE flags (CDMI).
const (
	FlagNone             = 0x00000000
	FlagObjectInherit    = 0x00000001
	FlagContainerInherit = 0x00000002
	FlagNoPropagate      = 0x00000004
	FlagInheritOnly      = 0x00000008
	FlagIdentifierGroup  = 0x00000040
	FlagInherited        = 0x00000080
)

// ACE mask bits (CDMI). Several bits carry a different name depending on
// whether the ACE applies to a data object or to a container, but the
// numeric value is shared.
const (
	MaskReadObject         = 0x00000001
	MaskListContainer      = 0x00000001
	MaskWriteObject        = 0x00000002
	MaskAddObject          = 0x00000002
	MaskAppendData         = 0x00000004
	MaskAddSubcontainer    = 0x00000004
	MaskReadMetadata       = 0x00000008
	MaskWriteMetadata      = 0x00000010
	MaskExecute            = 0x00000020
	MaskDeleteObject       = 0x00000040
	MaskDeleteSubcontainer = 0x00000040
	MaskReadAttributes     = 0x00000080
	MaskWriteAttributes    = 0x00000100
	MaskWriteRetention     = 0x00000200
	MaskWriteRetentionHold = 0x00000400
	MaskDelete             = 0x00010000
	MaskReadACL            = 0x00020000
	MaskWriteACL           = 0x00040000
	MaskWriteOwner         = 0x00080000
	MaskSynchronize        = 0x00100000
)

// Simplified access levels. Every ACL stored by the library uses one of
// these four canonical masks.
const (
	LevelNone      = "none"       // 0x00
	LevelRead      = "read"       // 0x09
	LevelWrite     = "write"      // 0x56
	LevelReadWrite = "read/write" // 0x5F
)

// ACE types.
const (
	TypeAllow = "ALLOW"
	TypeDeny  = "DENY"
)

// Reserved principal tokens. These are accepted as ACE identifiers without
// group resolution.
const (
	PrincipalAuthenticated = "AUTHENTICATED@"
	PrincipalAnonymous     = "ANONYMOUS@"
	PrincipalEveryone      = "EVERYONE@"
)

// Ace is one access-control entry: a permission rule granted (ALLOW) or
// revoked (DENY) to a principal. Principals are group names or one of the
// reserved tokens.
type Ace struct {
	ACEType    string `json:"acetype"`
	Identifier string `json:"identifier"`
	ACEFlags   int    `json:"aceflags"`
	ACEMask    int    `json:"acemask"`
}

// flagTable is scanned high-to-low when rendering a flags bitmask as a
// comma-separated CDMI string.
var flagTable = []struct {
	bit  int
	name string
}{
	{0x00000080, "INHERITED"},
	{0x00000040, "IDENTIFIER_GROUP"},
	{0x00000008, "INHERIT_ONLY"},
	{0x00000004, "NO_PROPAGATE"},
	{0x00000002, "CONTAINER_INHERIT"},
	{0x00000001, "OBJECT_INHERIT"},
	{0x00000000, "NO_FLAGS"},
}

// maskTable is scanned high-to-low when rendering a mask bitmask as a
// comma-separated CDMI string. Four bits have object/container name pairs.
var maskTable = []struct {
	bit       int
	object    string
	container string
}{
	{0x00100000, "SYNCHRONIZE", "SYNCHRONIZE"},
	{0x00080000, "WRITE_OWNER", "WRITE_OWNER"},
	{0x00040000, "WRITE_ACL", "WRITE_ACL"},
	{0x00020000, "READ_ACL", "READ_ACL"},
	{0x00010000, "DELETE", "DELETE"},
	{0x00000400, "WRITE_RETENTION_HOLD", "WRITE_RETENTION_HOLD"},
	{0x00000200, "WRITE_RETENTION", "WRITE_RETENTION"},
	{0x00000100, "WRITE_ATTRIBUTES", "WRITE_ATTRIBUTES"},
	{0x00000080, "READ_ATTRIBUTES", "READ_ATTRIBUTES"},
	{0x00000040, "DELETE_OBJECT", "DELETE_SUBCONTAINER"},
	{0x00000020, "EXECUTE", "EXECUTE"},
	{0x00000010, "WRITE_METADATA", "WRITE_METADATA"},
	{0x00000008, "READ_METADATA", "READ_METADATA"},
	{0x00000004, "APPEND_DATA", "ADD_SUBCONTAINER"},
	{0x00000002, "WRITE_OBJECT", "ADD_OBJECT"},
	{0x00000001, "READ_OBJECT", "LIST_CONTAINER"},
}

// flagNames maps CDMI flag names to their bit values.
var flagNames = map[string]int{
	"INHERITED":         0x00000080,
	"IDENTIFIER_GROUP":  0x00000040,
	"INHERIT_ONLY":      0x00000008,
	"NO_PROPAGATE":      0x00000004,
	"CONTAINER_INHERIT": 0x00000002,
	"OBJECT_INHERIT":    0x00000001,
	"NO_FLAGS":          0x00000000,
}

// objectMaskNames maps mask names to bit values for data objects.
var objectMaskNames = map[string]int{
	"NONE":                 0x0,
	"READ":                 MaskReadObject | MaskReadMetadata, // 0x09
	"WRITE":                0x56,
	"READ/WRITE":           0x5F,
	"EDIT":                 0x56,
	"DELETE":               MaskDelete,
	"SYNCHRONIZE":          MaskSynchronize,
	"WRITE_OWNER":          MaskWriteOwner,
	"WRITE_ACL":            MaskWriteACL,
	"READ_ACL":             MaskReadACL,
	"WRITE_RETENTION_HOLD": MaskWriteRetentionHold,
	"WRITE_RETENTION":      MaskWriteRetention,
	"WRITE_ATTRIBUTES":     MaskWriteAttributes,
	"READ_ATTRIBUTES":      MaskReadAttributes,
	"DELETE_OBJECT":        MaskDeleteObject,
	"EXECUTE":              MaskExecute,
	"WRITE_METADATA":       MaskWriteMetadata,
	"READ_METADATA":        MaskReadMetadata,
	"APPEND_DATA":          MaskAppendData,
	"WRITE_OBJECT":         MaskWriteObject,
	"READ_OBJECT":          MaskReadObject,
}

// containerMaskNames maps mask names to bit values for containers.
var containerMaskNames = map[string]int{
	"NONE":                 0x0,
	"READ":                 MaskListContainer | MaskReadMetadata, // 0x09
	"WRITE":                0x56,
	"READ/WRITE":           0x5F,
	"EDIT":                 0x56,
	"DELETE":               MaskDelete | MaskDeleteObject | MaskDeleteSubcontainer,
	"SYNCHRONIZE":          MaskSynchronize,
	"WRITE_OWNER":          MaskWriteOwner,
	"WRITE_ACL":            MaskWriteACL,
	"READ_ACL":             MaskReadACL,
	"WRITE_RETENTION_HOLD": MaskWriteRetentionHold,
	"WRITE_RETENTION":      MaskWriteRetention,
	"WRITE_ATTRIBUTES":     MaskWriteAttributes,
	"READ_ATTRIBUTES":      MaskReadAttributes,
	"DELETE_SUBCONTAINER":  MaskDeleteSubcontainer,
	"EXECUTE":              MaskExecute,
	"WRITE_METADATA":       MaskWriteMetadata,
	"READ_METADATA":        MaskReadMetadata,
	"ADD_SUBCONTAINER":     MaskAddSubcontainer,
	"ADD_OBJECT":           MaskAddObject,
	"LIST_CONTAINER":       MaskListContainer,
}

// levelFromMask maps the four canonical masks to their level names. Any
// other combination has no level name.
var levelFromMask = map[int]string{
	0x00: LevelNone,
	0x09: LevelRead,
	0x56: LevelWrite,
	0x5F: LevelReadWrite,
}

// LevelToMask returns the bitmask for a simplified access level ("none",
// "read", "write", "read/write"). Unknown levels map to 0.
func LevelToMask(level string, isObject bool) int {
	if isObject {
		return objectMaskNames[strings.ToUpper(level)]
	}
	return containerMaskNames[strings.ToUpper(level)]
}

// MaskToLevel returns the simplified access level for one of the four
// canonical masks. Unrecognized combinations map to the empty string and
// are logged, never treated as errors.
func MaskToLevel(mask int, isObject bool) string {
	level, ok := levelFromMask[mask]
	if !ok {
		logger.Warn("acemask 0x%02X has no access level (object=%v)", mask, isObject)
		return ""
	}
	return level
}

// FlagsToString renders a flags bitmask as a comma-separated CDMI string.
// A zero mask renders as "NO_FLAGS".
func FlagsToString(flags int) string {
	if flags == 0 {
		return "NO_FLAGS"
	}
	var names []string
	for _, entry := range flagTable {
		if flags == 0 {
			break
		}
		if flags&entry.bit == entry.bit && entry.bit != 0 {
			names = append(names, entry.name)
			flags ^= entry.bit
		}
	}
	return strings.Join(names, ", ")
}

// MaskToCDMIString renders a mask bitmask as a comma-separated CDMI string,
// peeling bits greedily from the highest-valued entry down.
func MaskToCDMIString(mask int, isObject bool) string {
	var names []string
	for _, entry := range maskTable {
		if mask == 0 {
			break
		}
		if mask&entry.bit == entry.bit {
			if isObject {
				names = append(names, entry.object)
			} else {
				names = append(names, entry.container)
			}
			mask ^= entry.bit
		}
	}
	return strings.Join(names, ", ")
}

// FlagsFromString parses a comma-separated CDMI flags string into a
// bitmask. Unknown names contribute nothing.
func FlagsFromString(s string) int {
	flags := 0
	for _, name := range strings.Split(s, ",") {
		flags |= flagNames[strings.ToUpper(strings.TrimSpace(name))]
	}
	return flags
}

// MaskFromString parses a comma-separated CDMI mask string into a bitmask.
// Unknown names contribute nothing.
func MaskFromString(s string, isObject bool) int {
	table := containerMaskNames
	if isObject {
		table = objectMaskNames
	}
	mask := 0
	for _, name := range strings.Split(s, ",") {
		mask |= table[strings.ToUpper(strings.TrimSpace(name))]
	}
	return mask
}
