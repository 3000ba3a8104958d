package acl

import (
	"github.com/radium-data/radium/internal/logger"
)

// GroupResolver checks whether a group name refers to a known group and
// returns its canonical name. It keeps this package free of a dependency on
// the principal store.
type GroupResolver interface {
	// ResolveGroup returns the canonical group name and true when the
	// group exists, or ("", false) otherwise.
	ResolveGroup(name string) (string, bool)
}

// GroupResolverFunc adapts a function to the GroupResolver interface.
type GroupResolverFunc func(name string) (string, bool)

func (f GroupResolverFunc) ResolveGroup(name string) (string, bool) { return f(name) }

// CDMIAce is one entry of an inbound "cdmi_acl" metadata list: the string
// form of an ACE as exchanged with CDMI clients.
type CDMIAce struct {
	ACEType    string `json:"acetype" mapstructure:"acetype"`
	Identifier string `json:"identifier" mapstructure:"identifier"`
	ACEFlags   string `json:"aceflags" mapstructure:"aceflags"`
	ACEMask    string `json:"acemask" mapstructure:"acemask"`
}

// resolveIdentifier maps a principal name to the identifier stored in the
// ACL map. Known groups resolve to their canonical name, the reserved
// tokens pass through unresolved, anything else is dropped.
func resolveIdentifier(name string, resolver GroupResolver) (string, bool) {
	if resolver != nil {
		if canonical, ok := resolver.ResolveGroup(name); ok {
			return canonical, true
		}
	}
	switch upper := toUpper(name); upper {
	case PrincipalAuthenticated, PrincipalAnonymous:
		return upper, true
	}
	return "", false
}

func toUpper(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'a' && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

// BuildPatch turns read/write group lists into an ACL map fragment ready to
// be assigned or merged on a node. Groups in both lists get the read/write
// mask. Unknown group names are dropped with a warning; the reserved
// AUTHENTICATED@/ANONYMOUS@ tokens pass through unresolved.
func BuildPatch(readAccess, writeAccess []string, isObject bool, resolver GroupResolver) map[string]Ace {
	levels := make(map[string]string)
	for _, name := range readAccess {
		levels[name] = LevelRead
	}
	for _, name := range writeAccess {
		if _, ok := levels[name]; ok {
			levels[name] = LevelReadWrite
		} else {
			levels[name] = LevelWrite
		}
	}

	patch := make(map[string]Ace)
	for name, level := range levels {
		ident, ok := resolveIdentifier(name, resolver)
		if !ok {
			logger.Warn("the group %q doesn't exist", name)
			continue
		}
		patch[ident] = Ace{
			ACEType:    TypeAllow,
			Identifier: ident,
			ACEFlags:   FlagNone,
			ACEMask:    LevelToMask(level, isObject),
		}
	}
	return patch
}

// BuildPatchFromCDMI turns a list of CDMI ACEs into an ACL map fragment.
// Entries with a missing identifier are skipped with a warning and never
// fail the whole update.
func BuildPatchFromCDMI(entries []CDMIAce, resolver GroupResolver) map[string]Ace {
	patch := make(map[string]Ace)
	for _, entry := range entries {
		if entry.Identifier == "" {
			logger.Warn("wrong format for the cdmi ACL entry, 'identifier' field not found")
			continue
		}
		ident, ok := resolveIdentifier(entry.Identifier, resolver)
		if !ok {
			logger.Warn("wrong format for the cdmi ACL entry, %q group not found", entry.Identifier)
			continue
		}
		patch[ident] = Ace{
			ACEType:    toUpper(entry.ACEType),
			Identifier: ident,
			ACEFlags:   FlagsFromString(entry.ACEFlags),
			ACEMask:    MaskFromString(entry.ACEMask, false),
		}
	}
	return patch
}

// SerializeMetadata renders an ACL map as the "cdmi_acl" metadata value:
// one string-form entry per ACE. Flags always render as the inheritance
// pair, matching what CDMI clients expect on listings.
func SerializeMetadata(entries map[string]Ace, isObject bool) map[string]any {
	mapped := make([]map[string]any, 0, len(entries))
	for _, ace := range entries {
		mapped = append(mapped, map[string]any{
			"acetype":    ace.ACEType,
			"identifier": ace.Identifier,
			"aceflags":   FlagsToString(FlagObjectInherit | FlagContainerInherit),
			"acemask":    MaskToCDMIString(ace.ACEMask, isObject),
		})
	}
	return map[string]any{"cdmi_acl": mapped}
}
