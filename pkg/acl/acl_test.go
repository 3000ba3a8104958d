package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelMaskRoundTrip(t *testing.T) {
	for _, mask := range []int{0x00, 0x09, 0x56, 0x5F} {
		for _, isObject := range []bool{true, false} {
			level := MaskToLevel(mask, isObject)
			require.NotEmpty(t, level, "mask 0x%02X should have a level", mask)
			assert.Equal(t, mask, LevelToMask(level, isObject))
		}
	}
}

func TestMaskToLevelUnknown(t *testing.T) {
	assert.Equal(t, "", MaskToLevel(0x12345, true))
	assert.Equal(t, "", MaskToLevel(0x03, false))
}

func TestLevelToMask(t *testing.T) {
	tests := []struct {
		level    string
		isObject bool
		want     int
	}{
		{"none", true, 0x00},
		{"read", true, 0x09},
		{"write", true, 0x56},
		{"read/write", true, 0x5F},
		{"READ", false, 0x09},
		{"edit", false, 0x56},
		{"delete", true, MaskDelete},
		{"delete", false, MaskDelete | MaskDeleteObject | MaskDeleteSubcontainer},
		{"bogus", true, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelToMask(tt.level, tt.isObject), "level %q", tt.level)
	}
}

func TestFlagsToString(t *testing.T) {
	assert.Equal(t, "NO_FLAGS", FlagsToString(0))
	assert.Equal(t, "OBJECT_INHERIT", FlagsToString(FlagObjectInherit))
	assert.Equal(t, "CONTAINER_INHERIT, OBJECT_INHERIT",
		FlagsToString(FlagObjectInherit|FlagContainerInherit))
	assert.Equal(t, "INHERITED, IDENTIFIER_GROUP",
		FlagsToString(FlagInherited|FlagIdentifierGroup))
}

func TestFlagsFromString(t *testing.T) {
	assert.Equal(t, 0, FlagsFromString("NO_FLAGS"))
	assert.Equal(t, FlagObjectInherit|FlagContainerInherit,
		FlagsFromString("CONTAINER_INHERIT, OBJECT_INHERIT"))
	assert.Equal(t, FlagInheritOnly, FlagsFromString("inherit_only"))
	assert.Equal(t, 0, FlagsFromString("NOT_A_FLAG"))
}

func TestMaskToCDMIString(t *testing.T) {
	tests := []struct {
		mask     int
		isObject bool
		want     string
	}{
		{0x09, true, "READ_METADATA, READ_OBJECT"},
		{0x09, false, "READ_METADATA, LIST_CONTAINER"},
		{0x56, true, "DELETE_OBJECT, WRITE_METADATA, APPEND_DATA, WRITE_OBJECT"},
		{0x56, false, "DELETE_SUBCONTAINER, WRITE_METADATA, ADD_SUBCONTAINER, ADD_OBJECT"},
		{0x00, true, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskToCDMIString(tt.mask, tt.isObject))
	}
}

func TestMaskFromString(t *testing.T) {
	assert.Equal(t, 0x09, MaskFromString("READ_METADATA, READ_OBJECT", true))
	assert.Equal(t, 0x09, MaskFromString("read", false))
	assert.Equal(t, 0x5F, MaskFromString("read/write", true))
}

type staticResolver map[string]bool

func (r staticResolver) ResolveGroup(name string) (string, bool) {
	if r[name] {
		return name, true
	}
	return "", false
}

func TestBuildPatch(t *testing.T) {
	resolver := staticResolver{"grp1": true, "grp2": true}

	patch := BuildPatch([]string{"grp1"}, []string{"grp1"}, true, resolver)
	require.Len(t, patch, 1)
	ace := patch["grp1"]
	assert.Equal(t, TypeAllow, ace.ACEType)
	assert.Equal(t, "grp1", ace.Identifier)
	assert.Equal(t, 0, ace.ACEFlags)
	assert.Equal(t, 0x5F, ace.ACEMask)

	patch = BuildPatch([]string{"grp1"}, []string{"grp2"}, false, resolver)
	require.Len(t, patch, 2)
	assert.Equal(t, 0x09, patch["grp1"].ACEMask)
	assert.Equal(t, 0x56, patch["grp2"].ACEMask)
}

func TestBuildPatchDropsUnknownGroups(t *testing.T) {
	resolver := staticResolver{}
	patch := BuildPatch([]string{"ghost"}, nil, false, resolver)
	assert.Empty(t, patch)
}

func TestBuildPatchReservedTokens(t *testing.T) {
	patch := BuildPatch([]string{"AUTHENTICATED@"}, nil, false, staticResolver{})
	require.Contains(t, patch, "AUTHENTICATED@")
	assert.Equal(t, 0x09, patch["AUTHENTICATED@"].ACEMask)

	patch = BuildPatch(nil, []string{"anonymous@"}, false, staticResolver{})
	require.Contains(t, patch, "ANONYMOUS@")
	assert.Equal(t, 0x56, patch["ANONYMOUS@"].ACEMask)
}

func TestBuildPatchFromCDMI(t *testing.T) {
	resolver := staticResolver{"grp1": true}

	patch := BuildPatchFromCDMI([]CDMIAce{
		{ACEType: "allow", Identifier: "grp1", ACEFlags: "NO_FLAGS", ACEMask: "read/write"},
		{ACEType: "ALLOW", Identifier: "", ACEFlags: "NO_FLAGS", ACEMask: "read"},
		{ACEType: "ALLOW", Identifier: "ghost", ACEFlags: "NO_FLAGS", ACEMask: "read"},
	}, resolver)

	require.Len(t, patch, 1)
	ace := patch["grp1"]
	assert.Equal(t, TypeAllow, ace.ACEType)
	assert.Equal(t, 0x5F, ace.ACEMask)
}

func TestSerializeMetadata(t *testing.T) {
	entries := map[string]Ace{
		"grp1": {ACEType: TypeAllow, Identifier: "grp1", ACEFlags: 0, ACEMask: 0x09},
	}
	md := SerializeMetadata(entries, false)
	list, ok := md["cdmi_acl"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "ALLOW", list[0]["acetype"])
	assert.Equal(t, "grp1", list[0]["identifier"])
	assert.Equal(t, "CONTAINER_INHERIT, OBJECT_INHERIT", list[0]["aceflags"])
	assert.Equal(t, "READ_METADATA, LIST_CONTAINER", list[0]["acemask"])
}
