package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		container string
		name      string
		want      string
	}{
		{"/", "docs/", "/docs/"},
		{"/", "file.txt", "/file.txt"},
		{"/docs/", "a/", "/docs/a/"},
		{"/docs/", "x", "/docs/x"},
		{"/docs/a/", "deep/", "/docs/a/deep/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Merge(tt.container, tt.name))
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		path      string
		container string
		name      string
	}{
		{"/", RootContainer, RootName},
		{"/docs/", "/", "docs/"},
		{"/file.txt", "/", "file.txt"},
		{"/docs/a/", "/docs/", "a/"},
		{"/docs/x", "/docs/", "x"},
		{"/docs/a/deep/", "/docs/a/", "deep/"},
	}
	for _, tt := range tests {
		container, name := Split(tt.path)
		assert.Equal(t, tt.container, container, "path %q", tt.path)
		assert.Equal(t, tt.name, name, "path %q", tt.path)
	}
}

func TestSplitMergeRoundTrip(t *testing.T) {
	for _, path := range []string{"/docs/", "/docs/a/", "/docs/a/x.bin", "/top.txt"} {
		container, name := Split(path)
		assert.Equal(t, path, Merge(container, name))
	}
}

func TestTreeNodePath(t *testing.T) {
	n := &TreeNode{Container: "/docs/", Name: "a/"}
	assert.Equal(t, "/docs/a/", n.Path())
	assert.False(t, n.IsRoot())

	root := &TreeNode{Container: RootContainer, Name: RootName}
	assert.True(t, root.IsRoot())
	assert.Equal(t, "/.", root.Path())
}
