package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSender = "radium_lib"

func TestNewFillsMetaDefaults(t *testing.T) {
	p := New(OpCreate, TypeRequest, ObjCollection, map[string]any{
		"obj": map[string]any{"path": "/docs/a/"},
	}, testSender)

	assert.Equal(t, testSender, p.Sender())
	assert.NotEmpty(t, p.ReqID())
	assert.Empty(t, p.Msg())
}

func TestNewKeepsExplicitMeta(t *testing.T) {
	p := New(OpUpdate, TypeRequest, ObjCollection, map[string]any{
		"obj":  map[string]any{"path": "/docs/a/"},
		"meta": map[string]any{"sender": "alice", "req_id": "req-7"},
	}, testSender)

	assert.Equal(t, "alice", p.Sender())
	assert.Equal(t, "req-7", p.ReqID())
}

func TestFailEnvelopeDefaultMessages(t *testing.T) {
	tests := []struct {
		op   string
		want string
	}{
		{OpCreate, MsgCreateFailed},
		{OpUpdate, MsgUpdateFailed},
		{OpDelete, MsgDeleteFailed},
	}
	for _, tt := range tests {
		p := New(tt.op, TypeFail, ObjResource, map[string]any{
			"obj": map[string]any{"path": "/x"},
		}, testSender)
		assert.Equal(t, tt.want, p.Msg(), "op %s", tt.op)
	}

	p := New(OpCreate, TypeFail, ObjResource, map[string]any{
		"obj":  map[string]any{"path": "/x"},
		"meta": map[string]any{"msg": "Conflict with a collection"},
	}, testSender)
	assert.Equal(t, "Conflict with a collection", p.Msg())
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		objType string
		obj     map[string]any
		want    string
	}{
		{ObjCollection, map[string]any{"path": "/docs/a/"}, "/docs/a/"},
		{ObjResource, map[string]any{}, UnknownPath},
		{ObjUser, map[string]any{"login": "alice"}, "alice"},
		{ObjUser, map[string]any{}, UnknownUser},
		{ObjGroup, map[string]any{"name": "grp1"}, "grp1"},
		{ObjGroup, map[string]any{}, UnknownGroup},
		{"widget", map[string]any{}, UnknownObject},
	}
	for _, tt := range tests {
		p := New(OpCreate, TypeRequest, tt.objType, map[string]any{"obj": tt.obj}, testSender)
		assert.Equal(t, tt.want, p.ObjectKey())
	}
}

func TestValidateCollection(t *testing.T) {
	p := New(OpCreate, TypeRequest, ObjCollection, map[string]any{
		"obj": map[string]any{"path": "/docs/a/", "name": "a/"},
	}, testSender)
	ok, msg := p.Validate()
	assert.True(t, ok)
	assert.Equal(t, "json is valid", msg)

	// missing path
	p = New(OpCreate, TypeRequest, ObjCollection, map[string]any{
		"obj": map[string]any{"name": "a/"},
	}, testSender)
	ok, msg = p.Validate()
	assert.False(t, ok)
	assert.NotEmpty(t, msg)

	// unknown object field
	p = New(OpCreate, TypeRequest, ObjCollection, map[string]any{
		"obj": map[string]any{"path": "/docs/a/", "bogus": 1},
	}, testSender)
	ok, _ = p.Validate()
	assert.False(t, ok)
}

func TestValidateUserCreateRequestNeedsPassword(t *testing.T) {
	p := New(OpCreate, TypeRequest, ObjUser, map[string]any{
		"obj": map[string]any{"login": "alice"},
	}, testSender)
	ok, _ := p.Validate()
	assert.False(t, ok)

	p = New(OpCreate, TypeRequest, ObjUser, map[string]any{
		"obj": map[string]any{"login": "alice", "password": "secret"},
	}, testSender)
	ok, _ = p.Validate()
	assert.True(t, ok)

	// other user envelopes only need the login
	p = New(OpCreate, TypeSuccess, ObjUser, map[string]any{
		"obj": map[string]any{"login": "alice"},
	}, testSender)
	ok, _ = p.Validate()
	assert.True(t, ok)
}

func TestValidateUserRequiresObj(t *testing.T) {
	p := New(OpDelete, TypeRequest, ObjUser, map[string]any{}, testSender)
	ok, _ := p.Validate()
	assert.False(t, ok)

	// collections tolerate a missing obj section
	p = New(OpDelete, TypeRequest, ObjCollection, map[string]any{}, testSender)
	ok, _ = p.Validate()
	assert.True(t, ok)
}

func TestDefaultFail(t *testing.T) {
	p := NewDefaultFail(OpCreate, ObjCollection, "/docs/a/", "Parent container doesn't exist", testSender)
	assert.Equal(t, OpCreate, p.OpName())
	assert.Equal(t, TypeFail, p.OpType())
	assert.Equal(t, "/docs/a/", p.ObjectKey())
	assert.Equal(t, "Parent container doesn't exist", p.Msg())

	p = NewDefaultFail(OpDelete, ObjUser, "alice", "User not found", testSender)
	assert.Equal(t, "alice", p.ObjectKey())
}

func TestDefaultDeleteRequest(t *testing.T) {
	p := NewDefaultDeleteRequest(ObjGroup, "grp1", testSender)
	assert.True(t, p.Is(OpDelete, TypeRequest, ObjGroup))
	assert.Equal(t, "grp1", p.ObjectKey())
	ok, _ := p.Validate()
	assert.True(t, ok)
}

func TestBindResourceState(t *testing.T) {
	p := New(OpCreate, TypeRequest, ObjResource, map[string]any{
		"obj": map[string]any{
			"path":      "/docs/x.bin",
			"mimetype":  "application/octet-stream",
			"size":      42,
			"user_meta": map[string]any{"k": "v"},
		},
	}, testSender)

	var state ResourceState
	require.NoError(t, p.Bind(&state))
	assert.Equal(t, "/docs/x.bin", state.Path)
	assert.Equal(t, "application/octet-stream", state.Mimetype)
	assert.Equal(t, int64(42), state.Size)
	assert.Equal(t, map[string]any{"k": "v"}, state.UserMeta)
}

func TestBindUserState(t *testing.T) {
	p := New(OpCreate, TypeRequest, ObjUser, map[string]any{
		"obj": map[string]any{
			"login":         "alice",
			"password":      "secret",
			"administrator": true,
			"groups":        []any{"grp1", "grp2"},
		},
	}, testSender)

	var state UserState
	require.NoError(t, p.Bind(&state))
	assert.Equal(t, "alice", state.Login)
	assert.True(t, state.Administrator)
	assert.Equal(t, []string{"grp1", "grp2"}, state.Groups)
}

func TestSetMsgAndJSON(t *testing.T) {
	p := New(OpUpdate, TypeSuccess, ObjCollection, map[string]any{
		"obj": map[string]any{"path": "/docs/a/"},
	}, testSender)
	p.SetMsg("Collection updated")
	assert.Equal(t, "Collection updated", p.Msg())
	assert.Contains(t, p.JSON(), `"Collection updated"`)
}
