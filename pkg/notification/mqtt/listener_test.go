package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-data/radium/pkg/payload"
)

func TestDecodeRequest(t *testing.T) {
	body := []byte(`{"obj": {"path": "/docs/"}, "meta": {"sender": "alice", "req_id": "req-1"}}`)

	p, err := decodeRequest("create/request/collection/docs", body, "radium_lib")
	require.NoError(t, err)
	assert.True(t, p.Is(payload.OpCreate, payload.TypeRequest, payload.ObjCollection))
	assert.Equal(t, "/docs/", p.ObjectKey())
	assert.Equal(t, "alice", p.Sender())
	assert.Equal(t, "req-1", p.ReqID())
}

func TestDecodeRequestDefaultsSender(t *testing.T) {
	p, err := decodeRequest("delete/request/user/alice", []byte(`{"obj": {"login": "alice"}}`), "radium_lib")
	require.NoError(t, err)
	assert.Equal(t, "radium_lib", p.Sender())
	assert.NotEmpty(t, p.ReqID())
}

func TestDecodeRequestRejectsMalformed(t *testing.T) {
	_, err := decodeRequest("create/request", nil, "")
	assert.Error(t, err)

	_, err = decodeRequest("create/success/collection/docs", nil, "")
	assert.Error(t, err)

	_, err = decodeRequest("purge/request/collection/docs", nil, "")
	assert.Error(t, err)

	_, err = decodeRequest("create/request/tape/docs", nil, "")
	assert.Error(t, err)

	_, err = decodeRequest("create/request/collection/docs", []byte("{nope"), "")
	assert.Error(t, err)
}
