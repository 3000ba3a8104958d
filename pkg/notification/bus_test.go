package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-data/radium/pkg/notification/memory"
	"github.com/radium-data/radium/pkg/payload"
	eventmem "github.com/radium-data/radium/pkg/store/event/memory"
)

const testSender = "radium_lib"

func newTestBus() (*Bus, *eventmem.MemoryEventStore, *memory.MemoryPublisher) {
	events := eventmem.NewMemoryEventStoreWithDefaults()
	pub := memory.NewMemoryPublisher()
	bus := NewBus(events, pub, BusConfig{
		Sender:          testSender,
		OutcomeAttempts: 3,
		OutcomeInterval: 10 * time.Millisecond,
	})
	return bus, events, pub
}

func TestTopic(t *testing.T) {
	tests := []struct {
		opName, opType, objType, objKey string
		want                            string
	}{
		{"create", "success", "collection", "/docs/a/", "create/success/collection/docs/a"},
		{"delete", "request", "user", "alice", "delete/request/user/alice"},
		{"create", "fail", "resource", "/x/#weird+name", "create/fail/resource/x/weirdname"},
		{"update", "success", "group", "", "update/success/group"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Topic(tt.opName, tt.opType, tt.objType, tt.objKey))
	}
}

func TestEmitValidEnvelope(t *testing.T) {
	ctx := context.Background()
	bus, _, pub := newTestBus()

	p := payload.New(payload.OpCreate, payload.TypeSuccess, payload.ObjCollection, map[string]any{
		"obj": map[string]any{"path": "/docs/a/"},
	}, testSender)

	record, err := bus.Emit(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "create", record.OpName)
	assert.Equal(t, "success", record.OpType)
	assert.Equal(t, "/docs/a/", record.ObjKey)
	assert.True(t, record.Processed)

	messages := pub.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "create/success/collection/docs/a", messages[0].Topic)
	assert.JSONEq(t, record.Payload, string(messages[0].Data))
}

func TestEmitInvalidRequestRewrapsWithVerdict(t *testing.T) {
	ctx := context.Background()
	bus, _, _ := newTestBus()

	// missing the required path field
	p := payload.New(payload.OpCreate, payload.TypeRequest, payload.ObjCollection, map[string]any{
		"obj": map[string]any{"name": "a/"},
	}, testSender)

	record, err := bus.Emit(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "fail", record.OpType)
	assert.Equal(t, payload.UnknownPath, record.ObjKey)
	assert.Contains(t, record.Payload, "path")
}

func TestEmitInvalidSuccessRewrapsWithFixedMessage(t *testing.T) {
	ctx := context.Background()
	bus, _, _ := newTestBus()

	tests := []struct {
		op   string
		want string
	}{
		{payload.OpCreate, MsgSuccessPayloadProblemCreate},
		{payload.OpUpdate, MsgSuccessPayloadProblemUpdate},
		{payload.OpDelete, MsgSuccessPayloadProblemDelete},
	}
	for _, tt := range tests {
		p := payload.New(tt.op, payload.TypeSuccess, payload.ObjGroup, map[string]any{
			"obj": map[string]any{"uuid": "g-1"},
		}, testSender)
		record, err := bus.Emit(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "fail", record.OpType, "op %s", tt.op)
		assert.Contains(t, record.Payload, tt.want)
	}
}

func TestPublishFailureClearsProcessed(t *testing.T) {
	ctx := context.Background()
	bus, events, pub := newTestBus()
	pub.FailWith(errors.New("broker down"))

	p := payload.New(payload.OpDelete, payload.TypeSuccess, payload.ObjResource, map[string]any{
		"obj": map[string]any{"path": "/docs/x"},
	}, testSender)

	record, err := bus.Emit(ctx, p)
	require.NoError(t, err)
	assert.False(t, record.Processed)

	stored, err := events.FindByReqID(ctx, record.ReqID)
	require.NoError(t, err)
	assert.False(t, stored.Processed)
}

func TestWaitForOutcome(t *testing.T) {
	ctx := context.Background()
	bus, _, _ := newTestBus()

	request := payload.New(payload.OpCreate, payload.TypeRequest, payload.ObjCollection, map[string]any{
		"obj": map[string]any{"path": "/docs/a/"},
	}, testSender)
	_, err := bus.Emit(ctx, request)
	require.NoError(t, err)
	reqID := request.ReqID()

	// only the request exists yet
	assert.Equal(t, OutcomeTimeout, bus.WaitForOutcome(ctx, reqID))

	success := payload.New(payload.OpCreate, payload.TypeSuccess, payload.ObjCollection, map[string]any{
		"obj":  map[string]any{"path": "/docs/a/"},
		"meta": map[string]any{"req_id": reqID},
	}, testSender)
	_, err = bus.Emit(ctx, success)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, bus.WaitForOutcome(ctx, reqID))

	fail := payload.New(payload.OpDelete, payload.TypeFail, payload.ObjCollection, map[string]any{
		"obj":  map[string]any{"path": "/docs/b/"},
		"meta": map[string]any{"req_id": "req-fail"},
	}, testSender)
	_, err = bus.Emit(ctx, fail)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFail, bus.WaitForOutcome(ctx, "req-fail"))

	assert.Equal(t, OutcomeTimeout, bus.WaitForOutcome(ctx, "never-seen"))
}

func TestRecent(t *testing.T) {
	ctx := context.Background()
	bus, _, _ := newTestBus()

	for _, path := range []string{"/a/", "/b/"} {
		p := payload.New(payload.OpCreate, payload.TypeSuccess, payload.ObjCollection, map[string]any{
			"obj": map[string]any{"path": path},
		}, testSender)
		_, err := bus.Emit(ctx, p)
		require.NoError(t, err)
	}

	records, err := bus.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
