// Package notification implements the event workflow: every envelope is
// validated, persisted as a notification record, and published to the
// message broker.
//
// Emitting never fails the calling operation because of a broken broker:
// publish failures clear the record's processed flag and are logged, the
// record itself stays for the audit trail.
package notification

import (
	"context"
	"strings"
	"time"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/metrics"
	"github.com/radium-data/radium/pkg/payload"
	"github.com/radium-data/radium/pkg/store/event"
)

// Messages used when a success envelope fails validation and is rewrapped
// into a fail envelope.
const (
	MsgSuccessPayloadProblemCreate = "Object created but success message not valid"
	MsgSuccessPayloadProblemUpdate = "Object updated but success message not valid"
	MsgSuccessPayloadProblemDelete = "Object deleted but success message not valid"
)

// Outcome is the terminal status of a request/outcome correlation.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFail    Outcome = "FAIL"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// Publisher delivers a serialized envelope on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte) error
	Close() error
}

// BusConfig configures a Bus.
type BusConfig struct {
	// Sender is the system identity used for rewrapped envelopes.
	Sender string

	// OutcomeAttempts bounds the WaitForOutcome poll loop (default 5).
	OutcomeAttempts int

	// OutcomeInterval spaces the WaitForOutcome polls (default 1s).
	OutcomeInterval time.Duration

	// Metrics collects workflow metrics when set.
	Metrics metrics.NotificationMetrics
}

// Bus validates, persists and publishes event envelopes.
type Bus struct {
	events   event.Store
	pub      Publisher
	sender   string
	attempts int
	interval time.Duration
	metrics  metrics.NotificationMetrics
}

// NewBus creates a bus over an event store and a publisher.
func NewBus(events event.Store, pub Publisher, cfg BusConfig) *Bus {
	attempts := cfg.OutcomeAttempts
	if attempts == 0 {
		attempts = 5
	}
	interval := cfg.OutcomeInterval
	if interval == 0 {
		interval = time.Second
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNotificationMetrics()
	}
	return &Bus{
		events:   events,
		pub:      pub,
		sender:   cfg.Sender,
		attempts: attempts,
		interval: interval,
		metrics:  m,
	}
}

// Emit validates the envelope and records it. An invalid envelope is
// replaced by a minimal fail envelope of the same operation before
// recording: request and fail phases carry the validation verdict, success
// phases carry the fixed rewrap message so downstream consumers know the
// operation itself went through.
func (b *Bus) Emit(ctx context.Context, p *payload.Payload) (*event.Notification, error) {
	if ok, msg := p.Validate(); !ok {
		if p.OpType() == payload.TypeSuccess {
			msg = successProblemMessage(p.OpName())
		}
		logger.Warn("invalid %s/%s/%s envelope for %q: %s",
			p.OpName(), p.OpType(), p.ObjType(), p.ObjectKey(), msg)
		p = payload.NewDefaultFail(p.OpName(), p.ObjType(), p.ObjectKey(), msg, p.Sender())
	}
	return b.record(ctx, p)
}

func successProblemMessage(opName string) string {
	switch opName {
	case payload.OpUpdate:
		return MsgSuccessPayloadProblemUpdate
	case payload.OpDelete:
		return MsgSuccessPayloadProblemDelete
	default:
		return MsgSuccessPayloadProblemCreate
	}
}

// record persists the envelope as a notification and publishes it. The
// record is written processed=true first; a publish failure clears the flag
// but never removes the record.
func (b *Bus) record(ctx context.Context, p *payload.Payload) (*event.Notification, error) {
	record := &event.Notification{
		OpName:    p.OpName(),
		OpType:    p.OpType(),
		ObjType:   p.ObjType(),
		ObjKey:    p.ObjectKey(),
		Sender:    p.Sender(),
		ReqID:     p.ReqID(),
		Processed: true,
		Payload:   p.JSON(),
	}
	if err := b.events.Append(ctx, record); err != nil {
		return nil, err
	}
	b.metrics.RecordEvent(record.OpName, record.OpType, record.ObjType)

	topic := Topic(record.OpName, record.OpType, record.ObjType, record.ObjKey)
	logger.Info("publishing on topic %q", topic)
	start := time.Now()
	err := b.pub.Publish(ctx, topic, []byte(record.Payload))
	b.metrics.RecordPublish(time.Since(start), err)
	if err != nil {
		logger.Error("problem while publishing on topic %q: %v", topic, err)
		record.Processed = false
		if err := b.events.SetProcessed(ctx, record.ID, false); err != nil {
			logger.Error("failed to clear processed flag on %s: %v", record.ID, err)
		}
	}
	return record, nil
}

// Recent returns the latest recorded notifications.
func (b *Bus) Recent(ctx context.Context, count int) ([]*event.Notification, error) {
	return b.events.Recent(ctx, count)
}

// WaitForOutcome polls the request-id index for a terminal success or fail
// record. The loop is bounded; exhausting it yields OutcomeTimeout, which
// is also the cancellation signal for callers wrapping the wait with their
// own context deadline.
func (b *Bus) WaitForOutcome(ctx context.Context, reqID string) Outcome {
	for attempt := 0; attempt < b.attempts; attempt++ {
		record, err := b.events.FindByReqID(ctx, reqID)
		if err == nil {
			switch record.OpType {
			case payload.TypeSuccess:
				return OutcomeSuccess
			case payload.TypeFail:
				return OutcomeFail
			}
		}
		select {
		case <-ctx.Done():
			return OutcomeTimeout
		case <-time.After(b.interval):
		}
	}
	return OutcomeTimeout
}

// Topic builds the publish topic "op/type/obj/key". Empty segments
// collapse and the MQTT wildcard characters are stripped so an object name
// can never widen a subscription.
func Topic(opName, opType, objType, objKey string) string {
	joined := opName + "/" + opType + "/" + objType + "/" + objKey
	var parts []string
	for _, part := range strings.Split(joined, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	topic := strings.Join(parts, "/")
	topic = strings.ReplaceAll(topic, "#", "")
	return strings.ReplaceAll(topic, "+", "")
}
