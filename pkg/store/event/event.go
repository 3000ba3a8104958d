// Package event defines the persisted notification record and the store
// interface keeping the audit trail of every workflow outcome.
//
// Notifications partition by day bucket so recent activity is readable
// without scanning the full history, and index by request id so a caller
// that submitted an asynchronous request can poll for its outcome.
package event

import (
	"context"
	"errors"
	"time"
)

// RecentDays is how many day buckets a recent-activity query walks back.
const RecentDays = 5

// Notification is one persisted workflow event.
type Notification struct {
	// ID uniquely identifies the record. Assigned on append when empty
	ID string `json:"id"`

	// Date is the day bucket the record belongs to, in YYMMDD local time
	Date string `json:"date"`

	// When is the event timestamp. Records within a bucket order newest
	// first
	When time.Time `json:"when"`

	// OpName is the operation ("create", "update", "delete", ...)
	OpName string `json:"op_name"`

	// OpType is the phase ("request", "success", "fail")
	OpType string `json:"op_type"`

	// ObjType is the kind of object involved ("collection", "resource",
	// "user", "group")
	ObjType string `json:"obj_type"`

	// ObjKey identifies the object (path, login or group name)
	ObjKey string `json:"obj_key"`

	// Sender is who triggered the event
	Sender string `json:"sender"`

	// ReqID correlates the events of one workflow
	ReqID string `json:"req_id"`

	// Processed records whether the event was published to the message
	// broker. Cleared when publication fails, the record itself stays
	Processed bool `json:"processed"`

	// Payload is the full event document as JSON
	Payload string `json:"payload"`
}

// ErrNotFound is returned when no notification matches a query.
var ErrNotFound = errors.New("notification not found")

// DateBucket renders the day bucket of a timestamp.
func DateBucket(t time.Time) string {
	return t.Format("060102")
}

// Store persists notifications.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Append stores a new notification. An empty ID is assigned and an
	// empty Date is derived from When.
	Append(ctx context.Context, n *Notification) error

	// SetProcessed flips the processed flag of one record.
	SetProcessed(ctx context.Context, id string, processed bool) error

	// FindByReqID returns the newest notification carrying the request
	// id, or ErrNotFound.
	FindByReqID(ctx context.Context, reqID string) (*Notification, error)

	// Recent returns up to count notifications, newest first, looking
	// back RecentDays day buckets from now.
	Recent(ctx context.Context, count int) ([]*Notification, error)

	// Close releases backing resources.
	Close() error
}
