// Package namespace implements the hierarchy of collections and resources:
// path resolution, creation conflict rules, recursive deletion, metadata
// and ACL updates, and content access for the three resource variants
// (stored, external reference, broken). Every mutation that changes
// persisted state emits exactly one event through the notification bus.
package namespace

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/acl"
	"github.com/radium-data/radium/pkg/notification"
	"github.com/radium-data/radium/pkg/payload"
	"github.com/radium-data/radium/pkg/store/blob"
	"github.com/radium-data/radium/pkg/store/node"
)

// Messages recorded on failed creations.
const (
	MsgParentMissing      = "Parent container doesn't exist"
	MsgResourceConflict   = "Conflict with a resource"
	MsgCollectionConflict = "Conflict with a collection"
)

// RootDisplayName is the name the root collection presents to callers; its
// stored row keeps the "." identity.
const RootDisplayName = "Home"

// Default option values.
const (
	DefaultScheme       = "radium:"
	DefaultMetaCreateTS = "radium_create_ts"
	DefaultMetaModifyTS = "radium_modify_ts"
	DefaultMetaMimetype = "radium_mimetype"
	DefaultMetaSize     = "radium_size"
	DefaultChunkSize    = 1048576
	DefaultSystemSender = "radium_lib"
)

// Options configures a namespace service.
type Options struct {
	// Scheme prefixes the URLs of resources whose content lives in the
	// blob store. Any other non-empty URL is an external reference.
	Scheme string

	// System-metadata key names.
	MetaCreateTS string
	MetaModifyTS string
	MetaMimetype string
	MetaSize     string

	// Vocab maps system-metadata keys to display names for listings.
	// When nil, a default vocabulary for the four system keys is built.
	Vocab map[string]string

	// ChunkSize is the chunk size in bytes used when streaming content
	// into the blob store and out of external references.
	ChunkSize int

	// Compress stores new content chunks compressed.
	Compress bool

	// SystemSender is the identity recorded when a mutation carries no
	// sender.
	SystemSender string

	// AuthGroup is the principal granted read access on the root
	// collection when it is first created.
	AuthGroup string

	// HTTPClient fetches external references. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

func (o *Options) applyDefaults() {
	if o.Scheme == "" {
		o.Scheme = DefaultScheme
	}
	if o.MetaCreateTS == "" {
		o.MetaCreateTS = DefaultMetaCreateTS
	}
	if o.MetaModifyTS == "" {
		o.MetaModifyTS = DefaultMetaModifyTS
	}
	if o.MetaMimetype == "" {
		o.MetaMimetype = DefaultMetaMimetype
	}
	if o.MetaSize == "" {
		o.MetaSize = DefaultMetaSize
	}
	if o.Vocab == nil {
		o.Vocab = map[string]string{
			o.MetaCreateTS: "Creation date",
			o.MetaModifyTS: "Modification date",
			o.MetaMimetype: "Mimetype",
			o.MetaSize:     "Size",
		}
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.SystemSender == "" {
		o.SystemSender = DefaultSystemSender
	}
	if o.AuthGroup == "" {
		o.AuthGroup = acl.PrincipalAuthenticated
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
}

// metaContext carries the configured system-metadata key names and the
// display vocabulary into the domain objects.
type metaContext struct {
	createTS string
	modifyTS string
	mimetype string
	size     string
	vocab    map[string]string
}

// Service implements the namespace operations over a node store, a blob
// store for resource content and the notification bus.
type Service struct {
	nodes    node.Store
	blobs    blob.Store
	bus      *notification.Bus
	resolver acl.GroupResolver
	opts     Options
	meta     metaContext
}

// NewService creates a namespace service. The resolver validates group
// names on inbound ACL changes; passing nil accepts only the reserved
// principal tokens.
func NewService(nodes node.Store, blobs blob.Store, bus *notification.Bus, resolver acl.GroupResolver, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		nodes:    nodes,
		blobs:    blobs,
		bus:      bus,
		resolver: resolver,
		opts:     opts,
		meta: metaContext{
			createTS: opts.MetaCreateTS,
			modifyTS: opts.MetaModifyTS,
			mimetype: opts.MetaMimetype,
			size:     opts.MetaSize,
			vocab:    opts.Vocab,
		},
	}
}

func (s *Service) orSystem(sender string) string {
	if sender == "" {
		return s.opts.SystemSender
	}
	return sender
}

func (s *Service) emit(ctx context.Context, p *payload.Payload) {
	if _, err := s.bus.Emit(ctx, p); err != nil {
		logger.Error("failed to record %s/%s/%s event: %v", p.OpName(), p.OpType(), p.ObjType(), err)
	}
}

func (s *Service) emitFail(ctx context.Context, opName, objType, key, msg, sender, reqID string) {
	p := payload.NewDefaultFail(opName, objType, key, msg, sender)
	if reqID != "" {
		p.SetReqID(reqID)
	}
	s.emit(ctx, p)
}

// metaDoc builds the meta part of an event envelope. The correlation
// identifier is carried through only when the caller supplied one.
func metaDoc(sender, reqID string) map[string]any {
	meta := map[string]any{"sender": sender}
	if reqID != "" {
		meta["req_id"] = reqID
	}
	return meta
}

// stampSysMeta writes the timestamp system metadata into sys, allocating it
// when nil. The creation timestamp is only written on creation.
func (s *Service) stampSysMeta(sys map[string]string, t time.Time, create bool) map[string]string {
	if sys == nil {
		sys = make(map[string]string)
	}
	ts := EncodeMeta(t.UTC().Format(time.RFC3339))
	if create {
		sys[s.meta.createTS] = ts
	}
	sys[s.meta.modifyTS] = ts
	return sys
}

// stateChanged compares two event-facing states. The modification
// timestamp moves on every write and never counts as an observable change
// on its own.
func (s *Service) stateChanged(pre, post map[string]any) bool {
	return !reflect.DeepEqual(stripSysKey(pre, s.meta.modifyTS), stripSysKey(post, s.meta.modifyTS))
}

func stripSysKey(state map[string]any, key string) map[string]any {
	sys, ok := state["sys_meta"].(map[string]any)
	if !ok {
		return state
	}
	cleanSys := make(map[string]any, len(sys))
	for k, v := range sys {
		if k != key {
			cleanSys[k] = v
		}
	}
	clean := make(map[string]any, len(state))
	for k, v := range state {
		clean[k] = v
	}
	clean["sys_meta"] = cleanSys
	return clean
}
