package namespace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/radium-data/radium/pkg/acl"
	"github.com/radium-data/radium/pkg/payload"
	"github.com/radium-data/radium/pkg/store/blob"
	"github.com/radium-data/radium/pkg/store/node"
)

// ResourceKind tells where the content of a resource lives.
type ResourceKind int

const (
	// KindStored resources keep their content in the blob store.
	KindStored ResourceKind = iota

	// KindReference resources point at an external URL.
	KindReference

	// KindBroken resources have no URL at all.
	KindBroken
)

// Resource is a data object node of the hierarchy.
type Resource struct {
	node *node.TreeNode
	meta metaContext

	Kind      ResourceKind
	URL       string
	Container string
	Name      string
	Path      string
	UUID      string
}

func (s *Service) newResource(n *node.TreeNode) *Resource {
	kind := KindBroken
	if n.ObjectURL != "" {
		if strings.HasPrefix(n.ObjectURL, s.opts.Scheme) {
			kind = KindStored
		} else {
			kind = KindReference
		}
	}
	return &Resource{
		node:      n,
		meta:      s.meta,
		Kind:      kind,
		URL:       n.ObjectURL,
		Container: n.Container,
		Name:      n.Name,
		Path:      n.Path(),
		UUID:      n.UUID,
	}
}

// DisplayName returns the name shown on listings: external references get
// a "?" suffix, broken resources a "#".
func (r *Resource) DisplayName() string {
	switch r.Kind {
	case KindReference:
		return r.Name + "?"
	case KindBroken:
		return r.Name + "#"
	}
	return r.Name
}

// IsReference reports whether the content lives outside the blob store.
func (r *Resource) IsReference() bool {
	return r.Kind == KindReference
}

// Mimetype returns the stored mimetype, or "".
func (r *Resource) Mimetype() string {
	return r.node.SysMeta[r.meta.mimetype]
}

// CreateTS returns the creation timestamp from the system metadata.
func (r *Resource) CreateTS() string {
	return decodeMetaString(r.node.SysMeta[r.meta.createTS])
}

// ModifyTS returns the modification timestamp from the system metadata.
func (r *Resource) ModifyTS() string {
	return decodeMetaString(r.node.SysMeta[r.meta.modifyTS])
}

// Metadata returns the decoded user metadata.
func (r *Resource) Metadata() map[string]any {
	return DecodeMetaMap(r.node.UserMeta)
}

// SysMetadata returns the decoded system metadata.
func (r *Resource) SysMetadata() map[string]any {
	return DecodeMetaMap(r.node.SysMeta)
}

// UserMetaList returns the user metadata as listing rows.
func (r *Resource) UserMetaList() []MetaPair {
	return MetadataToList(r.node.UserMeta, nil)
}

// SysMetaList returns the system metadata as listing rows, keys mapped
// through the display vocabulary.
func (r *Resource) SysMetaList() []MetaPair {
	return MetadataToList(r.node.SysMeta, r.meta.vocab)
}

// ACL returns the access-control entries of the resource.
func (r *Resource) ACL() map[string]acl.Ace {
	return r.node.ACL
}

// ACLMetadata renders the ACL as the "cdmi_acl" metadata value.
func (r *Resource) ACLMetadata() map[string]any {
	return acl.SerializeMetadata(r.node.ACL, true)
}

// objectID extracts the blob object id from a stored resource URL.
func (s *Service) objectID(url string) string {
	return strings.TrimPrefix(url, s.opts.Scheme)
}

// ResourceSize returns the content size: the blob descriptor for stored
// resources, otherwise whatever the size system metadata says.
func (s *Service) ResourceSize(ctx context.Context, r *Resource) int64 {
	if r.Kind == KindStored {
		if obj, err := s.blobs.Find(ctx, s.objectID(r.URL)); err == nil {
			return obj.Size
		}
	}
	if v := r.node.SysMeta[r.meta.size]; v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			return size
		}
	}
	return 0
}

// resourceState is the event-facing view of a resource.
func (s *Service) resourceState(ctx context.Context, r *Resource) map[string]any {
	mimetype := r.Mimetype()
	display := mimetype
	if display == "" {
		display = "application/octet-stream"
	}
	return map[string]any{
		"uuid":         r.UUID,
		"container":    r.Container,
		"name":         r.DisplayName(),
		"path":         r.Path,
		"url":          r.URL,
		"is_reference": r.Kind == KindReference,
		"mimetype":     display,
		"type":         mimetype,
		"size":         s.ResourceSize(ctx, r),
		"created":      r.CreateTS(),
		"user_meta":    r.Metadata(),
		"sys_meta":     r.SysMetadata(),
	}
}

// ResourceCreate describes a resource to create.
type ResourceCreate struct {
	// Container is the parent collection path.
	Container string

	// Name is the resource name, without trailing "/".
	Name string

	// URL locates the content. Empty allocates a fresh stored-content
	// URL; any URL outside the configured scheme is an external
	// reference.
	URL string

	// Metadata is inbound user metadata, encoded before storage.
	Metadata map[string]any

	// Sender identifies who asked for the creation.
	Sender string

	// ReqID correlates the emitted events with the request that asked
	// for the creation.
	ReqID string

	// Mimetype and Size fill the corresponding system metadata when set.
	Mimetype string
	Size     int64

	// ReadAccess and WriteAccess are group names granted on the new
	// resource.
	ReadAccess  []string
	WriteAccess []string
}

// CreateResource creates a resource and emits the create-success event
// carrying its full state. An occupied path or a missing parent emits a
// create-fail event and returns a StoreError describing the conflict.
func (s *Service) CreateResource(ctx context.Context, req ResourceCreate) (*Resource, error) {
	container := req.Container
	if !strings.HasSuffix(container, "/") {
		container += "/"
	}
	path := node.Merge(container, req.Name)
	sender := s.orSystem(req.Sender)

	existing, err := s.FindResource(ctx, path, node.CurrentVersion)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.emitFail(ctx, payload.OpCreate, payload.ObjResource, path, MsgResourceConflict, sender, req.ReqID)
		return nil, &node.StoreError{Code: node.ErrAlreadyExists, Message: MsgResourceConflict, Path: path}
	}
	parent, err := s.FindCollection(ctx, container, node.CurrentVersion)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		s.emitFail(ctx, payload.OpCreate, payload.ObjResource, path, MsgParentMissing, sender, req.ReqID)
		return nil, &node.StoreError{Code: node.ErrNotFound, Message: MsgParentMissing, Path: path}
	}

	sysMeta := s.stampSysMeta(nil, time.Now(), true)
	if req.Mimetype != "" {
		sysMeta[s.meta.mimetype] = req.Mimetype
	}
	if req.Size > 0 {
		sysMeta[s.meta.size] = strconv.FormatInt(req.Size, 10)
	}
	url := req.URL
	if url == "" {
		url = s.opts.Scheme + NewObjectID()
	}

	n := &node.TreeNode{
		Container: container,
		Name:      req.Name,
		UUID:      NewObjectID(),
		IsObject:  true,
		ObjectURL: url,
		UserMeta:  EncodeMetaMap(req.Metadata),
		SysMeta:   sysMeta,
	}
	if err := s.nodes.Put(ctx, n); err != nil {
		return nil, err
	}
	if len(req.ReadAccess) > 0 || len(req.WriteAccess) > 0 {
		patch := acl.BuildPatch(req.ReadAccess, req.WriteAccess, true, s.resolver)
		if err := s.nodes.SetACL(ctx, n.Container, n.Name, n.Version, patch); err != nil {
			return nil, err
		}
		n.ACL = patch
	}

	created := s.newResource(n)
	s.emit(ctx, payload.New(payload.OpCreate, payload.TypeSuccess, payload.ObjResource, map[string]any{
		"obj":  s.resourceState(ctx, created),
		"meta": metaDoc(sender, req.ReqID),
	}, s.opts.SystemSender))
	return created, nil
}

// FindResource resolves a resource by path. A trailing "/" is dropped and
// "/" itself never names a resource. Returns nil without error when
// nothing is found, including when an explicit version is absent.
func (s *Service) FindResource(ctx context.Context, path string, version int) (*Resource, error) {
	if path == "/" {
		return nil, nil
	}
	path = strings.TrimSuffix(path, "/")
	container, name := node.Split(path)
	n, err := s.nodes.Get(ctx, container, name, version)
	if node.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.newResource(n), nil
}

// ResourceUpdate describes a partial resource update.
type ResourceUpdate struct {
	// Metadata replaces the user metadata when non-nil.
	Metadata map[string]any

	// Sender identifies who asked for the update.
	Sender string

	// ReqID correlates the emitted event with the request that asked
	// for the update.
	ReqID string

	// Mimetype replaces the mimetype system metadata when non-empty.
	Mimetype string

	// URL swaps the content location when non-empty.
	URL string

	// ReadAccess and WriteAccess merge group grants into the ACL.
	ReadAccess  []string
	WriteAccess []string

	// CDMIACL merges inbound CDMI entries into the ACL.
	CDMIACL []acl.CDMIAce
}

// UpdateResource applies an update and emits an update-success event
// carrying the pre and post states, but only when something changed.
func (s *Service) UpdateResource(ctx context.Context, path string, update ResourceUpdate) (*Resource, error) {
	resc, err := s.FindResource(ctx, path, node.CurrentVersion)
	if err != nil {
		return nil, err
	}
	if resc == nil {
		return nil, node.NotFound(path)
	}
	sender := s.orSystem(update.Sender)
	pre := s.resourceState(ctx, resc)

	n := resc.node
	if update.Metadata != nil {
		n.UserMeta = EncodeMetaMap(update.Metadata)
	}
	n.SysMeta = s.stampSysMeta(n.SysMeta, time.Now(), false)
	if update.Mimetype != "" {
		n.SysMeta[s.meta.mimetype] = update.Mimetype
	}
	if update.URL != "" {
		n.ObjectURL = update.URL
	}
	if err := s.nodes.Put(ctx, n); err != nil {
		return nil, err
	}
	if err := s.mergeACLPatches(ctx, n, true, update.ReadAccess, update.WriteAccess, update.CDMIACL); err != nil {
		return nil, err
	}

	refreshed, err := s.FindResource(ctx, path, node.CurrentVersion)
	if err != nil || refreshed == nil {
		return refreshed, err
	}
	post := s.resourceState(ctx, refreshed)
	if s.stateChanged(pre, post) {
		s.emit(ctx, payload.New(payload.OpUpdate, payload.TypeSuccess, payload.ObjResource, map[string]any{
			"obj":  pre,
			"new":  post,
			"meta": metaDoc(sender, update.ReqID),
		}, s.opts.SystemSender))
	}
	return refreshed, nil
}

// DeleteResource removes a resource, its stored content included, and
// emits the delete-success event. Deleting an absent path is a no-op.
func (s *Service) DeleteResource(ctx context.Context, path, sender, reqID string) error {
	resc, err := s.FindResource(ctx, path, node.CurrentVersion)
	if err != nil || resc == nil {
		return err
	}
	return s.deleteResource(ctx, resc, s.orSystem(sender), reqID)
}

func (s *Service) deleteResource(ctx context.Context, resc *Resource, sender, reqID string) error {
	// Capture the state while the blobs still exist.
	state := s.resourceState(ctx, resc)

	if resc.Kind == KindStored {
		if err := s.blobs.DeleteAll(ctx, s.objectID(resc.URL)); err != nil {
			return err
		}
	}
	if err := s.nodes.Delete(ctx, resc.node.Container, resc.node.Name); err != nil {
		return err
	}
	s.emit(ctx, payload.New(payload.OpDelete, payload.TypeSuccess, payload.ObjResource, map[string]any{
		"obj":  state,
		"meta": metaDoc(sender, reqID),
	}, s.opts.SystemSender))
	return nil
}

// Put streams content into a resource, chunk by chunk, and points the
// resource at the freshly written object. The previous content, if any, is
// left for garbage collection by deletion. External references refuse
// uploads.
func (s *Service) Put(ctx context.Context, resc *Resource, reader io.Reader) (*blob.Object, error) {
	if resc.Kind == KindReference {
		return nil, &node.StoreError{
			Code:    node.ErrInvalidArgument,
			Message: "cannot store content behind an external reference",
			Path:    resc.Path,
		}
	}

	buf := make([]byte, s.opts.ChunkSize)
	chunk, last, err := readChunk(reader, buf)
	if err != nil {
		return nil, err
	}
	obj, err := s.blobs.Create(ctx, chunk, s.opts.Compress)
	if err != nil {
		return nil, err
	}
	for !last {
		chunk, last, err = readChunk(reader, buf)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		obj, err = s.blobs.AppendChunk(ctx, obj.ID, chunk, s.opts.Compress)
		if err != nil {
			return nil, err
		}
	}

	n := resc.node
	n.ObjectURL = s.opts.Scheme + obj.ID
	n.SysMeta = s.stampSysMeta(n.SysMeta, time.Now(), false)
	n.SysMeta[s.meta.size] = strconv.FormatInt(obj.Size, 10)
	if err := s.nodes.Put(ctx, n); err != nil {
		return nil, err
	}
	resc.URL = n.ObjectURL
	resc.Kind = KindStored
	return obj, nil
}

// readChunk fills buf as far as the reader allows and reports whether the
// stream is exhausted.
func readChunk(reader io.Reader, buf []byte) ([]byte, bool, error) {
	n, err := io.ReadFull(reader, buf)
	switch {
	case err == nil:
		return buf[:n], false, nil
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return buf[:n], true, nil
	default:
		return nil, false, err
	}
}

// Content streams the content of a resource in order, calling fn once per
// chunk. Stored resources read from the blob store, external references
// are fetched over HTTP, broken resources yield nothing.
func (s *Service) Content(ctx context.Context, resc *Resource, fn func(data []byte) error) error {
	switch resc.Kind {
	case KindStored:
		return s.blobs.Chunks(ctx, s.objectID(resc.URL), fn)
	case KindReference:
		return s.fetchReference(ctx, resc.URL, fn)
	default:
		return nil
	}
}

func (s *Service) fetchReference(ctx context.Context, url string, fn func(data []byte) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s: unexpected status %s", url, resp.Status)
	}

	buf := make([]byte, s.opts.ChunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if err := fn(buf[:n]); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", url, err)
		}
	}
}
