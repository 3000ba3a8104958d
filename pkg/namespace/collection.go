package namespace

import (
	"context"
	"strings"
	"time"

	"github.com/radium-data/radium/pkg/acl"
	"github.com/radium-data/radium/pkg/payload"
	"github.com/radium-data/radium/pkg/store/node"
)

// Collection is a container node of the hierarchy. Collection paths and
// names carry a trailing "/", except the root which presents itself as "/"
// under the display name "Home".
type Collection struct {
	node *node.TreeNode
	meta metaContext

	IsRoot    bool
	Container string
	Name      string
	Path      string
	UUID      string
}

func (s *Service) newCollection(n *node.TreeNode) *Collection {
	c := &Collection{node: n, meta: s.meta, UUID: n.UUID}
	if n.IsRoot() {
		c.IsRoot = true
		c.Name = RootDisplayName
		c.Container = "/"
		c.Path = "/"
	} else {
		c.Name = n.Name
		c.Container = n.Container
		c.Path = n.Path()
	}
	return c
}

// CreateTS returns the creation timestamp from the system metadata.
func (c *Collection) CreateTS() string {
	return decodeMetaString(c.node.SysMeta[c.meta.createTS])
}

// ModifyTS returns the modification timestamp from the system metadata.
func (c *Collection) ModifyTS() string {
	return decodeMetaString(c.node.SysMeta[c.meta.modifyTS])
}

// Metadata returns the decoded user metadata.
func (c *Collection) Metadata() map[string]any {
	return DecodeMetaMap(c.node.UserMeta)
}

// SysMetadata returns the decoded system metadata.
func (c *Collection) SysMetadata() map[string]any {
	return DecodeMetaMap(c.node.SysMeta)
}

// UserMetaList returns the user metadata as listing rows.
func (c *Collection) UserMetaList() []MetaPair {
	return MetadataToList(c.node.UserMeta, nil)
}

// SysMetaList returns the system metadata as listing rows, keys mapped
// through the display vocabulary.
func (c *Collection) SysMetaList() []MetaPair {
	return MetadataToList(c.node.SysMeta, c.meta.vocab)
}

// ACL returns the access-control entries of the collection.
func (c *Collection) ACL() map[string]acl.Ace {
	return c.node.ACL
}

// ACLMetadata renders the ACL as the "cdmi_acl" metadata value.
func (c *Collection) ACLMetadata() map[string]any {
	return acl.SerializeMetadata(c.node.ACL, false)
}

// collectionState is the event-facing view of a collection.
func (s *Service) collectionState(c *Collection) map[string]any {
	return map[string]any{
		"uuid":      c.UUID,
		"container": c.Container,
		"name":      c.Name,
		"path":      c.Path,
		"created":   c.CreateTS(),
		"user_meta": c.Metadata(),
		"sys_meta":  c.SysMetadata(),
	}
}

// CollectionCreate describes a collection to create.
type CollectionCreate struct {
	// Container is the parent collection path.
	Container string

	// Name is the collection name; a missing trailing "/" is added.
	Name string

	// Metadata is inbound user metadata, encoded before storage.
	Metadata map[string]any

	// Sender identifies who asked for the creation.
	Sender string

	// ReqID correlates the emitted events with the request that asked
	// for the creation.
	ReqID string

	// ReadAccess and WriteAccess are group names granted on the new
	// collection.
	ReadAccess  []string
	WriteAccess []string
}

// CreateCollection creates a collection and emits the create-success event
// carrying its full state. A missing parent or an occupied path emits a
// create-fail event and returns a StoreError describing the conflict.
func (s *Service) CreateCollection(ctx context.Context, req CollectionCreate) (*Collection, error) {
	name := req.Name
	if !strings.HasSuffix(name, "/") {
		name += "/"
	}
	container := req.Container
	if !strings.HasSuffix(container, "/") {
		container += "/"
	}
	path := node.Merge(container, name)
	sender := s.orSystem(req.Sender)

	parent, err := s.FindCollection(ctx, container, node.CurrentVersion)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		s.emitFail(ctx, payload.OpCreate, payload.ObjCollection, path, MsgParentMissing, sender, req.ReqID)
		return nil, &node.StoreError{Code: node.ErrNotFound, Message: MsgParentMissing, Path: path}
	}
	resource, err := s.FindResource(ctx, path, node.CurrentVersion)
	if err != nil {
		return nil, err
	}
	if resource != nil {
		s.emitFail(ctx, payload.OpCreate, payload.ObjCollection, path, MsgResourceConflict, sender, req.ReqID)
		return nil, &node.StoreError{Code: node.ErrAlreadyExists, Message: MsgResourceConflict, Path: path}
	}
	existing, err := s.FindCollection(ctx, path, node.CurrentVersion)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.emitFail(ctx, payload.OpCreate, payload.ObjCollection, path, MsgCollectionConflict, sender, req.ReqID)
		return nil, &node.StoreError{Code: node.ErrAlreadyExists, Message: MsgCollectionConflict, Path: path}
	}

	n := &node.TreeNode{
		Container: container,
		Name:      name,
		UUID:      NewObjectID(),
		UserMeta:  EncodeMetaMap(req.Metadata),
		SysMeta:   s.stampSysMeta(nil, time.Now(), true),
	}
	if err := s.nodes.Put(ctx, n); err != nil {
		return nil, err
	}
	if len(req.ReadAccess) > 0 || len(req.WriteAccess) > 0 {
		patch := acl.BuildPatch(req.ReadAccess, req.WriteAccess, false, s.resolver)
		if err := s.nodes.SetACL(ctx, n.Container, n.Name, n.Version, patch); err != nil {
			return nil, err
		}
		n.ACL = patch
	}

	created := s.newCollection(n)
	s.emit(ctx, payload.New(payload.OpCreate, payload.TypeSuccess, payload.ObjCollection, map[string]any{
		"obj":  s.collectionState(created),
		"meta": metaDoc(sender, req.ReqID),
	}, s.opts.SystemSender))
	return created, nil
}

// FindCollection resolves a collection by path. Paths without a trailing
// "/" never name a collection. Returns nil without error when nothing is
// found, including when an explicit version is absent.
func (s *Service) FindCollection(ctx context.Context, path string, version int) (*Collection, error) {
	if !strings.HasSuffix(path, "/") {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	container, name := node.Split(path)
	n, err := s.nodes.Get(ctx, container, name, version)
	if node.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.newCollection(n), nil
}

// GetRoot returns the root collection, creating it on first use with a
// default ACL granting read access to the authenticated group.
func (s *Service) GetRoot(ctx context.Context) (*Collection, error) {
	root, err := s.FindCollection(ctx, "/", node.CurrentVersion)
	if err != nil || root != nil {
		return root, err
	}
	return s.createRoot(ctx)
}

func (s *Service) createRoot(ctx context.Context) (*Collection, error) {
	n := &node.TreeNode{
		Container: node.RootContainer,
		Name:      node.RootName,
		UUID:      NewObjectID(),
		SysMeta:   s.stampSysMeta(nil, time.Now(), true),
		ACL:       acl.BuildPatch([]string{s.opts.AuthGroup}, nil, false, s.resolver),
	}
	if err := s.nodes.Put(ctx, n); err != nil {
		return nil, err
	}
	return s.newCollection(n), nil
}

// DeleteCollection removes a collection and everything below it, children
// first. Deleting the root or an absent path is a no-op.
func (s *Service) DeleteCollection(ctx context.Context, path, sender, reqID string) error {
	coll, err := s.FindCollection(ctx, path, node.CurrentVersion)
	if err != nil || coll == nil {
		return err
	}
	return s.deleteCollection(ctx, coll, s.orSystem(sender), reqID)
}

func (s *Service) deleteCollection(ctx context.Context, coll *Collection, sender, reqID string) error {
	if coll.IsRoot {
		return nil
	}

	// Child names without variant suffixes, or the lookups would miss.
	subcolls, subobjs, err := s.GetChild(ctx, coll, false)
	if err != nil {
		return err
	}
	for _, child := range subcolls {
		sub, err := s.FindCollection(ctx, coll.Path+child, node.CurrentVersion)
		if err != nil {
			return err
		}
		if sub != nil {
			if err := s.deleteCollection(ctx, sub, sender, reqID); err != nil {
				return err
			}
		}
	}
	for _, child := range subobjs {
		sub, err := s.FindResource(ctx, coll.Path+child, node.CurrentVersion)
		if err != nil {
			return err
		}
		if sub != nil {
			if err := s.deleteResource(ctx, sub, sender, reqID); err != nil {
				return err
			}
		}
	}

	if err := s.nodes.Delete(ctx, coll.node.Container, coll.node.Name); err != nil {
		return err
	}
	s.emit(ctx, payload.New(payload.OpDelete, payload.TypeSuccess, payload.ObjCollection, map[string]any{
		"obj":  map[string]any{"path": coll.Path},
		"meta": metaDoc(sender, reqID),
	}, s.opts.SystemSender))
	return nil
}

// CollectionUpdate describes a partial collection update.
type CollectionUpdate struct {
	// Metadata replaces the user metadata when non-nil.
	Metadata map[string]any

	// Sender identifies who asked for the update.
	Sender string

	// ReqID correlates the emitted event with the request that asked
	// for the update.
	ReqID string

	// ReadAccess and WriteAccess merge group grants into the ACL.
	ReadAccess  []string
	WriteAccess []string

	// CDMIACL merges inbound CDMI entries into the ACL.
	CDMIACL []acl.CDMIAce
}

// UpdateCollection applies an update and emits an update-success event
// carrying the pre and post states, but only when something changed.
func (s *Service) UpdateCollection(ctx context.Context, path string, update CollectionUpdate) (*Collection, error) {
	coll, err := s.FindCollection(ctx, path, node.CurrentVersion)
	if err != nil {
		return nil, err
	}
	if coll == nil {
		return nil, node.NotFound(path)
	}
	sender := s.orSystem(update.Sender)
	pre := s.collectionState(coll)

	n := coll.node
	if update.Metadata != nil {
		n.UserMeta = EncodeMetaMap(update.Metadata)
	}
	n.SysMeta = s.stampSysMeta(n.SysMeta, time.Now(), false)
	if err := s.nodes.Put(ctx, n); err != nil {
		return nil, err
	}
	if err := s.mergeACLPatches(ctx, n, false, update.ReadAccess, update.WriteAccess, update.CDMIACL); err != nil {
		return nil, err
	}

	refreshed, err := s.FindCollection(ctx, path, node.CurrentVersion)
	if err != nil || refreshed == nil {
		return refreshed, err
	}
	post := s.collectionState(refreshed)
	if s.stateChanged(pre, post) {
		s.emit(ctx, payload.New(payload.OpUpdate, payload.TypeSuccess, payload.ObjCollection, map[string]any{
			"obj":  pre,
			"new":  post,
			"meta": metaDoc(sender, update.ReqID),
		}, s.opts.SystemSender))
	}
	return refreshed, nil
}

// mergeACLPatches merges group-list and CDMI ACL changes into a node.
func (s *Service) mergeACLPatches(ctx context.Context, n *node.TreeNode, isObject bool, readAccess, writeAccess []string, cdmi []acl.CDMIAce) error {
	if len(readAccess) > 0 || len(writeAccess) > 0 {
		patch := acl.BuildPatch(readAccess, writeAccess, isObject, s.resolver)
		if err := s.nodes.MergeACL(ctx, n.Container, n.Name, n.Version, patch); err != nil {
			return err
		}
	}
	if len(cdmi) > 0 {
		patch := acl.BuildPatchFromCDMI(cdmi, s.resolver)
		if err := s.nodes.MergeACL(ctx, n.Container, n.Name, n.Version, patch); err != nil {
			return err
		}
	}
	return nil
}

// GetChild lists the direct children of a collection: sub-collection names
// (with their trailing "/") and data object names, each version counted
// once. With markVariants set, object names get a "?" suffix for external
// references and "#" for broken resources.
func (s *Service) GetChild(ctx context.Context, coll *Collection, markVariants bool) (collections, objects []string, err error) {
	rows, err := s.nodes.List(ctx, coll.Path)
	if err != nil {
		return nil, nil, err
	}
	seenColl := make(map[string]bool)
	seenObj := make(map[string]bool)
	for _, row := range rows {
		if row.Name == node.RootName {
			continue
		}
		if strings.HasSuffix(row.Name, "/") {
			if !seenColl[row.Name] {
				seenColl[row.Name] = true
				collections = append(collections, row.Name)
			}
			continue
		}
		name := row.Name
		if markVariants {
			if row.ObjectURL == "" {
				name += "#"
			} else if !strings.HasPrefix(row.ObjectURL, s.opts.Scheme) {
				name += "?"
			}
		}
		if !seenObj[name] {
			seenObj[name] = true
			objects = append(objects, name)
		}
	}
	return collections, objects, nil
}
