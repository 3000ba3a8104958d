package namespace

import (
	"context"

	"github.com/radium-data/radium/pkg/acl"
	"github.com/radium-data/radium/pkg/store/node"
)

// Actions a principal may hold on a node.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
	ActionEdit   = "edit"
)

// Identity carries what the permission checks need to know about a caller.
type Identity struct {
	Administrator bool
	Groups        []string
}

// ActionSet is the set of actions granted to a caller on one node.
type ActionSet map[string]bool

// Has reports whether the set grants an action.
func (a ActionSet) Has(action string) bool {
	return a[action]
}

func allActions() ActionSet {
	return ActionSet{
		ActionRead:   true,
		ActionWrite:  true,
		ActionDelete: true,
		ActionEdit:   true,
	}
}

// CollectionActions returns the actions a caller may perform on a
// collection. Administrators hold every action. A collection without an
// ACL of its own delegates to its parent; an unset root grants nothing.
func (s *Service) CollectionActions(ctx context.Context, coll *Collection, who Identity) (ActionSet, error) {
	if who.Administrator {
		return allActions(), nil
	}
	return s.collectionActions(ctx, coll, who)
}

func (s *Service) collectionActions(ctx context.Context, coll *Collection, who Identity) (ActionSet, error) {
	if len(coll.node.ACL) == 0 {
		if coll.IsRoot {
			return ActionSet{}, nil
		}
		parent, err := s.FindCollection(ctx, coll.Container, node.CurrentVersion)
		if err != nil || parent == nil {
			return ActionSet{}, err
		}
		return s.collectionActions(ctx, parent, who)
	}
	return aclActions(coll.node.ACL, who, false), nil
}

// ResourceActions returns the actions a caller may perform on a resource.
// A resource without an ACL of its own delegates to its parent collection.
func (s *Service) ResourceActions(ctx context.Context, resc *Resource, who Identity) (ActionSet, error) {
	if who.Administrator {
		return allActions(), nil
	}
	if len(resc.node.ACL) == 0 {
		parent, err := s.FindCollection(ctx, resc.Container, node.CurrentVersion)
		if err != nil || parent == nil {
			return ActionSet{}, err
		}
		return s.collectionActions(ctx, parent, who)
	}
	return aclActions(resc.node.ACL, who, true), nil
}

// aclActions unions the grants of every principal the caller carries, the
// implicit authenticated token included.
func aclActions(entries map[string]acl.Ace, who Identity, isObject bool) ActionSet {
	principals := make([]string, 0, len(who.Groups)+1)
	principals = append(principals, who.Groups...)
	principals = append(principals, acl.PrincipalAuthenticated)

	actions := ActionSet{}
	for _, gid := range principals {
		ace, ok := entries[gid]
		if !ok {
			continue
		}
		switch acl.MaskToLevel(ace.ACEMask, isObject) {
		case acl.LevelRead:
			actions[ActionRead] = true
		case acl.LevelWrite:
			actions[ActionWrite] = true
			actions[ActionDelete] = true
			actions[ActionEdit] = true
		case acl.LevelReadWrite:
			actions[ActionRead] = true
			actions[ActionWrite] = true
			actions[ActionDelete] = true
			actions[ActionEdit] = true
		}
	}
	return actions
}
