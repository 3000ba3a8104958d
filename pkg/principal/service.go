package principal

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/notification"
	"github.com/radium-data/radium/pkg/payload"
)

// ErrAlreadyExists is returned when creating a user or group whose key is
// taken. The corresponding fail event has already been emitted.
var ErrAlreadyExists = errors.New("principal already exists")

// Messages recorded on conflicting creations.
const (
	MsgUserExists  = "User already exists"
	MsgGroupExists = "Group already exists"
)

// UserSpec describes a user to create.
type UserSpec struct {
	Login         string
	Password      string
	Fullname      string
	Email         string
	Administrator bool

	// Active defaults to true when nil.
	Active *bool

	LDAP   bool
	Groups []string
}

// UserUpdate describes a partial user update; nil fields stay untouched.
type UserUpdate struct {
	Password      *string
	Fullname      *string
	Email         *string
	Administrator *bool
	Active        *bool
	LDAP          *bool
	Groups        *[]string
}

// Service implements the user and group workflows: persistence plus the
// create/update/delete events every mutation emits. It also resolves group
// names for the ACL layer.
type Service struct {
	store  Store
	bus    *notification.Bus
	hasher Hasher
	sender string
}

// NewService creates a principal service. systemSender is the identity
// used when a mutation carries no sender.
func NewService(store Store, bus *notification.Bus, hasher Hasher, systemSender string) *Service {
	return &Service{store: store, bus: bus, hasher: hasher, sender: systemSender}
}

// ============================================================================
// Users
// ============================================================================

// CreateUser creates a user and emits the create-success event. A taken
// login emits a create-fail event and returns ErrAlreadyExists.
func (s *Service) CreateUser(ctx context.Context, spec UserSpec, sender, reqID string) (*User, error) {
	sender = s.orSystem(sender)

	if _, err := s.store.GetUser(ctx, spec.Login); err == nil {
		s.emitFail(ctx, payload.OpCreate, spec.Login, MsgUserExists, sender, reqID)
		return nil, ErrAlreadyExists
	}

	hash, err := s.hasher.Hash(spec.Password)
	if err != nil {
		return nil, err
	}
	active := true
	if spec.Active != nil {
		active = *spec.Active
	}
	user := &User{
		UUID:          uuid.New().String(),
		Login:         spec.Login,
		PasswordHash:  hash,
		Fullname:      spec.Fullname,
		Email:         spec.Email,
		Administrator: spec.Administrator,
		Active:        active,
		LDAP:          spec.LDAP,
		Groups:        spec.Groups,
		CreateTS:      time.Now(),
	}
	if err := s.store.PutUser(ctx, user); err != nil {
		return nil, err
	}

	s.emit(ctx, payload.New(payload.OpCreate, payload.TypeSuccess, payload.ObjUser, map[string]any{
		"obj":  userState(user),
		"meta": metaDoc(sender, reqID),
	}, s.sender))
	return user, nil
}

// UpdateUser applies a partial update and emits an update-success event
// carrying the pre and post states, but only when something changed.
func (s *Service) UpdateUser(ctx context.Context, login string, update UserUpdate, sender, reqID string) (*User, error) {
	sender = s.orSystem(sender)

	user, err := s.store.GetUser(ctx, login)
	if err != nil {
		return nil, err
	}
	pre := userState(user)

	if update.Password != nil {
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if update.Fullname != nil {
		user.Fullname = *update.Fullname
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Administrator != nil {
		user.Administrator = *update.Administrator
	}
	if update.Active != nil {
		user.Active = *update.Active
	}
	if update.LDAP != nil {
		user.LDAP = *update.LDAP
	}
	if update.Groups != nil {
		user.Groups = *update.Groups
	}
	if err := s.store.PutUser(ctx, user); err != nil {
		return nil, err
	}

	post := userState(user)
	if !reflect.DeepEqual(pre, post) {
		s.emit(ctx, payload.New(payload.OpUpdate, payload.TypeSuccess, payload.ObjUser, map[string]any{
			"obj":  pre,
			"new":  post,
			"meta": metaDoc(sender, reqID),
		}, s.sender))
	}
	return user, nil
}

// DeleteUser removes a user and emits the delete-success event.
func (s *Service) DeleteUser(ctx context.Context, login string, sender, reqID string) error {
	sender = s.orSystem(sender)

	user, err := s.store.GetUser(ctx, login)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, login); err != nil {
		return err
	}

	s.emit(ctx, payload.New(payload.OpDelete, payload.TypeSuccess, payload.ObjUser, map[string]any{
		"obj":  userState(user),
		"meta": metaDoc(sender, reqID),
	}, s.sender))
	return nil
}

// FindUser returns a user, or nil when the login is unknown.
func (s *Service) FindUser(ctx context.Context, login string) (*User, error) {
	user, err := s.store.GetUser(ctx, login)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// Authenticate verifies a password against an active account. Accounts
// delegated to an external directory never authenticate here.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*User, bool) {
	user, err := s.store.GetUser(ctx, login)
	if err != nil {
		return nil, false
	}
	if !user.Active {
		return nil, false
	}
	if user.LDAP {
		logger.Warn("user %q delegates to an external directory, refusing local authentication", login)
		return nil, false
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, false
	}
	return user, true
}

// ============================================================================
// Groups
// ============================================================================

// CreateGroup creates a group and emits the create-success event. A taken
// name emits a create-fail event and returns ErrAlreadyExists.
func (s *Service) CreateGroup(ctx context.Context, name string, sender, reqID string) (*Group, error) {
	sender = s.orSystem(sender)

	if _, err := s.store.GetGroup(ctx, name); err == nil {
		p := payload.NewDefaultFail(payload.OpCreate, payload.ObjGroup, name, MsgGroupExists, sender)
		if reqID != "" {
			p.SetReqID(reqID)
		}
		s.emit(ctx, p)
		return nil, ErrAlreadyExists
	}

	group := &Group{
		UUID:     uuid.New().String(),
		Name:     name,
		CreateTS: time.Now(),
	}
	if err := s.store.PutGroup(ctx, group); err != nil {
		return nil, err
	}

	s.emit(ctx, payload.New(payload.OpCreate, payload.TypeSuccess, payload.ObjGroup, map[string]any{
		"obj":  groupState(group),
		"meta": metaDoc(sender, reqID),
	}, s.sender))
	return group, nil
}

// FindGroup returns a group, or nil when the name is unknown.
func (s *Service) FindGroup(ctx context.Context, name string) (*Group, error) {
	group, err := s.store.GetGroup(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return group, err
}

// AddUsersToGroup adds users to a group, reporting what happened per
// login: added, unknown logins, and logins already in the group. Every
// modified user emits its own update event.
func (s *Service) AddUsersToGroup(ctx context.Context, name string, logins []string, sender string) (added, notAdded, alreadyThere []string, err error) {
	if _, err := s.store.GetGroup(ctx, name); err != nil {
		return nil, nil, nil, err
	}
	for _, login := range logins {
		user, err := s.store.GetUser(ctx, login)
		if errors.Is(err, ErrNotFound) {
			notAdded = append(notAdded, login)
			continue
		}
		if err != nil {
			return nil, nil, nil, err
		}
		if user.IsMember(name) {
			alreadyThere = append(alreadyThere, login)
			continue
		}
		groups := append(user.Groups, name)
		if _, err := s.UpdateUser(ctx, login, UserUpdate{Groups: &groups}, sender, ""); err != nil {
			return nil, nil, nil, err
		}
		added = append(added, login)
	}
	return added, notAdded, alreadyThere, nil
}

// RemoveUsersFromGroup removes users from a group, reporting what happened
// per login: removed, logins not in the group, and unknown logins.
func (s *Service) RemoveUsersFromGroup(ctx context.Context, name string, logins []string, sender string) (removed, notThere, notExist []string, err error) {
	if _, err := s.store.GetGroup(ctx, name); err != nil {
		return nil, nil, nil, err
	}
	for _, login := range logins {
		user, err := s.store.GetUser(ctx, login)
		if errors.Is(err, ErrNotFound) {
			notExist = append(notExist, login)
			continue
		}
		if err != nil {
			return nil, nil, nil, err
		}
		if !user.IsMember(name) {
			notThere = append(notThere, login)
			continue
		}
		groups := make([]string, 0, len(user.Groups)-1)
		for _, g := range user.Groups {
			if g != name {
				groups = append(groups, g)
			}
		}
		if _, err := s.UpdateUser(ctx, login, UserUpdate{Groups: &groups}, sender, ""); err != nil {
			return nil, nil, nil, err
		}
		removed = append(removed, login)
	}
	return removed, notThere, notExist, nil
}

// DeleteGroup removes a group, strips it from every member's group list
// and emits the delete-success event.
func (s *Service) DeleteGroup(ctx context.Context, name string, sender, reqID string) error {
	sender = s.orSystem(sender)

	if _, err := s.store.GetGroup(ctx, name); err != nil {
		return err
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		if !user.IsMember(name) {
			continue
		}
		groups := make([]string, 0, len(user.Groups)-1)
		for _, g := range user.Groups {
			if g != name {
				groups = append(groups, g)
			}
		}
		user.Groups = groups
		if err := s.store.PutUser(ctx, user); err != nil {
			return err
		}
	}

	if err := s.store.DeleteGroup(ctx, name); err != nil {
		return err
	}
	s.emit(ctx, payload.New(payload.OpDelete, payload.TypeSuccess, payload.ObjGroup, map[string]any{
		"obj":  map[string]any{"name": name},
		"meta": metaDoc(sender, reqID),
	}, s.sender))
	return nil
}

// Members returns the logins of the active users belonging to a group.
func (s *Service) Members(ctx context.Context, name string) ([]string, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	var members []string
	for _, user := range users {
		if user.Active && user.IsMember(name) {
			members = append(members, user.Login)
		}
	}
	return members, nil
}

// ResolveGroup implements acl.GroupResolver: a group name resolves to
// itself when the group exists.
func (s *Service) ResolveGroup(name string) (string, bool) {
	if _, err := s.store.GetGroup(context.Background(), name); err != nil {
		return "", false
	}
	return name, true
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Service) orSystem(sender string) string {
	if sender == "" {
		return s.sender
	}
	return sender
}

func (s *Service) emit(ctx context.Context, p *payload.Payload) {
	if _, err := s.bus.Emit(ctx, p); err != nil {
		logger.Error("failed to record %s/%s/%s event: %v", p.OpName(), p.OpType(), p.ObjType(), err)
	}
}

func (s *Service) emitFail(ctx context.Context, opName, key, msg, sender, reqID string) {
	p := payload.NewDefaultFail(opName, payload.ObjUser, key, msg, sender)
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

// userState is the event-facing view of a user: everything but the secrets.
func userState(u *User) map[string]any {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	return map[string]any{
		"uuid":          u.UUID,
		"login":         u.Login,
		"fullname":      u.Fullname,
		"email":         u.Email,
		"active":        u.Active,
		"administrator": u.Administrator,
		"groups":        groups,
	}
}

// groupState is the event-facing view of a group. Memberships live on the
// users, so they travel in user events, not here.
func groupState(g *Group) map[string]any {
	return map[string]any{
		"uuid":      g.UUID,
		"name":      g.Name,
		"create_ts": g.CreateTS.Format(time.RFC3339),
	}
}
