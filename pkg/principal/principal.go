// Package principal holds the users and groups the access-control layer
// grants permissions to.
//
// Users carry a hashed password and the list of group names they belong
// to; groups are little more than a name, membership lives on the user
// side. Group names are what ACL entries reference.
package principal

import (
	"context"
	"errors"
	"time"
)

// User is one account.
type User struct {
	// UUID identifies the user across renames of nothing - logins are
	// immutable, the uuid is for external references
	UUID string `json:"uuid"`

	// Login is the primary key
	Login string `json:"login"`

	// PasswordHash is the hashed password, never the plain one
	PasswordHash string `json:"password"`

	Fullname string `json:"fullname,omitempty"`
	Email    string `json:"email,omitempty"`

	// Administrator short-circuits every permission check
	Administrator bool `json:"administrator"`

	// Active gates authentication; inactive users keep their record
	Active bool `json:"active"`

	// LDAP marks accounts whose password lives in an external directory
	LDAP bool `json:"ldap"`

	// Groups is the list of group names the user belongs to
	Groups []string `json:"groups,omitempty"`

	CreateTS time.Time `json:"create_ts"`
}

// IsMember reports whether the user belongs to the named group.
func (u *User) IsMember(group string) bool {
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Group is one named principal collection.
type Group struct {
	UUID     string    `json:"uuid"`
	Name     string    `json:"name"`
	CreateTS time.Time `json:"create_ts"`
}

// ErrNotFound is returned when no user or group matches a key.
var ErrNotFound = errors.New("principal not found")

// Store persists users and groups.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// PutUser upserts a user keyed by login.
	PutUser(ctx context.Context, u *User) error

	// GetUser returns a user by login, or ErrNotFound.
	GetUser(ctx context.Context, login string) (*User, error)

	// ListUsers returns all users ordered by login.
	ListUsers(ctx context.Context) ([]*User, error)

	// DeleteUser removes a user. Unknown logins are not an error.
	DeleteUser(ctx context.Context, login string) error

	// PutGroup upserts a group keyed by name.
	PutGroup(ctx context.Context, g *Group) error

	// GetGroup returns a group by name, or ErrNotFound.
	GetGroup(ctx context.Context, name string) (*Group, error)

	// ListGroups returns all groups ordered by name.
	ListGroups(ctx context.Context) ([]*Group, error)

	// DeleteGroup removes a group. Unknown names are not an error.
	DeleteGroup(ctx context.Context, name string) error

	// Close releases backing resources.
	Close() error
}
