package principal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-data/radium/pkg/notification"
	notifmem "github.com/radium-data/radium/pkg/notification/memory"
	"github.com/radium-data/radium/pkg/principal"
	"github.com/radium-data/radium/pkg/principal/memory"
	eventmem "github.com/radium-data/radium/pkg/store/event/memory"
)

const testSender = "radium_lib"

type fixture struct {
	service *principal.Service
	events  *eventmem.MemoryEventStore
	pub     *notifmem.MemoryPublisher
}

func newFixture() *fixture {
	events := eventmem.NewMemoryEventStoreWithDefaults()
	pub := notifmem.NewMemoryPublisher()
	bus := notification.NewBus(events, pub, notification.BusConfig{
		Sender:          testSender,
		OutcomeAttempts: 1,
		OutcomeInterval: time.Millisecond,
	})
	store := memory.NewMemoryPrincipalStoreWithDefaults()
	// low bcrypt cost keeps the tests fast
	service := principal.NewService(store, bus, principal.BcryptHasher{Cost: 4}, testSender)
	return &fixture{service: service, events: events, pub: pub}
}

func (f *fixture) lastEvent(t *testing.T) (opName, opType, objType, objKey string) {
	t.Helper()
	records, err := f.events.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	r := records[0]
	return r.OpName, r.OpType, r.ObjType, r.ObjKey
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	user, err := f.service.CreateUser(ctx, principal.UserSpec{
		Login:    "alice",
		Password: "secret",
		Email:    "alice@example.org",
	}, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, user.UUID)
	assert.True(t, user.Active)
	assert.NotEqual(t, "secret", user.PasswordHash)

	opName, opType, objType, objKey := f.lastEvent(t)
	assert.Equal(t, "create", opName)
	assert.Equal(t, "success", opType)
	assert.Equal(t, "user", objType)
	assert.Equal(t, "alice", objKey)
}

func TestCreateUserConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateUser(ctx, principal.UserSpec{Login: "alice", Password: "x"}, "", "")
	require.NoError(t, err)

	_, err = f.service.CreateUser(ctx, principal.UserSpec{Login: "alice", Password: "y"}, "", "")
	assert.ErrorIs(t, err, principal.ErrAlreadyExists)

	_, opType, objType, _ := f.lastEvent(t)
	assert.Equal(t, "fail", opType)
	assert.Equal(t, "user", objType)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateUser(ctx, principal.UserSpec{Login: "alice", Password: "secret"}, "", "")
	require.NoError(t, err)

	user, ok := f.service.Authenticate(ctx, "alice", "secret")
	require.True(t, ok)
	assert.Equal(t, "alice", user.Login)

	_, ok = f.service.Authenticate(ctx, "alice", "wrong")
	assert.False(t, ok)
	_, ok = f.service.Authenticate(ctx, "nobody", "secret")
	assert.False(t, ok)

	// inactive accounts never authenticate
	inactive := false
	_, err = f.service.UpdateUser(ctx, "alice", principal.UserUpdate{Active: &inactive}, "", "")
	require.NoError(t, err)
	_, ok = f.service.Authenticate(ctx, "alice", "secret")
	assert.False(t, ok)
}

func TestUpdateUserEmitsOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateUser(ctx, principal.UserSpec{Login: "alice", Password: "x"}, "", "")
	require.NoError(t, err)
	before := len(f.pub.Messages())

	// no-op update
	_, err = f.service.UpdateUser(ctx, "alice", principal.UserUpdate{}, "", "")
	require.NoError(t, err)
	assert.Len(t, f.pub.Messages(), before)

	fullname := "Alice A."
	_, err = f.service.UpdateUser(ctx, "alice", principal.UserUpdate{Fullname: &fullname}, "", "")
	require.NoError(t, err)
	require.Len(t, f.pub.Messages(), before+1)

	opName, opType, _, _ := f.lastEvent(t)
	assert.Equal(t, "update", opName)
	assert.Equal(t, "success", opType)

	_, err = f.service.UpdateUser(ctx, "nobody", principal.UserUpdate{Fullname: &fullname}, "", "")
	assert.ErrorIs(t, err, principal.ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateUser(ctx, principal.UserSpec{Login: "alice", Password: "x"}, "", "")
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteUser(ctx, "alice", "admin", ""))
	user, err := f.service.FindUser(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, user)

	opName, opType, _, objKey := f.lastEvent(t)
	assert.Equal(t, "delete", opName)
	assert.Equal(t, "success", opType)
	assert.Equal(t, "alice", objKey)

	assert.ErrorIs(t, f.service.DeleteUser(ctx, "alice", "admin", ""), principal.ErrNotFound)
}

func TestGroupLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	group, err := f.service.CreateGroup(ctx, "grp1", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, group.UUID)

	_, err = f.service.CreateGroup(ctx, "grp1", "", "")
	assert.ErrorIs(t, err, principal.ErrAlreadyExists)

	resolved, ok := f.service.ResolveGroup("grp1")
	assert.True(t, ok)
	assert.Equal(t, "grp1", resolved)
	_, ok = f.service.ResolveGroup("ghost")
	assert.False(t, ok)
}

func TestAddAndRemoveUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateGroup(ctx, "grp1", "", "")
	require.NoError(t, err)
	for _, login := range []string{"alice", "bob"} {
		_, err = f.service.CreateUser(ctx, principal.UserSpec{Login: login, Password: "x"}, "", "")
		require.NoError(t, err)
	}

	added, notAdded, alreadyThere, err := f.service.AddUsersToGroup(ctx, "grp1", []string{"alice", "bob", "ghost"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, added)
	assert.Equal(t, []string{"ghost"}, notAdded)
	assert.Empty(t, alreadyThere)

	added, notAdded, alreadyThere, err = f.service.AddUsersToGroup(ctx, "grp1", []string{"alice"}, "")
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Empty(t, notAdded)
	assert.Equal(t, []string{"alice"}, alreadyThere)

	members, err := f.service.Members(ctx, "grp1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, members)

	removed, notThere, notExist, err := f.service.RemoveUsersFromGroup(ctx, "grp1", []string{"alice", "carol", "ghost"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, removed)
	assert.Empty(t, notThere)
	assert.Equal(t, []string{"carol", "ghost"}, notExist)

	_, _, _, err = f.service.AddUsersToGroup(ctx, "nogroup", []string{"alice"}, "")
	assert.ErrorIs(t, err, principal.ErrNotFound)
}

func TestDeleteGroupStripsMemberships(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateGroup(ctx, "grp1", "", "")
	require.NoError(t, err)
	_, err = f.service.CreateUser(ctx, principal.UserSpec{
		Login: "alice", Password: "x", Groups: []string{"grp1"},
	}, "", "")
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteGroup(ctx, "grp1", "admin", ""))

	user, err := f.service.FindUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, user.Groups)

	group, err := f.service.FindGroup(ctx, "grp1")
	require.NoError(t, err)
	assert.Nil(t, group)

	assert.ErrorIs(t, f.service.DeleteGroup(ctx, "grp1", "admin", ""), principal.ErrNotFound)
}
