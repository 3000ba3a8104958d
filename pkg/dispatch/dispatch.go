// Package dispatch is the validated command boundary. It accepts request
// envelopes, checks them against their schema, and invokes the matching
// namespace or principal operation, returning a uniform result. Success and
// fail events for the domain mutations are emitted inside the services; the
// dispatcher itself only emits fail events for envelopes that do not pass
// their schema. Envelopes of the wrong classification never reach the event
// log at all.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/metrics"
	"github.com/radium-data/radium/pkg/namespace"
	"github.com/radium-data/radium/pkg/notification"
	"github.com/radium-data/radium/pkg/payload"
	"github.com/radium-data/radium/pkg/principal"
	"github.com/radium-data/radium/pkg/store/node"
)

// Messages shared across entry points.
const (
	ErrPayloadClass = "Wrong payload class"
	MsgNoObject     = "Object definition not defined in payload"
)

// Result is the uniform outcome of one dispatched command.
type Result struct {
	OK      bool
	Entity  any
	Message string
}

// Dispatcher routes request envelopes to the namespace and principal
// services.
type Dispatcher struct {
	ns      *namespace.Service
	pr      *principal.Service
	bus     *notification.Bus
	metrics metrics.DispatchMetrics
}

// NewDispatcher creates a dispatcher over the two domain services. Passing
// nil metrics disables collection.
func NewDispatcher(ns *namespace.Service, pr *principal.Service, bus *notification.Bus, m metrics.DispatchMetrics) *Dispatcher {
	if m == nil {
		m = metrics.NewDispatchMetrics()
	}
	return &Dispatcher{ns: ns, pr: pr, bus: bus, metrics: m}
}

// Handle routes a request envelope to its entry point. Anything that is
// not a request of a known object type is rejected without side effects.
func (d *Dispatcher) Handle(ctx context.Context, p *payload.Payload) (res Result) {
	if p.OpType() != payload.TypeRequest {
		return Result{Message: ErrPayloadClass}
	}
	start := time.Now()
	defer func() { d.metrics.RecordCommand(p.OpName(), p.ObjType(), time.Since(start), res.OK) }()
	switch p.ObjType() {
	case payload.ObjCollection:
		switch p.OpName() {
		case payload.OpCreate:
			return d.CreateCollection(ctx, p)
		case payload.OpUpdate:
			return d.UpdateCollection(ctx, p)
		case payload.OpDelete:
			return d.DeleteCollection(ctx, p)
		}
	case payload.ObjResource:
		switch p.OpName() {
		case payload.OpCreate:
			return d.CreateResource(ctx, p)
		case payload.OpUpdate:
			return d.UpdateResource(ctx, p)
		case payload.OpDelete:
			return d.DeleteResource(ctx, p)
		}
	case payload.ObjUser:
		switch p.OpName() {
		case payload.OpCreate:
			return d.CreateUser(ctx, p)
		case payload.OpUpdate:
			return d.UpdateUser(ctx, p)
		case payload.OpDelete:
			return d.DeleteUser(ctx, p)
		}
	case payload.ObjGroup:
		switch p.OpName() {
		case payload.OpCreate:
			return d.CreateGroup(ctx, p)
		case payload.OpUpdate:
			return d.UpdateGroup(ctx, p)
		case payload.OpDelete:
			return d.DeleteGroup(ctx, p)
		}
	}
	return Result{Message: ErrPayloadClass}
}

// validate checks the envelope schema. A failing envelope is recorded as
// the corresponding fail event before the verdict is returned.
func (d *Dispatcher) validate(ctx context.Context, p *payload.Payload) (string, bool) {
	valid, msg := p.Validate()
	if valid {
		return "", true
	}
	fail := payload.NewDefaultFail(p.OpName(), p.ObjType(), p.ObjectKey(), msg, p.Sender())
	if reqID := p.ReqID(); reqID != "" {
		fail.SetReqID(reqID)
	}
	if _, err := d.bus.Emit(ctx, fail); err != nil {
		logger.Error("failed to record %s/fail/%s event: %v", p.OpName(), p.ObjType(), err)
	}
	return msg, false
}

// ============================================================================
// Collections
// ============================================================================

func (d *Dispatcher) CreateCollection(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpCreate, payload.TypeRequest, payload.ObjCollection) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.CollectionState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Path == "" {
		return Result{Message: MsgNoObject}
	}
	container, name := node.Split(state.Path)
	coll, err := d.ns.CreateCollection(ctx, namespace.CollectionCreate{
		Container: container,
		Name:      name,
		Metadata:  state.UserMeta,
		Sender:    p.Sender(),
		ReqID:     p.ReqID(),
	})
	if err != nil {
		return Result{Message: "Collection not created"}
	}
	return Result{OK: true, Entity: coll, Message: "Collection created"}
}

func (d *Dispatcher) UpdateCollection(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpUpdate, payload.TypeRequest, payload.ObjCollection) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.CollectionState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Path == "" {
		return Result{Message: MsgNoObject}
	}
	coll, err := d.ns.UpdateCollection(ctx, state.Path, namespace.CollectionUpdate{
		Metadata: state.UserMeta,
		Sender:   p.Sender(),
		ReqID:    p.ReqID(),
	})
	if node.IsNotFound(err) {
		return Result{Message: "Collection not found"}
	}
	if err != nil {
		return Result{Message: "Collection not updated"}
	}
	return Result{OK: true, Entity: coll, Message: "Collection updated"}
}

func (d *Dispatcher) DeleteCollection(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpDelete, payload.TypeRequest, payload.ObjCollection) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.CollectionState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Path == "" {
		return Result{Message: MsgNoObject}
	}
	coll, err := d.ns.FindCollection(ctx, state.Path, node.CurrentVersion)
	if err != nil {
		return Result{Message: "Collection not deleted"}
	}
	if coll == nil {
		return Result{Message: "Collection not found"}
	}
	if err := d.ns.DeleteCollection(ctx, state.Path, p.Sender(), p.ReqID()); err != nil {
		return Result{Message: "Collection not deleted"}
	}
	return Result{OK: true, Message: "Collection deleted"}
}

// ============================================================================
// Resources
// ============================================================================

func (d *Dispatcher) CreateResource(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpCreate, payload.TypeRequest, payload.ObjResource) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.ResourceState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Path == "" {
		return Result{Message: MsgNoObject}
	}
	container, name := node.Split(state.Path)
	resc, err := d.ns.CreateResource(ctx, namespace.ResourceCreate{
		Container: container,
		Name:      name,
		URL:       state.URL,
		Metadata:  state.UserMeta,
		Mimetype:  state.Mimetype,
		Size:      state.Size,
		Sender:    p.Sender(),
		ReqID:     p.ReqID(),
	})
	if err != nil {
		return Result{Message: "Resource not created"}
	}
	return Result{OK: true, Entity: resc, Message: "Resource created"}
}

func (d *Dispatcher) UpdateResource(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpUpdate, payload.TypeRequest, payload.ObjResource) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.ResourceState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Path == "" {
		return Result{Message: MsgNoObject}
	}
	resc, err := d.ns.UpdateResource(ctx, state.Path, namespace.ResourceUpdate{
		Metadata: state.UserMeta,
		Mimetype: state.Mimetype,
		URL:      state.URL,
		Sender:   p.Sender(),
		ReqID:    p.ReqID(),
	})
	if node.IsNotFound(err) {
		return Result{Message: "Resource not found"}
	}
	if err != nil {
		return Result{Message: "Resource not updated"}
	}
	return Result{OK: true, Entity: resc, Message: "Resource updated"}
}

func (d *Dispatcher) DeleteResource(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpDelete, payload.TypeRequest, payload.ObjResource) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.ResourceState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Path == "" {
		return Result{Message: MsgNoObject}
	}
	resc, err := d.ns.FindResource(ctx, state.Path, node.CurrentVersion)
	if err != nil {
		return Result{Message: "Resource not deleted"}
	}
	if resc == nil {
		return Result{Message: "Resource not found"}
	}
	if err := d.ns.DeleteResource(ctx, state.Path, p.Sender(), p.ReqID()); err != nil {
		return Result{Message: "Resource not deleted"}
	}
	return Result{OK: true, Message: "Resource deleted"}
}

// ============================================================================
// Users
// ============================================================================

func (d *Dispatcher) CreateUser(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpCreate, payload.TypeRequest, payload.ObjUser) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.UserState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Login == "" {
		return Result{Message: MsgNoObject}
	}
	spec := principal.UserSpec{
		Login:         state.Login,
		Password:      state.Password,
		Fullname:      state.Fullname,
		Email:         state.Email,
		Administrator: state.Administrator,
		LDAP:          state.LDAP,
		Groups:        state.Groups,
	}
	// an absent active field means active, not false
	if obj, ok := p.Document()["obj"].(map[string]any); ok {
		if v, ok := obj["active"].(bool); ok {
			spec.Active = &v
		}
	}
	user, err := d.pr.CreateUser(ctx, spec, p.Sender(), p.ReqID())
	if errors.Is(err, principal.ErrAlreadyExists) {
		return Result{Message: principal.MsgUserExists}
	}
	if err != nil {
		return Result{Message: "User not created"}
	}
	return Result{OK: true, Entity: user, Message: "User created"}
}

func (d *Dispatcher) UpdateUser(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpUpdate, payload.TypeRequest, payload.ObjUser) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.UserState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Login == "" {
		return Result{Message: MsgNoObject}
	}

	// only the fields present in the envelope are touched
	obj, _ := p.Document()["obj"].(map[string]any)
	update := principal.UserUpdate{}
	if v, ok := obj["password"].(string); ok {
		update.Password = &v
	}
	if v, ok := obj["fullname"].(string); ok {
		update.Fullname = &v
	}
	if v, ok := obj["email"].(string); ok {
		update.Email = &v
	}
	if v, ok := obj["administrator"].(bool); ok {
		update.Administrator = &v
	}
	if v, ok := obj["active"].(bool); ok {
		update.Active = &v
	}
	if v, ok := obj["ldap"].(bool); ok {
		update.LDAP = &v
	}
	if raw, ok := obj["groups"].([]any); ok {
		groups := make([]string, 0, len(raw))
		for _, g := range raw {
			if name, ok := g.(string); ok {
				groups = append(groups, name)
			}
		}
		update.Groups = &groups
	}

	user, err := d.pr.UpdateUser(ctx, state.Login, update, p.Sender(), p.ReqID())
	if errors.Is(err, principal.ErrNotFound) {
		return Result{Message: "User not found"}
	}
	if err != nil {
		return Result{Message: "User not updated"}
	}
	return Result{OK: true, Entity: user, Message: "User updated"}
}

func (d *Dispatcher) DeleteUser(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpDelete, payload.TypeRequest, payload.ObjUser) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.UserState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Login == "" {
		return Result{Message: MsgNoObject}
	}
	err := d.pr.DeleteUser(ctx, state.Login, p.Sender(), p.ReqID())
	if errors.Is(err, principal.ErrNotFound) {
		return Result{Message: "User not found"}
	}
	if err != nil {
		return Result{Message: "User not deleted"}
	}
	return Result{OK: true, Message: "User deleted"}
}

// ============================================================================
// Groups
// ============================================================================

func (d *Dispatcher) CreateGroup(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpCreate, payload.TypeRequest, payload.ObjGroup) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.GroupState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Name == "" {
		return Result{Message: MsgNoObject}
	}
	group, err := d.pr.CreateGroup(ctx, state.Name, p.Sender(), p.ReqID())
	if errors.Is(err, principal.ErrAlreadyExists) {
		return Result{Message: principal.MsgGroupExists}
	}
	if err != nil {
		return Result{Message: "Group not created"}
	}
	return Result{OK: true, Entity: group, Message: "Group created"}
}

// UpdateGroup resolves the group named in the envelope. Groups carry no
// mutable fields of their own; membership changes travel through user
// updates.
func (d *Dispatcher) UpdateGroup(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpUpdate, payload.TypeRequest, payload.ObjGroup) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.GroupState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Name == "" {
		return Result{Message: MsgNoObject}
	}
	group, err := d.pr.FindGroup(ctx, state.Name)
	if err != nil {
		return Result{Message: "Group not updated"}
	}
	if group == nil {
		return Result{Message: "Group not found"}
	}
	return Result{OK: true, Entity: group, Message: "Group updated"}
}

func (d *Dispatcher) DeleteGroup(ctx context.Context, p *payload.Payload) Result {
	if !p.Is(payload.OpDelete, payload.TypeRequest, payload.ObjGroup) {
		return Result{Message: ErrPayloadClass}
	}
	if msg, ok := d.validate(ctx, p); !ok {
		return Result{Message: msg}
	}
	var state payload.GroupState
	if err := p.Bind(&state); err != nil {
		return Result{Message: err.Error()}
	}
	if state.Name == "" {
		return Result{Message: MsgNoObject}
	}
	err := d.pr.DeleteGroup(ctx, state.Name, p.Sender(), p.ReqID())
	if errors.Is(err, principal.ErrNotFound) {
		return Result{Message: "Group not found"}
	}
	if err != nil {
		return Result{Message: "Group not deleted"}
	}
	return Result{OK: true, Message: "Group deleted"}
}
