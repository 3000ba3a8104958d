// Package payload implements the typed event envelope exchanged through the
// notification workflow.
//
// An envelope is `{"obj": {...}, "meta": {"sender", "req_id", "msg"?}}`,
// classified by the triple (operation, phase, object type). Each triple
// carries a JSON schema naming its required object fields; validation never
// panics and reports the first violation as a plain message.
package payload

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Phases.
const (
	TypeRequest = "request"
	TypeSuccess = "success"
	TypeFail    = "fail"
)

// Object types.
const (
	ObjCollection = "collection"
	ObjResource   = "resource"
	ObjUser       = "user"
	ObjGroup      = "group"
)

// Default messages for fail envelopes built without one.
const (
	MsgCreateFailed = "Create failed"
	MsgUpdateFailed = "update Failed"
	MsgDeleteFailed = "Delete failed"
)

// Fallback object keys when the identifying field is absent.
const (
	UnknownPath   = "Unknown_path"
	UnknownUser   = "Unknown_user"
	UnknownGroup  = "Unknown_group"
	UnknownObject = "Unknown_Object"
)

// Payload is one event envelope. The document is kept as a generic map so
// inbound envelopes survive round trips unchanged; typed access goes
// through Bind.
type Payload struct {
	opName  string
	opType  string
	objType string
	doc     map[string]any
}

// New builds an envelope around a document, filling in the meta defaults: a
// missing sender becomes defaultSender and a missing req_id gets a fresh
// identifier. Fail envelopes with no message get the default message of
// their operation.
func New(opName, opType, objType string, doc map[string]any, defaultSender string) *Payload {
	if doc == nil {
		doc = make(map[string]any)
	}
	meta, ok := doc["meta"].(map[string]any)
	if !ok {
		meta = make(map[string]any)
		doc["meta"] = meta
	}
	if s, _ := meta["sender"].(string); s == "" {
		meta["sender"] = defaultSender
	}
	if r, _ := meta["req_id"].(string); r == "" {
		meta["req_id"] = uuid.New().String()
	}
	if opType == TypeFail {
		if m, _ := meta["msg"].(string); m == "" {
			meta["msg"] = defaultFailMessage(opName)
		}
	}
	return &Payload{opName: opName, opType: opType, objType: objType, doc: doc}
}

func defaultFailMessage(opName string) string {
	switch opName {
	case OpCreate:
		return MsgCreateFailed
	case OpUpdate:
		return MsgUpdateFailed
	case OpDelete:
		return MsgDeleteFailed
	}
	return ""
}

// NewDefaultFail builds a minimal fail envelope carrying only the object
// key and a message.
func NewDefaultFail(opName, objType, key, msg, sender string) *Payload {
	doc := map[string]any{
		"obj": map[string]any{keyField(objType): key},
		"meta": map[string]any{
			"sender": sender,
			"msg":    msg,
		},
	}
	return New(opName, TypeFail, objType, doc, sender)
}

// NewDefaultDeleteRequest builds a minimal delete-request envelope carrying
// only the object key.
func NewDefaultDeleteRequest(objType, key, sender string) *Payload {
	doc := map[string]any{
		"obj":  map[string]any{keyField(objType): key},
		"meta": map[string]any{"sender": sender},
	}
	return New(OpDelete, TypeRequest, objType, doc, sender)
}

// keyField names the object field identifying each object type.
func keyField(objType string) string {
	switch objType {
	case ObjUser:
		return "login"
	case ObjGroup:
		return "name"
	default:
		return "path"
	}
}

// OpName returns the operation ("create", "update", "delete").
func (p *Payload) OpName() string { return p.opName }

// OpType returns the phase ("request", "success", "fail").
func (p *Payload) OpType() string { return p.opType }

// ObjType returns the object type.
func (p *Payload) ObjType() string { return p.objType }

// Is reports whether the envelope carries the given classification.
func (p *Payload) Is(opName, opType, objType string) bool {
	return p.opName == opName && p.opType == opType && p.objType == objType
}

// ObjectKey returns the identifying value of the object: path for
// collections and resources, login for users, name for groups. Missing
// fields fall back to the Unknown placeholders.
func (p *Payload) ObjectKey() string {
	switch p.objType {
	case ObjCollection, ObjResource:
		return p.stringAt("obj", "path", UnknownPath)
	case ObjUser:
		return p.stringAt("obj", "login", UnknownUser)
	case ObjGroup:
		return p.stringAt("obj", "name", UnknownGroup)
	}
	return UnknownObject
}

// Sender returns the meta sender.
func (p *Payload) Sender() string {
	return p.stringAt("meta", "sender", "")
}

// ReqID returns the correlation identifier.
func (p *Payload) ReqID() string {
	return p.stringAt("meta", "req_id", "")
}

// Msg returns the meta message, empty when unset.
func (p *Payload) Msg() string {
	return p.stringAt("meta", "msg", "")
}

// SetMsg stores the meta message.
func (p *Payload) SetMsg(msg string) {
	meta, ok := p.doc["meta"].(map[string]any)
	if !ok {
		meta = make(map[string]any)
		p.doc["meta"] = meta
	}
	meta["msg"] = msg
}

// SetReqID stores the correlation identifier, overriding the generated one.
func (p *Payload) SetReqID(reqID string) {
	meta, ok := p.doc["meta"].(map[string]any)
	if !ok {
		meta = make(map[string]any)
		p.doc["meta"] = meta
	}
	meta["req_id"] = reqID
}

// Document returns the underlying envelope document.
func (p *Payload) Document() map[string]any { return p.doc }

// JSON renders the envelope document.
func (p *Payload) JSON() string {
	data, err := json.Marshal(p.doc)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Bind decodes the object part of the envelope into a typed state struct
// (CollectionState, ResourceState, UserState, GroupState).
func (p *Payload) Bind(out any) error {
	obj, _ := p.doc["obj"].(map[string]any)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(obj)
}

func (p *Payload) stringAt(section, field, fallback string) string {
	m, ok := p.doc[section].(map[string]any)
	if !ok {
		return fallback
	}
	s, ok := m[field].(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}
