package payload

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Envelope schemas
// ================
//
// One schema per object type names the fields its object part may carry
// and which of them identify the object. The object part rejects unknown
// fields; the meta part is shared. User creation requests additionally
// require the password, so users get a second, stricter schema for that
// one classification.

var fieldsMeta = map[string]any{
	"sender": map[string]any{"type": "string"},
	"msg":    map[string]any{"type": "string"},
	"req_id": map[string]any{"type": "string"},
}

var schemaMeta = map[string]any{
	"type":       "object",
	"properties": fieldsMeta,
}

var fieldsUser = map[string]any{
	"uuid":          map[string]any{"type": "string"},
	"login":         map[string]any{"type": "string"},
	"fullname":      map[string]any{"type": "string"},
	"password":      map[string]any{"type": "string"},
	"email":         map[string]any{"type": "string"},
	"administrator": map[string]any{"type": "boolean"},
	"active":        map[string]any{"type": "boolean"},
	"ldap":          map[string]any{"type": "boolean"},
	"groups": map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	},
}

var fieldsGroup = map[string]any{
	"uuid":      map[string]any{"type": "string"},
	"name":      map[string]any{"type": "string"},
	"create_ts": map[string]any{"type": "string"},
}

var fieldsCollection = map[string]any{
	"uuid":       map[string]any{"type": "string"},
	"container":  map[string]any{"type": "string"},
	"name":       map[string]any{"type": "string"},
	"path":       map[string]any{"type": "string"},
	"created":    map[string]any{"type": "string"},
	"user_meta":  map[string]any{"type": "object"},
	"sys_meta":   map[string]any{"type": "object"},
	"can_read":   map[string]any{"type": "boolean"},
	"can_write":  map[string]any{"type": "boolean"},
	"can_edit":   map[string]any{"type": "boolean"},
	"can_delete": map[string]any{"type": "boolean"},
}

var fieldsResource = map[string]any{
	"uuid":         map[string]any{"type": "string"},
	"container":    map[string]any{"type": "string"},
	"name":         map[string]any{"type": "string"},
	"path":         map[string]any{"type": "string"},
	"url":          map[string]any{"type": "string"},
	"is_reference": map[string]any{"type": "boolean"},
	"mimetype":     map[string]any{"type": "string"},
	"type":         map[string]any{"type": "string"},
	"size":         map[string]any{"type": "integer"},
	"created":      map[string]any{"type": "string"},
	"user_meta":    map[string]any{"type": "object"},
	"sys_meta":     map[string]any{"type": "object"},
	"can_read":     map[string]any{"type": "boolean"},
	"can_write":    map[string]any{"type": "boolean"},
	"can_edit":     map[string]any{"type": "boolean"},
	"can_delete":   map[string]any{"type": "boolean"},
}

// envelopeSchema assembles the envelope document schema around one object
// field set. requireObj makes the object part itself mandatory.
func envelopeSchema(fields map[string]any, required []string, requireObj bool) map[string]any {
	doc := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"obj": map[string]any{
				"type":                 "object",
				"properties":           fields,
				"required":             required,
				"additionalProperties": false,
			},
			"meta": schemaMeta,
		},
	}
	if requireObj {
		doc["required"] = []string{"obj"}
	}
	return doc
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

func compileSchemas() {
	docs := map[string]map[string]any{
		"collection":   envelopeSchema(fieldsCollection, []string{"path"}, false),
		"resource":     envelopeSchema(fieldsResource, []string{"path"}, false),
		"group":        envelopeSchema(fieldsGroup, []string{"name"}, false),
		"user":         envelopeSchema(fieldsUser, []string{"login"}, true),
		"user_request": envelopeSchema(fieldsUser, []string{"login", "password"}, true),
	}
	compiled = make(map[string]*gojsonschema.Schema, len(docs))
	for name, doc := range docs {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
		if err != nil {
			compileErr = fmt.Errorf("failed to compile %s schema: %w", name, err)
			return
		}
		compiled[name] = schema
	}
}

// schemaFor picks the schema of one envelope classification. User creation
// requests use the stricter variant requiring a password.
func schemaFor(opName, opType, objType string) string {
	if objType == ObjUser {
		if opName == OpCreate && opType == TypeRequest {
			return "user_request"
		}
		return "user"
	}
	return objType
}

// Validate checks the envelope document against the schema of its
// classification. It returns whether the document is valid and a
// human-readable verdict.
func (p *Payload) Validate() (bool, string) {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return false, compileErr.Error()
	}
	schema, ok := compiled[schemaFor(p.opName, p.opType, p.objType)]
	if !ok {
		return false, fmt.Sprintf("no schema for object type %q", p.objType)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(p.doc))
	if err != nil {
		return false, err.Error()
	}
	if !result.Valid() {
		return false, result.Errors()[0].String()
	}
	return true, "json is valid"
}
