package namespace

import (
	"encoding/json"
	"sort"
)

// Metadata values are persisted as JSON documents of the form {"json": v},
// which keeps rich values (lists, numbers, nested objects) inside plain
// string columns. Decoding tolerates values that were stored as bare
// strings.

// EncodeMeta renders one metadata value in its stored form.
func EncodeMeta(v any) string {
	data, err := json.Marshal(map[string]any{"json": v})
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodeMeta parses one stored metadata value. Bare strings decode to
// themselves; a JSON document without the wrapper key decodes to "".
func DecodeMeta(value string) any {
	var doc map[string]any
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return value
	}
	v, ok := doc["json"]
	if !ok {
		return ""
	}
	return v
}

// EncodeMetaMap converts inbound metadata to its stored form. Entries with
// an empty value are dropped rather than stored.
func EncodeMetaMap(metadata map[string]any) map[string]string {
	stored := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if emptyValue(v) {
			continue
		}
		stored[k] = EncodeMeta(v)
	}
	return stored
}

// DecodeMetaMap converts stored metadata back to plain values, dropping
// entries that decode to an empty value.
func DecodeMetaMap(stored map[string]string) map[string]any {
	metadata := make(map[string]any, len(stored))
	for k, v := range stored {
		decoded := DecodeMeta(v)
		if emptyValue(decoded) {
			continue
		}
		metadata[k] = decoded
	}
	return metadata
}

// MetaPair is one (key, value) row of a metadata listing.
type MetaPair struct {
	Key   string
	Value any
}

// MetadataToList flattens stored metadata into listing rows, ordered by
// key. List values produce one row per element. Keys present in vocab are
// replaced by their display name.
func MetadataToList(stored map[string]string, vocab map[string]string) []MetaPair {
	keys := make([]string, 0, len(stored))
	for k := range stored {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []MetaPair
	for _, k := range keys {
		decoded := DecodeMeta(stored[k])
		name := k
		if display, ok := vocab[k]; ok {
			name = display
		}
		if list, ok := decoded.([]any); ok {
			for _, el := range list {
				pairs = append(pairs, MetaPair{Key: name, Value: el})
			}
			continue
		}
		if emptyValue(decoded) {
			continue
		}
		pairs = append(pairs, MetaPair{Key: name, Value: decoded})
	}
	return pairs
}

func emptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func decodeMetaString(value string) string {
	if s, ok := DecodeMeta(value).(string); ok {
		return s
	}
	return ""
}
