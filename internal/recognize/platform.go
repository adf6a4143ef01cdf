package recognize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FieldKind tells which shape a streaming-platform field arrived in.
type FieldKind int

const (
	Absent FieldKind = iota
	String
	Object
)

// PlatformField is one of the companion platform entries of a response
// (spotify, apple_music, youtube). The service sends each of them either
// not at all, as a bare link, or as an object with the link under one of
// several keys.
type PlatformField struct {
	Kind   FieldKind
	Str    string
	Object map[string]any
}

func (f *PlatformField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = PlatformField{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = PlatformField{Kind: String, Str: s}
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*f = PlatformField{Kind: Object, Object: obj}
	default:
		// Numbers, booleans and arrays carry no link.
		*f = PlatformField{}
	}
	return nil
}

// Normalize returns the link carried by field. A string field is returned
// as-is; for an object the first key path (dot separated) that resolves to a
// non-empty string wins. Absent fields yield "".
func Normalize(field PlatformField, keys ...string) string {
	switch field.Kind {
	case String:
		return strings.TrimSpace(field.Str)
	case Object:
		for _, key := range keys {
			if s := lookupString(field.Object, key); s != "" {
				return s
			}
		}
	}
	return ""
}

// Lookup resolves a dotted path such as "album.images.0.url" inside an
// object field.
func (f PlatformField) Lookup(path string) string {
	if f.Kind != Object {
		return ""
	}
	return lookupString(f.Object, path)
}

func lookupString(obj map[string]any, path string) string {
	var cur any = obj
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[part]
		case []any:
			idx, ok := arrayIndex(part)
			if !ok || idx >= len(node) {
				return ""
			}
			cur = node[idx]
		default:
			return ""
		}
	}
	s, _ := cur.(string)
	return strings.TrimSpace(s)
}

func arrayIndex(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Key paths per platform, in order of preference.
var (
	spotifyKeys    = []string{"external_urls.spotify", "url", "link"}
	appleMusicKeys = []string{"url", "link"}
	youtubeKeys    = []string{"url", "link"}
)
