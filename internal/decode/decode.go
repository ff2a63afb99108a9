// Package decode turns opaque JSON-encoded fields into typed values. Every
// failure degrades to the caller's fallback; nothing here returns an error.
package decode

import (
	"bytes"
	"encoding/json"
	"log/slog"
)

// Or decodes raw into a value of type T, returning fallback when raw is
// empty, "null", or not valid JSON for T.
func Or[T any](raw string, fallback T) T {
	return bytesOr([]byte(raw), fallback)
}

// Field decodes an API field that may hold either a JSON value inline or a
// JSON document encoded as a string (the API does both for extra_data).
func Field[T any](raw json.RawMessage, fallback T) T {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fallback
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			slog.Debug("decode: malformed string field", "error", err)
			return fallback
		}
		return Or(inner, fallback)
	}
	return bytesOr(trimmed, fallback)
}

func bytesOr[T any](raw []byte, fallback T) T {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fallback
	}
	var out T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		slog.Debug("decode: falling back to default", "error", err)
		return fallback
	}
	return out
}

// Ptr decodes raw into a new *T, returning nil on any failure.
func Ptr[T any](raw string) *T {
	return Or[*T](raw, nil)
}

// Encode marshals v into a JSON string.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
