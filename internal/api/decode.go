package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeList normalizes list endpoints that answer either with a bare
// JSON array or with an object wrapping the array under one of keys.
// Unknown wrappers, null and empty bodies yield an empty slice.
func decodeList[T any](raw json.RawMessage, keys ...string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decoding list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil

	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("decoding list wrapper: %w", err)
		}
		for _, key := range keys {
			inner, ok := wrapper[key]
			if !ok {
				continue
			}
			inner = bytes.TrimSpace(inner)
			if len(inner) == 0 || inner[0] != '[' {
				continue
			}
			return decodeList[T](inner)
		}
		return []T{}, nil

	default:
		return []T{}, nil
	}
}
