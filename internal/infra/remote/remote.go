// Package remote holds the shared per-user record stores: an in-memory
// store for single-process deployments and tests, and a PostgreSQL store
// that fans changes out with LISTEN/NOTIFY.
package remote

import (
	"encoding/json"
	"fmt"
	"maps"
)

// encodeFields marshals each field to its raw JSON form.
func encodeFields(fields map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(fields))
	for name, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", name, err)
		}
		out[name] = raw
	}
	return out, nil
}

func cloneFields(f map[string]json.RawMessage) map[string]json.RawMessage {
	out := maps.Clone(f)
	if out == nil {
		out = make(map[string]json.RawMessage)
	}
	return out
}
