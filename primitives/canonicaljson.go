package primitives

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalJSON serializes v as wire-canonical JSON: UTF-8, all object
// keys sorted recursively, minimal separators, no whitespace, arrays keep
// their order. Used for hashing and dictionary/proof canonicalization.
func CanonicalJSON(v any) ([]byte, error) {
	sorted, err := sortKeys(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sorted); err != nil {
		return nil, fmt.Errorf("primitives: canonical json encode: %w", err)
	}
	// json.Encoder always appends a trailing newline; the wire form has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// CanonicalJSONPretty serializes v as pretty-canonical JSON: sorted keys,
// two-space indent, trailing newline. Used for human-readable receipts
// and lineage artifacts.
func CanonicalJSONPretty(v any) ([]byte, error) {
	sorted, err := sortKeys(v)
	if err != nil {
		return nil, err
	}
	body, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("primitives: pretty json encode: %w", err)
	}
	return append(body, '\n'), nil
}

// sortKeys round-trips v through json.Marshal/Unmarshal into orderedMap-free
// generic values so that every nested map is re-emitted with sorted keys by
// Go's own encoding/json (which already sorts map[string]any keys). The
// explicit walk exists to normalize any input that came in as a struct or
// out-of-order map literal, matching canonicalize_pwof's recursive sort.
func sortKeys(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("primitives: marshal for canonicalization: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("primitives: unmarshal for canonicalization: %w", err)
	}
	return normalize(generic), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			out[k] = normalize(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
