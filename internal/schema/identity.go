package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// DomainIdentity separates definition hashes from any other hash we compute.
const DomainIdentity = "privacydb/schema/v1"

// IdentityHash computes the content-addressed identity of a definition.
//
// Format: SHA256(domain + 0x00 + canonical JSON). Table order and index order
// do not affect the hash; column order and primary-key order do, because
// both are observable on disk.
func (d Definition) IdentityHash() (string, error) {
	canonical, err := MarshalCanonical(d.canonicalTables())
	if err != nil {
		return "", fmt.Errorf("identity hash: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainIdentity))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CanonicalJSON renders tables deterministically, e.g. for golden snapshots.
func CanonicalJSON(tables []Table) ([]byte, error) {
	return MarshalCanonical(Definition{Tables: tables}.canonicalTables())
}

func (d Definition) canonicalTables() []any {
	tables := make([]Table, len(d.Tables))
	copy(tables, d.Tables)
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	out := make([]any, len(tables))
	for i, t := range tables {
		cols := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			col := map[string]any{
				"name":     c.Name,
				"type":     c.Type.Affinity(),
				"not_null": c.NotNull,
			}
			if c.Default != nil {
				col["default"] = *c.Default
			}
			cols[j] = col
		}

		indices := make([]Index, len(t.Indices))
		copy(indices, t.Indices)
		sort.Slice(indices, func(a, b int) bool { return indices[a].Name < indices[b].Name })
		idxs := make([]any, len(indices))
		for j, idx := range indices {
			idxs[j] = map[string]any{
				"name":    idx.Name,
				"columns": stringsToAny(idx.Columns),
				"unique":  idx.Unique,
			}
		}

		out[i] = map[string]any{
			"name":        t.Name,
			"columns":     cols,
			"primary_key": stringsToAny(t.PrimaryKey),
			"indices":     idxs,
		}
	}
	return out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// MarshalCanonical produces RFC 8785 style canonical JSON.
//
// Objects have sorted keys, strings are NFC normalized and not HTML escaped.
// Floats and null are rejected.
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalCanonicalString(k)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := MarshalCanonical(val[k])
			if err != nil {
				return nil, fmt.Errorf("value for key %q: %w", k, err)
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString encodes s after NFC normalization without HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
