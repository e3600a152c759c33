package loader

import (
	"sort"
	"strings"

	"github.com/nathoo/taleweaver/engine/resolve"
)

// fields is one authored object, from JSON or from a Lua table. Lookups
// take a list of accepted spellings: exact keys are tried first, then a
// caseless match.
type fields map[string]any

func asFields(v any) fields {
	if m, ok := v.(map[string]any); ok {
		return fields(m)
	}
	return nil
}

func (f fields) pick(keys ...string) (any, bool) {
	if f == nil {
		return nil, false
	}
	for _, k := range keys {
		if v, ok := f[k]; ok && v != nil {
			return v, true
		}
	}
	for _, k := range keys {
		for have, v := range f {
			if v != nil && strings.EqualFold(have, k) {
				return v, true
			}
		}
	}
	return nil, false
}

func (f fields) has(keys ...string) bool {
	_, ok := f.pick(keys...)
	return ok
}

// str renders scalars as text, so authors may write numbers where the
// runtime expects strings.
func (f fields) str(keys ...string) string {
	v, ok := f.pick(keys...)
	if !ok {
		return ""
	}
	switch v.(type) {
	case map[string]any, []any:
		return ""
	}
	return resolve.Format(v)
}

func (f fields) boolean(def bool, keys ...string) bool {
	v, ok := f.pick(keys...)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return def
	}
	return resolve.Truthy(v)
}

func (f fields) integer(keys ...string) (int, bool) {
	v, ok := f.pick(keys...)
	if !ok {
		return 0, false
	}
	if s, ok := v.(string); ok {
		v = resolve.CoerceLiteral(s)
	}
	n, ok := resolve.ToNumber(v)
	if !ok {
		return 0, false
	}
	return int(n), true
}

func (f fields) intOr(def int, keys ...string) int {
	if n, ok := f.integer(keys...); ok {
		return n
	}
	return def
}

func (f fields) intPtr(keys ...string) *int {
	if n, ok := f.integer(keys...); ok {
		return &n
	}
	return nil
}

// list accepts an array, a single object or a single scalar.
func (f fields) list(keys ...string) []any {
	v, ok := f.pick(keys...)
	if !ok {
		return nil
	}
	return asList(v)
}

func asList(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case map[string]any:
		if len(val) == 0 {
			return nil
		}
		return []any{val}
	case nil:
		return nil
	}
	return []any{v}
}

func (f fields) strings(keys ...string) []string {
	var out []string
	for _, v := range f.list(keys...) {
		if s := resolve.Format(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (f fields) object(keys ...string) fields {
	v, _ := f.pick(keys...)
	return asFields(v)
}

// text joins a string or a list of lines with newlines.
func (f fields) text(keys ...string) string {
	v, ok := f.pick(keys...)
	if !ok {
		return ""
	}
	if lines, ok := v.([]any); ok {
		parts := make([]string, 0, len(lines))
		for _, l := range lines {
			parts = append(parts, resolve.Format(l))
		}
		return strings.Join(parts, "\n")
	}
	return f.str(keys...)
}

// entry is one keyed object of a content section.
type entry struct {
	id     string
	fields fields
}

// entries reads a section written either as a list of objects that carry
// their own id or as an object keyed by id.
func entries(v any) []entry {
	switch val := v.(type) {
	case []any:
		out := make([]entry, 0, len(val))
		for _, item := range val {
			f := asFields(item)
			out = append(out, entry{id: f.str("id", "ID", "Id"), fields: f})
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entry, 0, len(keys))
		for _, k := range keys {
			f := asFields(val[k])
			id := k
			if own := f.str("id", "ID", "Id"); own != "" {
				id = own
			}
			out = append(out, entry{id: id, fields: f})
		}
		return out
	}
	return nil
}

// wholeNumbers turns integral float64 values into ints throughout a decoded
// JSON document, so JSON and Lua content produce the same Go values.
func wholeNumbers(v any) any {
	switch val := v.(type) {
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
		return val
	case []any:
		for i := range val {
			val[i] = wholeNumbers(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = wholeNumbers(val[k])
		}
		return val
	}
	return v
}
