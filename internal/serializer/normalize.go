package serializer

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

// ISOFormatter is implemented by date/time-like keys that render themselves
// as ISO 8601 strings.
type ISOFormatter interface {
	ISOFormat() string
}

// Normalize converts any value into a JSON-safe value. It never fails; values
// with no JSON form are rendered with fmt.Sprint. A pointer, map or slice met
// again while it is still being normalized is rendered with fmt.Sprint (maps
// and slices as their address), so self-referencing values terminate.
func Normalize(v any) any {
	var n normalizer
	return n.value(v)
}

// ref identifies a reference value currently on the normalization path.
type ref struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type normalizer struct {
	visiting map[ref]struct{}
}

// enter marks rv as being normalized. It reports false when rv is already on
// the path; otherwise the returned func must be called once rv is done.
func (n *normalizer) enter(rv reflect.Value) (func(), bool) {
	r := ref{ptr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		r.len = rv.Len()
	}
	if r.ptr == 0 {
		return func() {}, true
	}
	if _, seen := n.visiting[r]; seen {
		return nil, false
	}
	if n.visiting == nil {
		n.visiting = make(map[ref]struct{})
	}
	n.visiting[r] = struct{}{}
	return func() { delete(n.visiting, r) }, true
}

func (n *normalizer) value(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return t
	case float64:
		return normalizeFloat(t)
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return fmt.Sprint(t)
		}
		return t
	case []any:
		leave, ok := n.enter(reflect.ValueOf(t))
		if !ok {
			return fmt.Sprintf("%p", t)
		}
		defer leave()
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = n.value(item)
		}
		return out
	case map[string]any:
		leave, ok := n.enter(reflect.ValueOf(t))
		if !ok {
			return fmt.Sprintf("%p", t)
		}
		defer leave()
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = n.value(item)
		}
		return out
	case *Object:
		if t == nil {
			return nil
		}
		leave, ok := n.enter(reflect.ValueOf(t))
		if !ok {
			return fmt.Sprintf("%p", t)
		}
		defer leave()
		out := NewObject()
		for p := t.Oldest(); p != nil; p = p.Next() {
			out.Set(p.Key, n.value(p.Value))
		}
		return out
	case []byte:
		return string(t)
	}
	return n.reflectValue(reflect.ValueOf(v))
}

func normalizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprint(f)
	}
	return f
}

func (n *normalizer) reflectValue(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return nil
	}
	if rv.CanInterface() {
		if out, ok := normalizeMarshaler(rv.Interface()); ok {
			return out
		}
	}

	switch rv.Kind() {
	case reflect.Pointer:
		elem := rv.Elem()
		if elem.Kind() == reflect.Struct && len(structFields(elem.Type())) == 0 {
			// opaque handle: let fmt use String or Error when defined
			return fmt.Sprint(rv.Interface())
		}
		leave, ok := n.enter(rv)
		if !ok {
			return fmt.Sprint(rv.Interface())
		}
		defer leave()
		return n.value(elem.Interface())
	case reflect.Interface:
		return n.value(rv.Elem().Interface())
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return normalizeFloat(rv.Float())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes())
		}
		leave, ok := n.enter(rv)
		if !ok {
			return fmt.Sprintf("%p", rv.Interface())
		}
		defer leave()
		return n.elements(rv)
	case reflect.Array:
		return n.elements(rv)
	case reflect.Map:
		leave, ok := n.enter(rv)
		if !ok {
			return fmt.Sprintf("%p", rv.Interface())
		}
		defer leave()
		return n.mapValue(rv)
	case reflect.Struct:
		if obj, ok := n.structValue(rv); ok {
			return obj
		}
	}
	return fmt.Sprint(rv.Interface())
}

func (n *normalizer) elements(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = n.value(rv.Index(i).Interface())
	}
	return out
}

// normalizeMarshaler renders values that define their own JSON or text form.
func normalizeMarshaler(v any) (any, bool) {
	switch m := v.(type) {
	case json.Marshaler:
		data, err := m.MarshalJSON()
		if err != nil {
			return fmt.Sprint(v), true
		}
		decoded, err := DecodeJSON(data)
		if err != nil {
			return fmt.Sprint(v), true
		}
		return decoded, true
	case encoding.TextMarshaler:
		text, err := m.MarshalText()
		if err != nil {
			return fmt.Sprint(v), true
		}
		return string(text), true
	}
	return nil, false
}

func (n *normalizer) mapValue(rv reflect.Value) any {
	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, entry{key: StringifyKey(iter.Key().Interface()), value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	out := NewObject()
	for _, e := range entries {
		out.Set(e.key, n.value(e.value.Interface()))
	}
	return out
}

func (n *normalizer) structValue(rv reflect.Value) (*Object, bool) {
	fields := structFields(rv.Type())
	if len(fields) == 0 {
		return nil, false
	}
	out := NewObject()
	for _, f := range fields {
		fv, err := rv.FieldByIndexErr(f.index)
		if err != nil || !fv.CanInterface() {
			// promoted through a nil or unexported embedded struct
			continue
		}
		out.Set(f.name, n.value(fv.Interface()))
	}
	return out, true
}

// StringifyKey renders a map key as a string. Each conversion is tried in
// turn and the first that succeeds wins; fmt.Sprint is the final fallback.
func StringifyKey(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	if s, ok := isoKey(key); ok {
		return s
	}
	if s, ok := textKey(key); ok {
		return s
	}
	return fmt.Sprint(key)
}

func isoKey(key any) (string, bool) {
	switch k := key.(type) {
	case time.Time:
		return k.Format(time.RFC3339Nano), true
	case ISOFormatter:
		return k.ISOFormat(), true
	}
	return "", false
}

func textKey(key any) (string, bool) {
	m, ok := key.(encoding.TextMarshaler)
	if !ok {
		return "", false
	}
	text, err := m.MarshalText()
	if err != nil {
		return "", false
	}
	return string(text), true
}

type fieldInfo struct {
	name   string // emitted name: json tag, else Go name
	goName string
	index  []int
}

var fieldCache sync.Map // reflect.Type -> []fieldInfo

// structFields lists the exported fields of t (promoted fields included) in
// declaration order.
func structFields(t reflect.Type) []fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}
	var fields []fieldInfo
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		if f.Anonymous && isStructType(f.Type) {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" && !strings.Contains(tag, ",") {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields = append(fields, fieldInfo{name: name, goName: f.Name, index: f.Index})
	}
	fieldCache.Store(t, fields)
	return fields
}

func isStructType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
