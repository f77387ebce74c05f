package serializer

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// Compile builds a Serializer from a raw serializer configuration such as
// {"fields": {...}}. An empty or nil configuration compiles to nil, which
// serializes by plain normalization.
func Compile(raw any) (*Serializer, error) {
	if !truthy(raw) {
		return nil, nil
	}
	m, ok := asMapping(raw)
	if !ok {
		return nil, fmt.Errorf("%w: serializer must be an object, got %T", ErrInvalidSpec, raw)
	}
	s := &Serializer{}
	if fields, ok := m.Get("fields"); ok {
		spec, err := compileProjection(fields)
		if err != nil {
			return nil, fmt.Errorf("fields: %w", err)
		}
		s.Fields = spec
	}
	return s, nil
}

// CompileRegistry compiles every named serializer.
func CompileRegistry(raws map[string]any) (Registry, error) {
	reg := make(Registry, len(raws))
	for name, raw := range raws {
		s, err := Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("serializer %q: %w", name, err)
		}
		reg[name] = s
	}
	return reg, nil
}

// CompileSpec compiles one mapping value: a string field reference, an
// object with path/method/fields keys, or a literal.
func CompileSpec(raw any) (Spec, error) {
	if s, ok := raw.(string); ok {
		return fieldRef(s), nil
	}
	if m, ok := asMapping(raw); ok {
		return compileDict(m, raw)
	}
	return &Literal{Value: raw}, nil
}

// compileProjection compiles the value of a fields or item_fields key.
func compileProjection(raw any) (Spec, error) {
	if s, ok := raw.(string); ok {
		return fieldRef(s), nil
	}
	m, ok := asMapping(raw)
	if !ok {
		return &Identity{}, nil
	}
	mapping := &Mapping{Entries: make([]Entry, 0, m.Len())}
	for p := m.Oldest(); p != nil; p = p.Next() {
		spec, err := CompileSpec(p.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Key, err)
		}
		mapping.Entries = append(mapping.Entries, Entry{Name: p.Key, Spec: spec})
	}
	return mapping, nil
}

func fieldRef(name string) *FieldRef {
	ref := &FieldRef{Name: name}
	if strings.Contains(name, ".") {
		ref.Path = strings.Split(name, ".")
	}
	return ref
}

func compileDict(m *Object, raw any) (Spec, error) {
	hidden, _ := m.Get("hidden")
	flag := hiddenFlag{Hidden: truthy(hidden)}

	if path, ok := m.Get("path"); ok {
		return compilePath(m, path, flag)
	}
	if method, ok := m.Get("method"); ok {
		return compileMethod(m, method, flag)
	}
	if fields, ok := m.Get("fields"); ok {
		spec, err := compileProjection(fields)
		if err != nil {
			return nil, fmt.Errorf("fields: %w", err)
		}
		return &FieldsSpec{hiddenFlag: flag, Fields: spec}, nil
	}
	return &Literal{hiddenFlag: flag, Value: raw}, nil
}

func compilePath(m *Object, path any, flag hiddenFlag) (Spec, error) {
	p, ok := path.(string)
	if !ok {
		return nil, fmt.Errorf("%w: path must be a string, got %T", ErrInvalidSpec, path)
	}
	spec := &PathSpec{hiddenFlag: flag, Path: strings.Split(p, ".")}
	if v, ok := m.Get("parse_json"); ok {
		spec.ParseJSON = truthy(v)
	}
	if v, ok := m.Get("limit"); ok {
		spec.Limit = positiveInt(v)
	}
	// falsy post-processing keys are skipped
	if v, ok := m.Get("item_fields"); ok && truthy(v) {
		fields, err := compileProjection(v)
		if err != nil {
			return nil, fmt.Errorf("item_fields: %w", err)
		}
		spec.ItemFields = fields
	}
	if v, ok := m.Get("item_serializer"); ok && truthy(v) {
		ref, err := compileSerializerRef(v)
		if err != nil {
			return nil, err
		}
		spec.ItemSerializer = ref
	}
	return spec, nil
}

func compileMethod(m *Object, method any, flag hiddenFlag) (Spec, error) {
	name, ok := method.(string)
	if !ok {
		return nil, fmt.Errorf("%w: method must be a string, got %T", ErrInvalidSpec, method)
	}
	spec := &MethodSpec{hiddenFlag: flag, Method: name}
	if v, ok := m.Get("fields"); ok {
		fields, err := compileProjection(v)
		if err != nil {
			return nil, fmt.Errorf("fields: %w", err)
		}
		spec.Fields = fields
	}
	if v, ok := m.Get("item_fields"); ok {
		fields, err := compileProjection(v)
		if err != nil {
			return nil, fmt.Errorf("item_fields: %w", err)
		}
		spec.ItemFields = fields
	}
	if v, ok := m.Get("item_serializer"); ok {
		ref, err := compileSerializerRef(v)
		if err != nil {
			return nil, err
		}
		spec.ItemSerializer = ref
	}
	if v, ok := m.Get("iterate"); ok {
		if it, ok := asMapping(v); ok {
			iterate, err := compileIterate(it)
			if err != nil {
				return nil, fmt.Errorf("iterate: %w", err)
			}
			spec.Iterate = iterate
		}
	}
	return spec, nil
}

func compileIterate(m *Object) (*IterateSpec, error) {
	it := &IterateSpec{}
	for _, f := range []struct {
		key string
		dst *string
	}{{"count", &it.Count}, {"item", &it.Item}} {
		key, dst := f.key, f.dst
		v, ok := m.Get(key)
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidSpec, key, v)
		}
		*dst = s
	}
	if v, ok := m.Get("fields"); ok {
		fields, err := compileProjection(v)
		if err != nil {
			return nil, fmt.Errorf("fields: %w", err)
		}
		it.Fields = fields
	}
	if v, ok := m.Get("limit"); ok {
		it.Limit = positiveInt(v)
	}
	return it, nil
}

func compileSerializerRef(raw any) (*SerializerRef, error) {
	if name, ok := raw.(string); ok {
		return &SerializerRef{Name: name}, nil
	}
	if _, ok := asMapping(raw); !ok {
		return nil, fmt.Errorf("%w: item_serializer must be an object or a name, got %T", ErrInvalidSpec, raw)
	}
	s, err := Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("item_serializer: %w", err)
	}
	if s == nil {
		s = &Serializer{}
	}
	return &SerializerRef{Inline: s}, nil
}

// asMapping views raw as an ordered object. Plain maps are ordered by key.
func asMapping(raw any) (*Object, bool) {
	switch m := raw.(type) {
	case *Object:
		return m, m != nil
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o := NewObject()
		for _, k := range keys {
			o.Set(k, m[k])
		}
		return o, true
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	o := NewObject()
	for _, k := range keys {
		o.Set(k, rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
	}
	return o, true
}

// truthy follows the usual config conventions: nil, false, zero numbers and
// empty strings or collections are false.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	if o, ok := v.(*Object); ok {
		return o != nil && o.Len() > 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// positiveInt returns v when it is a positive integer (integral floats
// included, as HCL numbers decode that way) and 0 otherwise.
func positiveInt(v any) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n := rv.Int(); n > 0 {
			return int(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n := rv.Uint(); n > 0 && n <= math.MaxInt32 {
			return int(n)
		}
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); f > 0 && f == math.Trunc(f) && f <= math.MaxInt32 {
			return int(f)
		}
	}
	return 0
}
