package serializer

import (
	"fmt"
)

// Resolver evaluates compiled specs. Serializers holds the named
// serializers that item_serializer references may point at; a Resolver is
// safe for concurrent use as long as the registry is not modified.
type Resolver struct {
	Serializers Registry
}

// NewResolver returns a Resolver over the given serializer registry.
func NewResolver(serializers Registry) *Resolver {
	return &Resolver{Serializers: serializers}
}

var defaultResolver = &Resolver{}

// Resolve evaluates spec against subject with no named serializers.
func Resolve(subject any, spec Spec) (any, error) {
	return defaultResolver.Resolve(subject, spec)
}

// Serialize applies s to responses with no named serializers.
func Serialize(responses any, s *Serializer) (any, error) {
	return defaultResolver.Serialize(responses, s)
}

// Resolve evaluates spec against subject and returns a JSON-safe value.
func (r *Resolver) Resolve(subject any, spec Spec) (any, error) {
	switch s := spec.(type) {
	case nil:
		return Normalize(subject), nil
	case *FieldRef:
		return r.resolveFieldRef(subject, s)
	case *PathSpec:
		return r.resolvePath(subject, s)
	case *MethodSpec:
		return r.resolveMethod(subject, s)
	case *FieldsSpec:
		return r.Resolve(subject, s.Fields)
	case *Mapping:
		return r.resolveMapping(subject, s)
	case *Literal:
		return Normalize(s.Value), nil
	case *Identity:
		return Normalize(subject), nil
	}
	return nil, fmt.Errorf("%w: unsupported spec %T", ErrInvalidSpec, spec)
}

func (r *Resolver) resolveFieldRef(subject any, ref *FieldRef) (any, error) {
	if ref.Path != nil {
		v, err := Walk(subject, ref.Path, false)
		if err != nil {
			return nil, err
		}
		return Normalize(v), nil
	}
	// direct references do not absorb AccessError
	v, err := AccessorFor(subject).Access(ref.Name)
	if err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

func (r *Resolver) resolvePath(subject any, s *PathSpec) (any, error) {
	current, err := Walk(subject, s.Path, s.ParseJSON)
	if err != nil {
		return nil, err
	}
	items, ok := asList(current)
	if !ok {
		return Normalize(current), nil
	}
	if s.Limit > 0 && len(items) > s.Limit {
		items = items[:s.Limit]
	}
	if s.ItemFields != nil {
		if items, err = r.each(items, func(item any) (any, error) { return r.Resolve(item, s.ItemFields) }); err != nil {
			return nil, err
		}
	}
	if s.ItemSerializer != nil {
		ser := r.lookup(s.ItemSerializer)
		if items, err = r.each(items, func(item any) (any, error) { return r.Serialize(item, ser) }); err != nil {
			return nil, err
		}
	}
	return Normalize(items), nil
}

func (r *Resolver) resolveMethod(subject any, s *MethodSpec) (any, error) {
	nested, err := AccessorFor(subject).Access(s.Method)
	if err != nil {
		return nil, err
	}
	if isNil(nested) {
		return nil, nil
	}
	if s.Fields != nil {
		return r.Resolve(nested, s.Fields)
	}
	items, isList := asList(nested)
	if s.ItemFields != nil && isList {
		return r.each(items, func(item any) (any, error) { return r.Resolve(item, s.ItemFields) })
	}
	if s.ItemSerializer != nil && isList {
		ser := r.lookup(s.ItemSerializer)
		return r.each(items, func(item any) (any, error) { return r.Serialize(item, ser) })
	}
	if s.Iterate != nil {
		return r.Iterate(nested, s.Iterate)
	}
	return Normalize(nested), nil
}

// resolveMapping evaluates every entry before dropping hidden ones, so the
// side effects of hidden method calls still happen.
func (r *Resolver) resolveMapping(subject any, m *Mapping) (any, error) {
	values := make([]any, len(m.Entries))
	for i, e := range m.Entries {
		v, err := r.Resolve(subject, e.Spec)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	out := NewObject()
	for i, e := range m.Entries {
		if e.Spec != nil && e.Spec.IsHidden() {
			continue
		}
		out.Set(e.Name, values[i])
	}
	return out, nil
}

// Iterate enumerates subject through the count and item accessors named by
// it. A missing accessor or a count that is not a non-negative integer
// yields an empty list.
func (r *Resolver) Iterate(subject any, it *IterateSpec) ([]any, error) {
	items := []any{}
	if it.Count == "" || it.Item == "" {
		return items, nil
	}
	raw, err := AccessorFor(subject).Access(it.Count)
	if err != nil {
		if isAccessError(err) {
			return items, nil
		}
		return nil, err
	}
	count, ok := asCount(raw)
	if !ok {
		return items, nil
	}
	if it.Limit > 0 && it.Limit < count {
		count = it.Limit
	}
	get, ok := indexedGetter(subject, it.Item)
	if !ok {
		return items, nil
	}
	for i := 0; i < count; i++ {
		item, err := get(i)
		if err != nil {
			return nil, err
		}
		if it.Fields == nil {
			items = append(items, Normalize(item))
			continue
		}
		v, err := r.Resolve(item, it.Fields)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

// Serialize applies s to responses. A list is serialized element-wise and
// stays a list; any other value is serialized on its own.
func (r *Resolver) Serialize(responses any, s *Serializer) (any, error) {
	items, isList := asList(responses)
	if !isList {
		items = []any{responses}
	}
	results := make([]any, len(items))
	for i, item := range items {
		if s == nil || s.Fields == nil {
			results[i] = Normalize(item)
			continue
		}
		v, err := r.Resolve(item, s.Fields)
		if err != nil {
			return nil, err
		}
		results[i] = v
	}
	if !isList {
		return results[0], nil
	}
	return results, nil
}

func (r *Resolver) lookup(ref *SerializerRef) *Serializer {
	if ref.Inline != nil {
		return ref.Inline
	}
	return r.Serializers[ref.Name]
}

func (r *Resolver) each(items []any, fn func(any) (any, error)) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		v, err := fn(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
