package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSpec(t *testing.T) {
	t.Run("plain name", func(t *testing.T) {
		spec := mustSpec(t, "name")
		assert.Equal(t, &FieldRef{Name: "name"}, spec)
	})

	t.Run("dotted name", func(t *testing.T) {
		spec := mustSpec(t, "owner.login")
		assert.Equal(t, &FieldRef{Name: "owner.login", Path: []string{"owner", "login"}}, spec)
	})

	t.Run("literal", func(t *testing.T) {
		assert.Equal(t, &Literal{Value: 42}, mustSpec(t, 42))
		assert.Equal(t, &Literal{Value: nil}, mustSpec(t, nil))
	})

	t.Run("path wins over method and fields", func(t *testing.T) {
		spec := mustSpec(t, map[string]any{"path": "a.b", "method": "m", "fields": "x", "limit": 2})
		require.IsType(t, &PathSpec{}, spec)
		ps := spec.(*PathSpec)
		assert.Equal(t, []string{"a", "b"}, ps.Path)
		assert.Equal(t, 2, ps.Limit)
	})

	t.Run("method wins over fields", func(t *testing.T) {
		spec := mustSpec(t, map[string]any{"method": "m", "fields": "x"})
		require.IsType(t, &MethodSpec{}, spec)
		assert.Equal(t, &FieldRef{Name: "x"}, spec.(*MethodSpec).Fields)
	})

	t.Run("fields only", func(t *testing.T) {
		spec := mustSpec(t, map[string]any{"fields": map[string]any{"a": "b"}})
		require.IsType(t, &FieldsSpec{}, spec)
	})

	t.Run("dict without keywords is a literal", func(t *testing.T) {
		raw := map[string]any{"x": 1}
		assert.Equal(t, &Literal{Value: raw}, mustSpec(t, raw))
	})

	t.Run("hidden uses truthiness", func(t *testing.T) {
		assert.True(t, mustSpec(t, map[string]any{"method": "m", "hidden": true}).IsHidden())
		assert.True(t, mustSpec(t, map[string]any{"method": "m", "hidden": 1}).IsHidden())
		assert.False(t, mustSpec(t, map[string]any{"method": "m", "hidden": ""}).IsHidden())
	})

	t.Run("falsy item keys are ignored on paths", func(t *testing.T) {
		spec := mustSpec(t, map[string]any{"path": "a", "item_fields": map[string]any{}, "item_serializer": nil})
		ps := spec.(*PathSpec)
		assert.Nil(t, ps.ItemFields)
		assert.Nil(t, ps.ItemSerializer)
	})

	t.Run("item serializer by name", func(t *testing.T) {
		spec := mustSpec(t, map[string]any{"path": "a", "item_serializer": "user"})
		assert.Equal(t, &SerializerRef{Name: "user"}, spec.(*PathSpec).ItemSerializer)
	})

	t.Run("non-positive limits mean no limit", func(t *testing.T) {
		for _, v := range []any{0, -3, 1.5, "2"} {
			spec := mustSpec(t, map[string]any{"path": "a", "limit": v})
			assert.Zero(t, spec.(*PathSpec).Limit, "limit %v", v)
		}
		spec := mustSpec(t, map[string]any{"path": "a", "limit": 3.0})
		assert.Equal(t, 3, spec.(*PathSpec).Limit)
	})

	t.Run("iterate", func(t *testing.T) {
		spec := mustSpec(t, map[string]any{
			"method":  "results",
			"iterate": map[string]any{"count": "size", "item": "at", "limit": 5, "fields": "login"},
		})
		it := spec.(*MethodSpec).Iterate
		require.NotNil(t, it)
		assert.Equal(t, &IterateSpec{Count: "size", Item: "at", Limit: 5, Fields: &FieldRef{Name: "login"}}, it)
	})
}

func TestCompileSpec_Errors(t *testing.T) {
	for name, raw := range map[string]any{
		"path not a string":       map[string]any{"path": 3},
		"method not a string":     map[string]any{"method": []any{"a"}},
		"count not a string":      map[string]any{"method": "m", "iterate": map[string]any{"count": 1}},
		"bad item serializer":     map[string]any{"path": "a", "item_serializer": 5},
		"nested invalid in field": map[string]any{"fields": map[string]any{"x": map[string]any{"path": false}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := CompileSpec(raw)
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestCompileSpec_IterateErrorOrder(t *testing.T) {
	raw := map[string]any{"method": "m", "iterate": map[string]any{"item": 2, "count": 1}}
	for range 20 {
		_, err := CompileSpec(raw)
		require.ErrorIs(t, err, ErrInvalidSpec)
		assert.Contains(t, err.Error(), "count must be a string")
	}
}

func TestCompile(t *testing.T) {
	s, err := Compile(nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Compile(map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Compile("fields")
	assert.ErrorIs(t, err, ErrInvalidSpec)

	s, err = Compile(ObjectOf("fields", ObjectOf("b", "x", "a", "y")))
	require.NoError(t, err)
	m := s.Fields.(*Mapping)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "b", m.Entries[0].Name)
	assert.Equal(t, "a", m.Entries[1].Name)
}

func TestCompileRegistry(t *testing.T) {
	reg, err := CompileRegistry(map[string]any{
		"user":  map[string]any{"fields": map[string]any{"login": "login"}},
		"empty": map[string]any{},
	})
	require.NoError(t, err)
	assert.NotNil(t, reg["user"])
	assert.Contains(t, reg, "empty")

	_, err = CompileRegistry(map[string]any{"bad": 1})
	assert.ErrorIs(t, err, ErrInvalidSpec)
}
