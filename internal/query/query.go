// Package query filters fetched results with JSONPath expressions.
package query

import (
	"fmt"
	"reflect"

	"github.com/agentic-research/apiout/internal/serializer"
	"github.com/ohler55/ojg/jp"
)

// Query is a compiled JSONPath selector.
type Query struct {
	expr jp.Expr
	raw  string
}

// Compile parses a JSONPath selector such as "$.repos[*].name".
func Compile(selector string) (*Query, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	return &Query{expr: x, raw: selector}, nil
}

func (q *Query) String() string { return q.raw }

// Select returns every match of q in data. Matched objects are returned as
// the original ordered values.
func (q *Query) Select(data any) []any {
	origin := make(map[uintptr]*serializer.Object)
	results := q.expr.Get(plain(data, origin))

	out := make([]any, len(results))
	for i, r := range results {
		out[i] = restore(r, origin)
	}
	return out
}

// Apply runs selector over data. A single match is returned as-is, any
// other number of matches as a list.
func Apply(data any, selector string) (any, error) {
	q, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	matches := q.Select(data)
	if len(matches) == 1 {
		return matches[0], nil
	}
	return matches, nil
}

// plain converts ordered objects into the map[string]any form jp walks,
// remembering which map came from which object.
func plain(v any, origin map[uintptr]*serializer.Object) any {
	switch t := v.(type) {
	case *serializer.Object:
		if t == nil {
			return nil
		}
		m := make(map[string]any, t.Len())
		for p := t.Oldest(); p != nil; p = p.Next() {
			m[p.Key] = plain(p.Value, origin)
		}
		origin[reflect.ValueOf(m).Pointer()] = t
		return m
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item, origin)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = plain(item, origin)
		}
		return out
	}
	return v
}

func restore(v any, origin map[uintptr]*serializer.Object) any {
	switch t := v.(type) {
	case map[string]any:
		if obj, ok := origin[reflect.ValueOf(t).Pointer()]; ok {
			return obj
		}
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = restore(item, origin)
		}
		return out
	}
	return v
}
