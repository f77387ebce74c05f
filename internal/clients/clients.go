// Package clients holds the client implementations apiout ships with.
package clients

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/agentic-research/apiout/internal/fetch"
	"github.com/agentic-research/apiout/internal/serializer"
)

// Register adds the built-in clients to r under the modules "http",
// "sqlite" and "static".
func Register(r *fetch.Registry) {
	r.Register("http", fetch.DefaultClass, func() any { return NewHTTP(nil) })
	r.Register("sqlite", fetch.DefaultClass, func() any { return &SQLite{} })
	r.Register("static", fetch.DefaultClass, func() any { return &Static{} })
}

// Registry returns a registry holding only the built-in clients.
func Registry() *fetch.Registry {
	r := fetch.NewRegistry()
	Register(r)
	return r
}

// entries lists the key/value pairs of a params value in a stable order:
// source order for objects, sorted keys for plain maps.
func entries(params any) ([]string, []any, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil, nil
	case *serializer.Object:
		keys := make([]string, 0, p.Len())
		values := make([]any, 0, p.Len())
		for pair := p.Oldest(); pair != nil; pair = pair.Next() {
			keys = append(keys, pair.Key)
			values = append(values, pair.Value)
		}
		return keys, values, nil
	case map[string]any:
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = p[k]
		}
		return keys, values, nil
	}
	return nil, nil, fmt.Errorf("params must be an object, got %T", params)
}

// queryString encodes params as URL query values. List values repeat the key.
func queryString(params any) (url.Values, error) {
	keys, values, err := entries(params)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	for i, k := range keys {
		if list, ok := values[i].([]any); ok {
			for _, item := range list {
				q.Add(k, fmt.Sprint(item))
			}
			continue
		}
		if values[i] == nil {
			continue
		}
		q.Add(k, fmt.Sprint(values[i]))
	}
	return q, nil
}
