package clients

import "github.com/agentic-research/apiout/internal/serializer"

// Static returns its arguments instead of calling anything. It serves dry
// runs and serializer experiments.
type Static struct{}

// Echo returns params as an object with url added under "url".
func (Static) Echo(url string, params any) (any, error) {
	keys, values, err := entries(params)
	if err != nil {
		return nil, err
	}
	out := serializer.NewObject()
	out.Set("url", url)
	for i, k := range keys {
		out.Set(k, values[i])
	}
	return out, nil
}

// List returns the "items" param, so list serialization can be tried out.
func (Static) List(_ string, params any) (any, error) {
	keys, values, err := entries(params)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		if k == "items" {
			return values[i], nil
		}
	}
	return []any{}, nil
}
