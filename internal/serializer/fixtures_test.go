package serializer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func mustSpec(t *testing.T, raw any) Spec {
	t.Helper()
	spec, err := CompileSpec(raw)
	require.NoError(t, err)
	return spec
}

type owner struct {
	Login string `json:"login"`
	ID    int    `json:"id"`
}

type repo struct {
	Name     string   `json:"name"`
	Stars    int      `json:"stargazers_count"`
	Owner    *owner   `json:"owner"`
	Topics   []string `json:"topics"`
	Payload  string   `json:"payload"`
	internal string
}

func (r *repo) FullName() string {
	return r.Owner.Login + "/" + r.Name
}

func (r repo) Describe() (string, error) {
	if r.Name == "" {
		return "", errors.New("unnamed repo")
	}
	return "repo " + r.Name, nil
}

// probe counts how often its Bar operation runs.
type probe struct {
	Foo   string
	calls int
}

func (p *probe) Bar() string {
	p.calls++
	return "bar"
}

// pager exposes a collection only through Size and At.
type pager struct {
	size   int
	served []int
}

func (p *pager) Size() int { return p.size }

func (p *pager) At(i int) *owner {
	p.served = append(p.served, i)
	return &owner{Login: "user" + string(rune('a'+i)), ID: i}
}

type client struct {
	pages *pager
}

func (c *client) Results() *pager { return c.pages }

func (c *client) Nothing() *owner { return nil }

type vector []float64

func (v vector) ToList() []any {
	out := make([]any, len(v))
	for i, f := range v {
		out[i] = f
	}
	return out
}

type model struct {
	weights vector
}

func (m model) Weights() vector { return m.weights }

func (m model) Explode() string { panic("boom") }
