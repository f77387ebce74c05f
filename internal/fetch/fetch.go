// Package fetch calls configured client methods and serializes what they
// return. Failures never escape as Go errors: they are reported in the
// result as {"error": "..."} objects so one broken API does not hide the
// others.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/agentic-research/apiout/api"
	"github.com/agentic-research/apiout/internal/ctxlog"
	"github.com/agentic-research/apiout/internal/serializer"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownMethod is returned when a client has no method of the
// configured name.
var ErrUnknownMethod = errors.New("client has no method")

var (
	errNoModule = errors.New("No module specified")
	errNoMethod = errors.New("No method specified")
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// Fetcher runs the APIs of one configuration.
type Fetcher struct {
	clients  *Registry
	config   *api.Config
	resolver *serializer.Resolver
}

// New returns a Fetcher over cfg. Named serializers are compiled up front so
// that item_serializer references can be resolved by name.
func New(clients *Registry, cfg *api.Config) (*Fetcher, error) {
	if cfg == nil {
		cfg = &api.Config{}
	}
	reg, err := serializer.CompileRegistry(cfg.Serializers)
	if err != nil {
		return nil, fmt.Errorf("compile serializers: %w", err)
	}
	return &Fetcher{clients: clients, config: cfg, resolver: serializer.NewResolver(reg)}, nil
}

// Config returns the configuration the Fetcher was built from.
func (f *Fetcher) Config() *api.Config {
	return f.config
}

// ResolveSerializer returns the raw serializer configuration of a. A string
// names an entry of named; an unknown name resolves to nil, which means
// plain normalization.
func ResolveSerializer(a api.API, named map[string]any) any {
	if name, ok := a.Serializer.(string); ok {
		return named[name]
	}
	return a.Serializer
}

// Fetch calls the client method a describes and serializes the result.
func (f *Fetcher) Fetch(ctx context.Context, a api.API) any {
	logger := ctxlog.FromContext(ctx).With("api", a.Name)
	start := time.Now()

	out, err := f.fetch(ctx, a)
	if err != nil {
		msg := errorMessage(err)
		logger.Warn("API fetch failed.", "error", msg)
		return serializer.ObjectOf("error", msg)
	}
	logger.Debug("Fetched API.", "elapsed", time.Since(start))
	return out
}

func (f *Fetcher) fetch(ctx context.Context, a api.API) (any, error) {
	a = f.config.Resolved(a)
	if a.Module == "" {
		return nil, errNoModule
	}
	if a.Method == "" {
		return nil, errNoMethod
	}
	ctxlog.FromContext(ctx).Debug("Fetching API.", "api", a.Name, "module", a.Module, "method", a.Method)

	client, err := f.clients.New(a.Module, a.ClientClass)
	if err != nil {
		return nil, err
	}
	method, ok := serializer.Member(client, a.Method)
	if !ok || method.Kind() != reflect.Func || method.IsNil() {
		return nil, fmt.Errorf("%T: %w %q", client, ErrUnknownMethod, a.Method)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	responses, err := call(ctx, method, a.URL, a.Params)
	if err != nil {
		return nil, err
	}
	s, err := serializer.Compile(ResolveSerializer(a, f.config.Serializers))
	if err != nil {
		return nil, err
	}
	return f.resolver.Serialize(responses, s)
}

// FetchAll fetches apis with at most parallel fetches in flight (unbounded
// when parallel <= 0). Results are keyed by API name in the order given.
func (f *Fetcher) FetchAll(ctx context.Context, apis []api.API, parallel int) *serializer.Object {
	results := make([]any, len(apis))
	var g errgroup.Group
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, a := range apis {
		g.Go(func() error {
			results[i] = f.Fetch(ctx, a)
			return nil
		})
	}
	_ = g.Wait() // Fetch reports failures in its result

	out := serializer.NewObject()
	for i, a := range apis {
		out.Set(a.Name, results[i])
	}
	return out
}

func errorMessage(err error) string {
	var accErr *serializer.AccessError
	switch {
	case errors.Is(err, errNoModule), errors.Is(err, errNoMethod):
		return err.Error()
	case errors.Is(err, ErrUnknownModule):
		return "Failed to import module: " + err.Error()
	case errors.Is(err, ErrUnknownClass), errors.Is(err, ErrUnknownMethod), errors.As(err, &accErr):
		return "Failed to access class or method: " + err.Error()
	}
	return "Failed to fetch data: " + err.Error()
}

// call invokes a client method as method([ctx,] [url, [params]]). The
// method may return a value, an error, or a value and an error.
func call(ctx context.Context, method reflect.Value, url string, params any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	ft := method.Type()
	var args []reflect.Value
	first := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		args = append(args, reflect.ValueOf(ctx))
		first = 1
	}
	rest := []any{url, params}
	if n := ft.NumIn() - first; ft.IsVariadic() || n > len(rest) {
		return nil, fmt.Errorf("unsupported method signature %s", ft)
	}
	for i := first; i < ft.NumIn(); i++ {
		arg, err := argument(rest[i-first], ft.In(i))
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	out := method.Call(args)
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if e := out[n-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

var plainMapType = reflect.TypeOf(map[string]any(nil))

func argument(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	if obj, ok := v.(*serializer.Object); ok && t == plainMapType {
		return reflect.ValueOf(toPlainMap(obj)), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Kind() == t.Kind() && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot pass %T as %s", v, t)
}

func toPlainMap(obj *serializer.Object) map[string]any {
	m := make(map[string]any, obj.Len())
	for p := obj.Oldest(); p != nil; p = p.Next() {
		if nested, ok := p.Value.(*serializer.Object); ok {
			m[p.Key] = toPlainMap(nested)
			continue
		}
		m[p.Key] = p.Value
	}
	return m
}
