package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agentic-research/apiout/api"
	"github.com/agentic-research/apiout/internal/serializer"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// hclFile holds every top-level block an apiout HCL file may contain.
type hclFile struct {
	Clients     []*hclClient     `hcl:"client,block"`
	Serializers []*hclSerializer `hcl:"serializer,block"`
	APIs        []*hclAPI        `hcl:"api,block"`
}

type hclClient struct {
	Name        string `hcl:"name,label"`
	Module      string `hcl:"module"`
	ClientClass string `hcl:"client_class,optional"`
}

type hclSerializer struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type hclAPI struct {
	Name        string         `hcl:"name,label"`
	Client      string         `hcl:"client,optional"`
	Module      string         `hcl:"module,optional"`
	ClientClass string         `hcl:"client_class,optional"`
	Method      string         `hcl:"method,optional"`
	URL         string         `hcl:"url,optional"`
	Params      hcl.Expression `hcl:"params,optional"`
	Serializer  hcl.Expression `hcl:"serializer,optional"`
}

// parseHCL decodes an HCL configuration. Expressions may reference env.NAME.
func parseHCL(parser *hclparse.Parser, filename string, src []byte) (*api.Config, error) {
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	evalCtx := newEvalContext()
	var root hclFile
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	cfg := &api.Config{}
	for _, c := range root.Clients {
		if cfg.Clients == nil {
			cfg.Clients = make(map[string]api.Client)
		}
		cfg.Clients[c.Name] = api.Client{Module: c.Module, ClientClass: c.ClientClass}
	}
	for _, s := range root.Serializers {
		raw, diags := bodyToNative(s.Body, evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("serializer %q in %s: %w", s.Name, filename, diags)
		}
		if cfg.Serializers == nil {
			cfg.Serializers = make(map[string]any)
		}
		cfg.Serializers[s.Name] = raw
	}
	for _, a := range root.APIs {
		params, diags := exprToNative(a.Params, evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("api %q params in %s: %w", a.Name, filename, diags)
		}
		ser, diags := exprToNative(a.Serializer, evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("api %q serializer in %s: %w", a.Name, filename, diags)
		}
		cfg.APIs = append(cfg.APIs, api.API{
			Name:        a.Name,
			Client:      a.Client,
			Module:      a.Module,
			ClientClass: a.ClientClass,
			Method:      a.Method,
			URL:         a.URL,
			Params:      params,
			Serializer:  ser,
		})
	}
	return cfg, nil
}

// newEvalContext exposes the process environment as the env object.
func newEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

// bodyToNative turns the attributes of a block body into an Object ordered
// by their position in the source.
func bodyToNative(body hcl.Body, evalCtx *hcl.EvalContext) (*serializer.Object, hcl.Diagnostics) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	list := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		list = append(list, attr)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Range.Start.Byte < list[j].Range.Start.Byte })

	obj := serializer.NewObject()
	for _, attr := range list {
		v, d := exprToNative(attr.Expr, evalCtx)
		diags = append(diags, d...)
		if d.HasErrors() {
			return nil, diags
		}
		obj.Set(attr.Name, v)
	}
	return obj, diags
}

// exprToNative evaluates expr into plain Go data. Object and tuple
// constructors are walked directly so object keys keep their source order.
func exprToNative(expr hcl.Expression, evalCtx *hcl.EvalContext) (any, hcl.Diagnostics) {
	switch e := expr.(type) {
	case nil:
		return nil, nil
	case *hclsyntax.ObjectConsExpr:
		var diags hcl.Diagnostics
		obj := serializer.NewObject()
		for _, item := range e.Items {
			key, d := objectKey(item.KeyExpr, evalCtx)
			diags = append(diags, d...)
			if d.HasErrors() {
				return nil, diags
			}
			v, d := exprToNative(item.ValueExpr, evalCtx)
			diags = append(diags, d...)
			if d.HasErrors() {
				return nil, diags
			}
			obj.Set(key, v)
		}
		return obj, diags
	case *hclsyntax.TupleConsExpr:
		var diags hcl.Diagnostics
		items := make([]any, 0, len(e.Exprs))
		for _, item := range e.Exprs {
			v, d := exprToNative(item, evalCtx)
			diags = append(diags, d...)
			if d.HasErrors() {
				return nil, diags
			}
			items = append(items, v)
		}
		return items, diags
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	out, err := ctyToNative(val)
	if err != nil {
		return nil, diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported value",
			Detail:   err.Error(),
			Subject:  expr.Range().Ptr(),
		})
	}
	return out, diags
}

func objectKey(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, hcl.Diagnostics) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", diags
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil || str.IsNull() || !str.IsKnown() {
		return "", diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid object key",
			Detail:   "Object keys must be strings.",
			Subject:  expr.Range().Ptr(),
		})
	}
	return str.AsString(), diags
}

// ctyToNative converts an evaluated value. Whole numbers become int64, other
// numbers float64; objects and maps iterate in cty's key order.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		var i int64
		if err := gocty.FromCtyValue(v, &i); err == nil {
			return i, nil
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		items := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			native, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			items = append(items, native)
		}
		return items, nil
	case ty.IsObjectType() || ty.IsMapType():
		obj := serializer.NewObject()
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			native, err := ctyToNative(ev)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", k.AsString(), err)
			}
			obj.Set(k.AsString(), native)
		}
		return obj, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
