// Package serializer turns arbitrary response values into JSON-safe values.
//
// A mapping configuration (decoded JSON or HCL data) is compiled once into a
// Spec tree and then evaluated against any number of subjects:
//
//	spec, err := serializer.CompileSpec(map[string]any{
//		"fields": map[string]any{
//			"id":    "ID",
//			"owner": "owner.login",
//			"tags":  map[string]any{"path": "meta.tags", "limit": 3},
//		},
//	})
//	out, err := serializer.Resolve(repo, spec)
//
// Subjects may be maps, slices, structs or any named type with methods.
// Names are resolved against struct fields, json tags and methods; zero
// argument methods are invoked. Strings met halfway through a dotted path are
// decoded as JSON so a path can walk into embedded payloads.
//
// Emitted mappings are *Object values, which keep insertion order when
// encoded with encoding/json.
package serializer
