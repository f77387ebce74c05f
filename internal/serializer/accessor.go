package serializer

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Accessor resolves a name against one subject.
type Accessor interface {
	// Access returns the value bound to name. Keyed containers report a
	// missing key as (nil, nil); opaque objects report it as *AccessError.
	Access(name string) (any, error)
}

// Lister is implemented by method results that convert themselves to a
// plain sequence, such as numeric array types.
type Lister interface {
	ToList() []any
}

// keyedAccessor is an Accessor over a keyed container.
type keyedAccessor interface {
	Accessor
	Lookup(name string) (any, bool)
}

// AccessorFor picks the Accessor matching the runtime shape of subject.
func AccessorFor(subject any) Accessor {
	switch s := subject.(type) {
	case *Object:
		if s != nil {
			return objectKeys{s}
		}
	case map[string]any:
		return mapKeys(s)
	}
	rv := reflect.ValueOf(subject)
	if rv.Kind() == reflect.Map {
		return reflectKeys{rv}
	}
	return opaque{value: subject}
}

type objectKeys struct{ obj *Object }

func (a objectKeys) Lookup(name string) (any, bool) { return a.obj.Get(name) }

func (a objectKeys) Access(name string) (any, error) {
	v, _ := a.obj.Get(name)
	return v, nil
}

type mapKeys map[string]any

func (a mapKeys) Lookup(name string) (any, bool) {
	v, ok := a[name]
	return v, ok
}

func (a mapKeys) Access(name string) (any, error) { return a[name], nil }

// reflectKeys covers typed maps. Maps whose keys are not string-kinded never
// match a name.
type reflectKeys struct{ m reflect.Value }

func (a reflectKeys) Lookup(name string) (any, bool) {
	keyType := a.m.Type().Key()
	if keyType.Kind() != reflect.String || a.m.IsNil() {
		return nil, false
	}
	v := a.m.MapIndex(reflect.ValueOf(name).Convert(keyType))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

func (a reflectKeys) Access(name string) (any, error) {
	v, _ := a.Lookup(name)
	return v, nil
}

// opaque resolves names against struct fields and methods.
type opaque struct{ value any }

func (a opaque) Access(name string) (any, error) {
	attr, ok := attribute(a.value, name)
	if !ok {
		return nil, &AccessError{Name: name, Type: typeName(a.value)}
	}
	if attr.Kind() != reflect.Func {
		return attr.Interface(), nil
	}
	if attr.IsNil() {
		return nil, nil
	}
	ft := attr.Type()
	if ft.NumIn() != 0 && !(ft.NumIn() == 1 && ft.IsVariadic()) {
		return nil, &InvocationError{Name: name, Err: fmt.Errorf("takes %d arguments, called with none", ft.NumIn())}
	}
	result, err := invoke(name, attr, nil)
	if err != nil {
		return nil, err
	}
	if l, ok := result.(Lister); ok {
		return l.ToList(), nil
	}
	return result, nil
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

// Member returns the field or method of v that name refers to, matched the
// same way Access matches names.
func Member(v any, name string) (reflect.Value, bool) {
	return attribute(v, name)
}

// attribute finds the field or method bound to name on v. Candidates are
// tried in order: the name itself, its exported CamelCase form, a json tag
// match, and finally a case-insensitive match ignoring underscores.
func attribute(v any, name string) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || name == "" {
		return reflect.Value{}, false
	}
	// methods with pointer receivers must be reachable from values too
	if rv.Kind() != reflect.Pointer {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		rv = ptr
	}

	sv := rv
	for sv.Kind() == reflect.Pointer && !sv.IsNil() {
		sv = sv.Elem()
	}
	var fields []fieldInfo
	if sv.Kind() == reflect.Struct {
		fields = structFields(sv.Type())
	}
	field := func(f fieldInfo) (reflect.Value, bool) {
		fv, err := sv.FieldByIndexErr(f.index)
		if err != nil || !fv.CanInterface() {
			return reflect.Value{}, false
		}
		return fv, true
	}

	for _, candidate := range []string{name, exportedName(name)} {
		for _, f := range fields {
			if f.goName == candidate {
				return field(f)
			}
		}
		if m := rv.MethodByName(candidate); m.IsValid() {
			return m, true
		}
	}
	for _, f := range fields {
		if f.name == name {
			return field(f)
		}
	}

	folded := strings.ReplaceAll(name, "_", "")
	for _, f := range fields {
		if strings.EqualFold(f.goName, folded) {
			return field(f)
		}
	}
	t := rv.Type()
	for i := 0; i < t.NumMethod(); i++ {
		if strings.EqualFold(t.Method(i).Name, folded) {
			return rv.Method(i), true
		}
	}
	return reflect.Value{}, false
}

// exportedName converts snake_case, kebab-case and lowerCamel names into
// the exported Go form: "total_count" -> "TotalCount".
func exportedName(name string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' }) {
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	return b.String()
}

// invoke calls fn and unpacks its results. A trailing error result is
// surfaced as *InvocationError; several non-error results become a slice.
func invoke(name string, fn reflect.Value, args []reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &InvocationError{Name: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	out := fn.Call(args)
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if e := out[n-1]; !e.IsNil() {
			return nil, &InvocationError{Name: name, Err: e.Interface().(error)}
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	values := make([]any, len(out))
	for i, o := range out {
		values[i] = o.Interface()
	}
	return values, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// indexedGetter resolves name as a one-argument operation taking an index.
func indexedGetter(subject any, name string) (func(i int) (any, error), bool) {
	if _, keyed := AccessorFor(subject).(keyedAccessor); keyed {
		return nil, false
	}
	fn, ok := attribute(subject, name)
	if !ok || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, false
	}
	ft := fn.Type()
	if ft.NumIn() != 1 || ft.IsVariadic() {
		return nil, false
	}
	in := ft.In(0)
	intType := reflect.TypeOf(0)
	switch {
	case isIntegerKind(in.Kind()):
	case in.Kind() == reflect.Interface && intType.Implements(in):
	default:
		return nil, false
	}
	return func(i int) (any, error) {
		arg := reflect.ValueOf(i)
		if in.Kind() != reflect.Interface {
			arg = arg.Convert(in)
		}
		return invoke(name, fn, []reflect.Value{arg})
	}, true
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// asCount accepts non-negative values of any integer kind.
func asCount(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return 0, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n := rv.Int(); n >= 0 {
			return int(n), true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	}
	return 0, false
}

// asList reports whether v is an ordered sequence and returns its elements.
// Byte slices are treated as scalars.
func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
	case reflect.Array:
	default:
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// isNil reports nil interfaces and nil pointers.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
