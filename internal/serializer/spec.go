package serializer

// Spec is a compiled mapping configuration node. The set of implementations
// is closed; build them with CompileSpec.
type Spec interface {
	// IsHidden reports whether the node was marked hidden. A hidden entry
	// of a Mapping is evaluated but left out of the emitted object.
	IsHidden() bool
	spec()
}

type hiddenFlag struct{ Hidden bool }

func (h hiddenFlag) IsHidden() bool { return h.Hidden }

// FieldRef reads one field. Path is set when Name is dotted.
type FieldRef struct {
	Name string
	Path []string
}

// PathSpec walks a dotted path and post-processes list results. Nil
// ItemFields / ItemSerializer mean the step is skipped.
type PathSpec struct {
	hiddenFlag
	Path           []string
	ParseJSON      bool
	Limit          int
	ItemFields     Spec
	ItemSerializer *SerializerRef
}

// MethodSpec invokes a named operation and resolves its result. Only the
// keys present in the configuration are non-nil.
type MethodSpec struct {
	hiddenFlag
	Method         string
	Fields         Spec
	ItemFields     Spec
	ItemSerializer *SerializerRef
	Iterate        *IterateSpec
}

// IterateSpec enumerates a collection exposed through a count accessor and
// an indexed item accessor.
type IterateSpec struct {
	Count  string
	Item   string
	Fields Spec
	Limit  int
}

// FieldsSpec projects Fields against the same subject.
type FieldsSpec struct {
	hiddenFlag
	Fields Spec
}

// Mapping is an ordered set of named outputs.
type Mapping struct {
	Entries []Entry
}

// Entry is one named output of a Mapping.
type Entry struct {
	Name string
	Spec Spec
}

// Literal is emitted as-is after normalization.
type Literal struct {
	hiddenFlag
	Value any
}

// Identity normalizes the subject itself.
type Identity struct{}

// Serializer is a compiled serializer configuration: a projection applied
// to every response. A nil Serializer or nil Fields means plain
// normalization.
type Serializer struct {
	Fields Spec
}

// SerializerRef points at an inline serializer or at a registry entry.
type SerializerRef struct {
	Name   string
	Inline *Serializer
}

// Registry holds named serializers.
type Registry map[string]*Serializer

func (*FieldRef) spec()   {}
func (*PathSpec) spec()   {}
func (*MethodSpec) spec() {}
func (*FieldsSpec) spec() {}
func (*Mapping) spec()    {}
func (*Literal) spec()    {}
func (*Identity) spec()   {}

func (*FieldRef) IsHidden() bool { return false }
func (*Mapping) IsHidden() bool  { return false }
func (*Identity) IsHidden() bool { return false }
