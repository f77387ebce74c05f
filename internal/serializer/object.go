package serializer

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is the ordered string-keyed mapping emitted for every projected or
// normalized object. It marshals to JSON in insertion order.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty Object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// ObjectOf builds an Object from alternating key/value arguments.
// It is mostly useful in tests and fixtures.
func ObjectOf(kv ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		o.Set(k, kv[i+1])
	}
	return o
}
