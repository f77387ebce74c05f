package serializer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// DecodeJSON decodes a JSON document keeping object key order.
// Objects become *Object, arrays []any, integers int64 and other numbers
// float64. Integers too wide for int64 are kept as json.Number; floats out
// of range become ±Inf.
func DecodeJSON(data []byte) (any, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return decodeValue(value, dataType)
}

// decodeString is the lenient form used while walking paths.
func decodeString(s string) (any, bool) {
	v, err := DecodeJSON([]byte(s))
	if err != nil {
		return nil, false
	}
	return v, true
}

func decodeValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		text := string(value)
		i, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return i, nil
		}
		if errors.Is(err, strconv.ErrRange) {
			// integer wider than int64
			return json.Number(text), nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, err
		}
		// out of range: f is ±Inf or ±0
		return f, nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Array:
		items := []any{}
		var inner error
		_, err := jsonparser.ArrayEach(value, func(v []byte, t jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			item, err := decodeValue(v, t)
			if err != nil {
				inner = err
				return
			}
			items = append(items, item)
		})
		if err != nil {
			return nil, err
		}
		return items, inner
	case jsonparser.Object:
		obj := NewObject()
		err := jsonparser.ObjectEach(value, func(key, v []byte, t jsonparser.ValueType, _ int) error {
			// keys arrive unescaped and may live in a reused buffer
			k := string(key)
			item, err := decodeValue(v, t)
			if err != nil {
				return err
			}
			obj.Set(k, item)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return obj, nil
	}
	return nil, fmt.Errorf("%w: unexpected value type %s", ErrInvalidJSON, dataType)
}
