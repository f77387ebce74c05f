package serializer

import (
	"strconv"
)

// Walk resolves parts one after another starting at subject.
//
// A string met on the way is decoded as JSON and the same part is retried
// against the decoded value; a string that is not JSON ends the walk with
// nil. With parseJSON set, implicit decoding is off and only the value found
// for the first part is decoded, keeping the string when it is not JSON.
//
// Missing keys, out-of-range indexes and unresolvable names yield nil. Only
// failures raised by invoked methods are returned as errors.
func Walk(subject any, parts []string, parseJSON bool) (any, error) {
	current := subject
	for i := 0; i < len(parts); {
		if isNil(current) {
			return nil, nil
		}
		if s, ok := current.(string); ok && !parseJSON {
			decoded, ok := decodeString(s)
			if !ok {
				return nil, nil
			}
			current = decoded
			continue
		}

		next, err := step(current, parts[i])
		if err != nil {
			if isAccessError(err) {
				return nil, nil
			}
			return nil, err
		}
		current = next

		if parseJSON && i == 0 {
			if s, ok := current.(string); ok {
				if decoded, ok := decodeString(s); ok {
					current = decoded
				}
			}
		}
		i++
	}
	return current, nil
}

func step(current any, part string) (any, error) {
	acc := AccessorFor(current)
	if keyed, ok := acc.(keyedAccessor); ok {
		if v, found := keyed.Lookup(part); found {
			return v, nil
		}
	}
	if items, ok := asList(current); ok && isDigits(part) {
		idx, err := strconv.Atoi(part)
		if err != nil || idx >= len(items) {
			return nil, nil
		}
		return items[idx], nil
	}
	return acc.Access(part)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
