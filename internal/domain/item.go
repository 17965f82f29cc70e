package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// DefaultItemKey is the identity field used when a manager is not told otherwise.
const DefaultItemKey = "ID"

// Item is a single record received from the remote API.
// Attributes are opaque to the cache except for the identity field.
type Item map[string]any

// Query holds filter, sort and pagination parameters.
type Query map[string]any

// KeyOf returns the canonical key of item under the given identity field.
// Strings are used verbatim and integral numbers are formatted in base 10.
// Missing, nil, empty, fractional and non-scalar identities are unkeyable.
func KeyOf(item Item, field string) (string, bool) {
	if item == nil {
		return "", false
	}
	v, ok := item[field]
	if !ok || v == nil {
		return "", false
	}

	switch k := v.(type) {
	case string:
		return k, k != ""
	case int:
		return strconv.Itoa(k), true
	case int8:
		return strconv.FormatInt(int64(k), 10), true
	case int16:
		return strconv.FormatInt(int64(k), 10), true
	case int32:
		return strconv.FormatInt(int64(k), 10), true
	case int64:
		return strconv.FormatInt(k, 10), true
	case uint:
		return strconv.FormatUint(uint64(k), 10), true
	case uint8:
		return strconv.FormatUint(uint64(k), 10), true
	case uint16:
		return strconv.FormatUint(uint64(k), 10), true
	case uint32:
		return strconv.FormatUint(uint64(k), 10), true
	case uint64:
		return strconv.FormatUint(k, 10), true
	case float32:
		return floatKey(float64(k))
	case float64:
		return floatKey(k)
	case json.Number:
		if i, err := k.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return "", false
	default:
		return "", false
	}
}

func floatKey(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return "", false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

// String returns the string value stored under field, or "" when absent or not a string.
func (i Item) String(field string) string {
	s, _ := i[field].(string)
	return s
}
