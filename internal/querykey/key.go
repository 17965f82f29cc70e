// Package querykey derives canonical cache keys from query parameters.
//
// A key is the JSON encoding of the query's [name, value] pairs sorted by
// name, after defaults are merged and nil values dropped. Values are
// canonicalized first so that 1, int64(1) and 1.0 produce the same key and
// strings that differ only in Unicode composition collapse together.
package querykey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/mmcdole/querycache/internal/domain"
	"golang.org/x/text/unicode/norm"
)

// Stringify returns the canonical key for q with defaults merged underneath it.
func Stringify(q domain.Query, defaults domain.Query) string {
	return Encode(Normalize(q, defaults))
}

// Encode serializes an already normalized query.
func Encode(q domain.Query) string {
	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([][2]any, len(names))
	for i, name := range names {
		pairs[i] = [2]any{name, canonical(q[name])}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pairs); err != nil {
		// canonical only yields strings, finite numbers, bools and containers of them.
		panic(fmt.Sprintf("querykey: encode canonical query: %v", err))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Normalize merges defaults under q, drops nil values and canonicalizes the rest.
// The result never aliases q or defaults.
func Normalize(q domain.Query, defaults domain.Query) domain.Query {
	out := make(domain.Query, len(q)+len(defaults))
	for name, v := range defaults {
		if v == nil {
			continue
		}
		out[norm.NFC.String(name)] = canonical(v)
	}
	for name, v := range q {
		name = norm.NFC.String(name)
		if v == nil {
			delete(out, name)
			continue
		}
		out[name] = canonical(v)
	}
	return out
}

// Omit returns a copy of q without the named parameters.
func Omit(q domain.Query, names ...string) domain.Query {
	out := make(domain.Query, len(q))
	for k, v := range q {
		out[k] = v
	}
	for _, name := range names {
		delete(out, name)
	}
	return out
}

// HasAny reports whether q carries at least one of the named parameters with a non-nil value.
func HasAny(q domain.Query, names ...string) bool {
	for _, name := range names {
		if v, ok := q[name]; ok && v != nil {
			return true
		}
	}
	return false
}

// Parse decodes a key produced by Stringify back into a query.
// Integral numbers decode as int64.
func Parse(key string) (domain.Query, error) {
	dec := json.NewDecoder(strings.NewReader(key))
	dec.UseNumber()

	var pairs [][2]any
	if err := dec.Decode(&pairs); err != nil {
		return nil, fmt.Errorf("%w: malformed query key: %v", domain.ErrInvalidQuery, err)
	}

	q := make(domain.Query, len(pairs))
	for _, p := range pairs {
		name, ok := p[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: parameter name %v is not a string", domain.ErrInvalidQuery, p[0])
		}
		q[name] = decoded(p[1])
	}
	return q, nil
}

// Int reads an integer parameter, accepting any numeric type or a decimal string.
func Int(q domain.Query, name string) (int, bool) {
	switch v := canonical(q[name]).(type) {
	case int64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func canonical(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		return val
	case string:
		return norm.NFC.String(val)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return float64(val)
		}
		return int64(val)
	case float32:
		return canonicalFloat(float64(val))
	case float64:
		return canonicalFloat(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return canonicalFloat(f)
		}
		return val.String()
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = norm.NFC.String(s)
		}
		return arr
	case []any:
		arr := make([]any, len(val))
		for i, elem := range val {
			arr[i] = canonical(elem)
		}
		return arr
	case map[string]any:
		obj := make(map[string]any, len(val))
		for k, elem := range val {
			if elem == nil {
				continue
			}
			obj[norm.NFC.String(k)] = canonical(elem)
		}
		return obj
	case domain.Query:
		return canonical(map[string]any(val))
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		arr := make([]any, rv.Len())
		for i := range arr {
			arr[i] = canonical(rv.Index(i).Interface())
		}
		return arr
	}
	return norm.NFC.String(fmt.Sprint(v))
}

// nonFinitePrefix tags NaN and infinities, which JSON cannot represent.
const nonFinitePrefix = "float:"

func canonicalFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nonFinitePrefix + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

func decoded(v any) any {
	switch val := v.(type) {
	case json.Number:
		return canonical(val)
	case []any:
		for i := range val {
			val[i] = decoded(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = decoded(val[k])
		}
		return val
	default:
		return v
	}
}
