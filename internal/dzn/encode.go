// Package dzn encodes and decodes the MiniZinc data (dzn) text format.
//
// The codec covers the value shapes the toolchain round-trips through
// solution output: integers, floats, booleans, strings, integer sets and
// ranges, and one-dimensional arrays.
package dzn

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Assignment maps variable names to decoded dzn values.
type Assignment map[string]any

// IntSet is an explicit integer set literal, e.g. {1, 3, 5}.
// Elements are kept sorted for deterministic encoding.
type IntSet []int

// IntRange is a contiguous integer set literal, e.g. 1..5.
type IntRange struct {
	Min int
	Max int
}

// Marshal encodes an assignment as dzn statements, one "name = value;"
// fragment per variable, sorted by name so the produced argument list is
// deterministic.
func Marshal(a Assignment) ([]string, error) {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)

	frags := make([]string, 0, len(names))
	for _, name := range names {
		v, err := marshalValue(a[name])
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}
		frags = append(frags, fmt.Sprintf("%s = %s;", name, v))
	}
	return frags, nil
}

func marshalValue(v any) (string, error) {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x), nil
	case float32:
		return formatFloat(float64(x)), nil
	case float64:
		return formatFloat(x), nil
	case string:
		return strconv.Quote(x), nil
	case IntSet:
		s := append(IntSet(nil), x...)
		sort.Ints(s)
		elems := make([]string, len(s))
		for i, e := range s {
			elems[i] = strconv.Itoa(e)
		}
		return "{" + strings.Join(elems, ", ") + "}", nil
	case IntRange:
		if x.Min > x.Max {
			return "", fmt.Errorf("empty range %d..%d", x.Min, x.Max)
		}
		return fmt.Sprintf("%d..%d", x.Min, x.Max), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		elems := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := marshalValue(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			elems[i] = e
		}
		return "[" + strings.Join(elems, ", ") + "]", nil
	}

	return "", fmt.Errorf("unsupported dzn value type %T", v)
}

// formatFloat renders a float so MiniZinc parses it as a float, never as an
// integer literal.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
