package jsontree

import (
	"encoding/json"
	"math"
	"strconv"
)

// Stats counts values by kind. For generator output Values equals the
// requested size; Measure counts every node it walks, including the "num"
// member each object starts with.
type Stats struct {
	Values   int `json:"values"`
	Ints     int `json:"ints"`
	Floats   int `json:"floats"`
	Strings  int `json:"strings"`
	Bools    int `json:"bools"`
	Nulls    int `json:"nulls"`
	Objects  int `json:"objects"`
	Arrays   int `json:"arrays"`
	MaxDepth int `json:"max_depth"`
	Dropped  int `json:"dropped,omitempty"`
}

func (s *Stats) count(k Kind, depth int) {
	s.Values++
	switch k {
	case KindInt:
		s.Ints++
	case KindFloat:
		s.Floats++
	case KindString:
		s.Strings++
	case KindBool:
		s.Bools++
	case KindNull:
		s.Nulls++
	case KindObject:
		s.Objects++
	case KindArray:
		s.Arrays++
	}
	if depth > s.MaxDepth {
		s.MaxDepth = depth
	}
}

// Measure walks every value below root (root itself is not counted). Numbers
// with no fractional part count as ints whatever their decoded Go type.
func Measure(root any) Stats {
	var s Stats
	walkChildren(root, 1, &s)
	return s
}

func walkChildren(v any, depth int, s *Stats) {
	switch c := v.(type) {
	case map[string]any:
		for _, child := range c {
			walk(child, depth, s)
		}
	case []any:
		for _, child := range c {
			walk(child, depth, s)
		}
	case *array:
		for _, child := range c.items {
			walk(child, depth, s)
		}
	}
}

func walk(v any, depth int, s *Stats) {
	kind := KindOf(v)
	s.count(kind, depth)
	if kind.Composite() {
		walkChildren(v, depth+1, s)
	}
}

// KindOf classifies a decoded JSON value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case string:
		return KindString
	case map[string]any:
		return KindObject
	case []any, *array:
		return KindArray
	}
	if f, ok := Number(v); ok {
		if f == math.Trunc(f) {
			return KindInt
		}
		return KindFloat
	}
	// Unknown scalar types are reported as strings.
	return KindString
}

type float64er interface {
	Float64() (float64, error)
}

// Number converts any decoded numeric representation to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64er:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Header extracts the harness header from a decoded document.
func Header(doc any) (build string, size int, seed uint64, ok bool) {
	root, isObj := doc.(map[string]any)
	if !isObj {
		return "", 0, 0, false
	}
	build, _ = root["build"].(string)
	f, isNum := Number(root["size"])
	if !isNum {
		return "", 0, 0, false
	}
	size = int(f)
	if s, isStr := root["seed"].(string); isStr {
		parsed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return "", 0, 0, false
		}
		seed = parsed
	}
	if _, hasData := root["data"].([]any); !hasData {
		return "", 0, 0, false
	}
	return build, size, seed, true
}
