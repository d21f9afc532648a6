package jsontree

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the variant of a generated JSON value.
type Kind int

const (
	KindInt Kind = iota
	KindString
	KindObject
	KindArray
	KindNull
	KindBool
	KindFloat

	numKinds
)

var kindNames = [numKinds]string{
	KindInt:    "int",
	KindString: "string",
	KindObject: "object",
	KindArray:  "array",
	KindNull:   "null",
	KindBool:   "bool",
	KindFloat:  "float",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Composite reports whether values of this kind hold other values.
func (k Kind) Composite() bool {
	return k == KindObject || k == KindArray
}

// ParseKind maps a kind name (as used in config files) to its Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidOptions, name)
}

// Weights holds the relative draw weight of every kind. Missing kinds weigh 0.
type Weights map[Kind]int

// DefaultWeights is a uniform draw over int, string, object and array.
func DefaultWeights() Weights {
	return Weights{
		KindInt:    1,
		KindString: 1,
		KindObject: 1,
		KindArray:  1,
	}
}

// WeightsFromNames converts a name-keyed weight table (config form) to Weights.
func WeightsFromNames(named map[string]int) (Weights, error) {
	w := make(Weights, len(named))
	for name, weight := range named {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if weight < 0 {
			return nil, fmt.Errorf("%w: negative weight %d for %s", ErrInvalidOptions, weight, k)
		}
		w[k] = weight
	}
	return w, nil
}

// Names returns the weights keyed by kind name, in a stable order when printed.
func (w Weights) Names() map[string]int {
	out := make(map[string]int, len(w))
	for k, v := range w {
		out[k.String()] = v
	}
	return out
}

func (w Weights) String() string {
	parts := make([]string, 0, len(w))
	for k, v := range w {
		if v > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, v))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// table is a cumulative weight table used for weighted draws.
type table struct {
	kinds []Kind
	cum   []int
	total int
}

func newTable(w Weights, leavesOnly bool) table {
	var t table
	for k := Kind(0); k < numKinds; k++ {
		if leavesOnly && k.Composite() {
			continue
		}
		if n := w[k]; n > 0 {
			t.total += n
			t.kinds = append(t.kinds, k)
			t.cum = append(t.cum, t.total)
		}
	}
	return t
}

func (t table) empty() bool { return t.total == 0 }

func (t table) pick(r int) Kind {
	i := sort.SearchInts(t.cum, r+1)
	return t.kinds[i]
}
