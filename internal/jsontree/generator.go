// Package jsontree builds randomized JSON trees for exercising JSON libraries.
//
// A Generator fills a document with Size random values. Pending writes live in
// a Worklist of Actions; each generated value consumes one random action, and
// each new container contributes fresh actions that target it. Generation is
// deterministic for a given Options and seed.
package jsontree

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"go.uber.org/zap"
)

// ErrInvalidOptions is returned for option values the generator cannot honour.
var ErrInvalidOptions = errors.New("invalid generator options")

const (
	DefaultMaxInt    = 10000
	DefaultMaxFanout = 4
	DefaultMaxDepth  = 32

	maxFanoutLimit = 64
	checkEvery     = 1024
)

// Options controls the shape of generated documents.
type Options struct {
	Size      int
	MaxInt    int
	MaxFanout int
	MaxDepth  int
	Build     string
	Weights   Weights
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Size:      1000,
		MaxInt:    DefaultMaxInt,
		MaxFanout: DefaultMaxFanout,
		MaxDepth:  DefaultMaxDepth,
		Build:     "dev",
		Weights:   DefaultWeights(),
	}
}

// Validate checks the options without generating anything.
func (o Options) Validate() error {
	switch {
	case o.Size < 0:
		return fmt.Errorf("%w: size %d is negative", ErrInvalidOptions, o.Size)
	case o.MaxInt <= 0:
		return fmt.Errorf("%w: max int must be positive, got %d", ErrInvalidOptions, o.MaxInt)
	case o.MaxFanout < 1 || o.MaxFanout > maxFanoutLimit:
		return fmt.Errorf("%w: max fanout %d outside [1,%d]", ErrInvalidOptions, o.MaxFanout, maxFanoutLimit)
	case o.MaxDepth < 1:
		return fmt.Errorf("%w: max depth must be at least 1, got %d", ErrInvalidOptions, o.MaxDepth)
	}
	if newTable(o.Weights, false).empty() {
		return fmt.Errorf("%w: all kind weights are zero", ErrInvalidOptions)
	}
	for k, w := range o.Weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight %d for %s", ErrInvalidOptions, w, k)
		}
	}
	return nil
}

// Document is a generated harness document.
type Document struct {
	Build string
	Size  int
	Seed  uint64
	Data  []any
}

// Tree returns the document as the generic value tree handed to JSON
// encoders. The seed is a decimal string so it survives float64 decoding.
func (d Document) Tree() map[string]any {
	data := d.Data
	if data == nil {
		data = []any{}
	}
	return map[string]any{
		"build": d.Build,
		"size":  d.Size,
		"seed":  strconv.FormatUint(d.Seed, 10),
		"data":  data,
	}
}

// Generator produces random documents.
type Generator struct {
	opts   Options
	seed   uint64
	rng    *rand.Rand
	all    table
	leaves table
	logger *zap.Logger
}

// NewGenerator validates opts and seeds a PCG source from seed.
func NewGenerator(opts Options, seed uint64) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		opts:   opts,
		seed:   seed,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		all:    newTable(opts.Weights, false),
		leaves: newTable(opts.Weights, true),
		logger: zap.NewNop(),
	}, nil
}

// SetLogger attaches a logger for generation progress.
func (g *Generator) SetLogger(l *zap.Logger) {
	if l != nil {
		g.logger = l
	}
}

func (g *Generator) Seed() uint64 { return g.seed }

// Generate runs the worklist loop until Size values have been placed.
func (g *Generator) Generate(ctx context.Context) (Document, Stats, error) {
	data := &array{}
	wl := NewWorklist(g.opts.Size + 1)
	wl.Push(Action{Depth: 1, Sticky: true, write: data.append})

	var st Stats
	containers := 0
	for remaining := g.opts.Size; remaining > 0; remaining-- {
		if (g.opts.Size-remaining)%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Document{}, Stats{}, err
			}
		}

		act := wl.Take(g.rng)
		v, kind := g.value(remaining, act.Depth)
		act.Apply(v)
		st.count(kind, act.Depth)

		if !kind.Composite() {
			continue
		}
		containers++
		write := g.slotWriter(v)
		for n := 1 + g.rng.IntN(g.opts.MaxFanout); n > 0; n-- {
			wl.Push(Action{Depth: act.Depth + 1, write: write})
		}
	}
	st.Dropped = wl.Pending()

	doc := Document{
		Build: g.opts.Build,
		Size:  g.opts.Size,
		Seed:  g.seed,
		Data:  data.materialize(),
	}
	g.logger.Debug("document generated",
		zap.Uint64("seed", g.seed),
		zap.Int("size", g.opts.Size),
		zap.Int("containers", containers),
		zap.Int("max_depth", st.MaxDepth),
		zap.Int("dropped", st.Dropped))
	return doc, st, nil
}

// value builds one random value for a slot at depth. remaining counts this
// value and the ones still to come.
func (g *Generator) value(remaining, depth int) (any, Kind) {
	t := g.all
	if depth >= g.opts.MaxDepth {
		t = g.leaves
	}
	kind := KindInt
	if !t.empty() {
		kind = t.pick(g.rng.IntN(t.total))
	}

	switch kind {
	case KindString:
		return g.shortString(), kind
	case KindObject:
		return map[string]any{"num": -remaining}, kind
	case KindArray:
		return &array{}, kind
	case KindNull:
		return nil, kind
	case KindBool:
		return g.rng.IntN(2) == 1, kind
	case KindFloat:
		whole := float64(g.rng.IntN(g.opts.MaxInt))
		frac := float64(1+g.rng.IntN(999)) / 1000
		return whole + frac, kind
	default:
		return g.rng.IntN(g.opts.MaxInt), KindInt
	}
}

// shortString is two lowercase letters, followed by a digit two times in three.
func (g *Generator) shortString() string {
	buf := make([]byte, 2, 3)
	buf[0] = byte('a' + g.rng.IntN(26))
	buf[1] = byte('a' + g.rng.IntN(26))
	if g.rng.IntN(3) != 0 {
		buf = append(buf, byte('0'+g.rng.IntN(10)))
	}
	return string(buf)
}

// memberKey draws "_" + two uppercase letters + a number below 100 until the
// key is free in obj.
func (g *Generator) memberKey(obj map[string]any) string {
	for {
		key := "_" + string([]byte{
			byte('A' + g.rng.IntN(26)),
			byte('A' + g.rng.IntN(26)),
		}) + strconv.Itoa(g.rng.IntN(100))
		if _, taken := obj[key]; !taken {
			return key
		}
	}
}

func (g *Generator) slotWriter(container any) func(any) {
	switch c := container.(type) {
	case map[string]any:
		return func(v any) { c[g.memberKey(c)] = v }
	case *array:
		return c.append
	}
	panic(fmt.Sprintf("jsontree: %T is not a container", container))
}

// array is a growable array handle. Closures hold the handle, so appends never
// go to a stale copy of the slice; materialize swaps handles for plain slices.
type array struct {
	items []any
}

func (a *array) append(v any) {
	a.items = append(a.items, v)
}

func (a *array) materialize() []any {
	out := make([]any, len(a.items))
	for i, v := range a.items {
		out[i] = materialize(v)
	}
	return out
}

func materialize(v any) any {
	switch c := v.(type) {
	case *array:
		return c.materialize()
	case map[string]any:
		for k, child := range c {
			c[k] = materialize(child)
		}
		return c
	default:
		return v
	}
}
