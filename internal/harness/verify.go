package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/google/go-cmp/cmp"

	"jsonsmoke/internal/jsontree"
)

const maxDiffLen = 4096

// Normalize rewrites every number in a decoded tree as float64 so trees from
// different decoders compare equal.
func Normalize(v any) any {
	switch c := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, x := range c {
			out[k] = Normalize(x)
		}
		return out
	case []any:
		out := make([]any, len(c))
		for i, x := range c {
			out[i] = Normalize(x)
		}
		return out
	}
	if f, ok := jsontree.Number(v); ok {
		return f
	}
	return v
}

// Compare returns an error wrapping ErrMismatch when want and got differ
// after normalization. The diff covers only the first differing node, with
// its nested containers collapsed, so it stays small on deep trees.
func Compare(ctx context.Context, want, got any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, g := Normalize(want), Normalize(got)
	if reflect.DeepEqual(w, g) {
		return nil
	}

	path, dw, dg, err := firstDifference(ctx, "", w, g)
	if err != nil {
		return err
	}
	if path == "" {
		path = "root"
	}
	diff := cmp.Diff(collapse(dw), collapse(dg))
	if len(diff) > maxDiffLen {
		diff = diff[:maxDiffLen] + "\n... (truncated)"
	}
	return fmt.Errorf("%w at %s (-want +got):\n%s", ErrMismatch, path, diff)
}

// firstDifference descends while want and got share their shape and returns
// the deepest node whose own members differ. Paths use gjson syntax.
func firstDifference(ctx context.Context, path string, want, got any) (string, any, any, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, nil, err
	}
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok || len(g) != len(w) {
			return path, want, got, nil
		}
		keys := make([]string, 0, len(w))
		for k := range w {
			if _, ok := g[k]; !ok {
				return path, want, got, nil
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !reflect.DeepEqual(w[k], g[k]) {
				return firstDifference(ctx, joinPath(path, k), w[k], g[k])
			}
		}
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return path, want, got, nil
		}
		for i := range w {
			if !reflect.DeepEqual(w[i], g[i]) {
				return firstDifference(ctx, joinPath(path, strconv.Itoa(i)), w[i], g[i])
			}
		}
	}
	return path, want, got, nil
}

func joinPath(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}

// collapse replaces the containers nested in v with a size summary.
func collapse(v any) any {
	switch c := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, x := range c {
			out[k] = summary(x)
		}
		return out
	case []any:
		out := make([]any, len(c))
		for i, x := range c {
			out[i] = summary(x)
		}
		return out
	}
	return v
}

func summary(v any) any {
	switch c := v.(type) {
	case map[string]any:
		return fmt.Sprintf("{%d members}", len(c))
	case []any:
		return fmt.Sprintf("[%d elements]", len(c))
	}
	return v
}
