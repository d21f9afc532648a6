package harness

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jsonsmoke/internal/codec"
	"jsonsmoke/internal/history"
	"jsonsmoke/internal/jsontree"
	"jsonsmoke/internal/probe"
	"jsonsmoke/internal/timing"
)

type fakeRecorder struct {
	mu   sync.Mutex
	runs []history.Run
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, r *history.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *r)
	return f.err
}

func newRunner(t *testing.T, backend string) *Runner {
	t.Helper()
	b, err := codec.Open(backend, codec.DefaultLimits())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return NewRunner(b, timing.NewTracker(), zap.NewNop())
}

func testPlan(dir string, size int, seed uint64) Plan {
	opts := jsontree.DefaultOptions()
	opts.Size = size
	opts.Build = "test"
	return Plan{
		Options: opts,
		Seed:    seed,
		Path:    filepath.Join(dir, "doc.json"),
	}
}

func TestRoundtrip(t *testing.T) {
	for _, name := range codec.Names() {
		t.Run(name, func(t *testing.T) {
			r := newRunner(t, name)
			plan := testPlan(t.TempDir(), 400, 7)

			res, err := r.Roundtrip(context.Background(), plan)
			require.NoError(t, err)
			assert.NoError(t, res.Err)
			assert.Equal(t, name, res.Backend)
			assert.Len(t, res.RunID, 8)
			assert.Positive(t, res.Bytes)
			assert.Equal(t, 400+res.Generated.Objects, res.Measured.Values)
			assert.Equal(t, uint64(7), res.Probe.Seed)
			assert.Equal(t, 400, res.Probe.Size)

			for _, p := range timing.Phases {
				assert.Contains(t, res.Phases, p, "phase %s not timed", p)
			}

			_, err = os.Stat(plan.Path)
			assert.True(t, os.IsNotExist(err), "roundtrip without keep must remove its file")
		})
	}
}

func TestRoundtrip_Keep(t *testing.T) {
	r := newRunner(t, "stdlib")
	plan := testPlan(t.TempDir(), 50, 3)
	plan.Keep = true
	plan.Pretty = true

	_, err := r.Roundtrip(context.Background(), plan)
	require.NoError(t, err)

	data, err := os.ReadFile(plan.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ")
}

func TestGenerateThenRead(t *testing.T) {
	r := newRunner(t, "cybergodev")
	plan := testPlan(t.TempDir(), 120, 99)

	gen, err := r.Generate(context.Background(), plan)
	require.NoError(t, err)
	assert.Contains(t, gen.Phases, timing.PhaseGenerate)
	assert.Contains(t, gen.Phases, timing.PhaseWrite)
	assert.NotContains(t, gen.Phases, timing.PhaseRead)

	read, err := r.Read(context.Background(), plan.Path)
	require.NoError(t, err)
	assert.NotEqual(t, gen.RunID, read.RunID)
	assert.Equal(t, uint64(99), read.Seed)
	assert.Equal(t, 120, read.Size)
	assert.Equal(t, gen.Bytes, read.Bytes)
	assert.Equal(t, gen.Generated.Objects, read.Measured.Objects)
	assert.Equal(t, gen.Generated.Arrays, read.Measured.Arrays)
}

func TestGenerate_CreatesParentDir(t *testing.T) {
	r := newRunner(t, "stdlib")
	plan := testPlan(t.TempDir(), 10, 1)
	plan.Path = filepath.Join(filepath.Dir(plan.Path), "nested", "deeper", "doc.json")

	_, err := r.Generate(context.Background(), plan)
	require.NoError(t, err)
	assert.FileExists(t, plan.Path)
}

func TestRead_NotHarnessDocument(t *testing.T) {
	r := newRunner(t, "stdlib")
	path := filepath.Join(t.TempDir(), "plain.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1, 2, 3]`), 0o644))

	res, err := r.Read(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, probe.ErrNotHarnessDocument)
	assert.Equal(t, err, res.Err)
	assert.Contains(t, res.Phases, timing.PhaseParse)
}

func TestRead_InvalidJSON(t *testing.T) {
	r := newRunner(t, "stdlib")
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"size": 1, "data": [`), 0o644))

	_, err := r.Read(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestRead_MissingFile(t *testing.T) {
	r := newRunner(t, "stdlib")
	_, err := r.Read(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read")
}

func TestGenerate_Cancelled(t *testing.T) {
	r := newRunner(t, "stdlib")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Generate(ctx, testPlan(t.TempDir(), 10, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_InvalidOptions(t *testing.T) {
	r := newRunner(t, "stdlib")
	plan := testPlan(t.TempDir(), 10, 1)
	plan.Options.MaxFanout = 0

	_, err := r.Generate(context.Background(), plan)
	assert.ErrorIs(t, err, jsontree.ErrInvalidOptions)
}

func TestCompare(t *testing.T) {
	want := map[string]any{
		"size": 3,
		"data": []any{int64(4), 1.5, "ab", nil, true},
	}
	same := map[string]any{
		"size": json.Number("3"),
		"data": []any{4.0, json.Number("1.5"), "ab", nil, true},
	}
	assert.NoError(t, Compare(context.Background(), want, same))

	other := map[string]any{
		"size": 3.0,
		"data": []any{4.0, 1.5, "ac", nil, true},
	}
	err := Compare(context.Background(), want, other)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), `"ac"`)
	assert.Contains(t, err.Error(), "at data.2")
}

// chain nests depth single-member objects around leaf.
func chain(depth int, leaf any) any {
	v := leaf
	for i := 0; i < depth; i++ {
		v = map[string]any{"num": -(i + 1), "_AA0": []any{v}}
	}
	return v
}

func TestCompare_DeepNarrowTrees(t *testing.T) {
	opts := jsontree.DefaultOptions()
	opts.Size = 2000
	opts.MaxFanout = 1
	opts.MaxDepth = 40
	opts.Weights = jsontree.Weights{jsontree.KindObject: 1, jsontree.KindArray: 1}

	g, err := jsontree.NewGenerator(opts, 11)
	require.NoError(t, err)
	doc, st, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, st.MaxDepth, 26)

	raw, err := json.Marshal(doc.Tree())
	require.NoError(t, err)
	var decoded any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	start := time.Now()
	assert.NoError(t, Compare(context.Background(), doc.Tree(), decoded))
	assert.Less(t, time.Since(start), time.Second)

	want := map[string]any{"data": []any{chain(60, "ab")}}
	got := map[string]any{"data": []any{chain(60, "ac")}}
	start = time.Now()
	err = Compare(context.Background(), want, got)
	assert.Less(t, time.Since(start), time.Second)
	require.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), "data.0._AA0.0._AA0.0")
	assert.Contains(t, err.Error(), `"ac"`)
	assert.Less(t, len(err.Error()), 1024)
}

func TestCompare_CollapsesNestedContainers(t *testing.T) {
	want := map[string]any{"num": -3, "_AB1": chain(30, 1)}
	got := map[string]any{"num": -3, "_AB1": chain(30, 1), "_CD2": "x"}

	err := Compare(context.Background(), want, got)
	require.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), "at root")
	assert.Contains(t, err.Error(), "{2 members}")
	assert.Contains(t, err.Error(), "_CD2")
}

func TestCompare_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Compare(ctx, []any{1.0}, []any{2.0})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrMismatch)
}

func TestNormalize_LeavesStringsAlone(t *testing.T) {
	assert.Equal(t, "12", Normalize("12"))
	assert.Equal(t, []any{1.0, "x"}, Normalize([]any{1, "x"}))
}

func TestRecorder(t *testing.T) {
	r := newRunner(t, "stdlib")
	rec := &fakeRecorder{}
	r.SetRecorder(rec)

	dir := t.TempDir()
	_, err := r.Roundtrip(context.Background(), testPlan(dir, 20, 5))
	require.NoError(t, err)
	_, err = r.Read(context.Background(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	require.Len(t, rec.runs, 2)
	assert.Equal(t, "roundtrip", rec.runs[0].Command)
	assert.True(t, rec.runs[0].OK)
	assert.Equal(t, uint64(5), rec.runs[0].Seed)
	assert.Contains(t, rec.runs[0].Phases, "verify")

	assert.Equal(t, "read", rec.runs[1].Command)
	assert.False(t, rec.runs[1].OK)
	assert.NotEmpty(t, rec.runs[1].Error)
}

func TestRecorder_FailureDoesNotFailRun(t *testing.T) {
	r := newRunner(t, "stdlib")
	r.SetRecorder(&fakeRecorder{err: errors.New("disk full")})

	_, err := r.Roundtrip(context.Background(), testPlan(t.TempDir(), 20, 5))
	assert.NoError(t, err)
}

func TestRecorder_HistoryStore(t *testing.T) {
	r := newRunner(t, "stdlib")
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	r.SetRecorder(store)

	res, err := r.Roundtrip(context.Background(), testPlan(t.TempDir(), 30, 12))
	require.NoError(t, err)

	got, err := store.Get(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "stdlib", got.Backend)
	assert.Equal(t, uint64(12), got.Seed)
	assert.True(t, got.OK)
}
