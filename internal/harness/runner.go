// Package harness runs the timed phases of a JSON smoke test against one
// backend: generate, write, read, parse, probe and verify.
package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"jsonsmoke/internal/codec"
	"jsonsmoke/internal/history"
	"jsonsmoke/internal/jsontree"
	"jsonsmoke/internal/probe"
	"jsonsmoke/internal/timing"
)

// ErrMismatch means the decoded document differs from what was generated.
var ErrMismatch = errors.New("decoded document differs from generated document")

// Recorder persists finished runs. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, r *history.Run) error
}

// Plan describes one document to generate.
type Plan struct {
	Options jsontree.Options
	Seed    uint64
	Path    string
	Pretty  bool
	// Keep leaves roundtrip files on disk.
	Keep bool
}

// Result is the outcome of one run. It is filled in as far as the run got.
type Result struct {
	RunID     string
	Command   string
	Backend   string
	Seed      uint64
	Size      int
	Path      string
	Bytes     int64
	Generated jsontree.Stats
	Measured  jsontree.Stats
	Probe     probe.Report
	Phases    map[timing.Phase]time.Duration
	Err       error
}

// Runner drives one backend.
type Runner struct {
	backend  codec.Backend
	tracker  *timing.Tracker
	logger   *zap.Logger
	genLog   *zap.Logger
	recorder Recorder
}

// NewRunner creates a runner. A nil tracker gets a fresh one; a nil logger is a no-op.
func NewRunner(backend codec.Backend, tracker *timing.Tracker, logger *zap.Logger) *Runner {
	if tracker == nil {
		tracker = timing.NewTracker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		backend: backend,
		tracker: tracker,
		logger:  logger,
		genLog:  zap.NewNop(),
	}
}

// SetRecorder enables history recording for every finished run.
func (r *Runner) SetRecorder(rec Recorder) { r.recorder = rec }

// SetGeneratorLogger routes generator debug output.
func (r *Runner) SetGeneratorLogger(l *zap.Logger) {
	if l != nil {
		r.genLog = l
	}
}

func (r *Runner) Tracker() *timing.Tracker { return r.tracker }

// Generate builds a document and writes it to plan.Path.
func (r *Runner) Generate(ctx context.Context, plan Plan) (Result, error) {
	res := r.newResult("generate", plan)
	_, err := r.generateAndWrite(ctx, plan, &res)
	return r.finish(ctx, res, err)
}

// Read loads, parses and probes an existing document.
func (r *Runner) Read(ctx context.Context, path string) (Result, error) {
	res := r.newResult("read", Plan{Path: path})
	_, err := r.readBack(ctx, path, &res)
	if err == nil {
		res.Seed, res.Size = res.Probe.Seed, res.Probe.Size
	}
	return r.finish(ctx, res, err)
}

// Roundtrip generates, writes, reads back and verifies one document.
func (r *Runner) Roundtrip(ctx context.Context, plan Plan) (Result, error) {
	return r.roundtrip(ctx, plan, "roundtrip")
}

func (r *Runner) roundtrip(ctx context.Context, plan Plan, command string) (Result, error) {
	res := r.newResult(command, plan)
	if !plan.Keep {
		defer os.Remove(plan.Path)
	}

	doc, err := r.generateAndWrite(ctx, plan, &res)
	if err != nil {
		return r.finish(ctx, res, err)
	}
	decoded, err := r.readBack(ctx, plan.Path, &res)
	if err != nil {
		return r.finish(ctx, res, err)
	}

	err = r.tracker.Time(timing.PhaseVerify, res.RunID, func() error {
		if err := res.Probe.Check(plan.Options.Size, plan.Seed); err != nil {
			return err
		}
		return Compare(ctx, doc.Tree(), decoded)
	})
	if err != nil {
		err = fmt.Errorf("verify: %w", err)
	}
	return r.finish(ctx, res, err)
}

func (r *Runner) generateAndWrite(ctx context.Context, plan Plan, res *Result) (jsontree.Document, error) {
	var doc jsontree.Document
	err := r.tracker.Time(timing.PhaseGenerate, res.RunID, func() error {
		g, err := jsontree.NewGenerator(plan.Options, plan.Seed)
		if err != nil {
			return err
		}
		g.SetLogger(r.genLog)
		doc, res.Generated, err = g.Generate(ctx)
		return err
	})
	if err != nil {
		return doc, fmt.Errorf("generate: %w", err)
	}

	err = r.tracker.Time(timing.PhaseWrite, res.RunID, func() error {
		if err := os.MkdirAll(filepath.Dir(plan.Path), 0o755); err != nil {
			return err
		}
		return r.backend.WriteFile(plan.Path, doc.Tree(), plan.Pretty)
	})
	if err != nil {
		return doc, fmt.Errorf("write %s: %w", plan.Path, err)
	}
	if info, err := os.Stat(plan.Path); err == nil {
		res.Bytes = info.Size()
	}
	return doc, nil
}

func (r *Runner) readBack(ctx context.Context, path string, res *Result) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := r.tracker.Time(timing.PhaseRead, res.RunID, func() error {
		var err error
		data, err = r.backend.ReadFile(path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	res.Bytes = int64(len(data))

	var decoded any
	err = r.tracker.Time(timing.PhaseParse, res.RunID, func() error {
		var err error
		decoded, err = r.backend.Unmarshal(data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	err = r.tracker.Time(timing.PhaseProbe, res.RunID, func() error {
		var err error
		res.Probe, err = probe.Inspect(data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	root, _ := decoded.(map[string]any)
	res.Measured = jsontree.Measure(root["data"])
	return decoded, nil
}

func (r *Runner) newResult(command string, plan Plan) Result {
	return Result{
		RunID:   history.NewRunID(),
		Command: command,
		Backend: r.backend.Name(),
		Seed:    plan.Seed,
		Size:    plan.Options.Size,
		Path:    plan.Path,
	}
}

func (r *Runner) finish(ctx context.Context, res Result, err error) (Result, error) {
	res.Err = err
	res.Phases = r.tracker.Durations(res.RunID)

	fields := []zap.Field{
		zap.String("run", res.RunID),
		zap.String("command", res.Command),
		zap.String("backend", res.Backend),
		zap.Uint64("seed", res.Seed),
		zap.Int("size", res.Size),
		zap.Int64("bytes", res.Bytes),
	}
	if err != nil {
		r.logger.Warn("run failed", append(fields, zap.Error(err))...)
	} else {
		r.logger.Info("run finished", fields...)
	}

	if r.recorder != nil {
		run := &history.Run{
			ID:      res.RunID,
			Command: res.Command,
			Backend: res.Backend,
			Seed:    res.Seed,
			Size:    res.Size,
			Bytes:   res.Bytes,
			Path:    res.Path,
			OK:      err == nil,
			Phases:  make(map[string]time.Duration, len(res.Phases)),
		}
		if err != nil {
			run.Error = err.Error()
		}
		for p, d := range res.Phases {
			run.Phases[string(p)] = d
		}
		// Recording is best effort; the run's own outcome wins.
		if recErr := r.recorder.Record(context.WithoutCancel(ctx), run); recErr != nil {
			r.logger.Warn("failed to record run", zap.String("run", res.RunID), zap.Error(recErr))
		}
	}
	return res, err
}
