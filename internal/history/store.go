// Package history persists harness runs in a local SQLite database so timings
// can be compared across library versions and machines.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cybergodev/json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for unknown run ids.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	command    TEXT NOT NULL,
	backend    TEXT NOT NULL,
	seed       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	bytes      INTEGER NOT NULL DEFAULT 0,
	path       TEXT NOT NULL DEFAULT '',
	ok         INTEGER NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	phases     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`

// Run is one recorded harness invocation.
type Run struct {
	ID        string
	StartedAt time.Time
	Command   string
	Backend   string
	Seed      uint64
	Size      int
	Bytes     int64
	Path      string
	OK        bool
	Error     string
	// Phases maps phase name to duration.
	Phases map[string]time.Duration
}

// NewRunID returns a short random run id.
func NewRunID() string {
	return uuid.New().String()[:8]
}

// Store wraps the history database.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	// One writer keeps concurrent batch jobs from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	logger.Debug("history opened", zap.String("path", path))
	return &Store{db: db, path: path, logger: logger}, nil
}

func (s *Store) Path() string { return s.path }

// Record inserts a run. A missing id or start time is filled in.
func (s *Store) Record(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = NewRunID()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	phases, err := encodePhases(r.Phases)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, command, backend, seed, size, bytes, path, ok, error, phases)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixNano(), r.Command, r.Backend, strconv.FormatUint(r.Seed, 10), r.Size,
		r.Bytes, r.Path, boolToInt(r.OK), r.Error, phases)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.ID, err)
	}
	s.logger.Debug("run recorded", zap.String("id", r.ID), zap.String("command", r.Command), zap.Bool("ok", r.OK))
	return nil
}

// List returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, command, backend, seed, size, bytes, path, ok, error, phases
		FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns a single run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, command, backend, seed, size, bytes, path, ok, error, phases
		 FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r       Run
		started int64
		seed    string
		ok      int
		phases  string
	)
	if err := sc.Scan(&r.ID, &started, &r.Command, &r.Backend, &seed, &r.Size,
		&r.Bytes, &r.Path, &ok, &r.Error, &phases); err != nil {
		return Run{}, err
	}
	r.StartedAt = time.Unix(0, started)
	r.OK = ok != 0
	n, err := strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return Run{}, fmt.Errorf("run %s has bad seed %q: %w", r.ID, seed, err)
	}
	r.Seed = n
	p, err := decodePhases(phases)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", r.ID, err)
	}
	r.Phases = p
	return r, nil
}

func encodePhases(p map[string]time.Duration) (string, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	ns := make(map[string]int64, len(p))
	for k, d := range p {
		ns[k] = int64(d)
	}
	data, err := json.Marshal(ns)
	if err != nil {
		return "", fmt.Errorf("failed to encode phases: %w", err)
	}
	return string(data), nil
}

func decodePhases(s string) (map[string]time.Duration, error) {
	var ns map[string]int64
	if err := json.Unmarshal([]byte(s), &ns); err != nil {
		return nil, fmt.Errorf("failed to decode phases: %w", err)
	}
	out := make(map[string]time.Duration, len(ns))
	for k, v := range ns {
		out[k] = time.Duration(v)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
