package timing

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cybergodev/json"
)

// Tracker records phase timings. It is safe for concurrent use by batch jobs.
type Tracker struct {
	mu      sync.Mutex
	samples []Sample
	phases  map[Phase]*PhaseStats
	now     func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		phases: make(map[Phase]*PhaseStats),
		now:    time.Now,
	}
}

// Time runs fn and records its duration under phase, even when fn fails.
func (t *Tracker) Time(phase Phase, label string, fn func() error) error {
	start := t.now()
	err := fn()
	t.Record(Sample{
		Phase:    phase,
		Label:    label,
		Started:  start,
		Duration: t.now().Sub(start),
		Failed:   err != nil,
	})
	return err
}

// Record adds an already measured sample.
func (t *Tracker) Record(s Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples = append(t.samples, s)
	ps, ok := t.phases[s.Phase]
	if !ok {
		ps = &PhaseStats{}
		t.phases[s.Phase] = ps
	}
	ps.add(s.Duration, s.Failed)
}

// Stats returns a copy of the per-phase aggregates.
func (t *Tracker) Stats() map[Phase]PhaseStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[Phase]PhaseStats, len(t.phases))
	for p, ps := range t.phases {
		s := *ps
		if s.Count > 0 {
			s.Mean = s.Total / time.Duration(s.Count)
		}
		out[p] = s
	}
	return out
}

// Samples returns the recorded samples in insertion order.
func (t *Tracker) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sample(nil), t.samples...)
}

// Durations sums sample durations per phase for the given label.
func (t *Tracker) Durations(label string) map[Phase]time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[Phase]time.Duration)
	for _, s := range t.samples {
		if s.Label == label {
			out[s.Phase] += s.Duration
		}
	}
	return out
}

// Save writes the aggregates and samples as indented JSON.
func (t *Tracker) Save(path string) error {
	report := struct {
		Phases  map[Phase]PhaseStats `json:"phases"`
		Samples []Sample             `json:"samples"`
	}{
		Phases:  t.Stats(),
		Samples: t.Samples(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal timings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create timings dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
