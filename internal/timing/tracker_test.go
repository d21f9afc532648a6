package timing

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// fakeClock advances by step on every call.
func fakeClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

func TestTracker_TimeAggregates(t *testing.T) {
	tracker := NewTracker()
	tracker.now = fakeClock(time.Millisecond)

	boom := errors.New("boom")
	if err := tracker.Time(PhaseWrite, "run1", func() error { return nil }); err != nil {
		t.Fatalf("Time returned %v", err)
	}
	if err := tracker.Time(PhaseWrite, "run1", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Time should pass through fn error, got %v", err)
	}
	tracker.Record(Sample{Phase: PhaseWrite, Label: "run2", Duration: 5 * time.Millisecond})

	stats := tracker.Stats()[PhaseWrite]
	if stats.Count != 3 || stats.Failed != 1 {
		t.Fatalf("write stats=%+v, want count=3 failed=1", stats)
	}
	if stats.Min != time.Millisecond || stats.Max != 5*time.Millisecond {
		t.Fatalf("min/max=%v/%v, want 1ms/5ms", stats.Min, stats.Max)
	}
	if stats.Total != 7*time.Millisecond || stats.Mean != 7*time.Millisecond/3 {
		t.Fatalf("total=%v mean=%v", stats.Total, stats.Mean)
	}

	if got := tracker.Durations("run1")[PhaseWrite]; got != 2*time.Millisecond {
		t.Fatalf("Durations(run1)=%v, want 2ms", got)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	tracker := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = tracker.Time(PhaseParse, "", func() error { return nil })
			}
		}()
	}
	wg.Wait()

	if got := tracker.Stats()[PhaseParse].Count; got != 800 {
		t.Fatalf("count=%d, want 800", got)
	}
	if got := len(tracker.Samples()); got != 800 {
		t.Fatalf("samples=%d, want 800", got)
	}
}

func TestTracker_Save(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(Sample{Phase: PhaseGenerate, Duration: 3 * time.Millisecond})
	tracker.Record(Sample{Phase: PhaseGenerate, Duration: 6 * time.Millisecond})

	path := filepath.Join(t.TempDir(), "out", "timings.json")
	if err := tracker.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read timings: %v", err)
	}
	var persisted struct {
		Phases map[string]PhaseStats `json:"phases"`
	}
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshal timings: %v", err)
	}
	gen := persisted.Phases["generate"]
	if gen.Total != 9*time.Millisecond || gen.Mean != 4500*time.Microsecond {
		t.Fatalf("persisted generate total=%v mean=%v", gen.Total, gen.Mean)
	}
	var raw struct {
		Phases map[string]map[string]any `json:"phases"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw timings: %v", err)
	}
	if got, ok := raw.Phases["generate"]["mean_ns"]; !ok || got != float64(4500*time.Microsecond) {
		t.Fatalf("mean_ns=%v present=%v", got, ok)
	}
}

func TestMillis(t *testing.T) {
	if got := Millis(1500 * time.Microsecond); got != 1.5 {
		t.Fatalf("Millis=%v, want 1.5", got)
	}
}
