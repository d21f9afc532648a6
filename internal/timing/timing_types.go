package timing

import "time"

// Phase names one timed step of a harness run.
type Phase string

const (
	PhaseGenerate Phase = "generate"
	PhaseWrite    Phase = "write"
	PhaseRead     Phase = "read"
	PhaseParse    Phase = "parse"
	PhaseVerify   Phase = "verify"
	PhaseProbe    Phase = "probe"
)

// Phases lists phases in the order a roundtrip runs them.
var Phases = []Phase{PhaseGenerate, PhaseWrite, PhaseRead, PhaseParse, PhaseProbe, PhaseVerify}

// Sample is a single timed phase execution.
type Sample struct {
	Phase    Phase         `json:"phase"`
	Label    string        `json:"label,omitempty"` // run id or file name
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
	Failed   bool          `json:"failed,omitempty"`
}

// PhaseStats aggregates the samples of one phase.
type PhaseStats struct {
	Count  int           `json:"count"`
	Failed int           `json:"failed"`
	Total  time.Duration `json:"total_ns"`
	Min    time.Duration `json:"min_ns"`
	Max    time.Duration `json:"max_ns"`
	Mean   time.Duration `json:"mean_ns"`
}

func (ps *PhaseStats) add(d time.Duration, failed bool) {
	if ps.Count == 0 || d < ps.Min {
		ps.Min = d
	}
	if d > ps.Max {
		ps.Max = d
	}
	ps.Count++
	ps.Total += d
	if failed {
		ps.Failed++
	}
}

// Millis formats a duration as milliseconds with three decimals.
func Millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
