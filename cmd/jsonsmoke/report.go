package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"jsonsmoke/internal/history"
	"jsonsmoke/internal/timing"
)

// markdownReport summarizes runs as a Markdown document: a run table and the
// mean duration of each phase per backend.
func markdownReport(runs []history.Run) string {
	var sb strings.Builder
	sb.WriteString("# jsonsmoke report\n\n")
	if len(runs) == 0 {
		sb.WriteString("_No runs recorded._\n")
		return sb.String()
	}

	failed := 0
	for _, r := range runs {
		if !r.OK {
			failed++
		}
	}
	fmt.Fprintf(&sb, "%d runs, %d failed.\n\n", len(runs), failed)

	sb.WriteString("| id | command | backend | seed | size | bytes | ms | ok |\n")
	sb.WriteString("|---|---|---|---:|---:|---:|---:|---|\n")
	for _, r := range runs {
		ok := "yes"
		if !r.OK {
			ok = "**no**"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %d | %d | %d | %s | %s |\n",
			r.ID, r.Command, r.Backend, r.Seed, r.Size, r.Bytes, ms(totalDuration(r.Phases)), ok)
	}

	means := phaseMeans(runs)
	backends := make([]string, 0, len(means))
	for b := range means {
		backends = append(backends, b)
	}
	sort.Strings(backends)

	sb.WriteString("\n## Mean phase time (ms)\n\n")
	sb.WriteString("| backend |")
	for _, p := range timing.Phases {
		sb.WriteString(" " + string(p) + " |")
	}
	sb.WriteString("\n|---|")
	for range timing.Phases {
		sb.WriteString("---:|")
	}
	sb.WriteString("\n")
	for _, b := range backends {
		sb.WriteString("| " + b + " |")
		for _, p := range timing.Phases {
			ps := means[b][p]
			if ps.Count == 0 {
				sb.WriteString(" - |")
				continue
			}
			sb.WriteString(" " + ms(ps.Mean) + " |")
		}
		sb.WriteString("\n")
	}

	if failed > 0 {
		sb.WriteString("\n## Failures\n\n")
	}
	for _, r := range runs {
		if r.OK {
			continue
		}
		fmt.Fprintf(&sb, "- `%s` %s (seed %d): %s\n", r.ID, r.Command, r.Seed, r.Error)
	}
	return sb.String()
}

// phaseMeans aggregates recorded phase durations per backend.
func phaseMeans(runs []history.Run) map[string]map[timing.Phase]timing.PhaseStats {
	trackers := make(map[string]*timing.Tracker)
	for _, r := range runs {
		tr, ok := trackers[r.Backend]
		if !ok {
			tr = timing.NewTracker()
			trackers[r.Backend] = tr
		}
		for name, d := range r.Phases {
			tr.Record(timing.Sample{Phase: timing.Phase(name), Label: r.ID, Duration: d})
		}
	}
	out := make(map[string]map[timing.Phase]timing.PhaseStats, len(trackers))
	for b, tr := range trackers {
		out[b] = tr.Stats()
	}
	return out
}

// renderMarkdown renders md for the terminal. An empty style picks one from
// the terminal background.
func renderMarkdown(md, style string) (string, error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStylePath(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}

