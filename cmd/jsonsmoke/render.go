package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"jsonsmoke/cmd/jsonsmoke/ui"
	"jsonsmoke/internal/harness"
	"jsonsmoke/internal/history"
	"jsonsmoke/internal/jsontree"
	"jsonsmoke/internal/timing"
)

var defaultStyles = ui.DefaultStyles()

func ms(d time.Duration) string {
	return strconv.FormatFloat(timing.Millis(d), 'f', 3, 64)
}

// renderResult prints one run: status line, header fields, value counts and
// the timing of each phase it reached.
func renderResult(res harness.Result) string {
	s := defaultStyles
	var sb strings.Builder

	title := res.Command + " " + res.Backend
	if res.Err != nil {
		sb.WriteString(s.Status(false, title+" failed") + "\n")
		sb.WriteString(s.Field("error", res.Err.Error()) + "\n")
	} else {
		sb.WriteString(s.Status(true, title+" ok") + "\n")
	}
	sb.WriteString(s.Field("run", res.RunID) + "\n")
	sb.WriteString(s.Field("file", res.Path) + "\n")
	sb.WriteString(s.Field("seed", strconv.FormatUint(res.Seed, 10)) + "\n")
	sb.WriteString(s.Field("size", strconv.Itoa(res.Size)) + "\n")
	if res.Bytes > 0 {
		sb.WriteString(s.Field("bytes", strconv.FormatInt(res.Bytes, 10)) + "\n")
	}

	counts := res.Measured
	if counts.Values == 0 {
		counts = res.Generated
	}
	if counts.Values > 0 {
		sb.WriteString(s.Field("values", kindSummary(counts)) + "\n")
	}

	tbl := ui.NewSimpleTable("", "phase", "ms")
	for _, p := range timing.Phases {
		if d, ok := res.Phases[p]; ok {
			tbl.AddRow(string(p), ms(d))
		}
	}
	if view := tbl.View(s); view != "" {
		sb.WriteString("\n" + view)
	}
	sb.WriteString("\n")
	return sb.String()
}

func kindSummary(st jsontree.Stats) string {
	parts := []string{fmt.Sprintf("%d total", st.Values)}
	for _, kv := range []struct {
		name string
		n    int
	}{
		{"int", st.Ints},
		{"float", st.Floats},
		{"string", st.Strings},
		{"bool", st.Bools},
		{"null", st.Nulls},
		{"object", st.Objects},
		{"array", st.Arrays},
	} {
		if kv.n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", kv.name, kv.n))
		}
	}
	parts = append(parts, fmt.Sprintf("depth=%d", st.MaxDepth))
	return strings.Join(parts, " ")
}

// renderBatch prints one row per document and the aggregate phase stats.
func renderBatch(results []harness.Result, stats map[timing.Phase]timing.PhaseStats) string {
	s := defaultStyles
	var sb strings.Builder

	docs := ui.NewSimpleTable("Documents", "#", "run", "seed", "bytes", "values", "status")
	failed := 0
	for i, res := range results {
		if res.RunID == "" {
			docs.AddRow(strconv.Itoa(i), "-", strconv.FormatUint(res.Seed, 10), "-", "-", s.Muted.Render("skipped"))
			continue
		}
		status := s.Success.Render("ok")
		if res.Err != nil {
			failed++
			status = s.Error.Render("failed")
		}
		docs.AddRow(
			strconv.Itoa(i),
			res.RunID,
			strconv.FormatUint(res.Seed, 10),
			strconv.FormatInt(res.Bytes, 10),
			strconv.Itoa(res.Measured.Values),
			status,
		)
	}
	sb.WriteString(docs.View(s))
	sb.WriteString("\n")
	sb.WriteString(renderPhaseStats(stats))

	summary := fmt.Sprintf("%d documents", len(results))
	sb.WriteString(s.Status(failed == 0, summary) + "\n")
	return sb.String()
}

func renderPhaseStats(stats map[timing.Phase]timing.PhaseStats) string {
	tbl := ui.NewSimpleTable("Phases", "phase", "count", "failed", "mean ms", "min ms", "max ms", "total ms")
	for _, p := range timing.Phases {
		ps, ok := stats[p]
		if !ok {
			continue
		}
		tbl.AddRow(
			string(p),
			strconv.Itoa(ps.Count),
			strconv.Itoa(ps.Failed),
			ms(ps.Mean),
			ms(ps.Min),
			ms(ps.Max),
			ms(ps.Total),
		)
	}
	view := tbl.View(defaultStyles)
	if view == "" {
		return ""
	}
	return view + "\n"
}

func totalDuration(phases map[string]time.Duration) time.Duration {
	var total time.Duration
	for _, d := range phases {
		total += d
	}
	return total
}

// renderHistory prints runs newest first.
func renderHistory(runs []history.Run) string {
	s := defaultStyles
	tbl := ui.NewSimpleTable("Recent runs", "id", "started", "command", "backend", "seed", "size", "bytes", "ms", "ok")
	for _, r := range runs {
		ok := s.Success.Render("yes")
		if !r.OK {
			ok = s.Error.Render("no")
		}
		tbl.AddRow(
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Command,
			r.Backend,
			strconv.FormatUint(r.Seed, 10),
			strconv.Itoa(r.Size),
			strconv.FormatInt(r.Bytes, 10),
			ms(totalDuration(r.Phases)),
			ok,
		)
	}
	return tbl.View(s)
}

// renderRun prints one recorded run in detail.
func renderRun(r history.Run) string {
	s := defaultStyles
	var sb strings.Builder

	sb.WriteString(s.Status(r.OK, r.Command+" "+r.Backend) + "\n")
	sb.WriteString(s.Field("run", r.ID) + "\n")
	sb.WriteString(s.Field("started", r.StartedAt.Local().Format(time.RFC3339)) + "\n")
	sb.WriteString(s.Field("file", r.Path) + "\n")
	sb.WriteString(s.Field("seed", strconv.FormatUint(r.Seed, 10)) + "\n")
	sb.WriteString(s.Field("size", strconv.Itoa(r.Size)) + "\n")
	sb.WriteString(s.Field("bytes", strconv.FormatInt(r.Bytes, 10)) + "\n")
	if r.Error != "" {
		sb.WriteString(s.Field("error", r.Error) + "\n")
	}

	names := make([]string, 0, len(r.Phases))
	for name := range r.Phases {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return phaseRank(names[i]) < phaseRank(names[j]) })

	tbl := ui.NewSimpleTable("", "phase", "ms")
	for _, name := range names {
		tbl.AddRow(name, ms(r.Phases[name]))
	}
	if view := tbl.View(s); view != "" {
		sb.WriteString("\n" + view)
	}
	return sb.String()
}

func phaseRank(name string) int {
	for i, p := range timing.Phases {
		if string(p) == name {
			return i
		}
	}
	return len(timing.Phases)
}
