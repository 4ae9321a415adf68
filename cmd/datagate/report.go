package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/datagate/datagate/internal/adapters"
	"github.com/datagate/datagate/internal/ingestion"
)

const maxInvalidShown = 5

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
)

// writeResults prints run reports, as JSON lines when asJSON is set.
func writeResults(w io.Writer, results []ingestion.RunResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range results {
		if _, err := fmt.Fprintln(w, renderRun(r)); err != nil {
			return err
		}
	}
	return nil
}

func mark(ok bool) string {
	if ok {
		return okStyle.Render("OK")
	}
	return failStyle.Render("FAIL")
}

func renderRun(r ingestion.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s\n", titleStyle.Render(r.Adapter), dimStyle.Render("("+r.SourceName+")"), mark(r.Success))
	fmt.Fprintf(&b, "state      %s in %s\n", r.State, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "items      %d processed, %d stored, %d skipped, %d failed\n",
		r.Processed, r.Succeeded, r.Skipped, r.Failed)

	if c := r.Coverage; c.Total > 0 {
		fmt.Fprintf(&b, "coverage   summary %d%%, author %d%%, image %d%%, category %d%%, embedding %d%%\n",
			c.Percent(c.Summary), c.Percent(c.Author), c.Percent(c.Image), c.Percent(c.Category), c.Percent(c.Embedding))
	}

	for i, inv := range r.Invalid {
		if i == maxInvalidShown {
			fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("... %d more invalid", len(r.Invalid)-maxInvalidShown)))
			break
		}
		fmt.Fprintf(&b, "invalid    %s: %s\n", truncate(inv.Item.Title, 60), strings.Join(inv.Issues, "; "))
	}

	if r.Error != "" {
		fmt.Fprintf(&b, "%s\n", failStyle.Render(fmt.Sprintf("error      [%s] %s", r.ErrorType, r.Error)))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderSummary(s ingestion.Summary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Ingestion summary") + "\n")
	fmt.Fprintf(&b, "sources    %d succeeded, %d failed\n", len(s.Succeeded), len(s.Failed))
	if len(s.Failed) > 0 {
		fmt.Fprintf(&b, "failed     %s\n", failStyle.Render(strings.Join(s.Failed, ", ")))
	}
	fmt.Fprintf(&b, "stories    %d in %s\n", s.TotalItems, s.TotalDuration.Round(time.Millisecond))

	if len(s.TopPerformers) > 0 {
		b.WriteString("top\n")
		for i, p := range s.TopPerformers {
			fmt.Fprintf(&b, "  %d. %-20s %d\n", i+1, p.Adapter, p.Succeeded)
		}
	}

	b.WriteString("readiness\n")
	for _, c := range s.Checks {
		fmt.Fprintf(&b, "  %-4s %s %s\n", mark(c.Passed), c.Name, dimStyle.Render("("+c.Detail+")"))
	}
	verdict := failStyle.Render("not ready")
	if s.Ready() {
		verdict = okStyle.Render("ready")
	}
	fmt.Fprintf(&b, "verdict    %s", verdict)
	return boxStyle.Render(b.String())
}

func renderAdapterList(r *adapters.Registry) string {
	var b strings.Builder
	for _, key := range r.Keys() {
		a, _ := r.Get(key)
		src := a.Source()
		fmt.Fprintf(&b, "%-20s %-32s %-10s %s\n", titleStyle.Render(key), src.Name, src.Type, dimStyle.Render(src.Schedule()))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
