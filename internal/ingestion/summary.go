package ingestion

import (
	"fmt"
	"sort"
	"time"
)

const (
	readinessMinItems    = 200
	readinessMaxDuration = 300 * time.Second
	readinessMinCoverage = 0.7
	topPerformers        = 5
)

// Check is one production-readiness criterion.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Performer is a source ranked by stories written.
type Performer struct {
	Adapter   string `json:"adapter"`
	Succeeded int    `json:"items_succeeded"`
}

// Summary aggregates a multi-source run.
type Summary struct {
	Succeeded     []string      `json:"succeeded"`
	Failed        []string      `json:"failed"`
	TotalItems    int           `json:"total_items"`
	TotalDuration time.Duration `json:"total_duration_ns"`
	Coverage      Coverage      `json:"coverage"`
	TopPerformers []Performer   `json:"top_performers"`
	Checks        []Check       `json:"checks"`
}

// Ready reports whether every readiness check passed.
func (s Summary) Ready() bool {
	for _, c := range s.Checks {
		if !c.Passed {
			return false
		}
	}
	return len(s.Checks) > 0
}

// Summarize aggregates run results. Coverage is summed over successful runs.
func Summarize(results []RunResult) Summary {
	s := Summary{
		Succeeded: []string{},
		Failed:    []string{},
	}
	var ok []RunResult
	for _, r := range results {
		s.TotalItems += r.Succeeded
		s.TotalDuration += r.Duration
		if r.Success {
			s.Succeeded = append(s.Succeeded, r.Adapter)
			s.Coverage = s.Coverage.add(r.Coverage)
			ok = append(ok, r)
		} else {
			s.Failed = append(s.Failed, r.Adapter)
		}
	}

	sort.SliceStable(ok, func(i, j int) bool { return ok[i].Succeeded > ok[j].Succeeded })
	if len(ok) > topPerformers {
		ok = ok[:topPerformers]
	}
	s.TopPerformers = make([]Performer, 0, len(ok))
	for _, r := range ok {
		s.TopPerformers = append(s.TopPerformers, Performer{Adapter: r.Adapter, Succeeded: r.Succeeded})
	}

	metadata := 0.0
	if s.Coverage.Total > 0 {
		metadata = float64(s.Coverage.Summary+s.Coverage.Category) / float64(2*s.Coverage.Total)
	}
	s.Checks = []Check{
		{
			Name:   "all adapters succeeded",
			Passed: len(s.Failed) == 0,
			Detail: fmt.Sprintf("%d/%d", len(s.Succeeded), len(results)),
		},
		{
			Name:   "minimum items ingested",
			Passed: s.TotalItems >= readinessMinItems,
			Detail: fmt.Sprintf("%d >= %d", s.TotalItems, readinessMinItems),
		},
		{
			Name:   "total duration",
			Passed: s.TotalDuration < readinessMaxDuration,
			Detail: fmt.Sprintf("%s < %s", s.TotalDuration.Round(time.Millisecond), readinessMaxDuration),
		},
		{
			Name:   "metadata coverage",
			Passed: metadata > readinessMinCoverage,
			Detail: fmt.Sprintf("%.0f%% > %.0f%%", metadata*100, readinessMinCoverage*100),
		},
	}
	return s
}
