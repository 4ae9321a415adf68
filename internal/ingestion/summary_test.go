package ingestion

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/datagate/datagate/internal/models"
)

func TestSummarize(t *testing.T) {
	results := []RunResult{
		{Adapter: "a", Success: true, Succeeded: 150, Duration: 10 * time.Second,
			Coverage: Coverage{Total: 150, Summary: 150, Category: 120}},
		{Adapter: "b", Success: true, Succeeded: 80, Duration: 20 * time.Second,
			Coverage: Coverage{Total: 80, Summary: 60, Category: 70}},
		{Adapter: "c", Success: false, Duration: time.Second},
	}
	s := Summarize(results)

	if s.TotalItems != 230 {
		t.Errorf("total items = %d", s.TotalItems)
	}
	if s.TotalDuration != 31*time.Second {
		t.Errorf("total duration = %s", s.TotalDuration)
	}
	if strings.Join(s.Succeeded, ",") != "a,b" || strings.Join(s.Failed, ",") != "c" {
		t.Errorf("succeeded=%v failed=%v", s.Succeeded, s.Failed)
	}
	if len(s.TopPerformers) != 2 || s.TopPerformers[0].Adapter != "a" {
		t.Errorf("top performers = %+v", s.TopPerformers)
	}
	if s.Coverage.Total != 230 || s.Coverage.Summary != 210 {
		t.Errorf("coverage = %+v", s.Coverage)
	}

	passed := map[string]bool{}
	for _, c := range s.Checks {
		passed[c.Name] = c.Passed
	}
	want := map[string]bool{
		"all adapters succeeded": false,
		"minimum items ingested": true,
		"total duration":         true,
		"metadata coverage":      true,
	}
	for name, ok := range want {
		if passed[name] != ok {
			t.Errorf("check %q passed = %v, want %v", name, passed[name], ok)
		}
	}
	if s.Ready() {
		t.Error("summary with a failed adapter must not be ready")
	}
}

func TestSummarizeTopPerformersCapped(t *testing.T) {
	var results []RunResult
	for i := 0; i < 8; i++ {
		results = append(results, RunResult{Adapter: string(rune('a' + i)), Success: true, Succeeded: i * 40})
	}
	s := Summarize(results)
	if len(s.TopPerformers) != topPerformers {
		t.Fatalf("expected %d performers, got %d", topPerformers, len(s.TopPerformers))
	}
	if s.TopPerformers[0].Adapter != "h" || s.TopPerformers[0].Succeeded != 280 {
		t.Errorf("first performer = %+v", s.TopPerformers[0])
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalItems != 0 || len(s.TopPerformers) != 0 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.Ready() {
		t.Error("empty summary must not be ready")
	}
}

func TestCoverageOf(t *testing.T) {
	full := testItem("a")
	full.Summary = "s"
	full.Author = "someone"
	full.ImageURL = "/img.png"
	full.StoryCategory = models.CategoryNews
	full.Embedding = []float32{1}
	blank := testItem("b")
	blank.Summary = "   "

	c := CoverageOf([]models.Item{full, blank})
	if c.Total != 2 || c.Summary != 1 || c.Author != 1 || c.Image != 1 || c.Category != 1 || c.Embedding != 1 {
		t.Errorf("coverage = %+v", c)
	}
	if c.Percent(c.Summary) != 50 {
		t.Errorf("percent = %d", c.Percent(c.Summary))
	}
	if (Coverage{}).Percent(3) != 0 {
		t.Error("empty coverage percent must be 0")
	}
}

func TestRunResultJSON(t *testing.T) {
	res := RunResult{RunID: "r1", Adapter: "a", State: StateDone, Success: true}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"state":"done"`) {
		t.Errorf("state should render by name: %s", data)
	}
}
