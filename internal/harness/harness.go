package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/siftgo/sift"
)

// Result reports a scenario run.
type Result struct {
	Scenario string
	Passed   int
	Failures []Failure
}

// Failure is one case that did not behave as declared.
type Failure struct {
	Filter string
	Sort   string
	Reason string
}

// Pass reports whether every case behaved as declared.
func (r *Result) Pass() bool {
	return len(r.Failures) == 0
}

// Run evaluates every case of the scenario against its record fixture.
// Case failures are collected into the result; only scenario-level problems
// return an error.
func Run(s *Scenario) (*Result, error) {
	return RunWith(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWith is Run with an explicit logger for verbose conformance runs.
func RunWith(s *Scenario, logger *slog.Logger) (*Result, error) {
	if s == nil {
		return nil, fmt.Errorf("nil scenario")
	}
	result := &Result{Scenario: s.Name}

	for _, c := range s.Cases {
		logger.Info("running case", "scenario", s.Name, "filter", c.Filter, "sort", c.Sort)

		criteria, err := sift.Parse(c.Filter, c.Sort)
		if err != nil {
			recordOutcome(result, c, nil, err)
			continue
		}
		matched, err := sift.Apply(s.Records, criteria)
		if err != nil {
			recordOutcome(result, c, nil, err)
			continue
		}
		names := make([]string, 0, len(matched))
		for _, r := range matched {
			names = append(names, r.Name)
		}
		recordOutcome(result, c, names, nil)
	}
	return result, nil
}

func recordOutcome(result *Result, c Case, names []string, err error) {
	switch {
	case err != nil && c.Error == "":
		result.Failures = append(result.Failures, Failure{
			Filter: c.Filter, Sort: c.Sort,
			Reason: fmt.Sprintf("unexpected error: %v", err),
		})
	case err != nil && !strings.Contains(err.Error(), c.Error):
		result.Failures = append(result.Failures, Failure{
			Filter: c.Filter, Sort: c.Sort,
			Reason: fmt.Sprintf("error %q does not contain %q", err, c.Error),
		})
	case err == nil && c.Error != "":
		result.Failures = append(result.Failures, Failure{
			Filter: c.Filter, Sort: c.Sort,
			Reason: fmt.Sprintf("expected error containing %q, matched %v", c.Error, names),
		})
	case err == nil && !equalNames(names, c.Expect):
		result.Failures = append(result.Failures, Failure{
			Filter: c.Filter, Sort: c.Sort,
			Reason: fmt.Sprintf("matched %v, want %v", names, c.Expect),
		})
	default:
		result.Passed++
	}
}

func equalNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// caseSnapshot is one line of the golden snapshot.
type caseSnapshot struct {
	Filter  string   `json:"filter,omitempty"`
	Sort    string   `json:"sort,omitempty"`
	Matches []string `json:"matches"`
	Error   string   `json:"error,omitempty"`
}

// RunWithGolden runs the scenario and compares the per-case outcomes
// against testdata/{scenario.Name}.golden. Regenerate golden files with
// go test -update.
func RunWithGolden(t *testing.T, s *Scenario) {
	t.Helper()

	snapshots := make([]caseSnapshot, 0, len(s.Cases))
	for _, c := range s.Cases {
		snap := caseSnapshot{Filter: c.Filter, Sort: c.Sort, Matches: []string{}}

		criteria, err := sift.Parse(c.Filter, c.Sort)
		if err == nil {
			var matched []Record
			matched, err = sift.Apply(s.Records, criteria)
			for _, r := range matched {
				snap.Matches = append(snap.Matches, r.Name)
			}
		}
		if err != nil {
			snap.Error = err.Error()
			snap.Matches = nil
		}
		snapshots = append(snapshots, snap)
	}

	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	data = append(data, '\n')

	g := goldie.New(t, goldie.WithNameSuffix(".golden"))
	g.Assert(t, s.Name, data)
}
