package harness

import (
	"fmt"
	"slices"
)

// SeedRun is the outcome of one seed in a confluence check.
type SeedRun struct {
	Seed        uint64 `json:"seed"`
	Fingerprint string `json:"fingerprint"`
	Error       string `json:"error,omitempty"`
}

// ConfluenceReport compares the final graphs reached under several seeds.
type ConfluenceReport struct {
	Scenario  string    `json:"scenario"`
	Runs      []SeedRun `json:"runs"`
	Distinct  []string  `json:"distinct"`
	Confluent bool      `json:"confluent"`
}

// Confluence runs the scenario's passes once per seed, without assertions,
// and reports whether every run reached the same census. A seed whose pass
// fails counts as its own outcome.
func (h *Harness) Confluence(scenario *Scenario, seeds []uint64) (*ConfluenceReport, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("confluence needs at least one seed")
	}
	report := &ConfluenceReport{Scenario: scenario.Name}
	for _, seed := range seeds {
		ex, err := h.execute(scenario, seed)
		if err != nil {
			return nil, err
		}
		run := SeedRun{Seed: seed}
		if ex.passErr != nil {
			run.Error = ex.passErr.Error()
			run.Fingerprint = "error: " + run.Error
		} else {
			run.Fingerprint = ex.summarize().Fingerprint
		}
		report.Runs = append(report.Runs, run)
		if !slices.Contains(report.Distinct, run.Fingerprint) {
			report.Distinct = append(report.Distinct, run.Fingerprint)
		}
	}
	report.Confluent = len(report.Distinct) == 1 && report.Runs[0].Error == ""
	h.logger.Info("confluence checked",
		"scenario", scenario.Name,
		"seeds", len(seeds),
		"distinct", len(report.Distinct),
	)
	return report, nil
}
