package store

import (
	"context"
	"database/sql"
	"fmt"
)

const runColumns = `id, seq, scenario, seed, mode, whole_world, pass, fingerprint, census, errors, stats`

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the runs of a scenario in insertion order, or every run
// when scenario is empty. A positive limit keeps only the most recent runs.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, scenario string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	if limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC LIMIT ?)`
		args = append(args, limit)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRunNodes returns the recorded nodes of a run in id order.
func (s *Store) ReadRunNodes(ctx context.Context, runID string) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, op, type
		FROM run_nodes
		WHERE run_id = ?
		ORDER BY node_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run nodes: %w", err)
	}
	defer rows.Close()

	nodes := []Node{}
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.Op, &n.Type); err != nil {
			return nil, fmt.Errorf("scan run node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run nodes: %w", err)
	}
	return nodes, nil
}

// FingerprintCount is one distinct final graph of a scenario.
type FingerprintCount struct {
	Fingerprint string   `json:"fingerprint"`
	Runs        int      `json:"runs"`
	Seeds       []uint64 `json:"seeds"`
}

// DistinctFingerprints groups the recorded runs of a scenario by final
// graph. A confluent history has exactly one entry.
func (s *Store) DistinctFingerprints(ctx context.Context, scenario string) ([]FingerprintCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, seed
		FROM runs
		WHERE scenario = ?
		ORDER BY fingerprint COLLATE BINARY ASC, seq ASC
	`, scenario)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	out := []FingerprintCount{}
	for rows.Next() {
		var fp string
		var seed int64
		if err := rows.Scan(&fp, &seed); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Fingerprint != fp {
			out = append(out, FingerprintCount{Fingerprint: fp})
		}
		last := &out[len(out)-1]
		last.Runs++
		last.Seeds = append(last.Seeds, uint64(seed))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return out, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun scans one runs row. sql.ErrNoRows is returned unwrapped.
func scanRun(row rowScanner) (Run, error) {
	var run Run
	var seed int64
	var wholeWorld, pass int
	var census, errs, stats string

	if err := row.Scan(
		&run.ID, &run.Seq, &run.Scenario, &seed, &run.Mode, &wholeWorld, &pass,
		&run.Fingerprint, &census, &errs, &stats,
	); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Seed = uint64(seed)
	run.WholeWorld = wholeWorld != 0
	run.Pass = pass != 0

	var err error
	if run.Census, err = unmarshalStrings(census); err != nil {
		return Run{}, err
	}
	if run.Errors, err = unmarshalStrings(errs); err != nil {
		return Run{}, err
	}
	if run.Stats, err = unmarshalStats(stats); err != nil {
		return Run{}, err
	}
	return run, nil
}
