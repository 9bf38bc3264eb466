package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/seanodes/internal/harness"
	"github.com/roach88/seanodes/internal/son"
)

// Run is one recorded optimizer run.
type Run struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	Scenario    string    `json:"scenario"`
	Seed        uint64    `json:"seed"`
	Mode        string    `json:"mode"`
	WholeWorld  bool      `json:"whole_world"`
	Pass        bool      `json:"pass"`
	Fingerprint string    `json:"fingerprint"`
	Census      []string  `json:"census"`
	Errors      []string  `json:"errors"`
	Stats       son.Stats `json:"stats"`
}

// Node is the final state of one live node of a run.
type Node struct {
	ID   int    `json:"id"`
	Op   string `json:"op"`
	Type string `json:"type"`
}

// FromResult converts a harness result into a run and its nodes.
func FromResult(s *harness.Scenario, r *harness.Result) (Run, []Node) {
	mode := s.Mode
	if mode == "" {
		mode = harness.ModePessimistic
	}
	run := Run{
		Scenario:    r.Name,
		Seed:        r.Seed,
		Mode:        mode,
		WholeWorld:  s.WholeWorld,
		Pass:        r.Pass,
		Fingerprint: r.Fingerprint,
		Census:      r.Census,
		Errors:      r.Errors,
		Stats:       r.Stats,
	}
	nodes := make([]Node, len(r.Nodes))
	for i, n := range r.Nodes {
		nodes[i] = Node{ID: n.ID, Op: n.Op, Type: n.Type}
	}
	return run, nodes
}

// WriteRun records a run and its nodes in one transaction and returns the
// stored run. An empty ID is filled with a fresh UUIDv7; Seq is always
// assigned by the store.
func (s *Store) WriteRun(ctx context.Context, run Run, nodes []Node) (Run, error) {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Run{}, fmt.Errorf("write run: generate id: %w", err)
		}
		run.ID = id.String()
	}

	census, err := marshalStrings(run.Census)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	errs, err := marshalStrings(run.Errors)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	stats, err := marshalStats(run.Stats)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, scenario, seed, mode, whole_world, pass, fingerprint, census, errors, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Scenario,
		int64(run.Seed),
		run.Mode,
		boolToInt(run.WholeWorld),
		boolToInt(run.Pass),
		run.Fingerprint,
		census,
		errs,
		stats,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_nodes (run_id, node_id, op, type) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("write run nodes: prepare: %w", err)
	}
	defer stmt.Close()
	for _, n := range nodes {
		if _, err := stmt.ExecContext(ctx, run.ID, n.ID, n.Op, n.Type); err != nil {
			return Run{}, fmt.Errorf("write run node %d: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	if run.Census == nil {
		run.Census = []string{}
	}
	if run.Errors == nil {
		run.Errors = []string{}
	}
	return run, nil
}

// DeleteRuns removes every run of a scenario and returns how many were removed.
func (s *Store) DeleteRuns(ctx context.Context, scenario string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE scenario = ?`, scenario)
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	return res.RowsAffected()
}
