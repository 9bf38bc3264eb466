package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seanodes/internal/harness"
	"github.com/roach88/seanodes/internal/son"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(scenario string, seed uint64, fp string) Run {
	return Run{
		Scenario:    scenario,
		Seed:        seed,
		Mode:        harness.ModePessimistic,
		Pass:        true,
		Fingerprint: fp,
		Census:      []string{"Con:5", "Return"},
		Stats:       son.Stats{Created: 7, Peepholes: 2, LiveAtFinish: 5},
	}
}

// TestOpen_Pragmas tests that a file database is configured on open.
func TestOpen_Pragmas(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	mode, err := s.pragma(ctx, "journal_mode")
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)

	fk, err := s.pragma(ctx, "foreign_keys")
	require.NoError(t, err)
	assert.Equal(t, "1", fk)

	version, err := s.pragma(ctx, "user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

// TestOpen_Idempotent tests that reopening keeps recorded runs.
func TestOpen_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, sampleRun("a", 1, "f1"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	for i := 0; i < 2; i++ {
		s, err = Open(ctx, path)
		require.NoError(t, err)
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.NoError(t, s.Close())
	}
}

// TestOpen_NewerSchema tests that a database from a newer version is refused.
func TestOpen_NewerSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 9")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(ctx, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

// TestWriteRun_RoundTrip tests that a run reads back as it was written.
func TestWriteRun_RoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	in := sampleRun("constant_fold", 123, "abc")
	in.WholeWorld = true
	in.Errors = []string{"assertions[0]: failed"}
	in.Pass = false

	got, err := s.WriteRun(ctx, in, []Node{{ID: 3, Op: "Con", Type: "5"}, {ID: 1, Op: "Start", Type: "top"}})
	require.NoError(t, err)
	_, err = uuid.Parse(got.ID)
	require.NoError(t, err, "id should be a UUID")
	assert.Equal(t, int64(1), got.Seq)

	read, err := s.ReadRun(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, got, read)
	assert.True(t, read.WholeWorld)
	assert.False(t, read.Pass)
	assert.Equal(t, in.Stats, read.Stats)

	nodes, err := s.ReadRunNodes(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, []Node{{ID: 1, Op: "Start", Type: "top"}, {ID: 3, Op: "Con", Type: "5"}}, nodes)
}

// TestWriteRun_NilSlices tests that nil census and errors store as empty lists.
func TestWriteRun_NilSlices(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	got, err := s.WriteRun(ctx, Run{Scenario: "empty", Mode: harness.ModePessimistic}, nil)
	require.NoError(t, err)

	read, err := s.ReadRun(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, read.Census)
	assert.Equal(t, []string{}, read.Errors)
}

// TestWriteRun_DuplicateID tests that an explicit id cannot be reused.
func TestWriteRun_DuplicateID(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	run := sampleRun("a", 1, "f")
	run.ID = "fixed"
	_, err := s.WriteRun(ctx, run, nil)
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, run, []Node{{ID: 1, Op: "Start", Type: "top"}})
	require.Error(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestReadRun_NotFound tests that a missing run reports sql.ErrNoRows.
func TestReadRun_NotFound(t *testing.T) {
	s := openTemp(t)
	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

// TestListRuns_Order tests insertion ordering, filtering and limits.
func TestListRuns_Order(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for i, name := range []string{"a", "b", "a", "a"} {
		_, err := s.WriteRun(ctx, sampleRun(name, uint64(i+1), "f"), nil)
		require.NoError(t, err)
	}

	all, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, r := range all {
		assert.Equal(t, int64(i+1), r.Seq)
	}

	onlyA, err := s.ListRuns(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, onlyA, 3)
	assert.Equal(t, []uint64{1, 3, 4}, []uint64{onlyA[0].Seed, onlyA[1].Seed, onlyA[2].Seed})

	recent, err := s.ListRuns(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].Seq)
	assert.Equal(t, int64(4), recent[1].Seq)

	none, err := s.ListRuns(ctx, "zzz", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

// TestDistinctFingerprints tests grouping a scenario's runs by final graph.
func TestDistinctFingerprints(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for _, r := range []Run{
		sampleRun("loop", 1, "bbb"),
		sampleRun("loop", 2, "aaa"),
		sampleRun("loop", 3, "bbb"),
		sampleRun("other", 4, "ccc"),
	} {
		_, err := s.WriteRun(ctx, r, nil)
		require.NoError(t, err)
	}

	got, err := s.DistinctFingerprints(ctx, "loop")
	require.NoError(t, err)
	assert.Equal(t, []FingerprintCount{
		{Fingerprint: "aaa", Runs: 1, Seeds: []uint64{2}},
		{Fingerprint: "bbb", Runs: 2, Seeds: []uint64{1, 3}},
	}, got)
}

// TestDeleteRuns tests that deleting runs cascades to their nodes.
func TestDeleteRuns(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	run, err := s.WriteRun(ctx, sampleRun("a", 1, "f"), []Node{{ID: 1, Op: "Start", Type: "top"}})
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, sampleRun("b", 1, "f"), nil)
	require.NoError(t, err)

	n, err := s.DeleteRuns(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	nodes, err := s.ReadRunNodes(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes)

	left, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}

// TestFromResult tests converting and recording a real harness run.
func TestFromResult(t *testing.T) {
	scenario, err := harness.LoadScenario("../harness/testdata/scenarios/constant_fold.yaml")
	require.NoError(t, err)
	result, err := harness.Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	run, nodes := FromResult(scenario, result)
	assert.Equal(t, "constant_fold", run.Scenario)
	assert.Equal(t, harness.ModePessimistic, run.Mode)
	assert.Equal(t, result.Fingerprint, run.Fingerprint)
	assert.Len(t, nodes, len(result.Nodes))

	s := openTemp(t)
	ctx := context.Background()
	stored, err := s.WriteRun(ctx, run, nodes)
	require.NoError(t, err)

	read, err := s.ReadRun(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Census, read.Census)
	assert.Equal(t, result.Stats, read.Stats)
}
