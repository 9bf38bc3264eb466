package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/dead_branch.yaml")
	require.NoError(t, err)

	assert.Equal(t, "dead_branch", s.Name)
	assert.True(t, s.Raw)
	assert.Equal(t, uint64(99), s.Seed)
	assert.Empty(t, s.Mode)
	require.Len(t, s.Nodes, 8)
	assert.Equal(t, NodeStep{ID: "small", Op: "cast", In: []string{"test.true", "main.arg0"}, Type: "int[0,10]"}, s.Nodes[3])
	require.Len(t, s.Assertions, 7)
	assert.Equal(t, Assertion{Type: AssertConfluent, Seeds: 8}, s.Assertions[6])
}

// TestLoadScenario_UnknownField tests that typos in field names are rejected.
func TestLoadScenario_UnknownField(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/unknown_field.yaml")

	require.Error(t, err)
	assert.Equal(t, ErrCodeParse, LoadErrorCode(err))
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.True(t, IsLoadError(err))
	assert.Equal(t, ErrCodeRead, LoadErrorCode(err))
}

func TestParseScenario_Invalid(t *testing.T) {
	const nodes = "nodes:\n  - {id: main, op: fun, name: main}\n"
	const asserts = "assertions:\n  - {type: count, op: Add, count: 0}\n"

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "description: d\n" + nodes + asserts, "name is required"},
		{"no description", "name: n\n" + nodes + asserts, "description is required"},
		{"no nodes", "name: n\ndescription: d\n" + asserts, "nodes list is required"},
		{"no assertions", "name: n\ndescription: d\n" + nodes, "assertions list is required"},
		{"bad mode", "name: n\ndescription: d\nmode: eager\n" + nodes + asserts, `unknown mode "eager"`},
		{"missing op", "name: n\ndescription: d\nnodes:\n  - {id: main}\n" + asserts, "op is required"},
		{"bad label", "name: n\ndescription: d\nnodes:\n  - {id: main.x, op: fun}\n" + asserts, "must match"},
		{
			"duplicate id",
			"name: n\ndescription: d\nnodes:\n  - {id: a, op: fun}\n  - {id: a, op: fun}\n" + asserts,
			`duplicate id "a"`,
		},
		{"unknown assertion", "name: n\ndescription: d\n" + nodes + "assertions:\n  - {type: vibes}\n", `unknown assertion type "vibes"`},
		{"count without op", "name: n\ndescription: d\n" + nodes + "assertions:\n  - {type: count}\n", "op is required for count"},
		{"confluent without seeds", "name: n\ndescription: d\n" + nodes + "assertions:\n  - {type: confluent}\n", "seeds must be positive"},
		{"return_type without want", "name: n\ndescription: d\n" + nodes + "assertions:\n  - {type: return_type, fun: main}\n", "fun and want are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, ErrCodeInvalid, LoadErrorCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestParseScenario_NormalizesLabels tests that labels are compared in NFC.
func TestParseScenario_NormalizesLabels(t *testing.T) {
	s, err := ParseScenario([]byte("name: n\ndescription: d\nnodes:\n  - {id: main, op: fun, name: main}\nassertions:\n  - {type: count, op: Add, count: 0}\n"))
	require.NoError(t, err)

	assert.Equal(t, "main", s.Nodes[0].ID)
}
