package harness

import (
	"path/filepath"
	"testing"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenarioCUE_Valid(t *testing.T) {
	s, err := LoadScenarioCUE("testdata/scenarios/constant_argument.cue")
	require.NoError(t, err)

	assert.Equal(t, "constant_argument", s.Name)
	assert.Equal(t, ModeOptimistic, s.Mode)
	assert.True(t, s.WholeWorld)
	require.Len(t, s.Nodes, 7)
	assert.Equal(t, []string{"main", "main.mem", "fp", "five"}, s.Nodes[5].In)
	assert.Equal(t, []string{"int"}, s.Nodes[0].Args)
	require.Len(t, s.Assertions, 5)
	assert.Equal(t, Assertion{Type: AssertUnknownCallers, Fun: "f"}, s.Assertions[4])
}

// TestLoadScenarioCUE_SchemaError tests that schema violations carry a CUE
// file position.
func TestLoadScenarioCUE_SchemaError(t *testing.T) {
	_, err := LoadScenarioCUE("testdata/invalid/bad_mode.cue")

	require.Error(t, err)
	assert.Equal(t, ErrCodeSchema, LoadErrorCode(err))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, le.Pos.IsValid())
}

// TestFromCUE_PositionFromLaterError tests that an error list whose first
// entry has no position takes the first valid one from the rest.
func TestFromCUE_PositionFromLaterError(t *testing.T) {
	pos := token.NewFile("bad_mode.cue", -1, 64).Pos(12, token.NoRelPos)
	err := cueerrors.Append(
		cueerrors.Newf(token.NoPos, "mode: 2 errors in empty disjunction"),
		cueerrors.Newf(pos, `mode: conflicting values "pessimistic" and "aggressive"`),
	)

	var le *LoadError
	require.ErrorAs(t, fromCUE(ErrCodeSchema, err), &le)
	assert.Equal(t, "mode: 2 errors in empty disjunction", le.Message)
	assert.Equal(t, pos, le.Pos)
}

// TestFromCUE_NoPosition tests that an unpositioned error keeps its message.
func TestFromCUE_NoPosition(t *testing.T) {
	var le *LoadError
	require.ErrorAs(t, fromCUE(ErrCodeParse, cueerrors.Newf(token.NoPos, "broken")), &le)
	assert.Equal(t, "broken", le.Message)
	assert.False(t, le.Pos.IsValid())
}

func TestParseScenarioCUE_UnknownField(t *testing.T) {
	src := `name: "n"
description: "d"
nodes: [{id: "main", op: "fun"}]
assertions: [{type: "count", op: "Add", count: 0}]
flavor: "extra"
`
	_, err := ParseScenarioCUE([]byte(src), "extra.cue")

	require.Error(t, err)
	assert.Equal(t, ErrCodeSchema, LoadErrorCode(err))
	assert.Contains(t, err.Error(), "flavor")
}

func TestParseScenarioCUE_SyntaxError(t *testing.T) {
	_, err := ParseScenarioCUE([]byte("name: {"), "broken.cue")

	require.Error(t, err)
	assert.Equal(t, ErrCodeParse, LoadErrorCode(err))
}

// TestValidateScenario_Valid tests that every shipped scenario satisfies the schema.
func TestValidateScenario_Valid(t *testing.T) {
	files, err := FindScenarioFiles("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			assert.Empty(t, ValidateScenario(f))
		})
	}
}

func TestValidateScenario_Invalid(t *testing.T) {
	tests := []struct {
		file string
		code string
	}{
		{"testdata/invalid/unknown_field.yaml", ErrCodeSchema},
		{"testdata/invalid/bad_mode.cue", ErrCodeSchema},
		{"testdata/invalid/missing.yaml", ErrCodeRead},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.file), func(t *testing.T) {
			errs := ValidateScenario(tt.file)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.code, LoadErrorCode(errs[0]))
		})
	}
}

func TestValidateScenario_YAMLParseError(t *testing.T) {
	path := writeFile(t, "broken.yaml", "name: [unclosed\n")

	errs := ValidateScenario(path)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeParse, LoadErrorCode(errs[0]))
}

func TestLoad_DispatchesByExtension(t *testing.T) {
	y, err := Load("testdata/scenarios/constant_fold.yaml")
	require.NoError(t, err)
	assert.Equal(t, "constant_fold", y.Name)

	c, err := Load("testdata/scenarios/constant_argument.cue")
	require.NoError(t, err)
	assert.Equal(t, "constant_argument", c.Name)

	_, err = Load("scenario.json")
	assert.Equal(t, ErrCodeRead, LoadErrorCode(err))
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"constant_argument",
		"constant_fold",
		"counting_loop",
		"dead_branch",
		"dead_path_phi",
		"private_callee",
		"value_numbering",
	}, names)

	_, err = LoadDir(t.TempDir())
	assert.Equal(t, ErrCodeRead, LoadErrorCode(err))

	_, err = LoadDir("testdata/invalid")
	require.Error(t, err)
	assert.True(t, IsLoadError(err))
}
