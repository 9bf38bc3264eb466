package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCensusFingerprint_Deterministic(t *testing.T) {
	census := []string{"Add:int", "Constant:5", "Start:[Ctrl, MEM, int]"}

	fp1 := CensusFingerprint(census)
	fp2 := CensusFingerprint(append([]string(nil), census...))

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
}

func TestCensusFingerprint_ChangesWithInput(t *testing.T) {
	a := CensusFingerprint([]string{"Add:int"})
	b := CensusFingerprint([]string{"Add:int", "Add:int"})
	c := CensusFingerprint([]string{"Mul:int"})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

// TestFingerprint_DomainSeparation tests that the same data under two
// domains hashes differently.
func TestFingerprint_DomainSeparation(t *testing.T) {
	v := Strings([]string{"Add:int"})

	census, err := Fingerprint(DomainCensus, v)
	require.NoError(t, err)
	snapshot, err := Fingerprint(DomainSnapshot, v)
	require.NoError(t, err)

	assert.NotEqual(t, census, snapshot)
	assert.Equal(t, CensusFingerprint([]string{"Add:int"}), census)
}

func TestFingerprint_Error(t *testing.T) {
	_, err := Fingerprint(DomainScenario, map[string]any{"x": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainScenario)

	assert.Panics(t, func() { MustFingerprint(DomainScenario, nil) })
}
