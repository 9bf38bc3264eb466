package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"min int64", Int(-9223372036854775808), "-9223372036854775808"},
		{"bool", Bool(true), "true"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"native string slice", []string{"b", "a"}, `["b","a"]`},
		{"native map", map[string]any{"k": 1, "a": true}, `{"a":true,"k":1}`},
		{"no html escaping", String("<a&b>"), `"<a&b>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonical_NestedSortedKeys(t *testing.T) {
	obj := Object{
		"z": Object{"b": Int(1), "a": Int(2)},
		"a": Array{String("x"), Int(3)},
	}

	result, err := MarshalCanonical(obj)

	require.NoError(t, err)
	assert.Equal(t, `{"a":["x",3],"z":{"a":2,"b":1}}`, string(result))
}

// TestMarshalCanonical_UTF16Ordering tests that keys sort by UTF-16 code
// units: U+10000 encodes as a surrogate pair below U+E000.
func TestMarshalCanonical_UTF16Ordering(t *testing.T) {
	obj := Object{
		"\uE000":     Int(1),
		"\U00010000": Int(2),
	}

	result, err := MarshalCanonical(obj)

	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

// TestMarshalCanonical_NFC tests that decomposed strings encode like their
// composed form.
func TestMarshalCanonical_NFC(t *testing.T) {
	composed, err := MarshalCanonical(String("caf\u00e9"))
	require.NoError(t, err)
	decomposed, err := MarshalCanonical(String("cafe\u0301"))
	require.NoError(t, err)

	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	literal, err := MarshalCanonical(String(`x\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(literal))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, "null is forbidden"},
		{"float", 1.5, "floats are forbidden"},
		{"nested float", map[string]any{"x": []any{1, 2.5}}, "floats are forbidden"},
		{"unsupported", struct{}{}, "unsupported type"},
		{"nil in array", Array{nil}, "null is forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
