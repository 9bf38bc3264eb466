package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/seanodes/internal/canon"
	"github.com/roach88/seanodes/internal/son"
)

// marshalStrings converts a string list to canonical JSON TEXT for storage.
func marshalStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	data, err := canon.MarshalCanonical(canon.Strings(ss))
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return string(data), nil
}

// unmarshalStrings converts JSON TEXT back to a string list.
func unmarshalStrings(data string) ([]string, error) {
	out := []string{}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return out, nil
}

// marshalStats converts optimizer counters to JSON TEXT.
// Stats is a flat struct of integers, so encoding/json output is stable.
func marshalStats(st son.Stats) (string, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("marshal stats: %w", err)
	}
	return string(data), nil
}

// unmarshalStats converts JSON TEXT back to optimizer counters.
func unmarshalStats(data string) (son.Stats, error) {
	var st son.Stats
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return son.Stats{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
