package cli

import (
	"github.com/xyproto/env/v2"
)

// Environment variables that supply flag defaults.
const (
	EnvSeed    = "SON_SEED"
	EnvMaxIter = "SON_MAX_ITER"
	EnvDB      = "SON_DB"
	EnvFormat  = "SON_FORMAT"
)

// loadEnv refreshes the env cache, which otherwise keeps the environment
// seen by the first lookup.
func loadEnv() { env.Load() }

func defaultFormat() string { return env.Str(EnvFormat, "text") }

func defaultDB() string { return env.Str(EnvDB, "") }

func defaultMaxIter() int { return env.Int(EnvMaxIter, 0) }

// defaultSeed returns SON_SEED, or 0 (the scenario's own seed) when it is
// unset or negative.
func defaultSeed() uint64 {
	if n := env.Int(EnvSeed, 0); n > 0 {
		return uint64(n)
	}
	return 0
}
