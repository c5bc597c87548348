package sentry

import (
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// Seed derives a per-agent random seed from the agent name and a scenario seed, so agents in the
// same scenario draw independent but reproducible waypoint sequences.
func Seed(name string, scenario int64) int64 {
	return int64(xxhash.Sum64String(name) ^ uint64(scenario))
}

// NewRand returns the random source an agent named name uses under the given scenario seed.
func NewRand(name string, scenario int64) *rand.Rand {
	return rand.New(rand.NewSource(Seed(name, scenario)))
}
