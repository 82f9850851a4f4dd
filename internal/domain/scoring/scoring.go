// Package scoring generates performance scores and maps them to sound tiers.
package scoring

import (
	"math/rand"
	"sync"
	"time"
)

// Score bounds and tier thresholds.
const (
	MinScore = 65
	MaxScore = 100

	highThreshold   = 90
	mediumThreshold = 75
)

// Tier identifies the sound effect played for a scoring event.
type Tier string

const (
	TierLow        Tier = "low"
	TierMedium     Tier = "medium"
	TierHigh       Tier = "high"
	TierDrums      Tier = "drums"
	TierIncomplete Tier = "incomplete"
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSource sets the random source, for deterministic tests.
func WithSource(src rand.Source) Option {
	return func(g *Generator) {
		if src != nil {
			g.rng = rand.New(src) //nolint:gosec // see NewGenerator
		}
	}
}

// Generator produces uniform random scores in [MinScore, MaxScore].
// There is no real performance analysis behind it.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator seeded from the current time.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // entertainment scores, not security material
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a uniform random integer in [MinScore, MaxScore].
func (g *Generator) Generate() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return MinScore + g.rng.Intn(MaxScore-MinScore+1)
}

// TierFor returns the sound tier for a score: high at 90 and above,
// medium at 75 and above, low otherwise.
func TierFor(score int) Tier {
	switch {
	case score >= highThreshold:
		return TierHigh
	case score >= mediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// InRange reports whether score lies within the valid score bounds.
func InRange(score int) bool {
	return score >= MinScore && score <= MaxScore
}
