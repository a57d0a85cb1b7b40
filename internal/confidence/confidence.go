// Package confidence derives the two-component metacognitive score
// attached to each retrieved memory (spec.md §4.6). New package — the
// teacher has no equivalent (it stores a flat Confidence field) — but
// follows the teacher's small-formula-package style: a doc comment stating
// the equation, pure functions, no side effects.
package confidence

import (
	"math"

	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/models"
)

// Reliability returns the per-type prior, attenuated to
// attenuation*reliability when contradicted is true.
func Reliability(memType models.MemoryType, contradicted bool, cfg config.ConfidenceConfig) float64 {
	r, ok := cfg.DefaultReliability[string(memType)]
	if !ok {
		r = 0.5
	}
	if contradicted {
		r *= cfg.ContradictedAttenuation
	}
	return r
}

// Salience computes sigmoid(k * (effectiveStrength - 0.5)).
func Salience(effectiveStrength float64, k float64) float64 {
	return 1.0 / (1.0 + math.Exp(-k*(effectiveStrength-0.5)))
}

// Composite combines reliability and salience per their configured
// weights: confidence = reliabilityWeight*reliability + salienceWeight*salience.
func Composite(reliability, salience float64, cfg config.ConfidenceConfig) float64 {
	return cfg.ReliabilityWeight*reliability + cfg.SalienceWeight*salience
}

// Label buckets a composite confidence score into the spec's bands.
func Label(composite float64) string {
	switch {
	case composite >= 0.75:
		return "certain"
	case composite >= 0.5:
		return "likely"
	case composite >= 0.25:
		return "uncertain"
	default:
		return "vague"
	}
}

// Score computes the full composite confidence and label for a memory in
// one call, given its effective strength (from internal/forgetting).
func Score(memType models.MemoryType, contradicted bool, effectiveStrength float64, cfg config.ConfidenceConfig) (value float64, label string) {
	r := Reliability(memType, contradicted, cfg)
	s := Salience(effectiveStrength, cfg.SalienceK)
	c := Composite(r, s, cfg)
	return c, Label(c)
}
