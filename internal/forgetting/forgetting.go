// Package forgetting implements the Ebbinghaus retrievability factor and
// the effective-strength derivation used for layer classification and the
// strength field surfaced to callers (spec.md §4.2). Directly adapted from
// the teacher's search.Retrievability (same exp-decay shape).
package forgetting

import "math"

// Retrievability computes R(m, t) = exp(-(t - lastAccessedAt) / stability).
func Retrievability(now, lastAccessedAt, stability float64) float64 {
	if stability <= 0 {
		stability = 1e-6
	}
	elapsed := now - lastAccessedAt
	if elapsed < 0 {
		elapsed = 0
	}
	return math.Exp(-elapsed / stability)
}

// EffectiveStrength is max(working_strength, core_strength) * R, the
// glossary's "effective strength" term.
func EffectiveStrength(workingStrength, coreStrength, retrievability float64) float64 {
	m := workingStrength
	if coreStrength > m {
		m = coreStrength
	}
	return m * retrievability
}
