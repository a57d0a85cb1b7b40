// Package activation computes the ACT-R-style ranking score for a memory
// (spec.md §4.1). Every function here is pure: no store access, no side
// effects — the same shape as the teacher's Retrievability/ContextMatchBonus
// helpers in internal/search/hybrid.go.
package activation

import (
	"math"
	"strings"

	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/models"
)

// BaseLevel computes B(m) = ln(Σ_k (t - t_k + ε)^(-d)). If accessTimes is
// empty, it falls back to a single pseudo-access at createdAt, per
// spec.md §4.1.
func BaseLevel(now float64, accessTimes []float64, createdAt float64, cfg config.ActivationConfig) float64 {
	times := accessTimes
	if len(times) == 0 {
		times = []float64{createdAt}
	}
	sum := 0.0
	for _, tk := range times {
		elapsed := now - tk + cfg.BaseEpsilon
		if elapsed < cfg.BaseEpsilon {
			elapsed = cfg.BaseEpsilon
		}
		sum += math.Pow(elapsed, -cfg.DecayExponent)
	}
	return math.Log(sum)
}

// ContextBonus counts how many of the given keywords appear
// case-insensitively in content or tags, scaled by contextWeight
// (spec.md §4.1).
func ContextBonus(content string, tags []string, keywords []string, contextWeight float64) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lowerContent := strings.ToLower(content)
	count := 0
	for _, kw := range keywords {
		kwLower := strings.ToLower(kw)
		if kwLower == "" {
			continue
		}
		if strings.Contains(lowerContent, kwLower) {
			count++
			continue
		}
		for _, tag := range tags {
			if strings.EqualFold(tag, kw) {
				count++
				break
			}
		}
	}
	return contextWeight * float64(count)
}

// Score computes A(m, Q, t) = B + C + I - contradiction + pin_boost
// (spec.md §4.1).
func Score(m *models.Memory, accessTimes []float64, now float64, keywords []string, cfg config.ActivationConfig) float64 {
	b := BaseLevel(now, accessTimes, m.CreatedAt, cfg)
	c := ContextBonus(m.Content, m.Tags, keywords, cfg.ContextWeight)
	i := cfg.ImportanceWeight * m.Importance

	total := b + c + i
	if m.ContradictedBy != nil {
		total -= cfg.ContradictionPenalty
	}
	if m.Pinned {
		total += cfg.PinBoost
	}
	return total
}

// Filtered reports whether a has fallen below the configured floor and
// should be treated as -infinity (spec.md §4.1).
func Filtered(a float64, cfg config.ActivationConfig) bool {
	return a < cfg.MinActivation
}
