// Package reward applies a signed modulation to the N most recently
// accessed memories (spec.md §4.4). The feedback-polarity keyword
// classifier follows the teacher's internal/privacy package's small
// regex/keyword-set style (one exported predicate-style function).
package reward

import (
	"fmt"
	"math"
	"strings"

	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/models"
	"github.com/tonitangpotato/engramai/internal/store"
)

var positiveWords = []string{
	"good", "great", "helpful", "thanks", "thank you", "perfect", "correct",
	"yes", "love", "awesome", "exactly", "nice", "excellent",
}

var negativeWords = []string{
	"bad", "wrong", "no", "incorrect", "useless", "hate", "terrible",
	"not helpful", "nope", "awful",
}

// ClassifyText maps free-text feedback to a score in [-1, 1] using a
// simple keyword heuristic (spec.md §4.4). Unmatched text scores 0.
func ClassifyText(text string) float64 {
	lower := strings.ToLower(text)
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			return -1.0
		}
	}
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			return 1.0
		}
	}
	return 0.0
}

// Engine applies reward() against the store's most-recently-accessed
// window.
type Engine struct {
	memories *store.MemoryStore
	cfg      config.RewardConfig
	anomaly  config.AnomalyConfig
}

func New(memories *store.MemoryStore, cfg config.RewardConfig, anomaly config.AnomalyConfig) *Engine {
	return &Engine{memories: memories, cfg: cfg, anomaly: anomaly}
}

// weights returns, for a window of n memories ordered most-recent-first,
// the per-position weight w_k = gamma^k where k=0 is the oldest memory in
// the window (spec.md §4.4).
func weights(n int, gamma float64) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		k := n - 1 - i
		w[i] = math.Pow(gamma, float64(k))
	}
	return w
}

// Apply classifies feedback if it's text, otherwise uses score directly,
// and modulates the N most recently accessed memories. Returns the count
// of memories modulated.
func (e *Engine) Apply(textFeedback *string, score *float64) (int, error) {
	var polarity float64
	switch {
	case score != nil:
		polarity = *score
	case textFeedback != nil:
		polarity = ClassifyText(*textFeedback)
	default:
		return 0, fmt.Errorf("reward: neither text nor score feedback provided")
	}
	if polarity < -1 || polarity > 1 {
		return 0, fmt.Errorf("reward: score %v out of range [-1,1]", polarity)
	}

	recent, err := e.memories.RecentlyAccessed(e.cfg.WindowSize)
	if err != nil {
		return 0, fmt.Errorf("reward: %w", err)
	}
	if len(recent) == 0 {
		return 0, nil
	}

	ws := weights(len(recent), e.cfg.Gamma)
	updates := make([]store.RewardUpdate, 0, len(recent))
	for i, m := range recent {
		updates = append(updates, e.modulate(m, polarity, ws[i]))
	}

	if err := e.memories.ApplyRewards(updates); err != nil {
		return 0, fmt.Errorf("reward: %w", err)
	}
	return len(updates), nil
}

func (e *Engine) modulate(m *models.Memory, polarity, w float64) store.RewardUpdate {
	working := m.WorkingStrength
	stability := m.Stability

	if polarity > 0 {
		working += e.cfg.RewardMagnitude * w * polarity
		stability *= 1 + e.cfg.RewardStrengthBoost*w*polarity
	} else if polarity < 0 {
		working *= 1 - e.cfg.RewardSuppression*w*(-polarity)
	}

	if working > e.anomaly.MaxWorkingStrength {
		working = e.anomaly.MaxWorkingStrength
	}
	if working < 0 {
		working = 0
	}

	return store.RewardUpdate{ID: m.ID, WorkingStrength: working, Stability: stability}
}
