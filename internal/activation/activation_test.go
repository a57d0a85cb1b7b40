package activation

import (
	"math"
	"testing"

	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/models"
)

func TestBaseLevelFallsBackToCreatedAt(t *testing.T) {
	cfg := config.Default().Activation
	b := BaseLevel(100, nil, 50, cfg)
	want := math.Log(math.Pow(50+cfg.BaseEpsilon, -cfg.DecayExponent))
	if math.Abs(b-want) > 1e-9 {
		t.Fatalf("got %v, want %v", b, want)
	}
}

func TestBaseLevelMoreAccessesIncreaseActivation(t *testing.T) {
	cfg := config.Default().Activation
	single := BaseLevel(100, []float64{90}, 0, cfg)
	multi := BaseLevel(100, []float64{90, 80, 70}, 0, cfg)
	if multi <= single {
		t.Fatalf("expected more accesses to raise base-level activation: single=%v multi=%v", single, multi)
	}
}

func TestContextBonusCaseInsensitiveMatch(t *testing.T) {
	bonus := ContextBonus("The Capital of France is Paris", nil, []string{"paris", "FRANCE"}, 1.5)
	if bonus != 3.0 {
		t.Fatalf("expected 2 matches * 1.5 = 3.0, got %v", bonus)
	}
}

func TestContextBonusMatchesTags(t *testing.T) {
	bonus := ContextBonus("unrelated content", []string{"finance"}, []string{"Finance"}, 1.0)
	if bonus != 1.0 {
		t.Fatalf("expected tag match to count, got %v", bonus)
	}
}

func TestScoreAppliesContradictionPenaltyAndPinBoost(t *testing.T) {
	cfg := config.Default().Activation
	now := 1000.0
	base := &models.Memory{CreatedAt: 0, Importance: 0.5}
	baseScore := Score(base, nil, now, nil, cfg)

	contradictedID := "other"
	contradicted := &models.Memory{CreatedAt: 0, Importance: 0.5, ContradictedBy: &contradictedID}
	if got := Score(contradicted, nil, now, nil, cfg); got != baseScore-cfg.ContradictionPenalty {
		t.Fatalf("expected contradiction penalty applied, got %v want %v", got, baseScore-cfg.ContradictionPenalty)
	}

	pinned := &models.Memory{CreatedAt: 0, Importance: 0.5, Pinned: true}
	if got := Score(pinned, nil, now, nil, cfg); got != baseScore+cfg.PinBoost {
		t.Fatalf("expected pin boost applied, got %v want %v", got, baseScore+cfg.PinBoost)
	}
}

func TestFiltered(t *testing.T) {
	cfg := config.Default().Activation
	if !Filtered(cfg.MinActivation-1, cfg) {
		t.Fatal("expected activation below floor to be filtered")
	}
	if Filtered(cfg.MinActivation+1, cfg) {
		t.Fatal("expected activation above floor to survive")
	}
}
