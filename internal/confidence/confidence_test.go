package confidence

import (
	"testing"

	"github.com/tonitangpotato/engramai/internal/config"
	"github.com/tonitangpotato/engramai/internal/models"
)

func TestReliabilityAttenuatedWhenContradicted(t *testing.T) {
	cfg := config.Default().Confidence
	plain := Reliability(models.MemoryTypeFactual, false, cfg)
	contradicted := Reliability(models.MemoryTypeFactual, true, cfg)
	if contradicted >= plain {
		t.Fatalf("expected contradicted reliability to be lower: plain=%v contradicted=%v", plain, contradicted)
	}
	if want := plain * cfg.ContradictedAttenuation; contradicted != want {
		t.Fatalf("got %v want %v", contradicted, want)
	}
}

func TestReliabilityUnknownTypeFallsBack(t *testing.T) {
	cfg := config.Default().Confidence
	r := Reliability(models.MemoryType("unknown"), false, cfg)
	if r != 0.5 {
		t.Fatalf("expected fallback reliability 0.5, got %v", r)
	}
}

func TestSalienceIsMonotonic(t *testing.T) {
	low := Salience(0.1, 2.0)
	high := Salience(5.0, 2.0)
	if high <= low {
		t.Fatalf("expected higher effective strength to raise salience: low=%v high=%v", low, high)
	}
	if low < 0 || low > 1 || high < 0 || high > 1 {
		t.Fatalf("salience must stay in [0,1]: low=%v high=%v", low, high)
	}
}

func TestLabelBands(t *testing.T) {
	cases := []struct {
		composite float64
		want      string
	}{
		{0.9, "certain"},
		{0.75, "certain"},
		{0.6, "likely"},
		{0.5, "likely"},
		{0.3, "uncertain"},
		{0.25, "uncertain"},
		{0.1, "vague"},
	}
	for _, c := range cases {
		if got := Label(c.composite); got != c.want {
			t.Errorf("Label(%v) = %q, want %q", c.composite, got, c.want)
		}
	}
}

func TestScoreCombinesReliabilityAndSalience(t *testing.T) {
	cfg := config.Default().Confidence
	value, label := Score(models.MemoryTypeEmotional, false, 2.0, cfg)
	if value <= 0 || value > 1.01 {
		t.Fatalf("expected composite confidence in (0,1], got %v", value)
	}
	if label == "" {
		t.Fatal("expected a non-empty label")
	}
}
