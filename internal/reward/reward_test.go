package reward

import (
	"math"
	"testing"
)

func TestClassifyText(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"thanks, that's exactly right", 1.0},
		{"no, that's wrong", -1.0},
		{"not helpful at all", -1.0},
		{"the weather today", 0.0},
	}
	for _, c := range cases {
		if got := ClassifyText(c.text); got != c.want {
			t.Errorf("ClassifyText(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestClassifyTextNegativeWinsOverPositiveKeywords(t *testing.T) {
	if got := ClassifyText("good try but wrong answer"); got != -1.0 {
		t.Fatalf("expected negative keyword to win when both present, got %v", got)
	}
}

func TestWeightsOldestIsLargest(t *testing.T) {
	w := weights(3, 0.5)
	if len(w) != 3 {
		t.Fatalf("expected 3 weights, got %d", len(w))
	}
	// the window is most-recent-first, so the last index is the oldest -> k=0 -> weight 1
	if math.Abs(w[2]-1.0) > 1e-9 {
		t.Fatalf("expected oldest (last index, k=0) to have weight 1.0, got %v", w[2])
	}
	if w[0] >= w[1] || w[1] >= w[2] {
		t.Fatalf("expected strictly increasing weights toward the oldest position: %v", w)
	}
}
