package moderation

import "testing"

func TestClamp01(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}
	for _, tc := range cases {
		if got := Clamp01(tc.in); got != tc.want {
			t.Fatalf("Clamp01(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestBlend(t *testing.T) {
	// Specialized 0.7 / general 0.3, the deep-analysis default split.
	got := Blend([]WeightedScore{
		{Score: 0.9, Weight: 0.7},
		{Score: 0.5, Weight: 0.3},
	})
	want := 0.9*0.7 + 0.5*0.3
	if got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("Blend() = %v, want %v", got, want)
	}

	if got := Blend(nil); got != 0 {
		t.Fatalf("Blend(nil) = %v, want 0", got)
	}

	// A single scorer passes through regardless of its weight.
	if got := Blend([]WeightedScore{{Score: 0.6, Weight: 2.0}}); got != 0.6 {
		t.Fatalf("Blend(single) = %v, want 0.6", got)
	}

	// Out-of-range scorer output is clamped before blending.
	if got := Blend([]WeightedScore{{Score: 1.8, Weight: 1.0}}); got != 1.0 {
		t.Fatalf("Blend(overflow) = %v, want 1.0", got)
	}
}
