package fuzzy

import (
	"strings"
	"testing"
)

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "abc", "abc", 100},
		{"substring", "capital of France", "What is the capital of France?", 100},
		{"trailing punctuation", "this is a test", "this is a test!", 100},
		{"unicode", "café", "le café noir", 100},
		{"disjoint", "xyz", "abcdef", 0},
		{"empty query", "", "anything", 0},
		{"empty text", "anything", "", 0},
		{"both empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PartialRatio(tt.a, tt.b); got != tt.want {
				t.Errorf("PartialRatio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPartialRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"What is the capital of France", "Q1. What is the capital of France?\nA. Paris"},
		{"photosynthesis", "Explain photosynthesis in plants"},
		{"kitten", "sitting on the mat"},
	}
	for _, p := range pairs {
		if x, y := PartialRatio(p[0], p[1]), PartialRatio(p[1], p[0]); x != y {
			t.Errorf("PartialRatio not symmetric for %q / %q: %d vs %d", p[0], p[1], x, y)
		}
	}
}

func TestPartialRatioTolerance(t *testing.T) {
	query := "What is the capital of France"
	text := "1. What is the capitol of France?"

	got := PartialRatio(query, text)
	if got <= 85 || got == 100 {
		t.Errorf("PartialRatio with one typo = %d, want in (85, 100)", got)
	}
	if unrelated := PartialRatio(query, "Name the largest planet in the solar system"); unrelated > 85 {
		t.Errorf("unrelated text scored %d, want <= 85", unrelated)
	}
}

func TestPartialRatioLongText(t *testing.T) {
	// Long enough for popular characters to be dropped from match seeding.
	filler := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	text := filler + "Which gas do plants absorb?" + filler

	if got := PartialRatio("Which gas do plants absorb?", text); got != 100 {
		t.Errorf("PartialRatio in long text = %d, want 100", got)
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"abc", "abc", 100},
		{"abcd", "abce", 75},
		{"this is a test", "this is a test!", 97},
		{"abc", "", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		if got := Ratio(tt.a, tt.b); got != tt.want {
			t.Errorf("Ratio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScoreRoundsHalfToEven(t *testing.T) {
	if got := score(0.625); got != 62 {
		t.Errorf("score(0.625) = %d, want 62", got)
	}
	if got := score(0.875); got != 88 {
		t.Errorf("score(0.875) = %d, want 88", got)
	}
}

func TestRunes(t *testing.T) {
	got := runes("añb")
	if len(got) != 3 || got[1] != "ñ" {
		t.Errorf("runes = %q, want one element per rune", got)
	}
}
