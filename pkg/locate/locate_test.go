package locate

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AOShei/go-image-miner/pkg/fuzzy"
	"github.com/AOShei/go-image-miner/pkg/model"
)

type pages []model.Page

func (p pages) Pages() []model.Page { return p }

func frag(text string, y0, y1 float64) model.TextFragment {
	return model.TextFragment{BBox: model.Rect{X0: 72, Y0: y0, X1: 400, Y1: y1}, Text: text}
}

func TestLocate(t *testing.T) {
	doc := pages{
		{Index: 0, Fragments: []model.TextFragment{
			frag("Section A", 40, 60),
			frag("What is the capital of France?", 100, 120),
		}},
		{Index: 1, Fragments: []model.TextFragment{
			frag("Name the largest planet in the solar system.", 80, 96),
		}},
	}
	loc := New(doc, DefaultConfig(), nil)

	tests := []struct {
		name     string
		question string
		wantOK   bool
		wantPage int
		wantY1   float64
	}{
		{"exact substring", "What is the capital of France", true, 0, 120},
		{"second page", "Name the largest planet", true, 1, 96},
		{"below threshold", "Describe the water cycle", false, 0, 0},
		{"empty query", "", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := loc.Locate(tt.question)
			if ok != tt.wantOK {
				t.Fatalf("Locate(%q) ok = %v, want %v (score %d)", tt.question, ok, tt.wantOK, m.Score)
			}
			if !ok {
				return
			}
			if m.Page != tt.wantPage || m.BBox.Y1 != tt.wantY1 {
				t.Errorf("Locate(%q) = page %d y1 %.1f, want page %d y1 %.1f",
					tt.question, m.Page, m.BBox.Y1, tt.wantPage, tt.wantY1)
			}
			if m.Score <= DefaultThreshold {
				t.Errorf("accepted score %d not above threshold", m.Score)
			}
		})
	}
}

func TestLocateTieKeepsFirst(t *testing.T) {
	doc := pages{
		{Index: 0, Fragments: []model.TextFragment{frag("Which gas do plants absorb?", 300, 320)}},
		{Index: 1, Fragments: []model.TextFragment{
			frag("Which gas do plants absorb?", 50, 70),
			frag("Which gas do plants absorb?", 200, 220),
		}},
	}
	m, ok := New(doc, DefaultConfig(), nil).Locate("Which gas do plants absorb?")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Page != 0 || m.BBox.Y0 != 300 {
		t.Errorf("tie resolved to page %d y0 %.0f, want the first fragment (page 0 y0 300)", m.Page, m.BBox.Y0)
	}
}

func TestLocatePrefersHigherScore(t *testing.T) {
	doc := pages{
		{Index: 0, Fragments: []model.TextFragment{frag("1. What is the capitol of France?", 100, 120)}},
		{Index: 1, Fragments: []model.TextFragment{frag("2. What is the capital of France?", 100, 120)}},
	}
	m, ok := New(doc, DefaultConfig(), nil).Locate("What is the capital of France")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Page != 1 || m.Score != 100 {
		t.Errorf("got page %d score %d, want page 1 score 100", m.Page, m.Score)
	}
}

func TestLocateThresholdIsExclusive(t *testing.T) {
	doc := pages{{Index: 0, Fragments: []model.TextFragment{frag("abcdefgh", 0, 10)}}}

	// "abcdefgx" against "abcdefgh" scores exactly 88.
	cfg := DefaultConfig()
	cfg.Threshold = 88
	if _, ok := New(doc, cfg, nil).Locate("abcdefgx"); ok {
		t.Error("score equal to threshold must not match")
	}
	cfg.Threshold = 87
	if _, ok := New(doc, cfg, nil).Locate("abcdefgx"); !ok {
		t.Error("score above threshold must match")
	}
}

func TestLocateNoPages(t *testing.T) {
	if _, ok := New(pages{}, DefaultConfig(), nil).Locate("anything"); ok {
		t.Error("empty document must not match")
	}
}

func TestLocateNormalisesLigatures(t *testing.T) {
	doc := pages{{Index: 0, Fragments: []model.TextFragment{frag("Deﬁne the ﬁrst law of thermodynamics", 10, 30)}}}
	m, ok := New(doc, DefaultConfig(), nil).Locate("Define the first law of thermodynamics")
	if !ok || m.Score != 100 {
		t.Errorf("ligature text: ok=%v score=%d, want exact match", ok, m.Score)
	}
	if m.Text != "Deﬁne the ﬁrst law of thermodynamics" {
		t.Errorf("match text should be the raw fragment, got %q", m.Text)
	}
}

func TestLocateUsesPrefixOnly(t *testing.T) {
	head := "Study the diagram below and identify the labelled parts of the flower shown in the figure, then name"
	tail := " each structure involved in pollination, explain how the stigma receives pollen grains, and compare" +
		" wind pollinated grasses with insect pollinated orchids in terms of petal colour, nectar and scent."
	doc := pages{{Index: 0, Fragments: []model.TextFragment{
		frag(head+" Marks: 6. Use the space provided below for your answer.", 10, 30),
	}}}

	// The whole question scores 71 against the fragment; its first 100
	// characters are an exact substring.
	m, ok := New(doc, DefaultConfig(), nil).Locate(head + tail)
	if !ok || m.Score != 100 {
		t.Errorf("long question: ok=%v score=%d, want a match on its first 100 characters", ok, m.Score)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"hello", 0, ""},
		{strings.Repeat("x", 150), 100, strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestLocateLogsWholeFragmentRatio(t *testing.T) {
	const block = "Section A. What is the capital of France? Answer in one word and explain why."
	core, logs := observer.New(zapcore.DebugLevel)
	loc := New(pages{{Index: 0, Fragments: []model.TextFragment{frag(block, 100, 140)}}}, DefaultConfig(), zap.New(core))

	const query = "What is the capital of France"
	m, ok := loc.Locate(query)
	if !ok {
		t.Fatal("question inside a larger block not located")
	}

	entries := logs.FilterMessage("question located").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if got, want := fields["score"], int64(m.Score); got != want {
		t.Errorf("score field = %v, want %v", got, want)
	}
	ratio := fuzzy.Ratio(query, block)
	if got := fields["ratio"]; got != int64(ratio) {
		t.Errorf("ratio field = %v, want %d", got, ratio)
	}
	if ratio >= m.Score {
		t.Errorf("whole-fragment ratio %d should be below partial score %d", ratio, m.Score)
	}
}
