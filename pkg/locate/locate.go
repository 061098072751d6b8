// Package locate finds the text fragment that best matches a question.
package locate

import (
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/AOShei/go-image-miner/pkg/fuzzy"
	"github.com/AOShei/go-image-miner/pkg/model"
)

const (
	DefaultThreshold   = 85
	DefaultQueryPrefix = 100
)

// PageSource is a document already split into positioned fragments.
type PageSource interface {
	Pages() []model.Page
}

type Config struct {
	// Threshold is the score a fragment must exceed to be accepted.
	Threshold int
	// QueryPrefix is the number of characters of the question used as query.
	QueryPrefix int
}

func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, QueryPrefix: DefaultQueryPrefix}
}

// Locator scans every fragment of a document for the best fuzzy match.
type Locator struct {
	pages  []model.Page
	texts  [][]string
	cfg    Config
	logger *zap.Logger
}

// New builds a locator over src. Fragment text is normalised once here so
// repeated queries do not pay for it.
func New(src PageSource, cfg Config, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueryPrefix <= 0 {
		cfg.QueryPrefix = DefaultQueryPrefix
	}

	pages := src.Pages()
	texts := make([][]string, len(pages))
	for i, p := range pages {
		texts[i] = make([]string, len(p.Fragments))
		for j, f := range p.Fragments {
			texts[i][j] = norm.NFKC.String(f.Text)
		}
	}
	return &Locator{pages: pages, texts: texts, cfg: cfg, logger: logger}
}

// Locate returns the fragment with the highest score above the threshold.
// A later fragment only wins with a strictly higher score, so ties keep the
// first one in page and fragment order.
func (l *Locator) Locate(question string) (model.MatchResult, bool) {
	query := norm.NFKC.String(Truncate(question, l.cfg.QueryPrefix))
	if query == "" {
		return model.MatchResult{}, false
	}

	var best model.MatchResult
	var bestText string
	found := false
	for i, page := range l.pages {
		for j, frag := range page.Fragments {
			score := fuzzy.PartialRatio(query, l.texts[i][j])
			if score > l.cfg.Threshold && score > best.Score {
				best = model.MatchResult{Page: page.Index, BBox: frag.BBox, Score: score, Text: frag.Text}
				bestText = l.texts[i][j]
				found = true
			}
		}
	}

	if found {
		// ratio is the whole-fragment score; far below score means the
		// question sits inside a larger block.
		l.logger.Debug("question located",
			zap.Int("page", best.Page),
			zap.Int("score", best.Score),
			zap.Int("ratio", fuzzy.Ratio(query, bestText)),
			zap.Float64("y1", best.BBox.Y1))
	}
	return best, found
}

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
