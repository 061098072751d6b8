package pdf

import (
	"math"
	"strings"
	"unicode"

	"github.com/AOShei/go-image-miner/pkg/model"
)

// LayoutConfig holds the thresholds used to group text runs into blocks.
// All values are fractions of the font size or line height involved.
type LayoutConfig struct {
	// LineTolerance is how far two baselines may differ and still share a
	// line, as a fraction of font size (default 0.5)
	LineTolerance float64

	// MaxWordGap is the largest horizontal gap inside a line, in font sizes
	// (default 3.0)
	MaxWordGap float64

	// SpaceFraction of the font's space width above which a gap between two
	// runs is rendered as a space (default 0.5)
	SpaceFraction float64

	// BlockGap is the vertical gap, in line heights, that starts a new
	// block (default 1.5)
	BlockGap float64
}

func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		LineTolerance: 0.5,
		MaxWordGap:    3.0,
		SpaceFraction: 0.5,
		BlockGap:      1.5,
	}
}

type textLine struct {
	bbox     model.Rect
	baseline float64
	size     float64
	text     strings.Builder
}

// groupLines merges runs, in content order, into lines. A run continues the
// current line when its baseline is close and it starts near where the line
// ends.
func groupLines(runs []textRun, cfg LayoutConfig) []*textLine {
	var lines []*textLine
	var cur *textLine

	for _, run := range runs {
		if cur != nil && continuesLine(cur, run, cfg) {
			gap := run.bbox.X0 - cur.bbox.X1
			if gap > spaceThreshold(run, cfg) && !endsWithSpace(cur.text.String()) && !startsWithSpace(run.text) {
				cur.text.WriteByte(' ')
			}
			cur.text.WriteString(run.text)
			cur.bbox = cur.bbox.Union(run.bbox)
			cur.size = math.Max(cur.size, run.size)
			continue
		}

		cur = &textLine{bbox: run.bbox, baseline: run.baseline, size: run.size}
		cur.text.WriteString(run.text)
		lines = append(lines, cur)
	}
	return lines
}

func continuesLine(line *textLine, run textRun, cfg LayoutConfig) bool {
	size := math.Max(line.size, run.size)
	if math.Abs(run.baseline-line.baseline) > cfg.LineTolerance*size {
		return false
	}
	gap := run.bbox.X0 - line.bbox.X1
	return gap < cfg.MaxWordGap*size && gap > -size
}

// spaceThreshold is half a space when the font gives one, else a fifth of
// the font size.
func spaceThreshold(run textRun, cfg LayoutConfig) float64 {
	if run.spaceWidth > 0 {
		return run.spaceWidth * cfg.SpaceFraction
	}
	return run.size * 0.2
}

// groupBlocks stacks consecutive lines into blocks. A line starts a new block
// when it sits more than BlockGap line heights below the block, above the
// block, or does not overlap it horizontally.
func groupBlocks(lines []*textLine, cfg LayoutConfig) []model.TextFragment {
	var blocks []model.TextFragment
	var cur *model.TextFragment

	for _, line := range lines {
		text := strings.TrimRightFunc(line.text.String(), unicode.IsSpace)
		if cur != nil && continuesBlock(cur.BBox, line, cfg) {
			cur.Text += "\n" + text
			cur.BBox = cur.BBox.Union(line.bbox)
			continue
		}
		blocks = append(blocks, model.TextFragment{BBox: line.bbox, Text: text})
		cur = &blocks[len(blocks)-1]
	}
	return blocks
}

func continuesBlock(block model.Rect, line *textLine, cfg LayoutConfig) bool {
	height := line.bbox.Height()
	gap := line.bbox.Y0 - block.Y1
	if gap > cfg.BlockGap*height || gap < -height {
		return false
	}
	return line.bbox.X0 < block.X1 && line.bbox.X1 > block.X0
}

func endsWithSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[len(s)-1]))
}

func startsWithSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[0]))
}
