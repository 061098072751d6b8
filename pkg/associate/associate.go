// Package associate picks the image that belongs to a located question: the
// nearest image below the text on the same page, or failing that, an image
// near the top of the following page.
package associate

import (
	"math"

	"go.uber.org/zap"

	"github.com/AOShei/go-image-miner/pkg/model"
)

const (
	DefaultSamePageCap = 800.0
	DefaultNextPageCap = 300.0
)

// ImageSource lists positioned images per page.
type ImageSource interface {
	NumPages() int
	ImagesOnPage(i int) []model.ImageRef
}

// Config holds the maximum vertical distances, in layout units, at which an
// image still counts as belonging to the text above it. Both are exclusive.
type Config struct {
	SamePageCap float64
	NextPageCap float64
}

func DefaultConfig() Config {
	return Config{SamePageCap: DefaultSamePageCap, NextPageCap: DefaultNextPageCap}
}

type Associator struct {
	src    ImageSource
	cfg    Config
	logger *zap.Logger
}

func New(src ImageSource, cfg Config, logger *zap.Logger) *Associator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SamePageCap <= 0 {
		cfg.SamePageCap = DefaultSamePageCap
	}
	if cfg.NextPageCap <= 0 {
		cfg.NextPageCap = DefaultNextPageCap
	}
	return &Associator{src: src, cfg: cfg, logger: logger}
}

// Associate returns the image for match. Only the match page and the page
// right after it are ever inspected.
func (a *Associator) Associate(match model.MatchResult) (model.ImageRef, bool) {
	if img, dist, ok := nearestBelow(a.src.ImagesOnPage(match.Page), match.BBox.Y1, a.cfg.SamePageCap); ok {
		a.logger.Debug("image found below text",
			zap.Int("page", match.Page), zap.Float64("distance", dist), zap.String("image", img.Name))
		return img, true
	}

	next := match.Page + 1
	if next >= a.src.NumPages() {
		return model.ImageRef{}, false
	}
	if img, dist, ok := nearestBelow(a.src.ImagesOnPage(next), 0, a.cfg.NextPageCap); ok {
		a.logger.Debug("image found at top of next page",
			zap.Int("page", next), zap.Float64("distance", dist), zap.String("image", img.Name))
		return img, true
	}
	return model.ImageRef{}, false
}

// nearestBelow returns the image whose first placement starts at or below
// ref with the smallest distance under limit. The first image wins a tie.
func nearestBelow(images []model.ImageRef, ref, limit float64) (model.ImageRef, float64, bool) {
	var best model.ImageRef
	bestDist := math.Inf(1)
	found := false
	for _, img := range images {
		rect, ok := img.FirstRect()
		if !ok || rect.Y0 < ref {
			continue
		}
		dist := rect.Y0 - ref
		if dist < limit && dist < bestDist {
			best, bestDist, found = img, dist, true
		}
	}
	return best, bestDist, found
}
