// Package miner drives the per-question pipeline: locate the question in the
// document, pick the image below it, extract and upload that image and record
// the resulting URL.
package miner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AOShei/go-image-miner/pkg/model"
)

type Locator interface {
	Locate(question string) (model.MatchResult, bool)
}

type Associator interface {
	Associate(match model.MatchResult) (model.ImageRef, bool)
}

type Extractor interface {
	Extract(ref model.ImageRef) ([]byte, string, error)
}

type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, token string) (string, error)
}

// Fields names the record columns the driver reads.
type Fields struct {
	Flag     string
	Question string
}

func DefaultFields() Fields {
	return Fields{Flag: "has_image", Question: "Question"}
}

// Stats counts what happened to the records of one run.
type Stats struct {
	Records          int `json:"records"`
	Flagged          int `json:"flagged"`
	Mined            int `json:"mined"`
	NotMatched       int `json:"not_matched"`
	NotAssociated    int `json:"not_associated"`
	ExtractionFailed int `json:"extraction_failed"`
	UploadFailed     int `json:"upload_failed"`
}

// Skipped is the number of flagged records that produced no URL.
func (s Stats) Skipped() int {
	return s.NotMatched + s.NotAssociated + s.ExtractionFailed + s.UploadFailed
}

type Driver struct {
	locator    Locator
	associator Associator
	extractor  Extractor
	uploader   Uploader
	fields     Fields
	logger     *zap.Logger
}

func NewDriver(loc Locator, assoc Associator, ext Extractor, up Uploader, fields Fields, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultFields()
	if fields.Flag == "" {
		fields.Flag = def.Flag
	}
	if fields.Question == "" {
		fields.Question = def.Question
	}
	return &Driver{
		locator:    loc,
		associator: assoc,
		extractor:  ext,
		uploader:   up,
		fields:     fields,
		logger:     logger,
	}
}

// Run processes records in order. A failure on one record is logged and the
// record skipped; only cancellation of ctx stops the run early.
func (d *Driver) Run(ctx context.Context, records []Record, token string) (*model.LookupMap, Stats) {
	lookup := model.NewLookupMap()
	stats := Stats{Records: len(records)}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("mining interrupted", zap.Int("record", i), zap.Error(err))
			break
		}
		if !Flagged(rec[d.fields.Flag]) {
			continue
		}
		stats.Flagged++

		question := QuestionText(rec, d.fields.Question)
		url, err := d.mine(ctx, i, question, token)
		if err != nil {
			d.countSkip(&stats, err)
			d.logger.Info("record skipped",
				zap.Int("record", i),
				zap.String("question", preview(question)),
				zap.Error(err))
			continue
		}

		lookup.Set(question, url)
		stats.Mined++
		d.logger.Info("image mined",
			zap.Int("record", i),
			zap.String("question", preview(question)),
			zap.String("url", url))
	}
	return lookup, stats
}

func (d *Driver) mine(ctx context.Context, i int, question, token string) (string, error) {
	match, ok := d.locator.Locate(question)
	if !ok {
		return "", model.ErrMatchNotFound
	}
	d.logger.Debug("text matched",
		zap.Int("record", i), zap.Int("page", match.Page), zap.Int("score", match.Score))

	ref, ok := d.associator.Associate(match)
	if !ok {
		return "", fmt.Errorf("%w: page %d", model.ErrAssociationNotFound, match.Page)
	}

	data, ext, err := d.extractor.Extract(ref)
	if err != nil {
		return "", err
	}

	url, err := d.uploader.Upload(ctx, data, Filename(i, ext), token)
	if err != nil {
		return "", err
	}
	return url, nil
}

func (d *Driver) countSkip(stats *Stats, err error) {
	switch {
	case errors.Is(err, model.ErrMatchNotFound):
		stats.NotMatched++
	case errors.Is(err, model.ErrAssociationNotFound):
		stats.NotAssociated++
	case errors.Is(err, model.ErrExtraction):
		stats.ExtractionFailed++
	default:
		stats.UploadFailed++
	}
}

// Filename is the upload name of the image mined for record i.
func Filename(i int, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return fmt.Sprintf("q_%d", i)
	}
	return fmt.Sprintf("q_%d.%s", i, ext)
}

// preview shortens a question for log lines.
func preview(q string) string {
	const n = 60
	q = strings.Join(strings.Fields(q), " ")
	if r := []rune(q); len(r) > n {
		return string(r[:n]) + "..."
	}
	return q
}
