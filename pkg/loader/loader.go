// Package loader opens a PDF once and keeps its page layouts in memory so
// that text search and image lookup never re-parse the file.
package loader

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/AOShei/go-image-miner/pkg/model"
	"github.com/AOShei/go-image-miner/pkg/pdf"
)

// Index is the layout of every page of one document.
type Index struct {
	file   *os.File
	reader *pdf.Reader
	doc    model.Document
	logger *zap.Logger
}

// Open parses path and builds the layout of each page. Any failure to open
// or parse the document is a setup error; a page whose content cannot be
// read is kept as an empty page so indices stay aligned with the file.
func Open(path string, logger *zap.Logger) (*Index, error) {
	return OpenWithConfig(path, pdf.DefaultLayoutConfig(), logger)
}

func OpenWithConfig(path string, cfg pdf.LayoutConfig, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewSetupError("document", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, model.NewSetupError("document", path, multierr.Append(err, f.Close()))
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, model.NewSetupError("document", path,
			multierr.Append(fmt.Errorf("failed to create pdf reader: %w", err), f.Close()))
	}
	sugar := logger.Sugar()
	reader.Warn = func(format string, args ...any) {
		sugar.Debugf(format, args...)
	}

	idx := &Index{file: f, reader: reader, logger: logger}
	idx.doc.Metadata = readMetadata(reader)
	if idx.doc.Metadata.Encrypted {
		logger.Info("document is encrypted, opened with the empty user password")
	}

	numPages, err := reader.PageCount()
	if err != nil {
		return nil, model.NewSetupError("document", path, multierr.Append(err, f.Close()))
	}
	logger.Info("indexing document", zap.String("path", path), zap.Int("pages", numPages))

	idx.doc.Pages = make([]model.Page, 0, numPages)
	for i := 0; i < numPages; i++ {
		idx.doc.Pages = append(idx.doc.Pages, idx.loadPage(i, cfg))
	}
	return idx, nil
}

func (idx *Index) loadPage(i int, cfg pdf.LayoutConfig) model.Page {
	start := time.Now()
	page := model.Page{Index: i}

	pdfPage, err := idx.reader.GetPage(i)
	if err != nil {
		idx.logger.Warn("page unreadable, kept empty", zap.Int("page", i), zap.Error(err))
		return page
	}

	layout, err := pdf.NewExtractor(idx.reader, pdfPage, cfg).Extract()
	if err != nil {
		idx.logger.Warn("page content unreadable, kept empty", zap.Int("page", i), zap.Error(err))
		return page
	}

	page.Width, page.Height = layout.Width, layout.Height
	page.Fragments = layout.Fragments
	page.Images = layout.Images

	idx.logger.Debug("page indexed",
		zap.Int("page", i),
		zap.Int("fragments", len(page.Fragments)),
		zap.Int("images", len(page.Images)),
		zap.Duration("took", time.Since(start)))
	return page
}

func readMetadata(reader *pdf.Reader) model.Metadata {
	meta := model.Metadata{Encrypted: reader.IsEncrypted()}
	info, err := reader.GetInfo()
	if err != nil || info == nil {
		return meta
	}
	text := func(key string) string {
		switch v := reader.Resolve(info[key]).(type) {
		case pdf.StringObject:
			return pdf.DecodeTextString([]byte(v))
		case pdf.HexStringObject:
			return pdf.DecodeTextString([]byte(v))
		}
		return ""
	}
	meta.Title = text("/Title")
	meta.Author = text("/Author")
	meta.Creator = text("/Creator")
	meta.Producer = text("/Producer")
	return meta
}

// Pages returns every page in physical order.
func (idx *Index) Pages() []model.Page {
	return idx.doc.Pages
}

func (idx *Index) NumPages() int {
	return len(idx.doc.Pages)
}

// Page returns page i, false when out of range.
func (idx *Index) Page(i int) (model.Page, bool) {
	if i < 0 || i >= len(idx.doc.Pages) {
		return model.Page{}, false
	}
	return idx.doc.Pages[i], true
}

// ImagesOnPage lists the images placed on page i; empty when out of range.
func (idx *Index) ImagesOnPage(i int) []model.ImageRef {
	page, ok := idx.Page(i)
	if !ok {
		return nil
	}
	return page.Images
}

// Extract returns the raw bytes of an image and their format extension.
func (idx *Index) Extract(ref model.ImageRef) ([]byte, string, error) {
	if ref.ObjectNumber <= 0 {
		return nil, "", &model.ExtractionError{ObjectNumber: ref.ObjectNumber, Err: errors.New("image has no content handle")}
	}
	data, ext, err := idx.reader.ExtractImage(ref.ObjectNumber)
	if err != nil {
		return nil, "", &model.ExtractionError{ObjectNumber: ref.ObjectNumber, Err: err}
	}
	return data, ext, nil
}

func (idx *Index) Metadata() model.Metadata {
	return idx.doc.Metadata
}

// Close releases the file. Calling it again is a no-op.
func (idx *Index) Close() error {
	if idx.file == nil {
		return nil
	}
	err := idx.file.Close()
	idx.file = nil
	return err
}
