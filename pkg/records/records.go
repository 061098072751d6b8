// Package records reads question rows from a spreadsheet.
package records

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"

	"github.com/AOShei/go-image-miner/pkg/miner"
	"github.com/AOShei/go-image-miner/pkg/model"
)

// LoadXLSX reads the first worksheet of path. The first row is the header;
// every following row becomes a record keyed by header name. Empty cells are
// left out of the record and rows without any value are dropped. Any failure
// is a fatal setup error.
func LoadXLSX(path string) (recs []miner.Record, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, model.NewSetupError("records", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, model.NewSetupError("records", path, cerr))
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, model.NewSetupError("records", path, errors.New("workbook has no worksheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, model.NewSetupError("records", path, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err))
	}
	return fromRows(rows), nil
}

func fromRows(rows [][]string) []miner.Record {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	recs := make([]miner.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := miner.Record{}
		for i, cell := range row {
			if i >= len(header) || header[i] == "" || cell == "" {
				continue
			}
			if _, dup := rec[header[i]]; dup {
				continue
			}
			rec[header[i]] = cell
		}
		if len(rec) == 0 {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}
