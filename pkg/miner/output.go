package miner

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/multierr"

	"github.com/AOShei/go-image-miner/pkg/model"
)

// WriteLookup writes m to path as an indented JSON object. A nil map is
// written as {} so downstream steps always find the file.
func WriteLookup(path string, m *model.LookupMap) (err error) {
	if m == nil {
		m = model.NewLookupMap()
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output %s: %w", path, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to write output %s: %w", path, err)
	}
	return nil
}
