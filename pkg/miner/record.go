package miner

import (
	"fmt"
	"strings"
)

// Record is one spreadsheet row keyed by column header.
type Record map[string]any

// Flagged reports whether a flag cell asks for an image. Booleans count as
// themselves; anything else is flagged only when its lower-cased string form
// is "true" or "1".
func Flagged(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		s := strings.ToLower(fmt.Sprint(v))
		return s == "true" || s == "1"
	}
}

// QuestionText returns the string form of the question field, "" when the
// field is absent or empty.
func QuestionText(r Record, field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
