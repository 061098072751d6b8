package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Object is any value that can appear in a PDF file.
type Object interface {
	String() string
}

type NullObject struct{}

func (NullObject) String() string { return "null" }

type BooleanObject bool

func (b BooleanObject) String() string { return strconv.FormatBool(bool(b)) }

// NumberObject holds both integers and reals; PDF does not distinguish them
// once parsed.
type NumberObject float64

func (n NumberObject) String() string { return strconv.FormatFloat(float64(n), 'f', -1, 64) }

// StringObject is a literal string with escapes already resolved.
type StringObject string

func (s StringObject) String() string { return "(" + string(s) + ")" }

// HexStringObject holds the decoded bytes of a <...> string.
type HexStringObject []byte

func (h HexStringObject) String() string { return fmt.Sprintf("<%x>", []byte(h)) }

// NameObject keeps its leading slash ("/Type").
type NameObject string

func (n NameObject) String() string { return string(n) }

type ArrayObject []Object

func (a ArrayObject) String() string {
	parts := make([]string, len(a))
	for i, o := range a {
		parts[i] = stringOf(o)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// DictionaryObject is keyed by name including the leading slash.
type DictionaryObject map[string]Object

func (d DictionaryObject) String() string {
	var sb strings.Builder
	sb.WriteString("<<")
	for k, v := range d {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString(" ")
		sb.WriteString(stringOf(v))
	}
	sb.WriteString(" >>")
	return sb.String()
}

// StreamObject is a dictionary followed by stream data. Data has every
// general-purpose filter removed; ImageFilter names the image codec the data
// is still encoded with (e.g. "/DCTDecode"), empty when fully decoded.
type StreamObject struct {
	Dictionary  DictionaryObject
	Data        []byte
	ImageFilter string
	ImageParms  DictionaryObject
}

func (s StreamObject) String() string {
	return fmt.Sprintf("%s stream(%d bytes)", s.Dictionary.String(), len(s.Data))
}

// IndirectObject is a reference ("12 0 R").
type IndirectObject struct {
	ObjectNumber int
	Generation   int
}

func (r IndirectObject) String() string {
	return fmt.Sprintf("%d %d R", r.ObjectNumber, r.Generation)
}

// KeywordObject is a bare token: operators, "obj", "stream", "R" and so on.
type KeywordObject string

func (k KeywordObject) String() string { return string(k) }

func stringOf(o Object) string {
	if o == nil {
		return "null"
	}
	return o.String()
}

// nameOf returns the name stored under key, or "" when absent or not a name.
func nameOf(d DictionaryObject, key string) string {
	if n, ok := d[key].(NameObject); ok {
		return string(n)
	}
	return ""
}

// DecodeTextString decodes a PDF text string (/Title and friends): UTF-16BE
// or UTF-8 with a byte order mark, otherwise PDFDocEncoding, which agrees
// with Windows-1252 on every printable character that matters here.
func DecodeTextString(b []byte) string {
	switch {
	case bytes.HasPrefix(b, []byte{0xFE, 0xFF}):
		return decodeUTF16BE(b[2:])
	case bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}):
		return string(b[3:])
	case utf8.Valid(b):
		return string(b)
	}
	var sb strings.Builder
	for _, c := range b {
		sb.WriteRune(charmap.Windows1252.DecodeByte(c))
	}
	return sb.String()
}
