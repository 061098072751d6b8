package pdf

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"unicode/utf16"
)

// CMap maps character codes to Unicode text. Keys are the raw code bytes.
type CMap struct {
	Map map[string]string
	// CodeLengths holds the byte lengths declared in codespace ranges,
	// shortest first.
	CodeLengths []int
}

func NewCMap() *CMap {
	return &CMap{Map: make(map[string]string)}
}

// ParseCMap parses a ToUnicode stream. Only the codespace, bfchar and
// bfrange sections matter; the PostScript around them is skipped.
func ParseCMap(data []byte) (*CMap, error) {
	cmap := NewCMap()
	lexer := NewLexer(bytes.NewReader(data))

	for {
		obj, err := lexer.ReadObject()
		if err == io.EOF {
			return cmap, nil
		}
		if err != nil {
			// Procedures and the like.
			lexer.Skip(1)
			continue
		}

		var end string
		var apply func([]Object)
		switch {
		case isKeyword(obj, "begincodespacerange"):
			end, apply = "endcodespacerange", cmap.addCodespaces
		case isKeyword(obj, "beginbfchar"):
			end, apply = "endbfchar", cmap.addChars
		case isKeyword(obj, "beginbfrange"):
			end, apply = "endbfrange", cmap.addRanges
		default:
			continue
		}

		operands, err := readUntil(lexer, end)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", obj, err)
		}
		apply(operands)
	}
}

// Lookup decodes code, reporting whether the CMap knows it.
func (c *CMap) Lookup(code []byte) (string, bool) {
	s, ok := c.Map[string(code)]
	return s, ok
}

// readUntil collects objects up to the keyword end.
func readUntil(l *Lexer, end string) ([]Object, error) {
	var out []Object
	for {
		obj, err := l.ReadObject()
		if err != nil {
			return nil, err
		}
		if isKeyword(obj, end) {
			return out, nil
		}
		out = append(out, obj)
	}
}

// addCodespaces takes <lo> <hi> pairs.
func (c *CMap) addCodespaces(ops []Object) {
	for i := 0; i+1 < len(ops); i += 2 {
		if lo, ok := ops[i].(HexStringObject); ok {
			c.addCodeLength(len(lo))
		}
	}
}

func (c *CMap) addCodeLength(n int) {
	if i, found := slices.BinarySearch(c.CodeLengths, n); !found {
		c.CodeLengths = slices.Insert(c.CodeLengths, i, n)
	}
}

// addChars takes <src> <dst> pairs. A glyph name is occasionally used in
// place of the UTF-16 destination.
func (c *CMap) addChars(ops []Object) {
	for i := 0; i+1 < len(ops); i += 2 {
		src, ok := ops[i].(HexStringObject)
		if !ok {
			continue
		}
		switch dst := ops[i+1].(type) {
		case HexStringObject:
			c.Map[string(src)] = decodeUTF16BE(dst)
		case NameObject:
			if u, ok := glyphToUnicode[string(dst)]; ok {
				c.Map[string(src)] = u
			}
		}
	}
}

// addRanges takes <lo> <hi> <dst> triples, where dst is either the text of
// the first code (later codes increment its last byte) or an array with one
// entry per code.
func (c *CMap) addRanges(ops []Object) {
	for i := 0; i+2 < len(ops); i += 3 {
		lo, ok1 := ops[i].(HexStringObject)
		hi, ok2 := ops[i+1].(HexStringObject)
		if !ok1 || !ok2 {
			continue
		}
		first, last := hexToInt(lo), hexToInt(hi)
		if last < first || last-first > 0xFFFF {
			continue
		}

		switch dst := ops[i+2].(type) {
		case ArrayObject:
			for j, item := range dst {
				if first+j > last {
					break
				}
				if h, ok := item.(HexStringObject); ok {
					c.Map[intToHex(first+j, len(lo))] = decodeUTF16BE(h)
				}
			}
		case HexStringObject:
			if len(dst) == 0 {
				continue
			}
			for code := first; code <= last; code++ {
				c.Map[intToHex(code, len(lo))] = decodeUTF16BE(offsetLast(dst, code-first))
			}
		}
	}
}

// offsetLast adds n to the last byte of b, carrying into the byte before.
func offsetLast(b []byte, n int) []byte {
	out := slices.Clone(b)
	sum := int(out[len(out)-1]) + n
	out[len(out)-1] = byte(sum)
	if sum > 0xFF && len(out) >= 2 {
		out[len(out)-2] += byte(sum >> 8)
	}
	return out
}

func hexToInt(h HexStringObject) int {
	v := 0
	for _, b := range h {
		v = v<<8 | int(b)
	}
	return v
}

// intToHex renders v as a big-endian code of n bytes.
func intToHex(v, n int) string {
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return string(out)
}

// decodeUTF16BE decodes UTF-16BE text; odd-length input is returned as is.
func decodeUTF16BE(b []byte) string {
	if len(b)%2 != 0 {
		return string(b)
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(units))
}
