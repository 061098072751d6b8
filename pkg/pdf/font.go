package pdf

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Font represents a PDF font with metrics and mapping.
type Font struct {
	BaseFont string
	Subtype  string
	CMap     *CMap
	// Encoding maps char code -> glyph name (from /Encoding /Differences)
	Encoding     map[int]string
	BaseEncoding *charmap.Charmap
	Widths       map[int]float64 // glyph space units
	MissingW     float64
	SpaceWidth   float64
	// WidthScale converts glyph space to text space: 1/1000 except for Type3.
	WidthScale float64
	IsCID      bool
}

// glyph is one decoded character code.
type glyph struct {
	text      string
	width     float64 // text space, per unit of font size
	wordSpace bool    // single-byte code 32: word spacing applies
}

// fallbackFont stands in when text is shown before any Tf.
var fallbackFont = &Font{
	Widths:       map[int]float64{},
	Encoding:     map[int]string{},
	BaseEncoding: charmap.Windows1252,
	SpaceWidth:   250,
	WidthScale:   0.001,
}

// loadFont parses widths, encodings and the ToUnicode map of a font
// dictionary. Fonts referenced by object number are cached on the reader.
func (r *Reader) loadFont(ref Object) *Font {
	objNum := 0
	if ind, ok := ref.(IndirectObject); ok {
		objNum = ind.ObjectNumber
		if cached := r.GetCachedFont(objNum); cached != nil {
			return cached
		}
	}

	obj, ok := r.Resolve(ref).(DictionaryObject)
	if !ok {
		return fallbackFont
	}

	f := &Font{
		Subtype:    nameOf(obj, "/Subtype"),
		BaseFont:   nameOf(obj, "/BaseFont"),
		Widths:     make(map[int]float64),
		Encoding:   make(map[int]string),
		WidthScale: 0.001,
	}

	if f.Subtype == "/Type0" {
		f.IsCID = true
		f.MissingW = 1000
		if desc, ok := r.Resolve(obj["/DescendantFonts"]).(ArrayObject); ok && len(desc) > 0 {
			if cid, ok := r.Resolve(desc[0]).(DictionaryObject); ok {
				r.loadCIDWidths(f, cid)
			}
		}
	} else {
		if first, ok := r.Resolve(obj["/FirstChar"]).(NumberObject); ok {
			if widths, ok := r.Resolve(obj["/Widths"]).(ArrayObject); ok {
				for i, wObj := range widths {
					if w, ok := r.Resolve(wObj).(NumberObject); ok {
						f.Widths[int(first)+i] = float64(w)
					}
				}
			}
		}
		if fd, ok := r.Resolve(obj["/FontDescriptor"]).(DictionaryObject); ok {
			f.MissingW = number(r.Resolve(fd["/MissingWidth"]))
		}
		if fm, ok := r.Resolve(obj["/FontMatrix"]).(ArrayObject); ok && len(fm) == 6 && f.Subtype == "/Type3" {
			f.WidthScale = number(fm[0])
		}
		f.BaseEncoding = charmap.Windows1252
		r.parseEncoding(f, obj["/Encoding"])
	}

	if w, ok := f.Widths[32]; ok {
		f.SpaceWidth = w
	} else {
		f.SpaceWidth = 250
	}

	if toUnicode, ok := r.Resolve(obj["/ToUnicode"]).(StreamObject); ok {
		if cmap, err := ParseCMap(toUnicode.Data); err == nil {
			f.CMap = cmap
		} else {
			r.Warn("font %s: bad ToUnicode map: %v", f.BaseFont, err)
		}
	}

	if objNum != 0 {
		r.CacheFont(objNum, f)
	}
	return f
}

// loadCIDWidths reads /W and /DW. /W mixes two forms:
// c [w1 w2 ...] and cfirst clast w.
func (r *Reader) loadCIDWidths(f *Font, cid DictionaryObject) {
	if dw, ok := r.Resolve(cid["/DW"]).(NumberObject); ok {
		f.MissingW = float64(dw)
	}
	w, ok := r.Resolve(cid["/W"]).(ArrayObject)
	if !ok {
		return
	}
	for i := 0; i < len(w); {
		first, ok := r.Resolve(w[i]).(NumberObject)
		if !ok || i+1 >= len(w) {
			return
		}
		switch next := r.Resolve(w[i+1]).(type) {
		case ArrayObject:
			for j, v := range next {
				f.Widths[int(first)+j] = number(r.Resolve(v))
			}
			i += 2
		case NumberObject:
			if i+2 >= len(w) {
				return
			}
			width := number(r.Resolve(w[i+2]))
			for c := int(first); c <= int(next) && c-int(first) <= 0xFFFF; c++ {
				f.Widths[c] = width
			}
			i += 3
		default:
			return
		}
	}
}

// parseEncoding reads a base encoding name and /Differences.
func (r *Reader) parseEncoding(f *Font, encObj Object) {
	resolved := r.Resolve(encObj)

	var base string
	switch enc := resolved.(type) {
	case NameObject:
		base = string(enc)
	case DictionaryObject:
		base = nameOf(enc, "/BaseEncoding")
		if diff, ok := r.Resolve(enc["/Differences"]).(ArrayObject); ok {
			code := 0
			for _, item := range diff {
				switch v := item.(type) {
				case NumberObject:
					code = int(v)
				case NameObject:
					f.Encoding[code] = string(v)
					code++
				}
			}
		}
	}

	if base == "/MacRomanEncoding" {
		f.BaseEncoding = charmap.Macintosh
	}
}

// glyphs splits raw string bytes into character codes and decodes each.
func (f *Font) glyphs(raw []byte) []glyph {
	step := 1
	if f.IsCID {
		step = 2
	}

	out := make([]glyph, 0, len(raw)/step)
	for i := 0; i < len(raw); i += step {
		end := min(i+step, len(raw))
		code := raw[i:end]
		c := 0
		for _, b := range code {
			c = c<<8 | int(b)
		}
		out = append(out, glyph{
			text:      f.decode(code, c),
			width:     f.width(c) * f.WidthScale,
			wordSpace: step == 1 && c == 32,
		})
	}
	return out
}

func (f *Font) decode(code []byte, c int) string {
	if f.CMap != nil {
		if s, ok := f.CMap.Lookup(code); ok {
			return s
		}
	}
	if name, ok := f.Encoding[c]; ok {
		if s := glyphNameToText(name); s != "" {
			return s
		}
	}
	if f.IsCID || len(code) != 1 {
		return ""
	}
	enc := f.BaseEncoding
	if enc == nil {
		enc = charmap.Windows1252
	}
	if r := enc.DecodeByte(code[0]); r >= 0x20 && r != 0x7F && r != 0xFFFD {
		return string(r)
	}
	return ""
}

func (f *Font) width(c int) float64 {
	if w, ok := f.Widths[c]; ok {
		return w
	}
	if f.MissingW > 0 {
		return f.MissingW
	}
	// No metrics at all (standard 14 fonts): half an em per glyph.
	return 500
}

// glyphNameToText resolves a glyph name through the table, then the
// uniXXXX / uXXXX conventions, then single-letter names.
func glyphNameToText(name string) string {
	if s, ok := glyphToUnicode[name]; ok {
		return s
	}
	bare := strings.TrimPrefix(name, "/")
	if hex, ok := strings.CutPrefix(bare, "uni"); ok && len(hex) >= 4 {
		if v, err := strconv.ParseUint(hex[:4], 16, 32); err == nil {
			return string(rune(v))
		}
	}
	if hex, ok := strings.CutPrefix(bare, "u"); ok && len(hex) >= 4 && len(hex) <= 6 {
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return string(rune(v))
		}
	}
	if len(bare) == 1 {
		return bare
	}
	return ""
}
