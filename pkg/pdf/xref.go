package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// XRefEntry locates one object: a byte offset for objects stored in the
// file body, or a slot in an object stream for compressed ones.
type XRefEntry struct {
	Offset     int64
	Generation int
	Free       bool
	Compressed bool
	StreamObj  int
	StreamIdx  int
}

// XRefTable is the merged cross-reference data of a file. Sections are read
// newest first, so the first definition of an object number wins.
type XRefTable struct {
	Entries map[int]XRefEntry
	Trailer DictionaryObject
}

func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]XRefEntry),
		Trailer: make(DictionaryObject),
	}
}

func (t *XRefTable) merge(entries map[int]XRefEntry, trailer DictionaryObject) {
	for id, e := range entries {
		if _, ok := t.Entries[id]; !ok {
			t.Entries[id] = e
		}
	}
	for k, v := range trailer {
		if _, ok := t.Trailer[k]; !ok {
			t.Trailer[k] = v
		}
	}
}

// ParseXRef follows the startxref chain. When the chain is damaged it falls
// back to rebuilding the table by scanning for "N G obj" headers.
func ParseXRef(rs io.ReadSeeker) (*XRefTable, error) {
	table, err := parseXRefChain(rs)
	if err == nil {
		return table, nil
	}
	rebuilt, rerr := rebuildXRef(rs)
	if rerr != nil {
		return nil, fmt.Errorf("%w (rebuild: %v)", err, rerr)
	}
	return rebuilt, nil
}

func parseXRefChain(rs io.ReadSeeker) (*XRefTable, error) {
	start, err := findStartXRef(rs)
	if err != nil {
		return nil, fmt.Errorf("startxref: %w", err)
	}

	table := NewXRefTable()
	seen := make(map[int64]bool)
	for offset := start; offset > 0 && !seen[offset]; {
		seen[offset] = true
		entries, trailer, err := readXRefSection(rs, offset)
		if err != nil {
			return nil, fmt.Errorf("xref section at %d: %w", offset, err)
		}

		// Hybrid files list their compressed objects in a separate stream;
		// the classic table marks them free or leaves them out.
		if stm := int64(intOf(trailer["/XRefStm"], 0)); stm > 0 && !seen[stm] {
			seen[stm] = true
			if hidden, _, err := readXRefSection(rs, stm); err == nil {
				for id, e := range hidden {
					if old, ok := entries[id]; !ok || old.Free {
						entries[id] = e
					}
				}
			}
		}

		table.merge(entries, trailer)
		offset = int64(intOf(trailer["/Prev"], 0))
	}

	if _, ok := table.Trailer["/Root"]; !ok {
		return nil, errors.New("invalid PDF: missing /Root in trailer")
	}
	return table, nil
}

// findStartXRef reads the offset after the last "startxref" in the final
// kilobyte of the file.
func findStartXRef(rs io.ReadSeeker) (int64, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	tail := min(size, 1024)
	if _, err := rs.Seek(-tail, io.SeekEnd); err != nil {
		return 0, err
	}
	buf := make([]byte, tail)
	if _, err := io.ReadFull(rs, buf); err != nil {
		return 0, err
	}

	i := bytes.LastIndex(buf, []byte("startxref"))
	if i < 0 {
		return 0, errors.New("startxref not found")
	}
	rest := bytes.TrimLeft(buf[i+len("startxref"):], " \t\r\n\f\x00")
	end := 0
	for end < len(rest) && isDigit(rest[end]) {
		end++
	}
	if end == 0 {
		return 0, errors.New("startxref has no offset")
	}
	return strconv.ParseInt(string(rest[:end]), 10, 64)
}

// readXRefSection reads the table or stream starting at offset.
func readXRefSection(rs io.ReadSeeker, offset int64) (map[int]XRefEntry, DictionaryObject, error) {
	if _, err := rs.Seek(offset, io.SeekStart); err != nil {
		return nil, nil, err
	}
	lexer := NewLexer(rs)
	first, err := lexer.ReadObject()
	if err != nil {
		return nil, nil, err
	}
	if isKeyword(first, "xref") {
		return readXRefTable(lexer)
	}
	return readXRefStream(lexer)
}

// readXRefTable parses a classic table after its "xref" keyword: subsections
// of "first count" headers, each followed by count "offset gen n|f" entries,
// then the trailer dictionary. Entries are read as tokens, so tables with
// non-standard line endings still parse.
func readXRefTable(lexer *Lexer) (map[int]XRefEntry, DictionaryObject, error) {
	entries := make(map[int]XRefEntry)
	for {
		obj, err := lexer.ReadObject()
		if err != nil {
			return nil, nil, fmt.Errorf("subsection header: %w", err)
		}
		if isKeyword(obj, "trailer") {
			break
		}
		countObj, err := lexer.ReadObject()
		if err != nil {
			return nil, nil, fmt.Errorf("subsection header: %w", err)
		}
		first, ok1 := obj.(NumberObject)
		count, ok2 := countObj.(NumberObject)
		if !ok1 || !ok2 {
			return nil, nil, errors.New("malformed xref subsection header")
		}

		for i := 0; i < int(count); i++ {
			e, err := readXRefTableEntry(lexer)
			if err != nil {
				return nil, nil, fmt.Errorf("entry %d: %w", int(first)+i, err)
			}
			if _, dup := entries[int(first)+i]; !dup {
				entries[int(first)+i] = e
			}
		}
	}

	obj, err := lexer.ReadObject()
	if err != nil {
		return nil, nil, fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := obj.(DictionaryObject)
	if !ok {
		return nil, nil, errors.New("trailer is not a dictionary")
	}
	return entries, trailer, nil
}

func readXRefTableEntry(lexer *Lexer) (XRefEntry, error) {
	var fields [3]Object
	for i := range fields {
		obj, err := lexer.ReadObject()
		if err != nil {
			return XRefEntry{}, err
		}
		fields[i] = obj
	}
	offset, ok1 := fields[0].(NumberObject)
	gen, ok2 := fields[1].(NumberObject)
	if !ok1 || !ok2 || !(isKeyword(fields[2], "n") || isKeyword(fields[2], "f")) {
		return XRefEntry{}, fmt.Errorf("malformed entry %v %v %v", fields[0], fields[1], fields[2])
	}
	return XRefEntry{
		Offset:     int64(offset),
		Generation: int(gen),
		Free:       isKeyword(fields[2], "f"),
	}, nil
}

// readXRefStream parses a cross-reference stream (PDF 1.5). The object
// number of its "N G obj" header has already been consumed.
func readXRefStream(lexer *Lexer) (map[int]XRefEntry, DictionaryObject, error) {
	if _, err := lexer.ReadObject(); err != nil {
		return nil, nil, err
	}
	if kw, err := lexer.ReadObject(); err != nil || !isKeyword(kw, "obj") {
		return nil, nil, errors.New("expected an xref stream object")
	}
	obj, err := lexer.ReadObject()
	if err != nil {
		return nil, nil, fmt.Errorf("xref stream dictionary: %w", err)
	}
	dict, ok := obj.(DictionaryObject)
	if !ok {
		return nil, nil, fmt.Errorf("expected dictionary for xref stream, got %T", obj)
	}
	if typ := nameOf(dict, "/Type"); typ != "/XRef" {
		return nil, nil, fmt.Errorf("object is not an xref stream (type %q)", typ)
	}

	var w [3]int
	wArr, ok := dict["/W"].(ArrayObject)
	if !ok || len(wArr) != 3 {
		return nil, nil, errors.New("invalid /W array")
	}
	for i := range w {
		w[i] = intOf(wArr[i], 0)
	}
	stride := w[0] + w[1] + w[2]
	if stride <= 0 {
		return nil, nil, errors.New("empty /W array")
	}

	data, err := readRawStream(lexer, dict)
	if err != nil {
		return nil, nil, err
	}
	if nameOf(dict, "/Filter") == "/FlateDecode" {
		if data, err = inflate(data); err != nil {
			return nil, nil, fmt.Errorf("inflate xref stream: %w", err)
		}
	}
	// A predictor row is one entry unless /Columns says otherwise.
	if parms, ok := dict["/DecodeParms"].(DictionaryObject); ok {
		if p := intOf(parms["/Predictor"], 1); p >= 10 {
			if data, err = unpredictPNG(data, intOf(parms["/Columns"], stride), 1, p); err != nil {
				return nil, nil, err
			}
		}
	}

	index := []int{0, intOf(dict["/Size"], 0)}
	if arr, ok := dict["/Index"].(ArrayObject); ok {
		index = index[:0]
		for _, v := range arr {
			index = append(index, intOf(v, 0))
		}
	}

	entries := make(map[int]XRefEntry)
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		for j := 0; j < index[i+1]; j++ {
			if pos+stride > len(data) {
				// Truncated stream: keep what was read.
				return entries, dict, nil
			}
			row := data[pos : pos+stride]
			pos += stride

			// A zero-width type field means type 1.
			typ := int64(1)
			if w[0] > 0 {
				typ = bigEndian(row[:w[0]])
			}
			f2 := bigEndian(row[w[0] : w[0]+w[1]])
			f3 := bigEndian(row[w[0]+w[1]:])

			id := index[i] + j
			switch typ {
			case 0:
				entries[id] = XRefEntry{Free: true, Generation: int(f3)}
			case 1:
				entries[id] = XRefEntry{Offset: f2, Generation: int(f3)}
			case 2:
				entries[id] = XRefEntry{Compressed: true, StreamObj: int(f2), StreamIdx: int(f3)}
			}
		}
	}
	return entries, dict, nil
}

// readRawStream returns the undecoded bytes after a "stream" keyword. Only
// the end-of-line after the keyword is skipped: the data may itself start
// with whitespace.
func readRawStream(lexer *Lexer, dict DictionaryObject) ([]byte, error) {
	lexer.skipWhitespace()
	if !lexer.hasPrefix("stream") {
		return nil, errors.New("missing stream keyword")
	}
	lexer.reader.Discard(len("stream"))
	skipStreamEOL(lexer.reader)

	n, ok := dict["/Length"].(NumberObject)
	if !ok || n < 0 {
		return nil, errors.New("xref stream needs a direct /Length")
	}
	data := make([]byte, int(n))
	if _, err := io.ReadFull(lexer.reader, data); err != nil {
		return nil, err
	}
	return data, nil
}

func bigEndian(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

var objHeader = regexp.MustCompile(`(?m)(?:^|\s)(\d+)\s+(\d+)\s+obj\b`)

// rebuildXRef scans the whole file for object headers; later definitions win,
// as they would after an incremental update. The trailer is the last
// "trailer" dictionary, or failing that the catalog is taken to be the
// object whose header most closely precedes "/Catalog".
func rebuildXRef(rs io.ReadSeeker) (*XRefTable, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rs)
	if err != nil {
		return nil, err
	}

	table := NewXRefTable()
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		num, _ := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, _ := strconv.Atoi(string(data[m[4]:m[5]]))
		table.Entries[num] = XRefEntry{Offset: int64(m[2]), Generation: gen}
	}
	if len(table.Entries) == 0 {
		return nil, errors.New("no objects found")
	}

	if i := bytes.LastIndex(data, []byte("trailer")); i >= 0 {
		obj, err := NewLexer(bytes.NewReader(data[i+len("trailer"):])).ReadObject()
		if tr, ok := obj.(DictionaryObject); err == nil && ok {
			table.Trailer = tr
		}
	}
	if _, ok := table.Trailer["/Root"]; !ok {
		if root, ok := guessCatalog(data, table); ok {
			table.Trailer["/Root"] = root
		}
	}
	if _, ok := table.Trailer["/Root"]; !ok {
		return nil, errors.New("invalid PDF: no catalog found")
	}
	return table, nil
}

func guessCatalog(data []byte, t *XRefTable) (IndirectObject, bool) {
	at := int64(bytes.Index(data, []byte("/Catalog")))
	var best IndirectObject
	bestOffset := int64(-1)
	for num, e := range t.Entries {
		if e.Offset < at && e.Offset > bestOffset {
			best = IndirectObject{ObjectNumber: num, Generation: e.Generation}
			bestOffset = e.Offset
		}
	}
	return best, bestOffset >= 0
}
