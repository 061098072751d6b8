// Package pdftest builds small, well-formed PDF files for tests.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Builder collects numbered objects and writes them out with their
// cross-reference data. Object numbers start at 1 and follow the order of
// Add/Reserve.
type Builder struct {
	objs [][]byte

	// Info, when set, is written to the trailer as the document
	// information dictionary.
	Info int

	// Trailer holds extra trailer entries, e.g. "/Encrypt 7 0 R /ID [<01> <01>]".
	Trailer string

	// XRefStream writes a cross-reference stream instead of a classic table.
	XRefStream bool

	// Packed lists objects to store in a single object stream. They must
	// not be streams themselves. Without XRefStream the file is written as a
	// hybrid: the table marks packed objects free and a second stream, named
	// by the trailer's /XRefStm, locates them.
	Packed []int
}

// xrefRow is one cross-reference entry as stored in an xref stream:
// type 0 (free), 1 (offset, generation) or 2 (object stream, index).
type xrefRow struct {
	typ, f2, f3 int
}

// Reserve allocates an object number to be filled in later with Set.
func (b *Builder) Reserve() int {
	b.objs = append(b.objs, nil)
	return len(b.objs)
}

// Add appends a direct object body, e.g. "<< /Type /Catalog /Pages 2 0 R >>".
func (b *Builder) Add(body string) int {
	n := b.Reserve()
	b.Set(n, body)
	return n
}

// AddStream appends a stream object. dict is the dictionary content without
// the angle brackets or /Length.
func (b *Builder) AddStream(dict string, data []byte) int {
	n := b.Reserve()
	b.SetStream(n, dict, data)
	return n
}

func (b *Builder) Set(n int, body string) {
	b.objs[n-1] = []byte(body)
}

func (b *Builder) SetStream(n int, dict string, data []byte) {
	b.objs[n-1] = stream(dict, data)
}

// Deflate compresses data for a /FlateDecode stream.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

func stream(dict string, data []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	return buf.Bytes()
}

func writeObject(buf *bytes.Buffer, n int, body []byte) {
	fmt.Fprintf(buf, "%d 0 obj\n", n)
	buf.Write(body)
	buf.WriteString("\nendobj\n")
}

// Bytes renders the file with root as the catalog.
func (b *Builder) Bytes(root int) []byte {
	slot := make(map[int]int, len(b.Packed))
	for i, n := range b.Packed {
		slot[n] = i
	}

	var buf bytes.Buffer
	if b.XRefStream || len(b.Packed) > 0 {
		buf.WriteString("%PDF-1.5\n")
	} else {
		buf.WriteString("%PDF-1.4\n")
	}

	objStm := len(b.objs) + 1
	rows := []xrefRow{{0, 0, 65535}}
	for i, body := range b.objs {
		if idx, ok := slot[i+1]; ok {
			rows = append(rows, xrefRow{2, objStm, idx})
			continue
		}
		rows = append(rows, xrefRow{1, buf.Len(), 0})
		writeObject(&buf, i+1, body)
	}
	if len(b.Packed) > 0 {
		rows = append(rows, xrefRow{1, buf.Len(), 0})
		writeObject(&buf, objStm, b.objectStream())
	}

	trailer := fmt.Sprintf("/Root %d 0 R", root)
	if b.Info != 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", b.Info)
	}
	if b.Trailer != "" {
		trailer += " " + b.Trailer
	}

	switch {
	case b.XRefStream:
		// The stream is the last object and lists itself.
		num, start := len(rows), buf.Len()
		rows = append(rows, xrefRow{1, start, 0})
		writeObject(&buf, num, xrefStream(rows, [][2]int{{0, len(rows)}}, trailer))
		fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", start)
	case len(b.Packed) > 0:
		num, stm := len(rows), buf.Len()
		var sections [][2]int
		for _, n := range b.Packed {
			sections = append(sections, [2]int{n, 1})
		}
		writeObject(&buf, num, xrefStream(rows, sections, ""))
		rows = append(rows, xrefRow{1, stm, 0})
		writeTable(&buf, rows, fmt.Sprintf("%s /XRefStm %d", trailer, stm))
	default:
		writeTable(&buf, rows, trailer)
	}
	return buf.Bytes()
}

// objectStream packs the Packed objects, in order, into one Flate stream.
func (b *Builder) objectStream() []byte {
	var header, body bytes.Buffer
	for _, n := range b.Packed {
		fmt.Fprintf(&header, "%d %d ", n, body.Len())
		body.Write(b.objs[n-1])
		body.WriteByte('\n')
	}
	data := append(header.Bytes(), body.Bytes()...)
	return stream(fmt.Sprintf("/Type /ObjStm /N %d /First %d /Filter /FlateDecode", len(b.Packed), header.Len()), Deflate(data))
}

// writeTable writes a classic table; anything but a type 1 row is free.
func writeTable(buf *bytes.Buffer, rows []xrefRow, trailer string) {
	start := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n", len(rows))
	for _, r := range rows {
		if r.typ == 1 {
			fmt.Fprintf(buf, "%010d %05d n \n", r.f2, r.f3)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", len(rows), trailer, start)
}

// xrefStream encodes the rows covered by sections ([first, count] pairs) as
// /W [1 4 2] entries, PNG Up predicted and deflated.
func xrefStream(rows []xrefRow, sections [][2]int, extra string) []byte {
	const columns = 7
	var raw bytes.Buffer
	index := ""
	prev := make([]byte, columns)
	for _, s := range sections {
		index += fmt.Sprintf("%d %d ", s[0], s[1])
		for _, r := range rows[s[0] : s[0]+s[1]] {
			row := []byte{
				byte(r.typ),
				byte(r.f2 >> 24), byte(r.f2 >> 16), byte(r.f2 >> 8), byte(r.f2),
				byte(r.f3 >> 8), byte(r.f3),
			}
			raw.WriteByte(2)
			for i, c := range row {
				raw.WriteByte(c - prev[i])
			}
			prev = row
		}
	}
	dict := fmt.Sprintf("/Type /XRef /Size %d /W [1 4 2] /Index [%s] %s "+
		"/Filter /FlateDecode /DecodeParms << /Predictor 12 /Columns %d >>", len(rows), index, extra, columns)
	return stream(dict, Deflate(raw.Bytes()))
}

// WriteFile renders the file into the test's temp dir and returns its path.
func (b *Builder) WriteFile(t testing.TB, root int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, b.Bytes(root), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Pages adds a catalog and a flat page tree over the given page objects,
// which must have been reserved, and returns the catalog number. Each page
// dict gets /Type /Page and /Parent; extra holds the rest of its entries.
func (b *Builder) Pages(mediaBox string, pages []int, extra []string) int {
	tree := b.Reserve()
	kids := ""
	for i, p := range pages {
		kids += fmt.Sprintf("%d 0 R ", p)
		b.Set(p, fmt.Sprintf("<< /Type /Page /Parent %d 0 R %s >>", tree, extra[i]))
	}
	b.Set(tree, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox %s >>", kids, len(pages), mediaBox))
	return b.Add(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", tree))
}
