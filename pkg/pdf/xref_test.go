package pdf

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/AOShei/go-image-miner/pkg/pdf/pdftest"
)

// packedDoc builds a one page document. When pack is set the font, page,
// page tree and catalog are stored in an object stream.
func packedDoc(xrefStream, pack bool) (data []byte, font int) {
	var b pdftest.Builder
	font = b.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	content := b.AddStream("/Filter /FlateDecode", pdftest.Deflate([]byte("BT /F1 12 Tf 72 700 Td (Packed question) Tj ET")))
	page := b.Reserve()
	root := b.Pages("[0 0 612 792]", []int{page},
		[]string{fmt.Sprintf("/Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R", font, content)})
	b.XRefStream = xrefStream
	if pack {
		// Pages reserves the tree right before adding the catalog.
		b.Packed = []int{font, page, root - 1, root}
	}
	return b.Bytes(root), font
}

func TestXRefLayouts(t *testing.T) {
	tests := []struct {
		name       string
		xrefStream bool
		pack       bool
	}{
		{"xref stream", true, false},
		{"xref stream with object stream", true, true},
		{"hybrid table and stream", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, font := packedDoc(tt.xrefStream, tt.pack)

			// The chain itself must parse; a rebuild would hide a broken
			// stream decoder.
			table, err := parseXRefChain(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("parseXRefChain: %v", err)
			}
			e, ok := table.Entries[font]
			if !ok {
				t.Fatalf("no entry for font object %d", font)
			}
			if e.Compressed != tt.pack {
				t.Errorf("font entry compressed = %v, want %v (%+v)", e.Compressed, tt.pack, e)
			}
			if tt.pack && e.StreamIdx != 0 {
				t.Errorf("font entry index = %d, want 0", e.StreamIdx)
			}

			r, err := NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				t.Fatal(err)
			}
			if n := r.NumPages(); n != 1 {
				t.Fatalf("NumPages = %d, want 1", n)
			}
			layout := extractPage(t, r, 0)
			if len(layout.Fragments) != 1 || layout.Fragments[0].Text != "Packed question" {
				t.Errorf("fragments = %+v", layout.Fragments)
			}
		})
	}
}

func TestXRefStreamRows(t *testing.T) {
	data, _ := packedDoc(true, true)
	table, err := parseXRefChain(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if !table.Entries[0].Free {
		t.Errorf("object 0 = %+v, want free", table.Entries[0])
	}
	// Content stream 2 stays in the file body at a real offset.
	content := table.Entries[2]
	if content.Compressed || content.Offset <= 0 {
		t.Fatalf("content entry = %+v", content)
	}
	if !bytes.HasPrefix(data[content.Offset:], []byte("2 0 obj")) {
		t.Errorf("offset %d does not start object 2: %q", content.Offset, data[content.Offset:content.Offset+10])
	}
	if _, ok := table.Trailer["/Root"]; !ok {
		t.Error("trailer lost /Root")
	}
}
