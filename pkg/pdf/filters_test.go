package pdf

import (
	"bytes"
	"compress/lzw"
	"encoding/ascii85"
	"io"
	"testing"
)

// lzwEncode compresses data the way short PDF LZW streams are written. For
// inputs too short to widen the code size, both /EarlyChange settings read
// the result the same way.
func lzwEncode(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.MSB, 8)
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestASCIIHexDecode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"48 65 6C6C 6F>", "Hello"},
		{"414>", "A@"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := asciiHexDecode([]byte(tt.in))
		if err != nil {
			t.Errorf("asciiHexDecode(%q): %v", tt.in, err)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("asciiHexDecode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestASCII85Decode(t *testing.T) {
	plain := []byte("image miner")
	enc := make([]byte, ascii85.MaxEncodedLen(len(plain)))
	n := ascii85.Encode(enc, plain)

	got, err := ascii85Decode([]byte("<~" + string(enc[:n]) + "~>\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("got %q, want %q", got, plain)
	}
}

func TestRunLengthDecode(t *testing.T) {
	in := []byte{2, 'a', 'b', 'c', 254, 'x', 128, 'z'}
	if got := runLengthDecode(in); string(got) != "abcxxx" {
		t.Errorf("got %q, want %q", got, "abcxxx")
	}
}

func TestLZWDecode(t *testing.T) {
	const plain = "BT /F1 12 Tf 72 700 Td (TOBEORNOTTOBEORTOBEORNOT) Tj ET"
	enc := lzwEncode(t, plain)
	for _, early := range []int{0, 1} {
		got, err := lzwDecode(enc, early)
		if err != nil {
			t.Errorf("EarlyChange %d: %v", early, err)
			continue
		}
		if string(got) != plain {
			t.Errorf("EarlyChange %d: got %q, want %q", early, got, plain)
		}
	}
}

func TestPNGPredictor(t *testing.T) {
	parms := DictionaryObject{"/Predictor": NumberObject(12), "/Columns": NumberObject(3)}
	// Row 0 uses Up against a zero row, row 1 uses Sub.
	data := []byte{2, 1, 2, 3, 1, 1, 1, 1}
	got, err := applyPredictor(data, parms)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{1, 2, 3, 1, 2, 3}; !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseCMap(t *testing.T) {
	cmap, err := ParseCMap([]byte(toUnicode))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		code []byte
		want string
		ok   bool
	}{
		{[]byte{0x00, 0x24}, "A", true},
		{[]byte{0x00, 0x41}, "a", true},
		{[]byte{0x00, 0x43}, "c", true},
		{[]byte{0x00, 0x44}, "", false},
	}
	for _, tt := range tests {
		got, ok := cmap.Lookup(tt.code)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%x) = %q, %v; want %q, %v", tt.code, got, ok, tt.want, tt.ok)
		}
	}
	if len(cmap.CodeLengths) != 1 || cmap.CodeLengths[0] != 2 {
		t.Errorf("CodeLengths = %v, want [2]", cmap.CodeLengths)
	}
}

func TestDecodeTextString(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i'}, "Hi"},
		{[]byte("caf\xe9"), "café"},
		{[]byte("naïve"), "naïve"},
	}
	for _, tt := range tests {
		if got := DecodeTextString(tt.in); got != tt.want {
			t.Errorf("DecodeTextString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContentStreamSkipsInlineImage(t *testing.T) {
	p := NewContentStreamParser([]byte("q BI /W 2 /H 1 /BPC 8 /CS /G ID \x00\xff EI Q"))
	var ops []string
	for {
		op, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		ops = append(ops, op.Operator)
		if op.Operator == "INLINE_IMAGE" {
			dict := op.Operands[0].(DictionaryObject)
			if number(dict["/W"]) != 2 {
				t.Errorf("inline dict = %v", dict)
			}
		}
	}
	want := []string{"q", "INLINE_IMAGE", "Q"}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d = %q, want %q", i, ops[i], want[i])
		}
	}
}
