package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"testing"

	"github.com/AOShei/go-image-miner/pkg/pdf/pdftest"
)

// pngPixels decodes a PNG and returns its pixels in row order.
func pngPixels(t *testing.T, data []byte) []color.RGBA {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	var out []color.RGBA
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, color.RGBAModel.Convert(img.At(x, y)).(color.RGBA))
		}
	}
	return out
}

// rasterReader finishes b with an empty page and opens it.
func rasterReader(t *testing.T, b *pdftest.Builder) *Reader {
	t.Helper()
	page := b.Reserve()
	root := b.Pages("[0 0 10 10]", []int{page}, []string{""})
	data := b.Bytes(root)
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func repeat(c color.RGBA, n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestExtractRasterColorSpaces(t *testing.T) {
	var (
		white = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
		black = color.RGBA{0, 0, 0, 0xFF}
		red   = color.RGBA{0xFF, 0, 0, 0xFF}
		blue  = color.RGBA{0, 0, 0xFF, 0xFF}
		cyan  = color.RGBA{0, 0xFF, 0xFF, 0xFF}
		mid   = color.RGBA{0x80, 0x80, 0x80, 0xFF}
	)

	var b pdftest.Builder
	icc := b.AddStream("/N 3", []byte("profile"))
	tests := []struct {
		name string
		dict string
		data []byte
		want []color.RGBA
	}{
		{
			name: "indexed rgb",
			dict: "/Width 2 /Height 1 /BitsPerComponent 8 /ColorSpace [/Indexed /DeviceRGB 1 <FF0000 0000FF>]",
			data: []byte{0, 1},
			want: []color.RGBA{red, blue},
		},
		{
			name: "indexed 1 bit",
			dict: "/Width 4 /Height 1 /BitsPerComponent 1 /ColorSpace [/Indexed /DeviceRGB 1 <FF0000 0000FF>]",
			data: []byte{0x50},
			want: []color.RGBA{red, blue, red, blue},
		},
		{
			name: "cmyk",
			dict: "/Width 3 /Height 1 /BitsPerComponent 8 /ColorSpace /DeviceCMYK",
			data: []byte{0, 0, 0, 0, 0, 0, 0, 0xFF, 0xFF, 0, 0, 0},
			want: []color.RGBA{white, black, cyan},
		},
		{
			name: "icc based rgb",
			dict: fmt.Sprintf("/Width 1 /Height 1 /BitsPerComponent 8 /ColorSpace [/ICCBased %d 0 R]", icc),
			data: []byte{10, 20, 30},
			want: []color.RGBA{{10, 20, 30, 0xFF}},
		},
		{
			name: "image mask",
			dict: "/Width 8 /Height 1 /ImageMask true",
			data: []byte{0x0F},
			want: append(repeat(black, 4), repeat(white, 4)...),
		},
		{
			name: "image mask with inverted decode",
			dict: "/Width 8 /Height 1 /ImageMask true /Decode [1 0]",
			data: []byte{0x0F},
			want: append(repeat(white, 4), repeat(black, 4)...),
		},
		{
			name: "16 bit gray",
			dict: "/Width 2 /Height 1 /BitsPerComponent 16 /ColorSpace /DeviceGray",
			data: []byte{0xFF, 0xFF, 0x80, 0x00},
			want: []color.RGBA{white, mid},
		},
		{
			name: "1 bit gray",
			dict: "/Width 4 /Height 1 /BitsPerComponent 1 /ColorSpace /DeviceGray",
			data: []byte{0xA0},
			want: []color.RGBA{white, black, white, black},
		},
		{
			name: "separation tint",
			dict: "/Width 2 /Height 1 /BitsPerComponent 8 " +
				"/ColorSpace [/Separation /Spot /DeviceCMYK << /FunctionType 2 /Domain [0 1] /C0 [0 0 0 0] /C1 [0 0 0 1] /N 1 >>]",
			data: []byte{0x00, 0xFF},
			want: []color.RGBA{white, black},
		},
		{
			name: "indexed over separation",
			dict: "/Width 2 /Height 1 /BitsPerComponent 8 " +
				"/ColorSpace [/Indexed [/Separation /Spot /DeviceGray << /FunctionType 2 /Domain [0 1] /N 1 >>] 1 <00FF>]",
			data: []byte{0, 1},
			want: []color.RGBA{white, black},
		},
		{
			name: "ccitt group 4",
			dict: "/Width 8 /Height 8 /BitsPerComponent 1 /ColorSpace /DeviceGray " +
				"/Filter /CCITTFaxDecode /DecodeParms << /K -1 /Columns 8 /Rows 8 >>",
			// Eight all-white rows (one V0 code each) followed by EOFB.
			data: []byte{0xFF, 0x00, 0x10, 0x01},
			want: repeat(white, 64),
		},
	}

	nums := make([]int, len(tests))
	for i, tt := range tests {
		nums[i] = b.AddStream("/Type /XObject /Subtype /Image "+tt.dict, tt.data)
	}
	r := rasterReader(t, &b)

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, format, err := r.ExtractImage(nums[i])
			if err != nil {
				t.Fatal(err)
			}
			if format != "png" {
				t.Fatalf("format = %q, want png", format)
			}
			got := pngPixels(t, data)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d pixels, want %d", len(got), len(tt.want))
			}
			for p := range got {
				if got[p] != tt.want[p] {
					t.Errorf("pixel %d = %v, want %v", p, got[p], tt.want[p])
				}
			}
		})
	}
}

func TestExtractRasterRejects(t *testing.T) {
	var b pdftest.Builder
	jbig2 := b.AddStream("/Type /XObject /Subtype /Image /Width 1 /Height 1 /BitsPerComponent 1 /Filter /JBIG2Decode", []byte{0})
	lab := b.AddStream("/Type /XObject /Subtype /Image /Width 1 /Height 1 /BitsPerComponent 8 /ColorSpace /Lab", []byte{0, 0, 0})
	form := b.AddStream("/Type /XObject /Subtype /Form /BBox [0 0 1 1]", nil)
	r := rasterReader(t, &b)

	if _, _, err := r.ExtractImage(jbig2); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("JBIG2 error = %v, want ErrUnsupportedImage", err)
	}
	if _, _, err := r.ExtractImage(lab); err == nil {
		t.Error("Lab color space should be rejected")
	}
	if _, _, err := r.ExtractImage(form); err == nil {
		t.Error("form XObject should be rejected")
	}
}
