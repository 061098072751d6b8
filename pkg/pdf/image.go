package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/ccitt"
)

// ErrUnsupportedImage is returned for image codecs that can be neither
// passed through nor decoded (JBIG2).
var ErrUnsupportedImage = errors.New("pdf: unsupported image encoding")

// ExtractImage returns the bytes of image XObject objNum and their format
// extension: "jpeg" and "jpx" are passed through untouched, everything else
// is decoded to pixels and re-encoded as "png".
func (r *Reader) ExtractImage(objNum int) ([]byte, string, error) {
	obj, err := r.GetObject(IndirectObject{ObjectNumber: objNum})
	if err != nil {
		return nil, "", err
	}
	stm, ok := obj.(StreamObject)
	if !ok {
		return nil, "", fmt.Errorf("object %d is not a stream", objNum)
	}
	if st := nameOf(stm.Dictionary, "/Subtype"); st != "/Image" {
		return nil, "", fmt.Errorf("object %d is not an image (subtype %q)", objNum, st)
	}

	switch stm.ImageFilter {
	case "/DCTDecode":
		return stm.Data, "jpeg", nil
	case "/JPXDecode":
		return stm.Data, "jpx", nil
	case "/JBIG2Decode":
		return nil, "", fmt.Errorf("object %d: JBIG2: %w", objNum, ErrUnsupportedImage)
	}

	img, err := r.decodeRaster(stm)
	if err != nil {
		return nil, "", fmt.Errorf("object %d: %w", objNum, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), "png", nil
}

// colorSpace is the resolved form of /ColorSpace.
type colorSpace struct {
	components int
	cmyk       bool
	// tint marks Separation and DeviceN: samples are ink amounts, so 1 is
	// full ink (dark) rather than white.
	tint    bool
	palette []color.Color // Indexed
}

func (r *Reader) decodeRaster(stm StreamObject) (image.Image, error) {
	dict := stm.Dictionary
	width := intOf(r.Resolve(dict["/Width"]), 0)
	height := intOf(r.Resolve(dict["/Height"]), 0)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("bad image size %dx%d", width, height)
	}

	data := stm.Data
	bpc := intOf(r.Resolve(dict["/BitsPerComponent"]), 8)
	mask := false
	if b, ok := r.Resolve(dict["/ImageMask"]).(BooleanObject); ok && bool(b) {
		mask = true
		bpc = 1
	}

	if stm.ImageFilter == "/CCITTFaxDecode" {
		var err error
		data, err = ccittDecode(data, stm.ImageParms, width, height)
		if err != nil {
			return nil, fmt.Errorf("CCITT: %w", err)
		}
		bpc = 1
	}

	cs := colorSpace{components: 1}
	if !mask {
		var err error
		cs, err = r.parseColorSpace(dict["/ColorSpace"])
		if err != nil {
			return nil, err
		}
	}

	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("unsupported bits per component: %d", bpc)
	}

	samples, err := unpackSamples(data, width, height, cs.components, bpc)
	if err != nil {
		return nil, err
	}

	decode := decodeRanges(r.Resolve(dict["/Decode"]), cs, bpc, mask)
	maxVal := float64(int(1)<<bpc - 1)
	sample := func(i, comp int) float64 {
		v := float64(samples[i]) / maxVal
		lo, hi := decode[2*comp], decode[2*comp+1]
		return lo + v*(hi-lo)
	}

	bounds := image.Rect(0, 0, width, height)
	n := cs.components
	switch {
	case cs.palette != nil:
		img := image.NewRGBA(bounds)
		for p := 0; p < width*height; p++ {
			idx := int(math.Round(sample(p, 0)))
			c := color.Color(color.Black)
			if idx >= 0 && idx < len(cs.palette) {
				c = cs.palette[idx]
			}
			img.Set(p%width, p/width, c)
		}
		return img, nil
	case n == 1:
		img := image.NewGray(bounds)
		for p := 0; p < width*height; p++ {
			v := sample(p, 0)
			if cs.tint {
				v = 1 - v
			}
			img.Pix[p] = to8(v)
		}
		return img, nil
	case n == 3:
		img := image.NewRGBA(bounds)
		for p := 0; p < width*height; p++ {
			img.Pix[4*p] = to8(sample(3*p, 0))
			img.Pix[4*p+1] = to8(sample(3*p+1, 1))
			img.Pix[4*p+2] = to8(sample(3*p+2, 2))
			img.Pix[4*p+3] = 0xFF
		}
		return img, nil
	case n == 4 && cs.cmyk:
		img := image.NewRGBA(bounds)
		for p := 0; p < width*height; p++ {
			rr, gg, bb := color.CMYKToRGB(
				to8(sample(4*p, 0)), to8(sample(4*p+1, 1)),
				to8(sample(4*p+2, 2)), to8(sample(4*p+3, 3)))
			img.Pix[4*p], img.Pix[4*p+1], img.Pix[4*p+2], img.Pix[4*p+3] = rr, gg, bb, 0xFF
		}
		return img, nil
	}
	return nil, fmt.Errorf("unsupported component count %d", n)
}

// unpackSamples expands packed rows (each row padded to a byte boundary)
// into one value per component.
func unpackSamples(data []byte, width, height, comps, bpc int) ([]uint16, error) {
	rowBits := width * comps * bpc
	rowBytes := (rowBits + 7) / 8
	if len(data) < rowBytes*height {
		return nil, fmt.Errorf("insufficient image data: got %d, expected %d", len(data), rowBytes*height)
	}

	out := make([]uint16, 0, width*height*comps)
	for y := 0; y < height; y++ {
		row := data[y*rowBytes : (y+1)*rowBytes]
		for i := 0; i < width*comps; i++ {
			switch bpc {
			case 8:
				out = append(out, uint16(row[i]))
			case 16:
				out = append(out, uint16(row[2*i])<<8|uint16(row[2*i+1]))
			default:
				bit := i * bpc
				shift := 8 - bpc - bit%8
				out = append(out, uint16(row[bit/8]>>shift)&(1<<bpc-1))
			}
		}
	}
	return out, nil
}

// decodeRanges returns /Decode or the default ranges. Stencil masks paint
// where the sample is 0, so 0 is black.
func decodeRanges(obj Object, cs colorSpace, bpc int, mask bool) []float64 {
	n := cs.components
	if arr, ok := obj.(ArrayObject); ok && len(arr) >= 2*n {
		out := make([]float64, 2*n)
		for i := range out {
			out[i] = number(arr[i])
		}
		return out
	}

	out := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		if cs.palette != nil {
			out = append(out, 0, float64(int(1)<<bpc-1))
			continue
		}
		out = append(out, 0, 1)
	}
	if mask {
		return []float64{0, 1}
	}
	return out
}

func (r *Reader) parseColorSpace(obj Object) (colorSpace, error) {
	switch cs := r.Resolve(obj).(type) {
	case NameObject:
		switch cs {
		case "/DeviceGray", "/CalGray", "/G":
			return colorSpace{components: 1}, nil
		case "/DeviceRGB", "/CalRGB", "/RGB":
			return colorSpace{components: 3}, nil
		case "/DeviceCMYK", "/CMYK":
			return colorSpace{components: 4, cmyk: true}, nil
		}
		return colorSpace{}, fmt.Errorf("unsupported color space %s", cs)
	case ArrayObject:
		if len(cs) == 0 {
			break
		}
		family, _ := cs[0].(NameObject)
		switch family {
		case "/CalGray", "/CalRGB", "/DeviceGray", "/DeviceRGB", "/DeviceCMYK":
			return r.parseColorSpace(family)
		case "/ICCBased":
			if len(cs) < 2 {
				break
			}
			profile := r.StreamDictionary(refOf(cs[1]))
			n := intOf(r.Resolve(profile["/N"]), 3)
			return colorSpace{components: n, cmyk: n == 4}, nil
		case "/Indexed", "/I":
			return r.parseIndexed(cs)
		case "/Separation", "/DeviceN":
			// A single colorant is rendered as inverted gray.
			n := 1
			if family == "/DeviceN" && len(cs) > 1 {
				names, _ := r.Resolve(cs[1]).(ArrayObject)
				n = len(names)
			}
			if n == 1 {
				return colorSpace{components: 1, tint: true}, nil
			}
		}
		return colorSpace{}, fmt.Errorf("unsupported color space %s", family)
	case NullObject, nil:
		return colorSpace{components: 1}, nil
	}
	return colorSpace{}, errors.New("unreadable color space")
}

// parseIndexed handles [/Indexed base hival lookup].
func (r *Reader) parseIndexed(cs ArrayObject) (colorSpace, error) {
	if len(cs) < 4 {
		return colorSpace{}, errors.New("short Indexed color space")
	}
	base, err := r.parseColorSpace(cs[1])
	if err != nil {
		return colorSpace{}, err
	}
	if base.palette != nil {
		return colorSpace{}, errors.New("nested Indexed color space")
	}
	hival := intOf(r.Resolve(cs[2]), 0)

	var lookup []byte
	switch l := r.Resolve(cs[3]).(type) {
	case StringObject:
		lookup = []byte(l)
	case HexStringObject:
		lookup = []byte(l)
	case StreamObject:
		lookup = l.Data
	}

	n := base.components
	palette := make([]color.Color, 0, hival+1)
	for i := 0; i <= hival && (i+1)*n <= len(lookup); i++ {
		entry := lookup[i*n : (i+1)*n]
		switch {
		case n == 1 && base.tint:
			palette = append(palette, color.Gray{Y: 0xFF - entry[0]})
		case n == 1:
			palette = append(palette, color.Gray{Y: entry[0]})
		case n == 3:
			palette = append(palette, color.RGBA{R: entry[0], G: entry[1], B: entry[2], A: 0xFF})
		case n == 4:
			rr, gg, bb := color.CMYKToRGB(entry[0], entry[1], entry[2], entry[3])
			palette = append(palette, color.RGBA{R: rr, G: gg, B: bb, A: 0xFF})
		}
	}
	return colorSpace{components: 1, palette: palette}, nil
}

func refOf(o Object) IndirectObject {
	ref, _ := o.(IndirectObject)
	return ref
}

// ccittDecode unpacks Group 3/4 fax data to 1 bit per pixel, 0 = black.
func ccittDecode(data []byte, parms DictionaryObject, width, height int) ([]byte, error) {
	columns := intOf(parms["/Columns"], width)
	rows := intOf(parms["/Rows"], height)
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}

	sf := ccitt.Group3
	if intOf(parms["/K"], 0) < 0 {
		sf = ccitt.Group4
	}
	blackIs1 := false
	if b, ok := parms["/BlackIs1"].(BooleanObject); ok {
		blackIs1 = bool(b)
	}

	rd := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows, &ccitt.Options{Invert: blackIs1})
	return io.ReadAll(rd)
}

func to8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xFF
	}
	return uint8(v*255 + 0.5)
}
