package pdf

import (
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// Image codecs are left encoded by decodeFilters; the image layer decides
// whether to pass the bytes through or decode them.
var imageFilters = map[string]string{
	"/DCTDecode":      "/DCTDecode",
	"/DCT":            "/DCTDecode",
	"/JPXDecode":      "/JPXDecode",
	"/JBIG2Decode":    "/JBIG2Decode",
	"/CCITTFaxDecode": "/CCITTFaxDecode",
	"/CCF":            "/CCITTFaxDecode",
}

// decodeFilters applies the stream's /Filter chain until it reaches an image
// codec. It returns the data, the pending image codec (if any) and that
// codec's decode parameters.
func (r *Reader) decodeFilters(dict DictionaryObject, data []byte) ([]byte, string, DictionaryObject, error) {
	filters, parms := r.filterChain(dict)

	for i, f := range filters {
		p := parms[i]
		if img, ok := imageFilters[f]; ok {
			return data, img, p, nil
		}

		var err error
		switch f {
		case "/FlateDecode", "/Fl":
			data, err = inflate(data)
			if err == nil {
				data, err = applyPredictor(data, p)
			}
		case "/LZWDecode", "/LZW":
			data, err = lzwDecode(data, intOf(p["/EarlyChange"], 1))
			if err == nil {
				data, err = applyPredictor(data, p)
			}
		case "/ASCIIHexDecode", "/AHx":
			data, err = asciiHexDecode(data)
		case "/ASCII85Decode", "/A85":
			data, err = ascii85Decode(data)
		case "/RunLengthDecode", "/RL":
			data = runLengthDecode(data)
		case "/Crypt":
			// Identity crypt filter; decryption already happened.
		default:
			err = fmt.Errorf("unsupported filter %s", f)
		}
		if err != nil {
			return nil, "", nil, fmt.Errorf("%s: %w", f, err)
		}
	}
	return data, "", nil, nil
}

// filterChain normalises /Filter and /DecodeParms into parallel slices.
func (r *Reader) filterChain(dict DictionaryObject) ([]string, []DictionaryObject) {
	var filters []string
	switch f := r.Resolve(dict["/Filter"]).(type) {
	case NameObject:
		filters = append(filters, string(f))
	case ArrayObject:
		for _, item := range f {
			if name, ok := r.Resolve(item).(NameObject); ok {
				filters = append(filters, string(name))
			}
		}
	}

	parms := make([]DictionaryObject, len(filters))
	parmObj := dict["/DecodeParms"]
	if parmObj == nil {
		parmObj = dict["/DP"]
	}
	switch p := r.Resolve(parmObj).(type) {
	case DictionaryObject:
		if len(parms) > 0 {
			parms[0] = p
		}
	case ArrayObject:
		for i := 0; i < len(p) && i < len(parms); i++ {
			if d, ok := r.Resolve(p[i]).(DictionaryObject); ok {
				parms[i] = d
			}
		}
	}
	return filters, parms
}

// inflate tolerates truncated streams: whatever decompressed before the
// error is kept as long as something came out.
func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && len(out) == 0 {
		return nil, err
	}
	return out, nil
}

func lzwDecode(data []byte, earlyChange int) ([]byte, error) {
	var rc io.ReadCloser
	if earlyChange == 0 {
		rc = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		rc = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	if err != nil && len(out) == 0 {
		return nil, err
	}
	return out, nil
}

func asciiHexDecode(data []byte) ([]byte, error) {
	digits := make([]byte, 0, len(data))
	for _, b := range data {
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		digits = append(digits, b)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, err
	}
	return out, nil
}

func ascii85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	data = bytes.TrimPrefix(data, []byte("<~"))
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}
	clean := make([]byte, 0, len(data))
	for _, b := range data {
		if !isWhitespace(b) {
			clean = append(clean, b)
		}
	}
	out := make([]byte, 4*len(clean))
	n, _, err := ascii85.Decode(out, clean, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func runLengthDecode(data []byte) []byte {
	var out []byte
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out
		case n < 128:
			end := i + n + 1
			if end > len(data) {
				end = len(data)
			}
			out = append(out, data[i:end]...)
			i = end
		default:
			if i >= len(data) {
				return out
			}
			for j := 0; j < 257-n; j++ {
				out = append(out, data[i])
			}
			i++
		}
	}
	return out
}

// applyPredictor undoes TIFF (2) and PNG (10-15) predictors described by a
// /DecodeParms dictionary.
func applyPredictor(data []byte, parms DictionaryObject) ([]byte, error) {
	predictor := intOf(parms["/Predictor"], 1)
	if predictor <= 1 {
		return data, nil
	}
	colors := intOf(parms["/Colors"], 1)
	bpc := intOf(parms["/BitsPerComponent"], 8)
	columns := intOf(parms["/Columns"], 1)

	bpp := (colors*bpc + 7) / 8
	rowBytes := (colors*bpc*columns + 7) / 8

	if predictor == 2 {
		return applyTIFFPredictor(data, rowBytes, bpp, bpc), nil
	}
	return unpredictPNG(data, rowBytes, bpp, predictor)
}

// unpredictPNG reverses PNG row filters (Predictor 10-15). Each row is a
// filter tag followed by rowBytes of data; bpp is the byte distance to the
// left neighbour.
func unpredictPNG(data []byte, rowBytes, bpp, predictor int) ([]byte, error) {
	if predictor < 10 || predictor > 15 {
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}
	if rowBytes <= 0 {
		return nil, fmt.Errorf("invalid predictor row width %d", rowBytes)
	}
	bpp = max(bpp, 1)

	rows := len(data) / (rowBytes + 1)
	out := make([]byte, rows*rowBytes)
	prev := make([]byte, rowBytes)
	for r := 0; r < rows; r++ {
		in := data[r*(rowBytes+1) : (r+1)*(rowBytes+1)]
		tag, src := in[0], in[1:]
		cur := out[r*rowBytes : (r+1)*rowBytes]
		for x := range cur {
			var left, upLeft int
			if x >= bpp {
				left, upLeft = int(cur[x-bpp]), int(prev[x-bpp])
			}
			up := int(prev[x])

			var pred int
			switch tag {
			case 1:
				pred = left
			case 2:
				pred = up
			case 3:
				pred = (left + up) / 2
			case 4:
				pred = paeth(left, up, upLeft)
			}
			cur[x] = src[x] + byte(pred)
		}
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c int) int {
	p := a + b - c
	pa, pb, pc := absInt(p-a), absInt(p-b), absInt(p-c)
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// applyTIFFPredictor handles horizontal differencing for 8-bit components.
func applyTIFFPredictor(data []byte, rowBytes, bpp, bpc int) []byte {
	if bpc != 8 || rowBytes == 0 {
		return data
	}
	out := append([]byte(nil), data...)
	for row := 0; row+rowBytes <= len(out); row += rowBytes {
		for x := bpp; x < rowBytes; x++ {
			out[row+x] += out[row+x-bpp]
		}
	}
	return out
}

func intOf(o Object, def int) int {
	if n, ok := o.(NumberObject); ok {
		return int(n)
	}
	return def
}
