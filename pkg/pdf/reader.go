package pdf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Reader is the high-level entry point for reading a PDF.
//
// Every object read gets its own section reader over ra, so resolving an
// indirect /Length in the middle of a stream read cannot move a shared file
// offset underneath it.
type Reader struct {
	ra             io.ReaderAt
	size           int64
	xref           *XRefTable
	encryptHandler *EncryptionHandler

	objects   map[int]Object
	fontCache map[int]*Font
	pages     []DictionaryObject
	pagesErr  error

	// Warn receives non-fatal problems (unresolvable references and the like).
	Warn func(format string, args ...any)
}

// inheritable page attributes, copied down the page tree.
var inheritable = []string{"/Resources", "/MediaBox", "/CropBox", "/Rotate"}

func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	xref, err := ParseXRef(io.NewSectionReader(ra, 0, size))
	if err != nil {
		return nil, err
	}

	reader := &Reader{
		ra:        ra,
		size:      size,
		xref:      xref,
		objects:   make(map[int]Object),
		fontCache: make(map[int]*Font),
		Warn:      func(string, ...any) {},
	}

	if _, ok := xref.Trailer["/Encrypt"]; ok {
		if err := reader.setupEncryption(); err != nil {
			return nil, err
		}
	}

	return reader, nil
}

func (r *Reader) setupEncryption() error {
	dict, err := ParseEncryptDict(r.Resolve(r.xref.Trailer["/Encrypt"]), r)
	if err != nil {
		return fmt.Errorf("encryption dictionary: %w", err)
	}
	handler, err := NewEncryptionHandler(dict, r.fileID())
	if err != nil {
		return fmt.Errorf("encryption setup: %w", err)
	}
	r.encryptHandler = handler
	// Anything cached so far was read without decryption.
	clear(r.objects)
	return nil
}

// fileID is the first element of the trailer /ID, nil if absent.
func (r *Reader) fileID() []byte {
	ids, ok := r.Resolve(r.xref.Trailer["/ID"]).(ArrayObject)
	if !ok || len(ids) == 0 {
		return nil
	}
	switch id := ids[0].(type) {
	case StringObject:
		return []byte(id)
	case HexStringObject:
		return []byte(id)
	}
	return nil
}

// GetObject returns the object ref points at, reading it on first use.
func (r *Reader) GetObject(ref IndirectObject) (Object, error) {
	if obj, ok := r.objects[ref.ObjectNumber]; ok {
		return obj, nil
	}

	entry, ok := r.xref.Entries[ref.ObjectNumber]
	if !ok {
		return nil, fmt.Errorf("object %d not found in xref", ref.ObjectNumber)
	}

	if entry.Free {
		return NullObject{}, nil
	}

	var (
		obj Object
		err error
	)
	if entry.Compressed {
		obj, err = r.getCompressedObject(entry.StreamObj, entry.StreamIdx)
	} else {
		obj, err = r.readObjectAt(entry.Offset, ref)
	}
	if err != nil {
		return nil, err
	}

	// Image data is only needed once, when it is extracted.
	if stm, ok := obj.(StreamObject); !ok || nameOf(stm.Dictionary, "/Subtype") != "/Image" {
		r.objects[ref.ObjectNumber] = obj
	}
	return obj, nil
}

// StreamDictionary returns the dictionary of ref without reading or decoding
// any stream data. Nil when the object is neither a stream nor a dictionary.
func (r *Reader) StreamDictionary(ref IndirectObject) DictionaryObject {
	if obj, ok := r.objects[ref.ObjectNumber]; ok {
		return dictOf(obj)
	}
	entry, ok := r.xref.Entries[ref.ObjectNumber]
	if !ok || entry.Free {
		return nil
	}
	if entry.Compressed {
		obj, err := r.GetObject(ref)
		if err != nil {
			return nil
		}
		return dictOf(obj)
	}
	_, obj, err := r.openObject(entry.Offset, ref.ObjectNumber)
	if err != nil {
		return nil
	}
	dict, ok := obj.(DictionaryObject)
	if ok && r.encryptHandler != nil {
		r.decryptObject(dict, ref.ObjectNumber, ref.Generation)
	}
	return dict
}

func dictOf(obj Object) DictionaryObject {
	switch v := obj.(type) {
	case DictionaryObject:
		return v
	case StreamObject:
		return v.Dictionary
	}
	return nil
}

// openObject positions a lexer past the "N G obj" header at offset and
// reads the first object of the body.
func (r *Reader) openObject(offset int64, num int) (*Lexer, Object, error) {
	if offset < 0 || offset >= r.size {
		return nil, nil, fmt.Errorf("object %d: offset %d outside file", num, offset)
	}
	lexer := NewLexer(io.NewSectionReader(r.ra, offset, r.size-offset))
	for _, want := range []string{"", "", "obj"} {
		tok, err := lexer.ReadObject()
		if err != nil {
			return nil, nil, fmt.Errorf("object %d header: %w", num, err)
		}
		if want != "" && !isKeyword(tok, want) {
			return nil, nil, fmt.Errorf("object %d header: got %v, want %s", num, tok, want)
		}
	}
	body, err := lexer.ReadObject()
	if err != nil {
		return nil, nil, fmt.Errorf("object %d: %w", num, err)
	}
	return lexer, body, nil
}

func (r *Reader) readObjectAt(offset int64, ref IndirectObject) (Object, error) {
	lexer, obj, err := r.openObject(offset, ref.ObjectNumber)
	if err != nil {
		return nil, err
	}
	if dict, ok := obj.(DictionaryObject); ok {
		lexer.skipWhitespace()
		if lexer.hasPrefix("stream") {
			return r.readStream(dict, lexer, ref.ObjectNumber, ref.Generation)
		}
	}
	return r.decryptObject(obj, ref.ObjectNumber, ref.Generation), nil
}

// readStream reads, decrypts and decodes the data following a stream dictionary.
func (r *Reader) readStream(dict DictionaryObject, lexer *Lexer, objNum, genNum int) (StreamObject, error) {
	lexer.reader.Discard(len("stream"))
	skipStreamEOL(lexer.reader)

	length := -1
	if n, ok := r.Resolve(dict["/Length"]).(NumberObject); ok && n >= 0 {
		length = int(n)
	}

	var data []byte
	if length >= 0 {
		data = make([]byte, length)
		n, err := io.ReadFull(lexer.reader, data)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return StreamObject{}, err
		}
		data = data[:n]
	} else {
		// Missing or broken /Length: cut at endstream.
		rest, err := io.ReadAll(lexer.reader)
		if err != nil {
			return StreamObject{}, err
		}
		end := bytes.Index(rest, []byte("endstream"))
		if end < 0 {
			return StreamObject{}, fmt.Errorf("object %d: unterminated stream", objNum)
		}
		data = bytes.TrimRight(rest[:end], "\r\n")
	}

	if r.encryptHandler != nil && nameOf(dict, "/Type") != "/XRef" {
		if decrypted, err := r.encryptHandler.Decrypt(data, objNum, genNum); err == nil {
			data = decrypted
		}
	}

	decoded, imageFilter, imageParms, err := r.decodeFilters(dict, data)
	if err != nil {
		return StreamObject{}, fmt.Errorf("object %d: %w", objNum, err)
	}

	return StreamObject{
		Dictionary:  dict,
		Data:        decoded,
		ImageFilter: imageFilter,
		ImageParms:  imageParms,
	}, nil
}

// skipStreamEOL consumes the single end-of-line after the stream keyword.
// The data begins immediately after it, so general whitespace skipping
// would eat leading data bytes.
func skipStreamEOL(br *bufio.Reader) {
	b, err := br.Peek(2)
	switch {
	case err == nil && b[0] == '\r' && b[1] == '\n':
		br.Discard(2)
	case len(b) > 0 && (b[0] == '\n' || b[0] == '\r'):
		br.Discard(1)
	}
}

// getCompressedObject reads the index-th object of object stream num.
// Objects inside an object stream are never individually encrypted.
func (r *Reader) getCompressedObject(num, index int) (Object, error) {
	obj, err := r.GetObject(IndirectObject{ObjectNumber: num})
	if err != nil {
		return nil, err
	}
	stm, ok := obj.(StreamObject)
	if !ok {
		return nil, fmt.Errorf("object stream %d: not a stream", num)
	}

	count, ok1 := stm.Dictionary["/N"].(NumberObject)
	first, ok2 := stm.Dictionary["/First"].(NumberObject)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("object stream %d: /N or /First missing", num)
	}
	if index < 0 || index >= int(count) {
		return nil, fmt.Errorf("object stream %d: index %d, stream holds %d", num, index, int(count))
	}

	// The header is count pairs of "objnum offset"; only the offset of the
	// wanted pair matters.
	header := NewLexer(bytes.NewReader(stm.Data))
	var offset NumberObject
	for i := 0; i <= index; i++ {
		pair := [2]Object{}
		for j := range pair {
			if pair[j], err = header.ReadObject(); err != nil {
				return nil, fmt.Errorf("object stream %d header: %w", num, err)
			}
		}
		if offset, ok = pair[1].(NumberObject); !ok {
			return nil, fmt.Errorf("object stream %d header: offset is %T", num, pair[1])
		}
	}

	start := int(first) + int(offset)
	if start < 0 || start > len(stm.Data) {
		return nil, fmt.Errorf("object stream %d: offset %d outside data", num, start)
	}
	return NewLexer(bytes.NewReader(stm.Data[start:])).ReadObject()
}

// Resolve follows references until a direct object is reached. Failures are
// reported through Warn and yield NullObject.
func (r *Reader) Resolve(obj Object) Object {
	res, err := r.resolveStrict(obj)
	if err != nil {
		r.Warn("failed to resolve %v: %v", obj, err)
		return NullObject{}
	}
	return res
}

// resolveStrict is Resolve with the error kept.
func (r *Reader) resolveStrict(obj Object) (Object, error) {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(IndirectObject)
		if !ok {
			return obj, nil
		}
		res, err := r.GetObject(ref)
		if err != nil {
			return nil, err
		}
		obj = res
	}
	return nil, errors.New("reference chain too long")
}

// NumPages returns the total page count, 0 when the page tree is unreadable.
func (r *Reader) NumPages() int {
	n, _ := r.PageCount()
	return n
}

// PageCount is NumPages with the page tree error kept.
func (r *Reader) PageCount() (int, error) {
	if err := r.loadPages(); err != nil {
		return 0, err
	}
	return len(r.pages), nil
}

// GetPage returns the dictionary for the Nth page (0-indexed), with inherited
// attributes already copied in.
func (r *Reader) GetPage(pageIndex int) (DictionaryObject, error) {
	if err := r.loadPages(); err != nil {
		return nil, err
	}
	if pageIndex < 0 || pageIndex >= len(r.pages) {
		return nil, fmt.Errorf("page %d out of range [0, %d)", pageIndex, len(r.pages))
	}
	return r.pages[pageIndex], nil
}

func (r *Reader) loadPages() error {
	if r.pages != nil || r.pagesErr != nil {
		return r.pagesErr
	}

	catDict, ok := r.Resolve(r.xref.Trailer["/Root"]).(DictionaryObject)
	if !ok {
		r.pagesErr = errors.New("catalog is not a dictionary")
		return r.pagesErr
	}
	root, ok := r.Resolve(catDict["/Pages"]).(DictionaryObject)
	if !ok {
		r.pagesErr = errors.New("root pages is not a dictionary")
		return r.pagesErr
	}

	r.pages = make([]DictionaryObject, 0)
	r.walkPages(root, DictionaryObject{}, make(map[int]bool))
	return nil
}

func (r *Reader) walkPages(node DictionaryObject, inherited DictionaryObject, visited map[int]bool) {
	attrs := make(DictionaryObject, len(inheritable))
	for _, key := range inheritable {
		if v, ok := node[key]; ok {
			attrs[key] = v
		} else if v, ok := inherited[key]; ok {
			attrs[key] = v
		}
	}

	kids, isTree := r.Resolve(node["/Kids"]).(ArrayObject)
	if nameOf(node, "/Type") == "/Page" || !isTree {
		page := make(DictionaryObject, len(node)+len(attrs))
		for k, v := range node {
			page[k] = v
		}
		for k, v := range attrs {
			page[k] = v
		}
		r.pages = append(r.pages, page)
		return
	}

	for _, kidRef := range kids {
		if ref, ok := kidRef.(IndirectObject); ok {
			if visited[ref.ObjectNumber] {
				r.Warn("page tree cycle at object %d", ref.ObjectNumber)
				continue
			}
			visited[ref.ObjectNumber] = true
		}
		if kid, ok := r.Resolve(kidRef).(DictionaryObject); ok {
			r.walkPages(kid, attrs, visited)
		}
	}
}

func (r *Reader) GetInfo() (DictionaryObject, error) {
	if infoRef, ok := r.xref.Trailer["/Info"]; ok {
		if dict, ok := r.Resolve(infoRef).(DictionaryObject); ok {
			return dict, nil
		}
	}
	return nil, nil
}

// IsEncrypted checks if the PDF has an encryption dictionary in its trailer
func (r *Reader) IsEncrypted() bool {
	_, exists := r.xref.Trailer["/Encrypt"]
	return exists
}

// GetCachedFont returns a font parsed earlier from the same object.
func (r *Reader) GetCachedFont(objNum int) *Font {
	return r.fontCache[objNum]
}

func (r *Reader) CacheFont(objNum int, f *Font) {
	r.fontCache[objNum] = f
}

// plainKeys are dictionary entries whose values are never encrypted.
var plainKeys = map[string]bool{
	"/Type": true, "/Subtype": true, "/Length": true, "/Filter": true,
	"/DecodeParms": true, "/Width": true, "/Height": true,
	"/BitsPerComponent": true, "/ColorSpace": true, "/Encrypt": true,
	"/ID": true, "/Size": true, "/Root": true, "/Info": true, "/Prev": true,
	"/Index": true, "/W": true, "/First": true, "/N": true,
}

// decryptObject decrypts the strings inside obj in place. Strings that fail
// to decrypt are left as read.
func (r *Reader) decryptObject(obj Object, num, gen int) Object {
	if r.encryptHandler == nil {
		return obj
	}
	plain := func(b []byte) []byte {
		if out, err := r.encryptHandler.Decrypt(b, num, gen); err == nil {
			return out
		}
		return b
	}

	switch v := obj.(type) {
	case StringObject:
		return StringObject(plain([]byte(v)))
	case HexStringObject:
		return HexStringObject(plain(v))
	case ArrayObject:
		for i := range v {
			v[i] = r.decryptObject(v[i], num, gen)
		}
	case DictionaryObject:
		for key, val := range v {
			if !plainKeys[key] {
				v[key] = r.decryptObject(val, num, gen)
			}
		}
	}
	return obj
}
