package pdf

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/AOShei/go-image-miner/pkg/model"
)

// Glyph boxes are approximated from the font size: the baseline sits at
// 80% of the line box.
const (
	ascent  = 0.8
	descent = 0.2
)

// maxFormDepth bounds Form XObject nesting.
const maxFormDepth = 12

// Matrix is a 3x3 transform matrix (last row implicitly 0,0,1).
type Matrix [6]float64

func IdentityMatrix() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Mult multiplies matrix a by matrix b.
func (a Matrix) Mult(b Matrix) Matrix {
	return Matrix{
		a[0]*b[0] + a[1]*b[2],
		a[0]*b[1] + a[1]*b[3],
		a[2]*b[0] + a[3]*b[2],
		a[2]*b[1] + a[3]*b[3],
		a[4]*b[0] + a[5]*b[2] + b[4],
		a[4]*b[1] + a[5]*b[3] + b[5],
	}
}

// Apply maps the point (x, y).
func (a Matrix) Apply(x, y float64) (float64, float64) {
	return x*a[0] + y*a[2] + a[4], x*a[1] + y*a[3] + a[5]
}

// TextState holds the text parameters saved and restored by q/Q.
type TextState struct {
	Font        *Font
	FontSize    float64
	CharSpacing float64
	WordSpacing float64
	Scale       float64
	Leading     float64
	Rise        float64
}

// GraphicsState tracks the parameters the extractor cares about.
type GraphicsState struct {
	CTM  Matrix
	Text TextState
}

func newGraphicsState(ctm Matrix) GraphicsState {
	return GraphicsState{CTM: ctm, Text: TextState{Scale: 100}}
}

// resources is the font and XObject scope of one content stream.
type resources struct {
	fontDict DictionaryObject
	fonts    map[string]*Font
	xobjects DictionaryObject
}

// textRun is the output of one text-showing string, in page space.
type textRun struct {
	text       string
	bbox       model.Rect
	baseline   float64
	size       float64
	spaceWidth float64
}

// PageLayout is everything positioned on one page.
type PageLayout struct {
	Width     float64
	Height    float64
	Fragments []model.TextFragment
	Images    []model.ImageRef
}

// Extractor walks a page's content streams and collects text runs and
// image placements.
type Extractor struct {
	reader *Reader
	page   DictionaryObject
	config LayoutConfig

	// page box [llx lly urx ury]
	box [4]float64

	gState   GraphicsState
	gStack   []GraphicsState
	tm, tlm  Matrix
	res      *resources
	formPath map[int]bool

	runs       []textRun
	images     []model.ImageRef
	imageIndex map[int]int
}

func NewExtractor(r *Reader, page DictionaryObject, config LayoutConfig) *Extractor {
	return &Extractor{
		reader:     r,
		page:       page,
		config:     config,
		gState:     newGraphicsState(IdentityMatrix()),
		tm:         IdentityMatrix(),
		tlm:        IdentityMatrix(),
		formPath:   make(map[int]bool),
		imageIndex: make(map[int]int),
	}
}

// Extract runs the page content and returns its layout in top-left
// coordinates relative to the crop box.
func (e *Extractor) Extract() (*PageLayout, error) {
	e.box = e.pageBox()
	e.res = e.loadResources(e.page["/Resources"], nil)

	data, err := e.contentData()
	if err != nil {
		return nil, err
	}
	e.run(data, 0)

	return &PageLayout{
		Width:     e.box[2] - e.box[0],
		Height:    e.box[3] - e.box[1],
		Fragments: groupBlocks(groupLines(e.runs, e.config), e.config),
		Images:    e.images,
	}, nil
}

// pageBox is the crop box clipped to the media box. Letter size when neither
// is usable.
func (e *Extractor) pageBox() [4]float64 {
	media, ok := e.rectOf(e.page["/MediaBox"])
	if !ok {
		media = [4]float64{0, 0, 612, 792}
	}
	crop, ok := e.rectOf(e.page["/CropBox"])
	if !ok {
		return media
	}
	clipped := [4]float64{
		math.Max(crop[0], media[0]), math.Max(crop[1], media[1]),
		math.Min(crop[2], media[2]), math.Min(crop[3], media[3]),
	}
	if clipped[2] <= clipped[0] || clipped[3] <= clipped[1] {
		return media
	}
	return clipped
}

func (e *Extractor) rectOf(o Object) ([4]float64, bool) {
	arr, ok := e.reader.Resolve(o).(ArrayObject)
	if !ok || len(arr) != 4 {
		return [4]float64{}, false
	}
	var v [4]float64
	for i, item := range arr {
		n, ok := e.reader.Resolve(item).(NumberObject)
		if !ok {
			return [4]float64{}, false
		}
		v[i] = float64(n)
	}
	// Normalise corner order.
	return [4]float64{
		math.Min(v[0], v[2]), math.Min(v[1], v[3]),
		math.Max(v[0], v[2]), math.Max(v[1], v[3]),
	}, true
}

// toPage converts a PDF user-space point to top-left page space.
func (e *Extractor) toPage(x, y float64) (float64, float64) {
	return x - e.box[0], e.box[3] - y
}

// contentData concatenates the page's content streams. A token may be split
// across two streams, so they are joined before parsing.
func (e *Extractor) contentData() ([]byte, error) {
	contents, err := e.reader.resolveStrict(e.page["/Contents"])
	if err != nil {
		return nil, fmt.Errorf("page contents: %w", err)
	}

	var parts [][]byte
	switch c := contents.(type) {
	case StreamObject:
		parts = append(parts, c.Data)
	case ArrayObject:
		for _, item := range c {
			obj, err := e.reader.resolveStrict(item)
			if err != nil {
				return nil, fmt.Errorf("page contents: %w", err)
			}
			if s, ok := obj.(StreamObject); ok {
				parts = append(parts, s.Data)
			}
		}
	}
	return bytes.Join(parts, []byte{'\n'}), nil
}

func (e *Extractor) loadResources(obj Object, parent *resources) *resources {
	dict, ok := e.reader.Resolve(obj).(DictionaryObject)
	if !ok {
		if parent != nil {
			return parent
		}
		return &resources{fonts: make(map[string]*Font)}
	}
	res := &resources{fonts: make(map[string]*Font)}
	res.fontDict, _ = e.reader.Resolve(dict["/Font"]).(DictionaryObject)
	res.xobjects, _ = e.reader.Resolve(dict["/XObject"]).(DictionaryObject)
	return res
}

func (e *Extractor) font(name string) *Font {
	if f, ok := e.res.fonts[name]; ok {
		return f
	}
	ref, ok := e.res.fontDict[name]
	if !ok {
		e.reader.Warn("font %s not in resources", name)
		return fallbackFont
	}
	f := e.reader.loadFont(ref)
	e.res.fonts[name] = f
	return f
}

func (e *Extractor) run(data []byte, depth int) {
	parser := NewContentStreamParser(data)
	for {
		op, err := parser.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			e.reader.Warn("content stream: %v", err)
			return
		}
		e.processOp(*op, depth)
	}
}

func (e *Extractor) processOp(op Operation, depth int) {
	ts := &e.gState.Text
	arg := func(i int) float64 {
		if i < len(op.Operands) {
			return number(op.Operands[i])
		}
		return 0
	}

	switch op.Operator {
	case "q":
		e.gStack = append(e.gStack, e.gState)
	case "Q":
		if len(e.gStack) > 0 {
			e.gState = e.gStack[len(e.gStack)-1]
			e.gStack = e.gStack[:len(e.gStack)-1]
		}
	case "cm":
		if len(op.Operands) == 6 {
			e.gState.CTM = argsToMatrix(op.Operands).Mult(e.gState.CTM)
		}
	case "BT":
		e.tm = IdentityMatrix()
		e.tlm = IdentityMatrix()
	case "Tc":
		ts.CharSpacing = arg(0)
	case "Tw":
		ts.WordSpacing = arg(0)
	case "Tz":
		ts.Scale = arg(0)
	case "TL":
		ts.Leading = arg(0)
	case "Ts":
		ts.Rise = arg(0)
	case "Tf":
		if len(op.Operands) < 2 {
			return
		}
		if name, ok := op.Operands[0].(NameObject); ok {
			ts.Font = e.font(string(name))
		}
		ts.FontSize = arg(1)
	case "Td":
		e.moveLine(arg(0), arg(1))
	case "TD":
		ts.Leading = -arg(1)
		e.moveLine(arg(0), arg(1))
	case "Tm":
		if len(op.Operands) == 6 {
			e.tm = argsToMatrix(op.Operands)
			e.tlm = e.tm
		}
	case "T*":
		e.moveLine(0, -ts.Leading)
	case "Tj":
		if len(op.Operands) > 0 {
			e.showText(op.Operands[0])
		}
	case "TJ":
		if len(op.Operands) == 0 {
			return
		}
		arr, ok := op.Operands[0].(ArrayObject)
		if !ok {
			return
		}
		for _, obj := range arr {
			if n, ok := obj.(NumberObject); ok {
				// Adjustment in thousandths of text space, subtracted from x.
				shift := -float64(n) / 1000 * ts.FontSize * (ts.Scale / 100)
				e.tm = Matrix{1, 0, 0, 1, shift, 0}.Mult(e.tm)
			} else {
				e.showText(obj)
			}
		}
	case "'":
		e.moveLine(0, -ts.Leading)
		if len(op.Operands) > 0 {
			e.showText(op.Operands[0])
		}
	case "\"":
		if len(op.Operands) < 3 {
			return
		}
		ts.WordSpacing = arg(0)
		ts.CharSpacing = arg(1)
		e.moveLine(0, -ts.Leading)
		e.showText(op.Operands[2])
	case "Do":
		if len(op.Operands) > 0 {
			if name, ok := op.Operands[0].(NameObject); ok {
				e.doXObject(string(name), depth)
			}
		}
	}
}

func (e *Extractor) moveLine(tx, ty float64) {
	e.tlm = Matrix{1, 0, 0, 1, tx, ty}.Mult(e.tlm)
	e.tm = e.tlm
}

// showText advances the text matrix over a string and records a run whose
// box spans the start and end points, extended by ascent and descent along
// the text's vertical axis.
func (e *Extractor) showText(obj Object) {
	var raw []byte
	switch o := obj.(type) {
	case StringObject:
		raw = []byte(o)
	case HexStringObject:
		raw = []byte(o)
	default:
		return
	}

	ts := &e.gState.Text
	font := ts.Font
	if font == nil {
		font = fallbackFont
	}
	th := ts.Scale / 100
	fontMatrix := Matrix{ts.FontSize * th, 0, 0, ts.FontSize, 0, ts.Rise}

	start := fontMatrix.Mult(e.tm).Mult(e.gState.CTM)

	var sb strings.Builder
	for _, g := range font.glyphs(raw) {
		sb.WriteString(g.text)
		tx := g.width*ts.FontSize + ts.CharSpacing
		if g.wordSpace {
			tx += ts.WordSpacing
		}
		e.tm = Matrix{1, 0, 0, 1, tx * th, 0}.Mult(e.tm)
	}

	end := fontMatrix.Mult(e.tm).Mult(e.gState.CTM)

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return
	}

	// start[2], start[3] is the glyph's unit up vector scaled to the font size.
	ux, uy := start[2], start[3]
	sx, sy := start[4], start[5]
	ex, ey := end[4], end[5]
	corners := [][2]float64{
		{sx - descent*ux, sy - descent*uy},
		{sx + ascent*ux, sy + ascent*uy},
		{ex - descent*ux, ey - descent*uy},
		{ex + ascent*ux, ey + ascent*uy},
	}
	bbox := e.boundsOf(corners)

	size := math.Hypot(ux, uy)
	hScale := math.Hypot(start[0], start[1]) // font size along the baseline, scaled
	_, baseline := e.toPage(sx, sy)

	e.runs = append(e.runs, textRun{
		text:       text,
		bbox:       bbox,
		baseline:   baseline,
		size:       size,
		spaceWidth: font.SpaceWidth * font.WidthScale * hScale,
	})
}

// boundsOf converts user-space points to page space and returns their
// bounding box.
func (e *Extractor) boundsOf(points [][2]float64) model.Rect {
	r := model.Rect{X0: math.Inf(1), Y0: math.Inf(1), X1: math.Inf(-1), Y1: math.Inf(-1)}
	for _, p := range points {
		x, y := e.toPage(p[0], p[1])
		r.X0 = math.Min(r.X0, x)
		r.Y0 = math.Min(r.Y0, y)
		r.X1 = math.Max(r.X1, x)
		r.Y1 = math.Max(r.Y1, y)
	}
	return r
}

// doXObject records image placements and descends into forms.
func (e *Extractor) doXObject(name string, depth int) {
	entry, ok := e.res.xobjects[name]
	if !ok {
		return
	}
	ref, isRef := entry.(IndirectObject)
	if !isRef {
		return
	}

	dict := e.reader.StreamDictionary(ref)
	switch nameOf(dict, "/Subtype") {
	case "/Image":
		e.recordImage(name, ref, dict)
	case "/Form":
		e.runForm(ref, depth)
	}
}

// recordImage maps the unit square through the CTM and adds the result as
// a placement of the image object. The first placement fixes the order.
func (e *Extractor) recordImage(name string, ref IndirectObject, dict DictionaryObject) {
	corners := make([][2]float64, 0, 4)
	for _, c := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := e.gState.CTM.Apply(c[0], c[1])
		corners = append(corners, [2]float64{x, y})
	}
	rect := e.boundsOf(corners)

	if idx, ok := e.imageIndex[ref.ObjectNumber]; ok {
		e.images[idx].Rects = append(e.images[idx].Rects, rect)
		return
	}

	img := model.ImageRef{
		Name:         name,
		ObjectNumber: ref.ObjectNumber,
		Rects:        []model.Rect{rect},
		Width:        intOf(e.reader.Resolve(dict["/Width"]), 0),
		Height:       intOf(e.reader.Resolve(dict["/Height"]), 0),
	}
	switch cs := e.reader.Resolve(dict["/ColorSpace"]).(type) {
	case NameObject:
		img.ColorSpace = string(cs)
	case ArrayObject:
		if len(cs) > 0 {
			img.ColorSpace = stringOf(cs[0])
		}
	}
	if filters, _ := e.reader.filterChain(dict); len(filters) > 0 {
		img.Filter = filters[len(filters)-1]
	}

	e.imageIndex[ref.ObjectNumber] = len(e.images)
	e.images = append(e.images, img)
}

// runForm executes a Form XObject with its /Matrix and resources. Text
// matrices are local to the form.
func (e *Extractor) runForm(ref IndirectObject, depth int) {
	if depth >= maxFormDepth || e.formPath[ref.ObjectNumber] {
		e.reader.Warn("skipping form %d: nested too deep or recursive", ref.ObjectNumber)
		return
	}
	form, ok := e.reader.Resolve(ref).(StreamObject)
	if !ok {
		return
	}

	savedState, savedStack := e.gState, e.gStack
	savedTM, savedTLM, savedRes := e.tm, e.tlm, e.res
	e.formPath[ref.ObjectNumber] = true
	defer func() {
		delete(e.formPath, ref.ObjectNumber)
		e.gState, e.gStack = savedState, savedStack
		e.tm, e.tlm, e.res = savedTM, savedTLM, savedRes
	}()

	if m, ok := e.reader.Resolve(form.Dictionary["/Matrix"]).(ArrayObject); ok && len(m) == 6 {
		e.gState.CTM = argsToMatrix(m).Mult(e.gState.CTM)
	}
	e.gStack = nil
	e.res = e.loadResources(form.Dictionary["/Resources"], e.res)

	e.run(form.Data, depth+1)
}

func number(o Object) float64 {
	if n, ok := o.(NumberObject); ok {
		return float64(n)
	}
	return 0
}

func argsToMatrix(args []Object) Matrix {
	return Matrix{
		number(args[0]), number(args[1]),
		number(args[2]), number(args[3]),
		number(args[4]), number(args[5]),
	}
}
