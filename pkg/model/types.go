package model

// Document is a parsed PDF: metadata plus every page in physical order.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Pages    []Page   `json:"pages"`
}

// Metadata holds document-level information.
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Producer string `json:"producer,omitempty"`
	// Encrypted indicates the file carried an /Encrypt dictionary
	Encrypted bool `json:"encrypted"`
}

// Rect is a box in page space: origin top-left, y growing downward, points.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Union returns the smallest rect covering both.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// TextFragment is a block of text as segmented by the page layout.
type TextFragment struct {
	BBox Rect   `json:"bbox"`
	Text string `json:"text"`
}

// ImageRef is one image XObject as placed on a page. Rects holds one entry
// per placement in drawing order.
type ImageRef struct {
	Name         string `json:"name"`          // resource name of the first placement, e.g. "/Im1"
	ObjectNumber int    `json:"object_number"` // content handle
	Rects        []Rect `json:"rects"`
	Width        int    `json:"width,omitempty"`  // pixels
	Height       int    `json:"height,omitempty"` // pixels
	ColorSpace   string `json:"color_space,omitempty"`
	Filter       string `json:"filter,omitempty"`
}

// FirstRect is the placement the associator measures from.
func (i ImageRef) FirstRect() (Rect, bool) {
	if len(i.Rects) == 0 {
		return Rect{}, false
	}
	return i.Rects[0], true
}

// Page represents a single page in the PDF.
type Page struct {
	Index     int            `json:"index"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Fragments []TextFragment `json:"fragments"`
	Images    []ImageRef     `json:"images"`
}

// MatchResult is the winning fragment of a text search.
type MatchResult struct {
	Page  int    `json:"page"`
	BBox  Rect   `json:"bbox"`
	Score int    `json:"score"`
	Text  string `json:"text"`
}

// Credentials are the account used to obtain an upload token.
type Credentials struct {
	Email    string
	Password string
}
