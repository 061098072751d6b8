package model

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
)

func TestLookupMapOrder(t *testing.T) {
	m := NewLookupMap()
	m.Set("b?", "https://cdn/1.png")
	m.Set("a?", "https://cdn/2.png")
	m.Set("b?", "https://cdn/3.png")

	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	keys := m.Keys()
	if keys[0] != "b?" || keys[1] != "a?" {
		t.Errorf("Keys = %q, want first-seen order", keys)
	}
	if url, _ := m.Get("b?"); url != "https://cdn/3.png" {
		t.Errorf("Get(b?) = %q, want the last value", url)
	}
	if _, ok := m.Get("c?"); ok {
		t.Error("Get(c?) should miss")
	}

	keys[0] = "mutated"
	if m.Keys()[0] != "b?" {
		t.Error("Keys must return a copy")
	}
}

func TestLookupMapJSON(t *testing.T) {
	m := NewLookupMap()
	m.Set("Is 2 < 3 & 4 > 1?", "https://cdn/x.png?a=1&b=2")
	m.Set("Café \"quoted\"", "https://cdn/y.jpeg")

	data, err := m.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Is 2 < 3 & 4 > 1?":"https://cdn/x.png?a=1&b=2","Café \"quoted\"":"https://cdn/y.jpeg"}`
	if string(data) != want {
		t.Errorf("Marshal = %s\nwant      %s", data, want)
	}

	var plain map[string]string
	if err := json.Unmarshal(data, &plain); err != nil {
		t.Fatalf("output is not a JSON object of strings: %v", err)
	}
	if plain["Café \"quoted\""] != "https://cdn/y.jpeg" {
		t.Errorf("decoded = %v", plain)
	}

	empty, err := NewLookupMap().MarshalJSON()
	if err != nil || string(empty) != "{}" {
		t.Errorf("empty map = %s, %v", empty, err)
	}
}

func TestTypedErrors(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"setup", NewSetupError("records", "q.xlsx", cause), ErrFatalSetup},
		{"auth", &AuthError{Status: 401, Reason: "rejected", Err: cause}, ErrAuth},
		{"extraction", &ExtractionError{ObjectNumber: 7, Err: cause}, ErrExtraction},
		{"upload", &UploadError{Filename: "q_1.png", Status: 500, Reason: "server error", Err: cause}, ErrUpload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%v is not %v", tt.err, tt.sentinel)
			}
			if !errors.Is(tt.err, cause) {
				t.Errorf("%v does not wrap its cause", tt.err)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&AuthError{Reason: "no credentials"}, "authentication failed: no credentials"},
		{&AuthError{Status: 403, Reason: "rejected"}, "authentication failed: rejected (status 403)"},
		{&UploadError{Filename: "q_2.png", Reason: "no url in response"}, "upload failed: q_2.png: no url in response"},
		{&ExtractionError{ObjectNumber: 9, Err: errors.New("bad stream")}, "image extraction failed: object 9: bad stream"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestRectAndFirstRect(t *testing.T) {
	a := Rect{X0: 10, Y0: 20, X1: 30, Y1: 40}
	b := Rect{X0: 5, Y0: 25, X1: 20, Y1: 50}
	if got := a.Union(b); got != (Rect{X0: 5, Y0: 20, X1: 30, Y1: 50}) {
		t.Errorf("Union = %+v", got)
	}
	if a.Width() != 20 || a.Height() != 20 {
		t.Errorf("size = %vx%v", a.Width(), a.Height())
	}

	if _, ok := (ImageRef{}).FirstRect(); ok {
		t.Error("FirstRect of an unplaced image should report false")
	}
	img := ImageRef{Rects: []Rect{b, a}}
	if r, ok := img.FirstRect(); !ok || r != b {
		t.Errorf("FirstRect = %+v, %v", r, ok)
	}
}
