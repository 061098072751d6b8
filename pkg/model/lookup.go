package model

import (
	"bytes"
	"encoding/json"
)

// LookupMap maps question text to an uploaded image URL, keeping the order
// in which questions were first seen. Setting an existing key replaces the
// value in place.
type LookupMap struct {
	keys   []string
	values map[string]string
}

func NewLookupMap() *LookupMap {
	return &LookupMap{values: make(map[string]string)}
}

func (m *LookupMap) Set(question, url string) {
	if _, ok := m.values[question]; !ok {
		m.keys = append(m.keys, question)
	}
	m.values[question] = url
}

func (m *LookupMap) Get(question string) (string, bool) {
	url, ok := m.values[question]
	return url, ok
}

func (m *LookupMap) Len() int { return len(m.keys) }

// Keys returns the questions in insertion order.
func (m *LookupMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// MarshalJSON writes a JSON object in insertion order, without HTML escaping.
func (m *LookupMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, m.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
