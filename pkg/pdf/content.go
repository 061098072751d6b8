package pdf

import (
	"bytes"
	"io"
)

// Operation is one content stream operator with the operands that preceded it.
type Operation struct {
	Operator string
	Operands []Object
}

// ContentStreamParser splits a decoded content stream into operations.
type ContentStreamParser struct {
	lexer    *Lexer
	operands []Object
}

func NewContentStreamParser(data []byte) *ContentStreamParser {
	return &ContentStreamParser{lexer: NewLexer(bytes.NewReader(data))}
}

// Next returns the next operation, or io.EOF when the stream is exhausted.
// Unparseable bytes are skipped so one bad token does not lose the page.
func (p *ContentStreamParser) Next() (*Operation, error) {
	for {
		obj, err := p.lexer.ReadObject()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			p.lexer.Skip(1)
			p.operands = p.operands[:0]
			continue
		}

		kw, ok := obj.(KeywordObject)
		if !ok {
			p.operands = append(p.operands, obj)
			continue
		}

		if kw == "BI" {
			return p.readInlineImage()
		}

		op := &Operation{Operator: string(kw), Operands: p.operands}
		p.operands = nil
		return op, nil
	}
}

// readInlineImage consumes "BI <dict pairs> ID <data> EI" and reports it as
// a single INLINE_IMAGE operation carrying the image dictionary.
func (p *ContentStreamParser) readInlineImage() (*Operation, error) {
	p.operands = nil
	dict := make(DictionaryObject)
	for {
		key, err := p.lexer.ReadObject()
		if err != nil {
			return nil, err
		}
		if kw, ok := key.(KeywordObject); ok && kw == "ID" {
			break
		}
		name, ok := key.(NameObject)
		if !ok {
			continue
		}
		val, err := p.lexer.ReadObject()
		if err != nil {
			return nil, err
		}
		dict[string(name)] = val
	}

	// Exactly one whitespace byte separates ID from the data.
	p.lexer.reader.ReadByte()
	p.skipInlineData()

	return &Operation{Operator: "INLINE_IMAGE", Operands: []Object{dict}}, nil
}

// skipInlineData advances past the binary payload up to and including an
// "EI" that is delimited by whitespace on both sides.
func (p *ContentStreamParser) skipInlineData() {
	var prev byte = ' '
	for {
		b, err := p.lexer.reader.ReadByte()
		if err != nil {
			return
		}
		if b == 'E' && isWhitespace(prev) {
			peek, _ := p.lexer.reader.Peek(2)
			if len(peek) >= 1 && peek[0] == 'I' && (len(peek) == 1 || isWhitespace(peek[1]) || isDelimiter(peek[1])) {
				p.lexer.reader.ReadByte()
				return
			}
		}
		prev = b
	}
}
