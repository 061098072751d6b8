package pdf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Lexer reads PDF objects from a byte stream. Comments count as whitespace.
type Lexer struct {
	reader *bufio.Reader
}

func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: bufio.NewReader(r)}
}

// ReadObject returns the next object. Bare words (obj, R, stream, content
// operators) come back as KeywordObject; io.EOF marks the end of input.
func (l *Lexer) ReadObject() (Object, error) {
	l.skipWhitespace()
	c, err := l.peekByte()
	if err != nil {
		return nil, err
	}

	switch {
	case c == '/':
		return l.readName(), nil
	case c == '(':
		return l.readString()
	case c == '<' && l.hasPrefix("<<"):
		return l.readDictionary()
	case c == '<':
		return l.readHexString()
	case c == '[':
		return l.readArray()
	case c == '\'' || c == '"':
		l.reader.ReadByte()
		return KeywordObject(string(rune(c))), nil
	case isDigit(c) || c == '-' || c == '+' || c == '.':
		return l.readNumberOrReference(), nil
	case isAlpha(c):
		return l.readKeyword(), nil
	}
	return nil, fmt.Errorf("unexpected token: %q", c)
}

// Skip drops n bytes; used to step over junk the caller could not parse.
func (l *Lexer) Skip(n int) {
	l.reader.Discard(n)
}

func (l *Lexer) peekByte() (byte, error) {
	b, err := l.reader.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (l *Lexer) hasPrefix(s string) bool {
	b, _ := l.reader.Peek(len(s))
	return string(b) == s
}

func (l *Lexer) skipWhitespace() {
	for {
		c, err := l.peekByte()
		switch {
		case err != nil:
			return
		case isWhitespace(c):
			l.reader.ReadByte()
		case c == '%':
			l.skipLine()
		default:
			return
		}
	}
}

func (l *Lexer) skipLine() {
	for {
		c, err := l.reader.ReadByte()
		if err != nil || c == '\n' || c == '\r' {
			return
		}
	}
}

// token reads a run of regular characters: anything but whitespace and
// delimiters.
func (l *Lexer) token() string {
	var sb strings.Builder
	for {
		c, err := l.peekByte()
		if err != nil || isWhitespace(c) || isDelimiter(c) {
			return sb.String()
		}
		l.reader.ReadByte()
		sb.WriteByte(c)
	}
}

func (l *Lexer) readKeyword() Object {
	switch word := l.token(); word {
	case "true":
		return BooleanObject(true)
	case "false":
		return BooleanObject(false)
	case "null":
		return NullObject{}
	default:
		return KeywordObject(word)
	}
}

// readName keeps the leading slash and decodes #xx escapes.
func (l *Lexer) readName() NameObject {
	l.reader.ReadByte()
	raw := l.token()
	if !strings.Contains(raw, "#") {
		return NameObject("/" + raw)
	}

	var sb strings.Builder
	sb.WriteByte('/')
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			if v, err := strconv.ParseUint(raw[i+1:i+3], 16, 8); err == nil {
				sb.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		sb.WriteByte(raw[i])
	}
	return NameObject(sb.String())
}

var stringEscapes = map[byte]byte{
	'n': '\n', 'r': '\r', 't': '\t', 'b': '\b', 'f': '\f',
}

// readString reads a literal string. Balanced parentheses are part of the
// text; escapes are resolved.
func (l *Lexer) readString() (StringObject, error) {
	l.reader.ReadByte()
	var buf []byte
	depth := 1
	for {
		c, err := l.reader.ReadByte()
		if err != nil {
			return "", err
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return StringObject(buf), nil
			}
		case '\\':
			b, keep, err := l.readEscape()
			if err != nil {
				return "", err
			}
			if keep {
				buf = append(buf, b)
			}
			continue
		}
		buf = append(buf, c)
	}
}

// readEscape resolves the character after a backslash. keep is false for a
// line continuation, which contributes nothing.
func (l *Lexer) readEscape() (b byte, keep bool, err error) {
	c, err := l.reader.ReadByte()
	if err != nil {
		return 0, false, err
	}
	if v, ok := stringEscapes[c]; ok {
		return v, true, nil
	}

	switch {
	case c == '\r':
		if next, _ := l.peekByte(); next == '\n' {
			l.reader.ReadByte()
		}
		return 0, false, nil
	case c == '\n':
		return 0, false, nil
	case c >= '0' && c <= '7':
		// \ddd, one to three octal digits
		v := int(c - '0')
		for i := 0; i < 2; i++ {
			next, err := l.peekByte()
			if err != nil || next < '0' || next > '7' {
				break
			}
			l.reader.ReadByte()
			v = v*8 + int(next-'0')
		}
		return byte(v), true, nil
	}
	// \( \) \\ and unknown escapes stand for the character itself.
	return c, true, nil
}

func (l *Lexer) readHexString() (HexStringObject, error) {
	l.reader.ReadByte()
	raw, err := l.reader.ReadBytes('>')
	if err != nil {
		return nil, err
	}
	out, err := asciiHexDecode(raw)
	if err != nil {
		return nil, fmt.Errorf("bad hex string: %w", err)
	}
	return HexStringObject(out), nil
}

// readNumberOrReference reads a number, or "<num> <gen> R" as an
// IndirectObject. bufio cannot unread several tokens, so the reference form
// is confirmed in the peek buffer before anything after the first number
// is consumed.
func (l *Lexer) readNumberOrReference() Object {
	word := l.token()
	if strings.ContainsAny(word, ".+-") {
		return makeNumber(word)
	}

	l.skipWhitespace()
	if gen, n := l.peekReference(); n > 0 {
		l.reader.Discard(n)
		num, _ := strconv.Atoi(word)
		return IndirectObject{ObjectNumber: num, Generation: gen}
	}
	return makeNumber(word)
}

// peekReference matches "<digits> <whitespace> R" at the read position,
// with R standing alone ("RG" is a colour operator). It returns the
// generation and the length of the match, or 0, 0.
func (l *Lexer) peekReference() (gen, n int) {
	buf, _ := l.reader.Peek(24)
	i := 0
	for i < len(buf) && isDigit(buf[i]) {
		i++
	}
	if i == 0 || i == len(buf) || !isWhitespace(buf[i]) {
		return 0, 0
	}
	gen, _ = strconv.Atoi(string(buf[:i]))

	for i < len(buf) && isWhitespace(buf[i]) {
		i++
	}
	if i == len(buf) || buf[i] != 'R' {
		return 0, 0
	}
	i++
	if i < len(buf) && !isWhitespace(buf[i]) && !isDelimiter(buf[i]) {
		return 0, 0
	}
	return gen, i
}

func makeNumber(s string) NumberObject {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NumberObject(0)
	}
	return NumberObject(f)
}

func (l *Lexer) readArray() (ArrayObject, error) {
	l.reader.ReadByte()
	arr := ArrayObject{}
	for {
		l.skipWhitespace()
		c, err := l.peekByte()
		if err != nil {
			return nil, io.ErrUnexpectedEOF
		}
		if c == ']' {
			l.reader.ReadByte()
			return arr, nil
		}
		obj, err := l.ReadObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (l *Lexer) readDictionary() (DictionaryObject, error) {
	l.reader.Discard(2)
	dict := make(DictionaryObject)
	for {
		l.skipWhitespace()
		if l.hasPrefix(">>") {
			l.reader.Discard(2)
			return dict, nil
		}

		key, err := l.ReadObject()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		name, ok := key.(NameObject)
		if !ok {
			return nil, fmt.Errorf("dictionary key must be a name, got %T", key)
		}
		val, err := l.ReadObject()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		dict[string(name)] = val
	}
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func isKeyword(o Object, kw string) bool {
	k, ok := o.(KeywordObject)
	return ok && string(k) == kw
}

func isWhitespace(b byte) bool {
	switch b {
	case 0x00, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
