package ingest

import (
	"strconv"
	"strings"
)

// tjSpaceThreshold is the TJ kerning offset, in thousandths of a text
// space unit, beyond which a word gap is assumed.
const tjSpaceThreshold = -200

type tokenKind int

const (
	tokOperator tokenKind = iota
	tokString
	tokNumber
	tokArrayStart
	tokArrayEnd
	tokOther
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// ContentText decodes the text shown by a PDF page content stream.
// Strings are interpreted as single-byte encoded, which covers the
// standard fonts. Line-positioning operators start a new line.
func ContentText(content []byte) string {
	var (
		sb       strings.Builder
		operands []token
		inArray  bool
		array    []token
	)

	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}

	lx := &lexer{data: content}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}

		switch tok.kind {
		case tokArrayStart:
			inArray = true
			array = array[:0]
			continue
		case tokArrayEnd:
			inArray = false
			operands = append(operands, token{kind: tokArrayEnd})
			continue
		}
		if inArray {
			array = append(array, tok)
			continue
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}

		switch tok.text {
		case "Tj":
			if s, ok := lastString(operands); ok {
				sb.WriteString(s)
			}
		case "'", "\"":
			newline()
			if s, ok := lastString(operands); ok {
				sb.WriteString(s)
			}
		case "TJ":
			for _, el := range array {
				switch el.kind {
				case tokString:
					sb.WriteString(el.text)
				case tokNumber:
					if el.num < tjSpaceThreshold {
						sb.WriteByte(' ')
					}
				}
			}
			array = array[:0]
		case "Td", "TD", "T*", "Tm", "ET":
			newline()
		}
		operands = operands[:0]
	}

	return sb.String()
}

func lastString(operands []token) (string, bool) {
	for i := len(operands) - 1; i >= 0; i-- {
		if operands[i].kind == tokString {
			return operands[i].text, true
		}
	}
	return "", false
}

type lexer struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			l.pos++
			return token{kind: tokString, text: l.literalString()}, true
		case c == '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.pos += 2
				return token{kind: tokOther, text: "<<"}, true
			}
			l.pos++
			return token{kind: tokString, text: l.hexString()}, true
		case c == '>':
			l.pos++
			if l.pos < len(l.data) && l.data[l.pos] == '>' {
				l.pos++
			}
			return token{kind: tokOther, text: ">>"}, true
		case c == '[':
			l.pos++
			return token{kind: tokArrayStart}, true
		case c == ']':
			l.pos++
			return token{kind: tokArrayEnd}, true
		case c == '/':
			start := l.pos
			l.pos++
			l.word()
			return token{kind: tokOther, text: string(l.data[start:l.pos])}, true
		case c == '{' || c == '}' || c == ')':
			l.pos++
		default:
			start := l.pos
			l.word()
			w := string(l.data[start:l.pos])
			if n, ok := parseNumber(w); ok {
				return token{kind: tokNumber, text: w, num: n}, true
			}
			return token{kind: tokOperator, text: w}, true
		}
	}
	return token{}, false
}

func (l *lexer) word() {
	for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
}

// literalString reads a string after its opening parenthesis, resolving
// escapes and balanced nested parentheses.
func (l *lexer) literalString() string {
	var sb strings.Builder
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			sb.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return latin1(sb.String())
			}
			sb.WriteByte(c)
		case '\\':
			if l.pos >= len(l.data) {
				break
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(e - '0')
				for i := 0; i < 2 && l.pos < len(l.data); i++ {
					d := l.data[l.pos]
					if d < '0' || d > '7' {
						break
					}
					v = v*8 + int(d-'0')
					l.pos++
				}
				sb.WriteByte(byte(v))
			default:
				sb.WriteByte(e)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return latin1(sb.String())
}

func (l *lexer) hexString() string {
	var (
		raw  []byte
		hi   byte
		half bool
	)
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			break
		}
		v, ok := hexValue(c)
		if !ok {
			continue
		}
		if half {
			raw = append(raw, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		raw = append(raw, hi<<4)
	}
	return latin1(string(raw))
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// latin1 maps each byte to the rune of the same value.
func latin1(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		sb.WriteRune(rune(s[i]))
	}
	return sb.String()
}

func parseNumber(w string) (float64, bool) {
	c := w[0]
	if c != '-' && c != '+' && c != '.' && (c < '0' || c > '9') {
		return 0, false
	}
	n, err := strconv.ParseFloat(w, 64)
	return n, err == nil
}
