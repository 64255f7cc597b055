package expr

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokName
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
	num  Value // Set for tokNumber
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of expression"
	case tokNumber:
		return "number " + t.text
	case tokName:
		return "name " + strconv.Quote(t.text)
	default:
		return strconv.Quote(t.text)
	}
}

// Longest operators first so "**" wins over "*".
var operators = []string{
	"**", "//", "<<", ">>", "<=", ">=", "==", "!=",
	"+", "-", "*", "/", "%", "|", "^", "&", "~", "<", ">",
	"(", ")", ",", ".", "=",
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			tok, n, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i += n
		case isNameStart(c):
			j := i + 1
			for j < len(src) && isNameChar(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokName, text: src[i:j], pos: i})
			i = j
		default:
			op := ""
			for _, candidate := range operators {
				if strings.HasPrefix(src[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", rune(c))}
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

// lexNumber scans an int or float literal starting at src[start].
// Supports 0x/0o/0b prefixes, "_" separators, fractions and exponents.
func lexNumber(src string, start int) (token, int, error) {
	i := start
	if src[i] == '0' && i+1 < len(src) && strings.ContainsRune("xXoObB", rune(src[i+1])) {
		j := i + 2
		for j < len(src) && (isHexDigit(src[j]) || src[j] == '_') {
			j++
		}
		text := src[start:j]
		n, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return token{}, 0, numberError(start, text, err)
		}
		return token{kind: tokNumber, text: text, pos: start, num: Int(n)}, j - start, nil
	}

	isFloat := false
	for i < len(src) && (isDigit(src[i]) || src[i] == '_') {
		i++
	}
	if i < len(src) && src[i] == '.' {
		isFloat = true
		i++
		for i < len(src) && (isDigit(src[i]) || src[i] == '_') {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			isFloat = true
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			i = j
		}
	}
	if i < len(src) && isNameStart(src[i]) {
		return token{}, 0, &SyntaxError{Pos: i, Msg: "invalid number literal"}
	}

	text := src[start:i]
	if isFloat {
		f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
		if err != nil {
			return token{}, 0, numberError(start, text, err)
		}
		return token{kind: tokNumber, text: text, pos: start, num: Float(f)}, i - start, nil
	}
	if len(text) > 1 && text[0] == '0' && strings.Trim(text, "0_") != "" {
		return token{}, 0, &SyntaxError{Pos: start, Msg: "leading zeros in decimal integer literals are not permitted"}
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 10, 64)
	if err != nil {
		return token{}, 0, numberError(start, text, err)
	}
	return token{kind: tokNumber, text: text, pos: start, num: Int(n)}, i - start, nil
}

func numberError(pos int, text string, err error) error {
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return &SyntaxError{Pos: pos, Msg: fmt.Sprintf("number %s out of range", text)}
	}
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf("invalid number literal %s", text)}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || isDigit(c)
}
