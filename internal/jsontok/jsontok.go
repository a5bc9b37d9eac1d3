// Package jsontok scans a raw JSON buffer into a flat sequence of tokens
// without building an intermediate object graph. Each token records its type
// and byte range into the original buffer; containers additionally record
// their number of immediate children. Callers navigate by key lookup over an
// object's direct children and decode string tokens on demand, so a response
// can be mapped to entities while touching only the fields of interest.
package jsontok

import (
	"strconv"

	"github.com/telemetryforge/agent/internal/defs"
)

// Type identifies the JSON value class a token marks.
type Type int

const (
	TypeUndefined Type = iota
	TypeObject
	TypeArray
	TypeString
	TypePrimitive
)

// Token is a tagged byte-range marker into the scanned buffer. For string
// tokens Start and End delimit the content between the quotes, escapes still
// encoded. For containers they span the braces. Size is the number of
// immediate children: key-value pairs for objects, elements for arrays.
type Token struct {
	Type  Type
	Start int
	End   int
	Size  int

	parent int
}

// maxTokens bounds the token array so a hostile response cannot grow the
// workspace without limit.
const maxTokens = 1 << 16

// Parse scans buf into tokens. Malformed or truncated input fails with a
// parse error carrying the byte offset where scanning stopped; the returned
// tokens must not be used in that case.
func Parse(buf []byte) ([]Token, error) {
	toks := make([]Token, 0, 64)
	super := -1

	for pos := 0; pos < len(buf); pos++ {
		c := buf[pos]
		switch c {
		case '{', '[':
			if len(toks) >= maxTokens {
				return nil, defs.ErrParse(pos).WithDetail("token budget exceeded")
			}
			typ := TypeObject
			if c == '[' {
				typ = TypeArray
			}
			if super != -1 {
				toks[super].Size++
			}
			toks = append(toks, Token{Type: typ, Start: pos, End: -1, parent: super})
			super = len(toks) - 1

		case '}', ']':
			typ := TypeObject
			if c == ']' {
				typ = TypeArray
			}
			i := len(toks) - 1
			for i >= 0 {
				t := &toks[i]
				if t.End == -1 && (t.Type == TypeObject || t.Type == TypeArray) {
					break
				}
				i--
			}
			if i < 0 || toks[i].Type != typ {
				return nil, defs.ErrParse(pos).WithDetail("unbalanced container")
			}
			toks[i].End = pos + 1
			super = toks[i].parent

		case '"':
			tok, next, err := scanString(buf, pos)
			if err != nil {
				return nil, err
			}
			if len(toks) >= maxTokens {
				return nil, defs.ErrParse(pos).WithDetail("token budget exceeded")
			}
			tok.parent = super
			if super != -1 {
				toks[super].Size++
			}
			toks = append(toks, tok)
			pos = next

		case ':':
			super = len(toks) - 1

		case ',':
			if super != -1 &&
				toks[super].Type != TypeObject &&
				toks[super].Type != TypeArray {
				super = toks[super].parent
			}

		case ' ', '\t', '\n', '\r':

		default:
			tok, next, err := scanPrimitive(buf, pos)
			if err != nil {
				return nil, err
			}
			if len(toks) >= maxTokens {
				return nil, defs.ErrParse(pos).WithDetail("token budget exceeded")
			}
			tok.parent = super
			if super != -1 {
				toks[super].Size++
			}
			toks = append(toks, tok)
			pos = next
		}
	}

	for i := range toks {
		if toks[i].End == -1 {
			return nil, defs.ErrParse(len(buf)).WithDetail("unterminated container")
		}
	}

	return toks, nil
}

// scanString consumes a quoted string starting at the opening quote. It
// returns a token delimiting the content and the index of the closing quote.
func scanString(buf []byte, start int) (Token, int, error) {
	pos := start + 1
	for pos < len(buf) {
		c := buf[pos]
		if c == '"' {
			return Token{Type: TypeString, Start: start + 1, End: pos}, pos, nil
		}
		if c == '\\' {
			pos++
			if pos >= len(buf) {
				break
			}
			switch buf[pos] {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
			case 'u':
				if pos+4 >= len(buf) {
					return Token{}, 0, defs.ErrParse(pos).WithDetail("truncated unicode escape")
				}
				for i := 1; i <= 4; i++ {
					if !isHexDigit(buf[pos+i]) {
						return Token{}, 0, defs.ErrParse(pos + i).WithDetail("invalid unicode escape")
					}
				}
				pos += 4
			default:
				return Token{}, 0, defs.ErrParse(pos).WithDetail("invalid escape character")
			}
		}
		pos++
	}
	return Token{}, 0, defs.ErrParse(len(buf)).WithDetail("unterminated string")
}

// scanPrimitive consumes a number, boolean or null starting at start. It
// returns the token and the index of the last byte of the value.
func scanPrimitive(buf []byte, start int) (Token, int, error) {
	c := buf[start]
	if !isPrimitiveStart(c) {
		return Token{}, 0, defs.ErrParse(start).WithDetail("unexpected character")
	}

	pos := start
	for pos < len(buf) {
		switch buf[pos] {
		case ',', '}', ']', ' ', '\t', '\n', '\r', ':':
			return Token{Type: TypePrimitive, Start: start, End: pos}, pos - 1, nil
		}
		pos++
	}
	return Token{Type: TypePrimitive, Start: start, End: pos}, pos - 1, nil
}

func isPrimitiveStart(c byte) bool {
	return c == '-' || (c >= '0' && c <= '9') || c == 't' || c == 'f' || c == 'n'
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// ValueSize returns the total number of tokens spanned by the value at idx,
// itself included. It is the skip step used to move across a sibling without
// descending into it.
func ValueSize(toks []Token, idx int) int {
	if idx < 0 || idx >= len(toks) {
		return 0
	}

	t := toks[idx]
	switch t.Type {
	case TypeObject:
		j := idx + 1
		for i := 0; i < t.Size && j < len(toks); i++ {
			j++ // the key
			if j < len(toks) {
				j += ValueSize(toks, j)
			}
		}
		return j - idx
	case TypeArray:
		j := idx + 1
		for i := 0; i < t.Size && j < len(toks); i++ {
			j += ValueSize(toks, j)
		}
		return j - idx
	}
	return 1
}

// ObjectKey returns the index of the value whose key equals key among the
// direct children of the object at parent. Nested containers are skipped
// over, not descended into, so the cost is linear in the object's direct
// child count.
func ObjectKey(buf []byte, toks []Token, parent int, key string) (int, bool) {
	if parent < 0 || parent >= len(toks) || toks[parent].Type != TypeObject {
		return 0, false
	}

	j := parent + 1
	for i := 0; i < toks[parent].Size && j < len(toks); i++ {
		k := toks[j]
		if k.Type == TypeString && string(buf[k.Start:k.End]) == key {
			if j+1 < len(toks) {
				return j + 1, true
			}
			return 0, false
		}
		j++ // move past the key
		if j < len(toks) {
			j += ValueSize(toks, j)
		}
	}
	return 0, false
}

// ArrayElem returns the index of the n-th (0-based) element of the array at
// idx.
func ArrayElem(toks []Token, idx int, n int) (int, bool) {
	if idx < 0 || idx >= len(toks) || toks[idx].Type != TypeArray {
		return 0, false
	}

	j := idx + 1
	for i := 0; i < toks[idx].Size && j < len(toks); i++ {
		if i == n {
			return j, true
		}
		j += ValueSize(toks, j)
	}
	return 0, false
}

// Unquote decodes the string token tok against the original buffer,
// resolving the standard backslash escapes and \uXXXX code points.
func Unquote(buf []byte, tok Token) (string, error) {
	if tok.Type != TypeString {
		return defs.EmptyString, defs.ErrParse(tok.Start).WithDetail("not a string token")
	}

	raw := buf[tok.Start:tok.End]
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(raw) {
			return defs.EmptyString, defs.ErrParse(tok.Start + i).WithDetail("truncated escape")
		}
		switch raw[i] {
		case '"':
			out = append(out, '"')
		case '\\':
			out = append(out, '\\')
		case '/':
			out = append(out, '/')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'u':
			if i+4 >= len(raw) {
				return defs.EmptyString, defs.ErrParse(tok.Start + i).WithDetail("truncated unicode escape")
			}
			r, err := strconv.ParseUint(string(raw[i+1:i+5]), 16, 32)
			if err != nil {
				return defs.EmptyString, defs.ErrParse(tok.Start + i).WithDetail("invalid unicode escape")
			}
			i += 4
			cp := rune(r)
			// combine a UTF-16 surrogate pair when one follows
			if cp >= 0xD800 && cp <= 0xDBFF && i+6 < len(raw) &&
				raw[i+1] == '\\' && raw[i+2] == 'u' {
				low, err := strconv.ParseUint(string(raw[i+3:i+7]), 16, 32)
				if err == nil && low >= 0xDC00 && low <= 0xDFFF {
					cp = 0x10000 + (cp-0xD800)<<10 + (rune(low) - 0xDC00)
					i += 6
				}
			}
			out = append(out, []byte(string(cp))...)
		default:
			return defs.EmptyString, defs.ErrParse(tok.Start + i).WithDetail("invalid escape character")
		}
	}
	return string(out), nil
}

// Int decodes a primitive token as an integer.
func Int(buf []byte, tok Token) (int, error) {
	if tok.Type != TypePrimitive {
		return 0, defs.ErrParse(tok.Start).WithDetail("not a primitive token")
	}
	v, err := strconv.Atoi(string(buf[tok.Start:tok.End]))
	if err != nil {
		return 0, defs.ErrParse(tok.Start).WithDetail("invalid integer").WithCause(err)
	}
	return v, nil
}

// Float decodes a primitive token as a float.
func Float(buf []byte, tok Token) (float64, error) {
	if tok.Type != TypePrimitive {
		return 0, defs.ErrParse(tok.Start).WithDetail("not a primitive token")
	}
	v, err := strconv.ParseFloat(string(buf[tok.Start:tok.End]), 64)
	if err != nil {
		return 0, defs.ErrParse(tok.Start).WithDetail("invalid number").WithCause(err)
	}
	return v, nil
}

// IsNull reports whether tok is the null literal.
func IsNull(buf []byte, tok Token) bool {
	return tok.Type == TypePrimitive && string(buf[tok.Start:tok.End]) == "null"
}
