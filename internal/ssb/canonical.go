package ssb

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/buger/jsonparser"
)

// Canonical re-encodes a message value the way legacy feeds were signed and
// hashed: JSON.stringify(value, null, 2) with the original key order.
func Canonical(value []byte) ([]byte, error) {
	return canonical(value, "")
}

// canonical encodes value, dropping the top-level key skip if it is not empty.
func canonical(value []byte, skip string) ([]byte, error) {
	raw, typ, _, err := jsonparser.Get(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if typ != jsonparser.Object {
		return nil, fmt.Errorf("%w: value is %s, not an object", ErrMalformed, typ)
	}

	var enc encoder
	if err := enc.object(raw, 0, skip); err != nil {
		return nil, err
	}
	return enc.buf.Bytes(), nil
}

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) indent(depth int) {
	e.buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		e.buf.WriteString("  ")
	}
}

func (e *encoder) value(raw []byte, typ jsonparser.ValueType, depth int) error {
	switch typ {
	case jsonparser.Object:
		return e.object(raw, depth, "")
	case jsonparser.Array:
		return e.array(raw, depth)
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err == nil {
			e.quote(s)
			return nil
		}
		// jsonparser refuses unpaired surrogate escapes, JSON.parse keeps them
		units, uerr := unescapeUTF16(raw)
		if uerr != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		e.quoteUnits(units)
	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		e.buf.WriteString(formatNumber(f))
	case jsonparser.Boolean, jsonparser.Null:
		e.buf.Write(raw)
	default:
		return fmt.Errorf("%w: unexpected %s value", ErrMalformed, typ)
	}
	return nil
}

func (e *encoder) object(raw []byte, depth int, skip string) error {
	e.buf.WriteByte('{')
	first := true
	err := jsonparser.ObjectEach(raw, func(key, val []byte, typ jsonparser.ValueType, _ int) error {
		if depth == 0 && skip != "" && string(key) == skip {
			return nil
		}
		if !first {
			e.buf.WriteByte(',')
		}
		first = false

		e.indent(depth + 1)
		e.quote(string(key))
		e.buf.WriteString(": ")
		return e.value(val, typ, depth+1)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !first {
		e.indent(depth)
	}
	e.buf.WriteByte('}')
	return nil
}

func (e *encoder) array(raw []byte, depth int) error {
	e.buf.WriteByte('[')
	first := true
	var inner error
	_, err := jsonparser.ArrayEach(raw, func(val []byte, typ jsonparser.ValueType, _ int, err error) {
		if inner != nil {
			return
		}
		if err != nil {
			inner = err
			return
		}
		if !first {
			e.buf.WriteByte(',')
		}
		first = false

		e.indent(depth + 1)
		inner = e.value(val, typ, depth+1)
	})
	if err == nil {
		err = inner
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !first {
		e.indent(depth)
	}
	e.buf.WriteByte(']')
	return nil
}

const hexDigits = "0123456789abcdef"

// quote writes s as a JSON string using the escapes JSON.stringify emits.
func (e *encoder) quote(s string) {
	e.buf.WriteByte('"')
	e.escape(s)
	e.buf.WriteByte('"')
}

func (e *encoder) escape(s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			e.buf.WriteString(`\"`)
		case '\\':
			e.buf.WriteString(`\\`)
		case '\b':
			e.buf.WriteString(`\b`)
		case '\f':
			e.buf.WriteString(`\f`)
		case '\n':
			e.buf.WriteString(`\n`)
		case '\r':
			e.buf.WriteString(`\r`)
		case '\t':
			e.buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				e.buf.WriteString(`\u00`)
				e.buf.WriteByte(hexDigits[c>>4])
				e.buf.WriteByte(hexDigits[c&0xf])
			} else {
				e.buf.WriteByte(c)
			}
		}
	}
}

// quoteUnits writes a string held as UTF-16 code units. Unpaired surrogates
// are written as lowercase \u escapes, as well-formed JSON.stringify does.
func (e *encoder) quoteUnits(units []uint16) {
	e.buf.WriteByte('"')
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if !utf16.IsSurrogate(u) {
			e.escape(string(u))
			continue
		}
		if i+1 < len(units) {
			if r := utf16.DecodeRune(u, rune(units[i+1])); r != utf8.RuneError {
				e.buf.WriteRune(r)
				i++
				continue
			}
		}
		e.buf.WriteString(`\u`)
		for shift := 12; shift >= 0; shift -= 4 {
			e.buf.WriteByte(hexDigits[(u>>shift)&0xf])
		}
	}
	e.buf.WriteByte('"')
}

// unescapeUTF16 decodes the body of a JSON string literal into UTF-16 code
// units without requiring surrogate escapes to pair up.
func unescapeUTF16(raw []byte) ([]uint16, error) {
	units := make([]uint16, 0, len(raw))
	for i := 0; i < len(raw); {
		if raw[i] != '\\' {
			r, size := utf8.DecodeRune(raw[i:])
			units = utf16.AppendRune(units, r)
			i += size
			continue
		}
		if i+1 >= len(raw) {
			return nil, fmt.Errorf("truncated escape at %d", i)
		}
		switch c := raw[i+1]; c {
		case '"', '\\', '/':
			units = append(units, uint16(c))
		case 'b':
			units = append(units, '\b')
		case 'f':
			units = append(units, '\f')
		case 'n':
			units = append(units, '\n')
		case 'r':
			units = append(units, '\r')
		case 't':
			units = append(units, '\t')
		case 'u':
			if i+6 > len(raw) {
				return nil, fmt.Errorf("truncated escape at %d", i)
			}
			v, err := strconv.ParseUint(string(raw[i+2:i+6]), 16, 16)
			if err != nil {
				return nil, fmt.Errorf("bad escape at %d: %w", i, err)
			}
			units = append(units, uint16(v))
			i += 6
			continue
		default:
			return nil, fmt.Errorf("bad escape %q at %d", c, i)
		}
		i += 2
	}
	return units, nil
}

// formatNumber renders f the way JavaScript's Number.prototype.toString does.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + string(sign) + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// latin1 keeps the low byte of every UTF-16 code unit of s, matching the
// "binary" buffer encoding legacy message ids are hashed over.
func latin1(s []byte) []byte {
	units := utf16.Encode([]rune(string(s)))
	out := make([]byte, len(units))
	for i, u := range units {
		out[i] = byte(u)
	}
	return out
}

// utf16Len returns the length of s in UTF-16 code units.
func utf16Len(s []byte) int {
	n := 0
	for _, r := range string(s) {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
