package formatutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Spec is a parsed format specification:
// [[fill]align][sign][#][0][width][grouping][.precision][type]
type Spec struct {
	Fill      rune
	Align     byte
	Sign      byte
	Alt       bool
	Width     int
	Grouping  byte
	Precision int
	Kind      byte
}

func Parse(spec string) (Spec, error) {
	s := Spec{Fill: ' ', Precision: -1}
	rest := spec

	isAlign := func(c byte) bool { return c == '<' || c == '>' || c == '^' || c == '=' }
	if r, size := utf8.DecodeRuneInString(rest); size > 0 && size < len(rest) && isAlign(rest[size]) {
		s.Fill, s.Align = r, rest[size]
		rest = rest[size+1:]
	} else if len(rest) > 0 && isAlign(rest[0]) {
		s.Align = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 && (rest[0] == '+' || rest[0] == '-' || rest[0] == ' ') {
		s.Sign = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0] == '#' {
		s.Alt = true
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0] == '0' {
		if s.Align == 0 {
			s.Fill, s.Align = '0', '='
		}
		rest = rest[1:]
	}
	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n > 0 {
		s.Width, _ = strconv.Atoi(rest[:n])
		rest = rest[n:]
	}
	if len(rest) > 0 && (rest[0] == ',' || rest[0] == '_') {
		s.Grouping = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0] == '.' {
		n = 1
		for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
			n++
		}
		if n == 1 {
			return Spec{}, fmt.Errorf("Format specifier missing precision")
		}
		s.Precision, _ = strconv.Atoi(rest[1:n])
		rest = rest[n:]
	}
	if len(rest) > 1 {
		return Spec{}, fmt.Errorf("Invalid format specifier")
	}
	if len(rest) == 1 {
		s.Kind = rest[0]
	}
	return s, nil
}

func (s Spec) FormatStr(v string) (string, error) {
	if s.Kind != 0 && s.Kind != 's' {
		return "", fmt.Errorf("Unknown format code '%c' for object of type 'str'", s.Kind)
	}
	if s.Sign != 0 {
		return "", fmt.Errorf("Sign not allowed in string format specifier")
	}
	if s.Align == '=' {
		return "", fmt.Errorf("'=' alignment not allowed in string format specifier")
	}
	if s.Precision >= 0 {
		if rs := []rune(v); len(rs) > s.Precision {
			v = string(rs[:s.Precision])
		}
	}
	return s.pad("", v, '<'), nil
}

func (s Spec) FormatInt(v int64) (string, error) {
	switch s.Kind {
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		return s.FormatFloat(float64(v))
	}
	if s.Precision >= 0 {
		return "", fmt.Errorf("Precision not allowed in integer format specifier")
	}
	neg := v < 0
	mag := uint64(v)
	if neg {
		mag = uint64(-v)
	}
	var digits, prefix string
	group := 3
	switch s.Kind {
	case 0, 'd', 'n':
		digits = strconv.FormatUint(mag, 10)
	case 'b':
		digits, prefix, group = strconv.FormatUint(mag, 2), "0b", 4
	case 'o':
		digits, prefix, group = strconv.FormatUint(mag, 8), "0o", 4
	case 'x':
		digits, prefix, group = strconv.FormatUint(mag, 16), "0x", 4
	case 'X':
		digits, prefix, group = strings.ToUpper(strconv.FormatUint(mag, 16)), "0X", 4
	case 'c':
		if s.Sign != 0 {
			return "", fmt.Errorf("Sign not allowed with integer format specifier 'c'")
		}
		if v < 0 || v > utf8.MaxRune {
			return "", fmt.Errorf("%%c arg not in range(0x110000)")
		}
		return s.pad("", string(rune(v)), '>'), nil
	default:
		return "", fmt.Errorf("Unknown format code '%c' for object of type 'int'", s.Kind)
	}
	if s.Grouping == ',' && group != 3 {
		return "", fmt.Errorf("Cannot specify ',' with '%c'.", s.Kind)
	}
	if s.Grouping != 0 {
		digits = groupDigits(digits, false, string(s.Grouping), group)
	}
	if !s.Alt {
		prefix = ""
	}
	return s.pad(s.signFor(neg)+prefix, digits, '>'), nil
}

func (s Spec) FormatFloat(v float64) (string, error) {
	neg := math.Signbit(v) && !math.IsNaN(v)
	mag := math.Abs(v)
	upper := s.Kind == 'E' || s.Kind == 'F' || s.Kind == 'G'

	var body string
	suffix := ""
	switch {
	case math.IsInf(mag, 1):
		body = "inf"
	case math.IsNaN(mag):
		body = "nan"
	default:
		prec := s.Precision
		switch s.Kind {
		case 'f', 'F':
			if prec < 0 {
				prec = 6
			}
			body = strconv.FormatFloat(mag, 'f', prec, 64)
		case '%':
			if prec < 0 {
				prec = 6
			}
			body = strconv.FormatFloat(mag*100, 'f', prec, 64)
			suffix = "%"
		case 'e', 'E':
			if prec < 0 {
				prec = 6
			}
			body = strconv.FormatFloat(mag, 'e', prec, 64)
		case 'g', 'G', 'n':
			if prec < 0 {
				prec = 6
			} else if prec == 0 {
				prec = 1
			}
			body = formatGeneral(mag, prec, s.Alt, false)
		case 0:
			if prec < 0 {
				body = reprFloat(mag)
			} else {
				if prec == 0 {
					prec = 1
				}
				body = formatGeneral(mag, prec, s.Alt, true)
			}
		default:
			return "", fmt.Errorf("Unknown format code '%c' for object of type 'float'", s.Kind)
		}
		if s.Alt && !strings.ContainsAny(body, ".e") {
			body += "."
		}
		if s.Grouping != 0 {
			intPart, frac := body, ""
			if i := strings.IndexAny(body, ".e"); i >= 0 {
				intPart, frac = body[:i], body[i:]
			}
			body = groupDigits(intPart, false, string(s.Grouping), 3) + frac
		}
	}
	if upper {
		body = strings.ToUpper(body)
	}
	return s.pad(s.signFor(neg), body+suffix, '>'), nil
}

// formatGeneral is the 'g' presentation. With keepPoint set, fixed-point
// output keeps at least one fractional digit, as the empty type code does.
func formatGeneral(v float64, prec int, alt, keepPoint bool) string {
	if v == 0 {
		if keepPoint || alt {
			return "0.0"
		}
		return "0"
	}
	sci := strconv.FormatFloat(v, 'e', prec-1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	var out string
	if exp < -4 || exp >= prec {
		out = sci
		if !alt {
			mant, e := out[:strings.IndexByte(out, 'e')], out[strings.IndexByte(out, 'e'):]
			if strings.Contains(mant, ".") {
				mant = strings.TrimRight(strings.TrimRight(mant, "0"), ".")
			}
			out = mant + e
		}
		return out
	}
	out = strconv.FormatFloat(v, 'f', prec-1-exp, 64)
	if !alt && strings.Contains(out, ".") {
		out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	}
	if keepPoint && !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

func reprFloat(v float64) string {
	sci := strconv.FormatFloat(v, 'e', -1, 64)
	if exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:]); err == nil && (exp < -4 || exp >= 16) {
		return sci
	}
	out := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

func (s Spec) signFor(neg bool) string {
	switch {
	case neg:
		return "-"
	case s.Sign == '+':
		return "+"
	case s.Sign == ' ':
		return " "
	}
	return ""
}

// pad applies width, fill and alignment. '=' places the padding between
// the sign/prefix and the digits.
func (s Spec) pad(lead, body string, defaultAlign byte) string {
	n := utf8.RuneCountInString(lead) + utf8.RuneCountInString(body)
	if n >= s.Width {
		return lead + body
	}
	fill := strings.Repeat(string(s.Fill), s.Width-n)
	align := s.Align
	if align == 0 {
		align = defaultAlign
	}
	switch align {
	case '<':
		return lead + body + fill
	case '^':
		left := (s.Width - n) / 2
		return strings.Repeat(string(s.Fill), left) + lead + body + strings.Repeat(string(s.Fill), s.Width-n-left)
	case '=':
		if s.Fill == '0' && s.Grouping != 0 {
			return lead + zeroPadGrouped(body, s.Width-utf8.RuneCountInString(lead), string(s.Grouping))
		}
		return lead + fill + body
	default:
		return fill + lead + body
	}
}

// zeroPadGrouped widens a grouped number with zeros that are themselves
// grouped, so "1,234" padded to 8 becomes "0,001,234".
func zeroPadGrouped(body string, width int, sep string) string {
	intPart, frac := body, ""
	if i := strings.IndexAny(body, ".e%"); i >= 0 {
		intPart, frac = body[:i], body[i:]
	}
	digits := strings.ReplaceAll(intPart, sep, "")
	for {
		grouped := groupDigits(digits, false, sep, 3)
		if len(grouped)+len(frac) >= width {
			return grouped + frac
		}
		digits = "0" + digits
	}
}

func groupDigits(digits string, neg bool, sep string, group int) string {
	if len(digits) <= group {
		if neg {
			return "-" + digits
		}
		return digits
	}

	var out strings.Builder
	if neg {
		out.WriteByte('-')
	}
	first := len(digits) % group
	if first == 0 {
		first = group
	}
	out.WriteString(digits[:first])
	for i := first; i < len(digits); i += group {
		out.WriteString(sep)
		out.WriteString(digits[i : i+group])
	}
	return out.String()
}
