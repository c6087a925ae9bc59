// Package numlit parses the textual numbers accepted by int() and float().
package numlit

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrSyntax = errors.New("invalid literal")
	ErrRange  = errors.New("out of range")
	ErrBase   = errors.New("int() base must be >= 2 and <= 36, or 0")
)

var prefixBases = map[byte]int{'x': 16, 'X': 16, 'o': 8, 'O': 8, 'b': 2, 'B': 2}

// ParseInt is int(s, base) for values that fit in 64 bits. Base 0 reads the
// base from a 0x/0o/0b prefix the way source literals do; an explicit base
// still allows its own prefix.
func ParseInt(s string, base int) (int64, error) {
	if base != 0 && (base < 2 || base > 36) {
		return 0, ErrBase
	}
	text, neg := cutSign(strings.TrimSpace(s))

	prefixed := false
	if len(text) >= 2 && text[0] == '0' {
		if b, ok := prefixBases[text[1]]; ok && (base == 0 || base == b) {
			base, prefixed = b, true
			// 0x_ff is allowed: the underscore may follow the prefix.
			text = strings.TrimPrefix(text[2:], "_")
		}
	}
	if base == 0 {
		base = 10
		if len(text) > 1 && text[0] == '0' && strings.Trim(text, "0_") != "" {
			return 0, fmt.Errorf("%w: leading zeros", ErrSyntax)
		}
	}

	digits, err := cleanDigits(text, base)
	if err != nil {
		if prefixed && text == "" {
			return 0, fmt.Errorf("%w: prefix without digits", ErrSyntax)
		}
		return 0, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if neg {
		digits = "-" + digits
	}
	v, err := strconv.ParseInt(digits, base, 64)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, strconv.ErrRange):
		return 0, ErrRange
	}
	return 0, ErrSyntax
}

// ParseFloat is float(s): decimal forms with optional exponent and
// underscores, plus inf, infinity and nan in any case.
func ParseFloat(s string) (float64, error) {
	body, neg := cutSign(strings.TrimSpace(s))
	sign := 1.0
	if neg {
		sign = -1
	}
	switch strings.ToLower(body) {
	case "inf", "infinity":
		return math.Inf(int(sign)), nil
	case "nan":
		return math.NaN(), nil
	}

	norm, err := decimalForm(body)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(norm, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, ErrSyntax
	}
	// Overflow becomes inf and underflow zero, as float() does.
	return sign * v, nil
}

func cutSign(s string) (string, bool) {
	if s == "" {
		return s, false
	}
	switch s[0] {
	case '-':
		return s[1:], true
	case '+':
		return s[1:], false
	}
	return s, false
}

// decimalForm rewrites a float literal without its underscores into the
// syntax strconv accepts, rejecting what float() rejects.
func decimalForm(lit string) (string, error) {
	mantissa, exp, hasExp := strings.Cut(strings.ToLower(lit), "e")
	suffix := ""
	if hasExp {
		digits, neg := cutSign(exp)
		digits, err := cleanDigits(digits, 10)
		if err != nil {
			return "", fmt.Errorf("%w: exponent: %v", ErrSyntax, err)
		}
		if neg {
			digits = "-" + digits
		}
		suffix = "e" + digits
	}

	whole, frac, hasPoint := strings.Cut(mantissa, ".")
	if whole == "" && frac == "" {
		return "", fmt.Errorf("%w: digits required", ErrSyntax)
	}
	parts := [2]string{"0", "0"}
	for i, part := range []string{whole, frac} {
		if part == "" {
			continue
		}
		clean, err := cleanDigits(part, 10)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		parts[i] = clean
	}
	if !hasPoint {
		return parts[0] + suffix, nil
	}
	return parts[0] + "." + parts[1] + suffix, nil
}

// cleanDigits checks that s is a run of digits in base, with single
// underscores allowed between digits, and returns it without them.
func cleanDigits(s string, base int) (string, error) {
	if s == "" {
		return "", errors.New("digits required")
	}
	if s[0] == '_' || s[len(s)-1] == '_' || strings.Contains(s, "__") {
		return "", errors.New("underscores must separate digits")
	}
	for _, r := range s {
		if r != '_' && digitValue(r) >= base {
			return "", fmt.Errorf("invalid digit %q for base %d", r, base)
		}
	}
	return strings.ReplaceAll(s, "_", ""), nil
}

func digitValue(r rune) int {
	switch {
	case '0' <= r && r <= '9':
		return int(r - '0')
	case 'a' <= r && r <= 'z':
		return int(r-'a') + 10
	case 'A' <= r && r <= 'Z':
		return int(r-'A') + 10
	}
	return 36
}
