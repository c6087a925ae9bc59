package semantics

import (
	"strconv"
	"strings"

	"pyvm/internal/formatutil"
	"pyvm/internal/object"
)

// Format implements format(value, spec), which FORMAT_VALUE also uses.
func Format(v object.Object, spec string) (object.Object, error) {
	if spec == "" {
		return &object.Str{Value: object.ToStr(v)}, nil
	}
	s, err := formatutil.Parse(spec)
	if err != nil {
		return nil, object.NewException(object.ValueError, "%s", err.Error())
	}
	var out string
	switch x := v.(type) {
	case *object.Bool, *object.Int:
		i, _ := asInt(x)
		out, err = s.FormatInt(i)
	case *object.Float:
		out, err = s.FormatFloat(x.Value)
	case *object.Str:
		out, err = s.FormatStr(x.Value)
	default:
		return nil, object.NewException(object.TypeError,
			"unsupported format string passed to %s.__format__", v.Type())
	}
	if err != nil {
		return nil, object.NewException(object.ValueError, "%s", err.Error())
	}
	return &object.Str{Value: out}, nil
}

// FormatPercent implements printf-style formatting, format % args.
func FormatPercent(format string, args object.Object) (object.Object, error) {
	var items []object.Object
	var mapping *object.Dict
	switch a := args.(type) {
	case *object.Tuple:
		items = a.Elements
	case *object.Dict:
		mapping = a
		items = []object.Object{a}
	default:
		items = []object.Object{args}
	}
	next := 0
	take := func() (object.Object, error) {
		if next >= len(items) {
			return nil, object.NewException(object.TypeError, "not enough arguments for format string")
		}
		next++
		return items[next-1], nil
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		start := i
		i++
		if i >= len(format) {
			return nil, object.NewException(object.ValueError, "incomplete format")
		}

		var arg object.Object
		if format[i] == '(' {
			end := strings.IndexByte(format[i:], ')')
			if end < 0 {
				return nil, object.NewException(object.ValueError, "incomplete format key")
			}
			if mapping == nil {
				return nil, object.NewException(object.TypeError, "format requires a mapping")
			}
			key := format[i+1 : i+end]
			v, ok := mapping.GetStr(key)
			if !ok {
				return nil, KeyError(&object.Str{Value: key})
			}
			arg = v
			i += end + 1
		}

		spec := formatutil.Spec{Fill: ' ', Precision: -1}
		left, zero := false, false
	flags:
		for ; i < len(format); i++ {
			switch format[i] {
			case '-':
				left = true
			case '+':
				spec.Sign = '+'
			case ' ':
				if spec.Sign == 0 {
					spec.Sign = ' '
				}
			case '#':
				spec.Alt = true
			case '0':
				zero = true
			default:
				break flags
			}
		}
		if i < len(format) && format[i] == '*' {
			w, err := take()
			if err != nil {
				return nil, err
			}
			n, ok := asInt(w)
			if !ok {
				return nil, object.NewException(object.TypeError, "* wants int")
			}
			if n < 0 {
				left, n = true, -n
			}
			spec.Width = int(n)
			i++
		} else {
			j := i
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				j++
			}
			spec.Width, _ = strconv.Atoi(format[i:j])
			i = j
		}
		if i < len(format) && format[i] == '.' {
			j := i + 1
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				j++
			}
			spec.Precision, _ = strconv.Atoi(format[i+1 : j])
			i = j
		}
		if i >= len(format) {
			return nil, object.NewException(object.ValueError, "incomplete format")
		}
		conv := format[i]
		if conv == '%' && i == start+1 {
			b.WriteByte('%')
			continue
		}
		if arg == nil {
			v, err := take()
			if err != nil {
				return nil, err
			}
			arg = v
		}

		switch {
		case left:
			spec.Align = '<'
		case zero && conv != 's' && conv != 'r' && conv != 'a' && conv != 'c':
			spec.Fill, spec.Align = '0', '='
		default:
			spec.Align = '>'
		}

		out, err := formatOne(spec, conv, arg, i)
		if err != nil {
			return nil, err
		}
		b.WriteString(out)
	}
	if mapping == nil && next < len(items) {
		return nil, object.NewException(object.TypeError, "not all arguments converted during string formatting")
	}
	return &object.Str{Value: b.String()}, nil
}

func formatOne(spec formatutil.Spec, conv byte, arg object.Object, at int) (string, error) {
	var out string
	var err error
	switch conv {
	case 's', 'r', 'a':
		var text string
		switch conv {
		case 's':
			text = object.ToStr(arg)
		case 'r':
			text = object.Repr(arg)
		default:
			text = object.ASCII(arg)
		}
		spec.Sign = 0
		out, err = spec.FormatStr(text)
	case 'd', 'i', 'u':
		n, ok := asInt(arg)
		if !ok {
			f, isFloat := arg.(*object.Float)
			if !isFloat {
				return "", object.NewException(object.TypeError,
					"%%%c format: a number is required, not %s", conv, arg.Type())
			}
			n = int64(f.Value)
		}
		spec.Precision = -1
		spec.Kind = 'd'
		out, err = spec.FormatInt(n)
	case 'x', 'X', 'o':
		n, ok := asInt(arg)
		if !ok {
			return "", object.NewException(object.TypeError,
				"%%%c format: an integer is required, not %s", conv, arg.Type())
		}
		spec.Precision = -1
		spec.Kind = conv
		out, err = spec.FormatInt(n)
	case 'e', 'E', 'f', 'F', 'g', 'G':
		f, ok := asFloat(arg)
		if !ok {
			return "", object.NewException(object.TypeError, "must be real number, not %s", arg.Type())
		}
		spec.Kind = conv
		out, err = spec.FormatFloat(f)
	case 'c':
		switch v := arg.(type) {
		case *object.Str:
			if len(v.Runes()) != 1 {
				return "", object.NewException(object.TypeError, "%%c requires int or char")
			}
			spec.Sign = 0
			out, err = spec.FormatStr(v.Value)
		default:
			n, ok := asInt(arg)
			if !ok {
				return "", object.NewException(object.TypeError, "%%c requires int or char")
			}
			spec.Kind = 'c'
			out, err = spec.FormatInt(n)
		}
	default:
		return "", object.NewException(object.ValueError,
			"unsupported format character '%c' (0x%x) at index %d", conv, conv, at)
	}
	if err != nil {
		return "", object.NewException(object.ValueError, "%s", err.Error())
	}
	return out, nil
}
