package semantics

import (
	"pyvm/internal/object"
)

// SliceIndices resolves a slice against a sequence length, clamping the
// bounds the way slice.indices does.
func SliceIndices(s *object.Slice, length int64) (start, stop, step int64, err error) {
	step = 1
	if s.Step != nil && s.Step != object.None {
		v, ok := asInt(s.Step)
		if !ok {
			return 0, 0, 0, sliceTypeError()
		}
		if v == 0 {
			return 0, 0, 0, object.NewException(object.ValueError, "slice step cannot be zero")
		}
		step = v
	}

	lower, upper := int64(0), length
	if step < 0 {
		lower, upper = -1, length-1
	}
	bound := func(o object.Object, def int64) (int64, error) {
		if o == nil || o == object.None {
			return def, nil
		}
		v, ok := asInt(o)
		if !ok {
			return 0, sliceTypeError()
		}
		if v < 0 {
			v += length
			if v < lower {
				v = lower
			}
		} else if v > upper {
			v = upper
		}
		return v, nil
	}
	if step > 0 {
		start, err = bound(s.Start, lower)
		if err == nil {
			stop, err = bound(s.Stop, upper)
		}
	} else {
		start, err = bound(s.Start, upper)
		if err == nil {
			stop, err = bound(s.Stop, lower)
		}
	}
	return start, stop, step, err
}

func sliceTypeError() *object.Exception {
	return object.NewException(object.TypeError,
		"slice indices must be integers or None or have an __index__ method")
}

func sliceElements(elements []object.Object, s *object.Slice) ([]object.Object, error) {
	start, stop, step, err := SliceIndices(s, int64(len(elements)))
	if err != nil {
		return nil, err
	}
	n := object.StepCount(start, stop, step)
	out := make([]object.Object, 0, n)
	for i, at := int64(0), start; i < n; i, at = i+1, at+step {
		out = append(out, elements[at])
	}
	return out, nil
}

func sliceRunes(rs []rune, s *object.Slice) (string, error) {
	start, stop, step, err := SliceIndices(s, int64(len(rs)))
	if err != nil {
		return "", err
	}
	n := object.StepCount(start, stop, step)
	out := make([]rune, 0, n)
	for i, at := int64(0), start; i < n; i, at = i+1, at+step {
		out = append(out, rs[at])
	}
	return string(out), nil
}

func normIndex(i, length int64) (int64, bool) {
	if i < 0 {
		i += length
	}
	return i, i >= 0 && i < length
}

// GetItem is container[index].
func GetItem(container, index object.Object) (object.Object, error) {
	switch c := container.(type) {
	case *object.List:
		return seqItem(c.Elements, index, "list", func(items []object.Object) object.Object {
			return &object.List{Elements: items}
		})
	case *object.Tuple:
		return seqItem(c.Elements, index, "tuple", func(items []object.Object) object.Object {
			return &object.Tuple{Elements: items}
		})
	case *object.Str:
		rs := c.Runes()
		if s, ok := index.(*object.Slice); ok {
			out, err := sliceRunes(rs, s)
			if err != nil {
				return nil, err
			}
			return &object.Str{Value: out}, nil
		}
		i, ok := asInt(index)
		if !ok {
			return nil, object.NewException(object.TypeError, "string indices must be integers")
		}
		at, ok := normIndex(i, int64(len(rs)))
		if !ok {
			return nil, object.NewException(object.IndexError, "string index out of range")
		}
		return &object.Str{Value: string(rs[at])}, nil
	case *object.Dict:
		v, found, err := c.Get(index)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, KeyError(index)
		}
		return v, nil
	case *object.Range:
		if s, ok := index.(*object.Slice); ok {
			start, stop, step, err := SliceIndices(s, c.Len())
			if err != nil {
				return nil, err
			}
			return &object.Range{Start: c.At(start), Stop: c.At(stop), Step: c.Step * step}, nil
		}
		i, ok := asInt(index)
		if !ok {
			return nil, object.NewException(object.TypeError,
				"range indices must be integers or slices, not %s", index.Type())
		}
		at, ok := normIndex(i, c.Len())
		if !ok {
			return nil, object.NewException(object.IndexError, "range object index out of range")
		}
		return &object.Int{Value: c.At(at)}, nil
	}
	return nil, object.NewException(object.TypeError, "'%s' object is not subscriptable", container.Type())
}

func seqItem(items []object.Object, index object.Object, name string, build func([]object.Object) object.Object) (object.Object, error) {
	if s, ok := index.(*object.Slice); ok {
		out, err := sliceElements(items, s)
		if err != nil {
			return nil, err
		}
		return build(out), nil
	}
	i, ok := asInt(index)
	if !ok {
		return nil, object.NewException(object.TypeError,
			"%s indices must be integers or slices, not %s", name, index.Type())
	}
	at, ok := normIndex(i, int64(len(items)))
	if !ok {
		return nil, object.NewException(object.IndexError, "%s index out of range", name)
	}
	return items[at], nil
}

func KeyError(key object.Object) *object.Exception {
	return object.NewExceptionArgs(object.KeyError, []object.Object{key}, object.KindKey)
}

// SetItem is container[index] = value.
func SetItem(container, index, value object.Object) error {
	switch c := container.(type) {
	case *object.List:
		if s, ok := index.(*object.Slice); ok {
			return setListSlice(c, s, value)
		}
		i, ok := asInt(index)
		if !ok {
			return object.NewException(object.TypeError,
				"list indices must be integers or slices, not %s", index.Type())
		}
		at, ok := normIndex(i, int64(len(c.Elements)))
		if !ok {
			return object.NewException(object.IndexError, "list assignment index out of range")
		}
		c.Elements[at] = value
		return nil
	case *object.Dict:
		return c.Set(index, value)
	}
	return object.NewException(object.TypeError, "'%s' object does not support item assignment", container.Type())
}

func setListSlice(l *object.List, s *object.Slice, value object.Object) error {
	items, err := object.Collect(value)
	if err != nil {
		if exc, ok := err.(*object.Exception); ok && exc.IsA(object.TypeError) {
			return object.NewException(object.TypeError, "can only assign an iterable")
		}
		return err
	}
	start, stop, step, err := SliceIndices(s, int64(len(l.Elements)))
	if err != nil {
		return err
	}
	if step == 1 {
		if stop < start {
			stop = start
		}
		out := make([]object.Object, 0, int64(len(l.Elements))-(stop-start)+int64(len(items)))
		out = append(out, l.Elements[:start]...)
		out = append(out, items...)
		out = append(out, l.Elements[stop:]...)
		l.Elements = out
		return nil
	}
	n := object.StepCount(start, stop, step)
	if int64(len(items)) != n {
		return object.NewException(object.ValueError,
			"attempt to assign sequence of size %d to extended slice of size %d", len(items), n)
	}
	for i, at := int64(0), start; i < n; i, at = i+1, at+step {
		l.Elements[at] = items[i]
	}
	return nil
}

// DelItem is del container[index].
func DelItem(container, index object.Object) error {
	switch c := container.(type) {
	case *object.List:
		if s, ok := index.(*object.Slice); ok {
			start, stop, step, err := SliceIndices(s, int64(len(c.Elements)))
			if err != nil {
				return err
			}
			n := object.StepCount(start, stop, step)
			drop := make(map[int64]bool, n)
			for i, at := int64(0), start; i < n; i, at = i+1, at+step {
				drop[at] = true
			}
			out := c.Elements[:0:0]
			for i, el := range c.Elements {
				if !drop[int64(i)] {
					out = append(out, el)
				}
			}
			c.Elements = out
			return nil
		}
		i, ok := asInt(index)
		if !ok {
			return object.NewException(object.TypeError,
				"list indices must be integers or slices, not %s", index.Type())
		}
		at, ok := normIndex(i, int64(len(c.Elements)))
		if !ok {
			return object.NewException(object.IndexError, "list assignment index out of range")
		}
		c.Elements = append(c.Elements[:at:at], c.Elements[at+1:]...)
		return nil
	case *object.Dict:
		found, err := c.Delete(index)
		if err != nil {
			return err
		}
		if !found {
			return KeyError(index)
		}
		return nil
	}
	return object.NewException(object.TypeError, "'%s' object doesn't support item deletion", container.Type())
}
