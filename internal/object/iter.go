package object

import "errors"

// Iterator is a native cursor over a container. next reports ok=false once
// the sequence is exhausted.
type Iterator struct {
	kind Type
	next func() (Object, bool, error)
}

func NewIterator(kind Type, next func() (Object, bool, error)) *Iterator {
	return &Iterator{kind: kind, next: next}
}

func (it *Iterator) Type() Type      { return it.kind }
func (it *Iterator) Inspect() string { return "<" + string(it.kind) + " object>" }

func (it *Iterator) Next() (Object, bool, error) { return it.next() }

// SliceIterator walks a fixed snapshot of values.
func SliceIterator(kind Type, items []Object) *Iterator {
	i := 0
	return NewIterator(kind, func() (Object, bool, error) {
		if i >= len(items) {
			return nil, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	})
}

func listIterator(l *List) *Iterator {
	i := 0
	return NewIterator("list_iterator", func() (Object, bool, error) {
		if l == nil || i >= len(l.Elements) {
			l = nil
			return nil, false, nil
		}
		v := l.Elements[i]
		i++
		return v, true, nil
	})
}

func strIterator(s *Str) *Iterator {
	runes := s.Runes()
	items := make([]Object, len(runes))
	for i, r := range runes {
		items[i] = &Str{Value: string(r)}
	}
	return SliceIterator("str_iterator", items)
}

func rangeIterator(r *Range) *Iterator {
	var i int64
	n := r.Len()
	return NewIterator("range_iterator", func() (Object, bool, error) {
		if i >= n {
			return nil, false, nil
		}
		v := r.At(i)
		i++
		return &Int{Value: v}, true, nil
	})
}

func dictIterator(d *Dict) *Iterator {
	keys := d.Keys()
	size := d.Len()
	i := 0
	return NewIterator("dict_keyiterator", func() (Object, bool, error) {
		if d.Len() != size {
			return nil, false, NewException(RuntimeError, "dictionary changed size during iteration")
		}
		for i < len(keys) {
			k := keys[i]
			i++
			if _, ok, _ := d.Get(k); ok {
				return k, true, nil
			}
		}
		return nil, false, nil
	})
}

func setIterator(s *Set) *Iterator {
	items := s.Items()
	size := s.Len()
	i := 0
	return NewIterator("set_iterator", func() (Object, bool, error) {
		if s.Len() != size {
			return nil, false, NewException(RuntimeError, "Set changed size during iteration")
		}
		if i >= len(items) {
			return nil, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	})
}

// GetIter implements iter(o) for the native containers. Iterators and
// generators are their own iterators.
func GetIter(o Object) (Object, error) {
	switch v := o.(type) {
	case *Iterator, *Generator:
		return v, nil
	case *List:
		return listIterator(v), nil
	case *Tuple:
		return SliceIterator("tuple_iterator", v.Elements), nil
	case *Str:
		return strIterator(v), nil
	case *Range:
		return rangeIterator(v), nil
	case *Dict:
		return dictIterator(v), nil
	case *Set:
		return setIterator(v), nil
	}
	return nil, NewException(TypeError, "'%s' object is not iterable", o.Type())
}

// Advance pulls one value from an iterator or generator. ok is false when
// it is exhausted.
func Advance(it Object) (Object, bool, error) {
	switch v := it.(type) {
	case *Iterator:
		return v.Next()
	case *Generator:
		val, err := v.Next()
		if err != nil {
			var exc *Exception
			if errors.As(err, &exc) && exc.IsA(StopIteration) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return val, true, nil
	}
	return nil, false, NewException(TypeError, "'%s' object is not an iterator", it.Type())
}

// Collect drains an iterable into a slice. Lists and tuples are copied
// without iterating.
func Collect(o Object) ([]Object, error) {
	switch v := o.(type) {
	case *List:
		return append([]Object(nil), v.Elements...), nil
	case *Tuple:
		return append([]Object(nil), v.Elements...), nil
	}
	it, err := GetIter(o)
	if err != nil {
		return nil, err
	}
	var out []Object
	for {
		v, ok, err := Advance(it)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
