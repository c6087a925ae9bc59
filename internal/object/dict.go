package object

import "github.com/emirpasic/gods/maps/linkedhashmap"

type DictEntry struct {
	Key   Object
	Value Object
}

// Dict is an insertion-ordered mapping. Rebinding an existing key keeps
// the key object first stored and its position.
type Dict struct {
	m *linkedhashmap.Map
}

func (*Dict) Type() Type        { return DICT_OBJ }
func (d *Dict) Inspect() string { return Repr(d) }

func NewDict() *Dict { return &Dict{m: linkedhashmap.New()} }

func (d *Dict) table() *linkedhashmap.Map {
	if d.m == nil {
		d.m = linkedhashmap.New()
	}
	return d.m
}

func (d *Dict) Len() int {
	if d == nil || d.m == nil {
		return 0
	}
	return d.m.Size()
}

func (d *Dict) Get(key Object) (Object, bool, error) {
	k, ok := HashKeyOf(key)
	if !ok {
		return nil, false, Unhashable(key)
	}
	if d == nil || d.m == nil {
		return nil, false, nil
	}
	e, found := d.m.Get(k)
	if !found {
		return nil, false, nil
	}
	return e.(*DictEntry).Value, true, nil
}

func (d *Dict) Set(key, value Object) error {
	k, ok := HashKeyOf(key)
	if !ok {
		return Unhashable(key)
	}
	t := d.table()
	if e, found := t.Get(k); found {
		e.(*DictEntry).Value = value
		return nil
	}
	t.Put(k, &DictEntry{Key: key, Value: value})
	return nil
}

func (d *Dict) Delete(key Object) (bool, error) {
	k, ok := HashKeyOf(key)
	if !ok {
		return false, Unhashable(key)
	}
	if d.m == nil {
		return false, nil
	}
	if _, found := d.m.Get(k); !found {
		return false, nil
	}
	d.m.Remove(k)
	return true, nil
}

func (d *Dict) GetStr(name string) (Object, bool) {
	if d == nil || d.m == nil {
		return nil, false
	}
	e, found := d.m.Get(HashKey("s" + name))
	if !found {
		return nil, false
	}
	return e.(*DictEntry).Value, true
}

func (d *Dict) SetStr(name string, value Object) {
	_ = d.Set(&Str{Value: name}, value)
}

// Entries returns a snapshot of the pairs in insertion order.
func (d *Dict) Entries() []DictEntry {
	if d == nil || d.m == nil {
		return nil
	}
	out := make([]DictEntry, 0, d.m.Size())
	it := d.m.Iterator()
	for it.Next() {
		out = append(out, *it.Value().(*DictEntry))
	}
	return out
}

func (d *Dict) Keys() []Object {
	entries := d.Entries()
	out := make([]Object, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

func (d *Dict) Values() []Object {
	entries := d.Entries()
	out := make([]Object, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}

func (d *Dict) Copy() *Dict {
	out := NewDict()
	for _, e := range d.Entries() {
		_ = out.Set(e.Key, e.Value)
	}
	return out
}

func (d *Dict) Clear() {
	if d.m != nil {
		d.m.Clear()
	}
}

// Set is an insertion-ordered collection of hashable values.
type Set struct {
	m *linkedhashmap.Map
}

func (*Set) Type() Type        { return SET_OBJ }
func (s *Set) Inspect() string { return Repr(s) }

func NewSet() *Set { return &Set{m: linkedhashmap.New()} }

func (s *Set) table() *linkedhashmap.Map {
	if s.m == nil {
		s.m = linkedhashmap.New()
	}
	return s.m
}

func (s *Set) Len() int {
	if s == nil || s.m == nil {
		return 0
	}
	return s.m.Size()
}

func (s *Set) Add(item Object) error {
	k, ok := HashKeyOf(item)
	if !ok {
		return Unhashable(item)
	}
	t := s.table()
	if _, found := t.Get(k); !found {
		t.Put(k, item)
	}
	return nil
}

func (s *Set) Contains(item Object) (bool, error) {
	k, ok := HashKeyOf(item)
	if !ok {
		return false, Unhashable(item)
	}
	if s.m == nil {
		return false, nil
	}
	_, found := s.m.Get(k)
	return found, nil
}

func (s *Set) Remove(item Object) (bool, error) {
	k, ok := HashKeyOf(item)
	if !ok {
		return false, Unhashable(item)
	}
	if s.m == nil {
		return false, nil
	}
	if _, found := s.m.Get(k); !found {
		return false, nil
	}
	s.m.Remove(k)
	return true, nil
}

func (s *Set) Items() []Object {
	if s == nil || s.m == nil {
		return nil
	}
	out := make([]Object, 0, s.m.Size())
	it := s.m.Iterator()
	for it.Next() {
		out = append(out, it.Value().(Object))
	}
	return out
}

func (s *Set) Copy() *Set {
	out := NewSet()
	for _, item := range s.Items() {
		_ = out.Add(item)
	}
	return out
}

func (s *Set) Clear() {
	if s.m != nil {
		s.m.Clear()
	}
}
