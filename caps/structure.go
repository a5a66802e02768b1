package caps

import (
	"fmt"
	"strings"
)

// Field is a named capability field. Fields keep insertion order so that
// serialization and fixation are deterministic.
type Field struct {
	Name  string
	Value Value
}

// Structure is one capability: a media type name plus an ordered field set.
type Structure struct {
	Name   string
	Fields []Field
}

// NewStructure builds a structure from a name and an ordered list of fields.
func NewStructure(name string, fields ...Field) *Structure {
	s := &Structure{Name: name}
	s.Fields = append(s.Fields, fields...)
	return s
}

// Get returns the value for a field name, or nil if absent.
func (s *Structure) Get(name string) Value {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Set replaces the field value or appends a new field.
func (s *Structure) Set(name string, v Value) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			s.Fields[i].Value = v
			return
		}
	}
	s.Fields = append(s.Fields, Field{Name: name, Value: v})
}

// Copy returns a deep copy of the structure (field slice is duplicated;
// values are immutable and shared).
func (s *Structure) Copy() *Structure {
	c := &Structure{Name: s.Name, Fields: make([]Field, len(s.Fields))}
	copy(c.Fields, s.Fields)
	return c
}

// IsFixed reports whether every field holds a single concrete value.
func (s *Structure) IsFixed() bool {
	for _, f := range s.Fields {
		if !f.Value.Fixed() {
			return false
		}
	}
	return true
}

// Fixate returns a copy with every field reduced to a single value.
func (s *Structure) Fixate() *Structure {
	c := s.Copy()
	for i := range c.Fields {
		c.Fields[i].Value = FixateValue(c.Fields[i].Value)
	}
	return c
}

// Intersect computes the field-wise intersection of two structures with
// the same media type name. Fields present on only one side carry over
// unchanged; fields present on both sides must have a non-empty meet.
func (s *Structure) Intersect(o *Structure) (*Structure, bool) {
	if s.Name != o.Name {
		return nil, false
	}
	out := &Structure{Name: s.Name}
	for _, f := range s.Fields {
		ov := o.Get(f.Name)
		if ov == nil {
			out.Fields = append(out.Fields, f)
			continue
		}
		v, ok := IntersectValues(f.Value, ov)
		if !ok {
			return nil, false
		}
		out.Fields = append(out.Fields, Field{Name: f.Name, Value: v})
	}
	for _, f := range o.Fields {
		if s.Get(f.Name) == nil {
			out.Fields = append(out.Fields, f)
		}
	}
	return out, true
}

// SubsetOf reports whether every concrete capability admitted by s is also
// admitted by o: same media type, and for each field o constrains, s must
// constrain at least as tightly.
func (s *Structure) SubsetOf(o *Structure) bool {
	if s.Name != o.Name {
		return false
	}
	for _, f := range o.Fields {
		sv := s.Get(f.Name)
		if sv == nil {
			// o constrains a field s leaves open: s admits more.
			return false
		}
		if !SubsetValue(sv, f.Value) {
			return false
		}
	}
	return true
}

// Equal reports deep equality including field order.
func (s *Structure) Equal(o *Structure) bool {
	if s.Name != o.Name || len(s.Fields) != len(o.Fields) {
		return false
	}
	for i, f := range s.Fields {
		of := o.Fields[i]
		if f.Name != of.Name {
			return false
		}
		if !SubsetValue(f.Value, of.Value) || !SubsetValue(of.Value, f.Value) {
			return false
		}
	}
	return true
}

// String serializes the structure in the conventional
// "media/type, field=(type)value" form.
func (s *Structure) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	for _, f := range s.Fields {
		fmt.Fprintf(&b, ", %s=%s", f.Name, f.Value.String())
	}
	return b.String()
}
