// Package caps implements capability descriptions for pad links: ordered
// sets of media-type structures with intersection, fixation and subset
// tests over a small value lattice.
package caps

import "strings"

// Caps is either ANY, EMPTY, or an ordered non-empty list of structures.
type Caps struct {
	any        bool
	structures []*Structure
}

// NewAny returns caps compatible with everything.
func NewAny() *Caps { return &Caps{any: true} }

// NewEmpty returns caps compatible with nothing.
func NewEmpty() *Caps { return &Caps{} }

// New builds caps from one or more structures.
func New(structures ...*Structure) *Caps {
	c := &Caps{}
	c.structures = append(c.structures, structures...)
	return c
}

// NewSimple builds single-structure caps from a media type and fields.
func NewSimple(mediaType string, fields ...Field) *Caps {
	return New(NewStructure(mediaType, fields...))
}

// IsAny reports whether the caps match everything.
func (c *Caps) IsAny() bool { return c != nil && c.any }

// IsEmpty reports whether the caps match nothing.
func (c *Caps) IsEmpty() bool { return c == nil || (!c.any && len(c.structures) == 0) }

// Len returns the number of structures (0 for ANY and EMPTY).
func (c *Caps) Len() int {
	if c == nil {
		return 0
	}
	return len(c.structures)
}

// Structure returns the i-th structure.
func (c *Caps) Structure(i int) *Structure { return c.structures[i] }

// Append adds structures to the caps. Appending to ANY is a no-op.
func (c *Caps) Append(structures ...*Structure) {
	if c.any {
		return
	}
	c.structures = append(c.structures, structures...)
}

// Copy returns a deep copy.
func (c *Caps) Copy() *Caps {
	if c == nil {
		return nil
	}
	out := &Caps{any: c.any}
	for _, s := range c.structures {
		out.structures = append(out.structures, s.Copy())
	}
	return out
}

// IsFixed reports whether the caps hold exactly one structure with every
// field a single value.
func (c *Caps) IsFixed() bool {
	if c == nil || c.any || len(c.structures) != 1 {
		return false
	}
	return c.structures[0].IsFixed()
}

// Intersect computes the intersection of two caps. ANY is the identity,
// EMPTY is absorbing, and the structure-wise intersection preserves the
// order of the first operand. The operation is commutative up to
// structure ordering.
func Intersect(a, b *Caps) *Caps {
	if a.IsEmpty() || b.IsEmpty() {
		return NewEmpty()
	}
	if a.IsAny() {
		return b.Copy()
	}
	if b.IsAny() {
		return a.Copy()
	}
	out := NewEmpty()
	for _, sa := range a.structures {
		for _, sb := range b.structures {
			if s, ok := sa.Intersect(sb); ok {
				out.structures = append(out.structures, s)
			}
		}
	}
	return out
}

// Fixate reduces caps to a single fixed structure: the first structure
// wins and every field collapses per the registered fixation rules.
// Fixating ANY or EMPTY returns nil.
func (c *Caps) Fixate() *Caps {
	if c.IsEmpty() || c.IsAny() {
		return nil
	}
	return New(c.structures[0].Fixate())
}

// AlwaysCompatible reports whether every structure of a is a subset of
// some structure of b, i.e. anything a can produce, b accepts.
func AlwaysCompatible(a, b *Caps) bool {
	if b.IsAny() {
		return true
	}
	if a.IsAny() {
		return false
	}
	if a.IsEmpty() {
		return true
	}
	if b.IsEmpty() {
		return false
	}
	for _, sa := range a.structures {
		matched := false
		for _, sb := range b.structures {
			if sa.SubsetOf(sb) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Equal reports structural equality (same structures in the same order).
func Equal(a, b *Caps) bool {
	if a.IsAny() || b.IsAny() {
		return a.IsAny() && b.IsAny()
	}
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !a.Structure(i).Equal(b.Structure(i)) {
			return false
		}
	}
	return true
}

// String serializes caps for logs: "ANY", "EMPTY" or structures joined
// by "; ".
func (c *Caps) String() string {
	if c.IsAny() {
		return "ANY"
	}
	if c.IsEmpty() {
		return "EMPTY"
	}
	parts := make([]string, len(c.structures))
	for i, s := range c.structures {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}
