package core

import (
	"fmt"
	"strings"

	"github.com/avfoundry/go-streamline/caps"
)

// Presence describes when pads from a template exist on an element.
type Presence int

const (
	// PresenceAlways pads exist for the element's whole lifetime.
	PresenceAlways Presence = iota
	// PresenceSometimes pads appear and disappear with the stream.
	PresenceSometimes
	// PresenceRequest pads are created on application request.
	PresenceRequest
)

func (p Presence) String() string {
	switch p {
	case PresenceAlways:
		return "always"
	case PresenceSometimes:
		return "sometimes"
	case PresenceRequest:
		return "request"
	default:
		return "unknown"
	}
}

// PadTemplate is the pattern pads are instantiated from: a name template
// with at most one %d/%s placeholder (request pads only), a direction, a
// presence and the capabilities pads of this template can carry.
type PadTemplate struct {
	NameTemplate string
	Direction    Direction
	Presence     Presence
	Caps         *caps.Caps
}

// countPlaceholders returns the number of %d/%s conversions and whether
// an unsupported conversion appears.
func countPlaceholders(tmpl string) (int, bool) {
	n := 0
	for i := 0; i+1 < len(tmpl); i++ {
		if tmpl[i] != '%' {
			continue
		}
		switch tmpl[i+1] {
		case 'd', 's':
			n++
			i++
		default:
			return n, true
		}
	}
	return n, false
}

// NewPadTemplate validates and builds a pad template. Always templates
// forbid placeholders; request templates allow at most one.
func NewPadTemplate(nameTemplate string, dir Direction, presence Presence, c *caps.Caps) (*PadTemplate, error) {
	n, bad := countPlaceholders(nameTemplate)
	if bad {
		return nil, fmt.Errorf("pad template %q: only %%d and %%s placeholders are supported", nameTemplate)
	}
	if presence == PresenceAlways && n > 0 {
		return nil, fmt.Errorf("pad template %q: always templates forbid placeholders", nameTemplate)
	}
	if n > 1 {
		return nil, fmt.Errorf("pad template %q: at most one placeholder", nameTemplate)
	}
	if c == nil {
		c = caps.NewAny()
	}
	return &PadTemplate{NameTemplate: nameTemplate, Direction: dir, Presence: presence, Caps: c}, nil
}

// MustPadTemplate is NewPadTemplate that panics on invalid patterns; for
// static element class tables.
func MustPadTemplate(nameTemplate string, dir Direction, presence Presence, c *caps.Caps) *PadTemplate {
	t, err := NewPadTemplate(nameTemplate, dir, presence, c)
	if err != nil {
		panic(err)
	}
	return t
}

// NameMatches reports whether a concrete pad name is an instance of the
// template (exact match, or matching prefix/suffix around a single
// placeholder).
func (t *PadTemplate) NameMatches(name string) bool {
	n, _ := countPlaceholders(t.NameTemplate)
	if n == 0 {
		return name == t.NameTemplate
	}
	idx := strings.Index(t.NameTemplate, "%")
	prefix := t.NameTemplate[:idx]
	suffix := t.NameTemplate[idx+2:]
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return false
	}
	middle := name[len(prefix) : len(name)-len(suffix)]
	if middle == "" {
		return false
	}
	if t.NameTemplate[idx+1] == 'd' {
		for _, r := range middle {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// Instantiate creates a pad from the template with the given concrete
// name.
func (t *PadTemplate) Instantiate(name string) (*Pad, error) {
	if !t.NameMatches(name) {
		return nil, fmt.Errorf("pad name %q does not match template %q", name, t.NameTemplate)
	}
	p := NewPad(name, t.Direction)
	p.tmpl = t
	return p, nil
}
