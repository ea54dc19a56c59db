package model

import (
	"strings"
)

type Kind int

const (
	KindInvalid  Kind = iota
	KindBase          // void, char, int, unsigned long, ...
	KindBuiltin       // fixed-width names from stdint.h / stddef.h
	KindStruct        // struct <tag>
	KindUnion         // union <tag>
	KindEnum          // enum <tag> or an inline enum literal
	KindFunction      // function or function-pointer signature
	KindAlias         // one-word typedef name, resolved through whatis
)

var kindNames = map[Kind]string{
	KindInvalid:  "invalid",
	KindBase:     "base",
	KindBuiltin:  "builtin",
	KindStruct:   "struct",
	KindUnion:    "union",
	KindEnum:     "enum",
	KindFunction: "function",
	KindAlias:    "alias",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// IsAggregate reports whether k is declared with a brace body (struct, union).
func (k Kind) IsAggregate() bool {
	return k == KindStruct || k == KindUnion
}

// Mode tells whether a use needs the full definition or only a forward
// declaration.
type Mode int

const (
	ModeStrong Mode = iota // by value: full definition required
	ModeWeak               // through a pointer: forward declaration suffices
)

func (m Mode) String() string {
	if m == ModeWeak {
		return "weak"
	}
	return "strong"
}

// Stronger returns the mode that satisfies both m and o.
func (m Mode) Stronger(o Mode) Mode {
	if m == ModeStrong || o == ModeStrong {
		return ModeStrong
	}
	return ModeWeak
}

// Placeholder marks where the declared name is substituted into a
// declaration template.
const Placeholder = "\x00name\x00"

// Sentinel texts for descriptors that never produce a declaration.
const (
	TextBase    = "<base>"
	TextBuiltin = "<builtin>"
	TextSkip    = "<skip>"
)

// Fixed tags shared by every base and builtin descriptor.
const (
	TagBase    = "<base>"
	TagBuiltin = "<builtin>"
)

type Descriptor struct {
	// Identity ------------------------------------------------------------
	Kind Kind
	Name string // "struct foo", "my_size_t", "unsigned long", "cb"
	Mode Mode
	Skip bool // excluded by the caller, resolved as an opaque placeholder

	// Declaration ----------------------------------------------------------
	Template []string // lines holding Placeholder where the name goes
	Text     []string // finalized declaration, set once by the resolver

	// Dependencies discovered while parsing this descriptor's body.
	Deps Deps
}

// Tag is the canonical registry key of d.
func (d Descriptor) Tag() string {
	return TagOf(d.Kind, d.Name, d.Mode)
}

// TagOf builds the canonical registry key for a (kind, name, mode) triple.
func TagOf(kind Kind, name string, mode Mode) string {
	switch kind {
	case KindBase:
		return TagBase
	case KindBuiltin:
		return TagBuiltin
	case KindStruct, KindUnion, KindEnum:
		fields := strings.Fields(name)
		tagName := name
		if len(fields) == 2 {
			tagName = fields[1]
		}
		if kind == KindEnum {
			mode = ModeStrong
		}
		return kind.String() + ":" + tagName + ":" + mode.String()
	case KindFunction:
		return "function:" + name + ":" + ModeStrong.String()
	default:
		return kind.String() + ":" + name + ":" + mode.String()
	}
}

// IsSentinel reports whether d is satisfied without emitting a declaration.
func (d Descriptor) IsSentinel() bool {
	return d.Skip || d.Kind == KindBase || d.Kind == KindBuiltin
}

// Deps is an insertion-ordered set of dependency descriptors keyed by name.
type Deps struct {
	keys   []string
	byName map[string]Descriptor
}

// Add records d. A name already present keeps its position; the stronger of
// the two modes is retained.
func (x *Deps) Add(d Descriptor) {
	if x.byName == nil {
		x.byName = make(map[string]Descriptor)
	}
	if prev, ok := x.byName[d.Name]; ok {
		d.Mode = prev.Mode.Stronger(d.Mode)
		x.byName[d.Name] = d
		return
	}
	x.keys = append(x.keys, d.Name)
	x.byName[d.Name] = d
}

// Merge adds every entry of o in o's order.
func (x *Deps) Merge(o Deps) {
	for _, d := range o.Values() {
		x.Add(d)
	}
}

func (x Deps) Len() int {
	return len(x.keys)
}

// Values returns the dependencies in discovery order.
func (x Deps) Values() []Descriptor {
	out := make([]Descriptor, 0, len(x.keys))
	for _, k := range x.keys {
		out = append(out, x.byName[k])
	}
	return out
}

// Clone returns a copy that does not share storage with x.
func (x Deps) Clone() Deps {
	var c Deps
	c.Merge(x)
	return c
}
