package resource

import (
	"fmt"
	"sort"
	"strings"
)

// Kind names any resource, basic or complex. Names are unique across both classes.
type Kind string

type BasicType string

const (
	Carbon   BasicType = "CARBON"
	Hydrogen BasicType = "HYDROGEN"
	Oxygen   BasicType = "OXYGEN"
	Silicon  BasicType = "SILICON"
)

type ComplexType string

const (
	Water     ComplexType = "WATER"
	Diamond   ComplexType = "DIAMOND"
	Life      ComplexType = "LIFE"
	Robot     ComplexType = "ROBOT"
	Dolphin   ComplexType = "DOLPHIN"
	AIPartner ComplexType = "AI_PARTNER"
)

var allBasic = []BasicType{Carbon, Hydrogen, Oxygen, Silicon}

var allComplex = []ComplexType{Water, Diamond, Life, Robot, Dolphin, AIPartner}

func (t BasicType) Kind() Kind   { return Kind(t) }
func (t ComplexType) Kind() Kind { return Kind(t) }

// AllBasic returns every basic resource type in declaration order.
func AllBasic() []BasicType { return append([]BasicType(nil), allBasic...) }

// AllComplex returns every complex resource type in recipe (DAG) order.
func AllComplex() []ComplexType { return append([]ComplexType(nil), allComplex...) }

func ParseBasic(s string) (BasicType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, t := range allBasic {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

func ParseComplex(s string) (ComplexType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, t := range allComplex {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsBasic reports whether k names a basic resource.
func (k Kind) IsBasic() bool {
	_, ok := ParseBasic(string(k))
	return ok
}

// IsComplex reports whether k names a complex resource.
func (k Kind) IsComplex() bool {
	_, ok := ParseComplex(string(k))
	return ok
}

// Basic is one unit of an atomic resource.
type Basic struct {
	ID   string    `json:"id"`
	Type BasicType `json:"type"`
}

// Complex is one unit of a combined resource.
type Complex struct {
	ID   string      `json:"id"`
	Type ComplexType `json:"type"`
}

// Generic holds exactly one of Basic or Complex. It is the shape used when a
// resource of either class travels through a recipe slot.
type Generic struct {
	Basic   *Basic   `json:"basic,omitempty"`
	Complex *Complex `json:"complex,omitempty"`
}

func FromBasic(b Basic) Generic     { return Generic{Basic: &b} }
func FromComplex(c Complex) Generic { return Generic{Complex: &c} }

func (g Generic) Kind() Kind {
	switch {
	case g.Basic != nil && g.Complex == nil:
		return g.Basic.Type.Kind()
	case g.Complex != nil && g.Basic == nil:
		return g.Complex.Type.Kind()
	default:
		return ""
	}
}

func (g Generic) ID() string {
	switch {
	case g.Basic != nil:
		return g.Basic.ID
	case g.Complex != nil:
		return g.Complex.ID
	default:
		return ""
	}
}

// Valid reports whether exactly one side is set and names a known type.
func (g Generic) Valid() bool {
	k := g.Kind()
	return k != "" && (k.IsBasic() || k.IsComplex())
}

// Equal compares identity and type.
func (g Generic) Equal(o Generic) bool {
	return g.Kind() == o.Kind() && g.ID() == o.ID()
}

func (g Generic) String() string {
	if !g.Valid() {
		return "<invalid>"
	}
	return fmt.Sprintf("%s(%s)", g.Kind(), g.ID())
}

// SortBasic sorts in place by name and returns the slice.
func SortBasic(ts []BasicType) []BasicType {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

// SortComplex sorts in place by name and returns the slice.
func SortComplex(ts []ComplexType) []ComplexType {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}
