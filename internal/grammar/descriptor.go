package grammar

import (
	"fmt"
	"strings"

	"jsomr2mei/internal/pitch"
)

type Category string

const (
	CategoryNeume    Category = "neume"
	CategoryClef     Category = "clef"
	CategoryCustos   Category = "custos"
	CategoryDivision Category = "division"
	CategoryAccid    Category = "accid"
	CategorySkip     Category = "skip"
)

var categories = map[string]Category{
	"neume":    CategoryNeume,
	"clef":     CategoryClef,
	"custos":   CategoryCustos,
	"division": CategoryDivision,
	"accid":    CategoryAccid,
	"skip":     CategorySkip,
}

type Modifier string

const (
	ModNone       Modifier = ""
	ModFlexus     Modifier = "flexus"
	ModResupinus  Modifier = "resupinus"
	ModSubpunctis Modifier = "subpunctis"
	ModRepeated   Modifier = "repeated"
)

var modifiers = map[string]Modifier{
	"flexus":     ModFlexus,
	"resupinus":  ModResupinus,
	"subpunctis": ModSubpunctis,
	"repeated":   ModRepeated,
}

// Kind tells how the component chain of a descriptor was obtained.
type Kind int

const (
	// KindPrimitive is a single-component symbol.
	KindPrimitive Kind = iota
	// KindExplicitChain spells its motion out in the variants ("u2.d3").
	KindExplicitChain
	// KindTabledContour takes contours from the shape table and intervals
	// from numeric variants.
	KindTabledContour
)

func (k Kind) String() string {
	switch k {
	case KindExplicitChain:
		return "explicit"
	case KindTabledContour:
		return "tabled"
	default:
		return "primitive"
	}
}

// Descriptor is the parsed form of a dotted glyph name.
type Descriptor struct {
	Name     string
	Category Category
	Base     string
	Styles   []string
	Modifier Modifier
	Variants []string

	Kind      Kind
	Contours  []pitch.Contour
	Intervals []int
}

// Components is the number of pitch-bearing components the name encodes.
func (d Descriptor) Components() int {
	return len(d.Contours) + 1
}

// Pitched reports whether the symbol is wrapped in a neume.
func (d Descriptor) Pitched() bool {
	return d.Category == CategoryNeume
}

// IsLigature marks right-attaching shapes.
func (d Descriptor) IsLigature() bool {
	return strings.Contains(d.Base, "ligature")
}

// IsInclinatum marks left-attaching shapes.
func (d Descriptor) IsInclinatum() bool {
	return strings.Contains(d.Base, "inclinatum")
}

// Key is the classification key without style, modifier or variant suffixes.
func (d Descriptor) Key() string {
	if d.Base == "" {
		return string(d.Category)
	}
	return string(d.Category) + "." + d.Base
}

func (d Descriptor) String() string {
	if d.Kind == KindPrimitive {
		return d.Key()
	}
	parts := make([]string, len(d.Contours))
	for i, c := range d.Contours {
		parts[i] = fmt.Sprintf("%s%d", c, d.Intervals[i])
	}
	return fmt.Sprintf("%s[%s]", d.Key(), strings.Join(parts, " "))
}

// ClassificationError means the name cannot be mapped to any category.
// The glyph must be skipped.
type ClassificationError struct {
	Name   string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("cannot classify %q: %s", e.Name, e.Reason)
}

// GrammarError means the name is malformed. The descriptor returned with it
// is still usable as a single-component symbol.
type GrammarError struct {
	Name   string
	Reason string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("malformed name %q: %s", e.Name, e.Reason)
}
