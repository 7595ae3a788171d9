package omr

import (
	"fmt"
	"sort"
)

// GeometryError reports a degenerate box. It is fatal for the page.
type GeometryError struct {
	Subject string // "glyph" or "staff"
	Index   int
	Name    string
	Box     BoundingBox
}

func (e *GeometryError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("degenerate %s bounding box %v at %d (%s)", e.Subject, e.Box, e.Index, e.Name)
	}
	return fmt.Sprintf("degenerate %s bounding box %v at %d", e.Subject, e.Box, e.Index)
}

// Validate checks that every glyph and staff has a non-empty bounding box.
func (p *Page) Validate() error {
	for i, s := range p.Staves {
		if s.Box.Degenerate() {
			return &GeometryError{Subject: "staff", Index: i, Box: s.Box}
		}
	}
	for i, g := range p.Glyphs {
		if g.Box.Degenerate() {
			return &GeometryError{Subject: "glyph", Index: i, Name: g.Name, Box: g.Box}
		}
	}
	return nil
}

// Annotate returns a copy of glyphs sorted by staff, then offset, with
// SystemBegin set on every glyph that is followed by a glyph on a higher staff.
// The input slice is not modified.
func Annotate(glyphs []Glyph) []Glyph {
	out := make([]Glyph, len(glyphs))
	copy(out, glyphs)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Staff != out[j].Staff {
			return out[i].Staff < out[j].Staff
		}
		return out[i].Offset < out[j].Offset
	})

	for i := range out {
		out[i].SystemBegin = i < len(out)-1 && out[i].Staff < out[i+1].Staff
	}
	return out
}
