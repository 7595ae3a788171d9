package alignment

import (
	"testing"

	"jsomr2mei/internal/omr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glyph(name string, staff, x, y int) omr.Glyph {
	return omr.Glyph{
		Name:   name,
		Staff:  staff,
		Offset: x,
		Box:    omr.BoundingBox{ULX: x, ULY: y, NCols: 20, NRows: 20},
	}
}

func box(syl string, x, y int) omr.TextBox {
	return omr.TextBox{UL: omr.Point{x, y}, LR: omr.Point{x + 60, y + 40}, Syl: syl}
}

func names(gs []omr.Glyph) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.Name
	}
	return out
}

func concat(pairs []Pair) []omr.Glyph {
	var out []omr.Glyph
	for _, p := range pairs {
		out = append(out, p.Glyphs...)
	}
	return out
}

func TestAlign_AnchorsLeftmostCandidate(t *testing.T) {
	glyphs := []omr.Glyph{
		glyph("a", 1, 10, 100),
		glyph("b", 1, 50, 100),
		glyph("c", 1, 210, 100),
		glyph("d", 1, 260, 100),
	}
	boxes := []omr.TextBox{box("Ky", 0, 180), box("ri", 200, 180)}

	al := Align(glyphs, boxes, 100, DefaultOptions())
	require.Len(t, al.Pairs, 2)
	assert.Equal(t, []int{0, 2, 4}, al.Boundaries)
	assert.Equal(t, []string{"a", "b"}, names(al.Pairs[0].Glyphs))
	assert.Equal(t, "Ky", al.Pairs[0].Text.Syl)
	assert.True(t, al.Pairs[0].HasText)
	assert.Equal(t, []string{"c", "d"}, names(al.Pairs[1].Glyphs))
	assert.Equal(t, "ri", al.Pairs[1].Text.Syl)
}

func TestAlign_LeadingGlyphsGetPlaceholder(t *testing.T) {
	glyphs := []omr.Glyph{
		glyph("clef", 1, 10, 100),
		glyph("b", 1, 50, 100),
	}
	boxes := []omr.TextBox{box("Al", 40, 180)}

	al := Align(glyphs, boxes, 100, DefaultOptions())
	require.Len(t, al.Pairs, 2)
	assert.False(t, al.Pairs[0].HasText)
	assert.Equal(t, []string{"clef"}, names(al.Pairs[0].Glyphs))
	assert.Equal(t, []string{"b"}, names(al.Pairs[1].Glyphs))
}

func TestAlign_BoxWithoutAnchor(t *testing.T) {
	glyphs := []omr.Glyph{
		glyph("a", 1, 10, 100),
		glyph("b", 1, 210, 100),
	}
	// the middle box is far below any glyph
	boxes := []omr.TextBox{box("one", 0, 180), box("lost", 100, 900), box("two", 200, 180)}

	al := Align(glyphs, boxes, 100, DefaultOptions())
	assert.Equal(t, []int{0, 0, 1, 2}, al.Boundaries)
	require.Len(t, al.Pairs, 3)
	assert.Empty(t, al.Pairs[0].Glyphs)
	assert.Equal(t, []string{"a"}, names(al.Pairs[1].Glyphs))
	assert.Equal(t, []string{"b"}, names(al.Pairs[2].Glyphs))
}

func TestAlign_WindowOption(t *testing.T) {
	glyphs := []omr.Glyph{glyph("a", 1, 10, 100)}
	boxes := []omr.TextBox{box("x", 0, 180)}

	al := Align(glyphs, boxes, 100, Options{Window: 0.5})
	assert.Equal(t, []int{0, 1}, al.Boundaries, "glyph 80px above is outside a 50px window")
	require.Len(t, al.Pairs, 1)
	assert.Len(t, al.Pairs[0].Glyphs, 1)
}

func TestAlign_MonotonicAndLossless(t *testing.T) {
	var glyphs []omr.Glyph
	for staff := 1; staff <= 3; staff++ {
		y := staff * 300
		for x := 100; x < 1000; x += 90 {
			glyphs = append(glyphs, glyph("g", staff, x, y))
		}
	}
	var boxes []omr.TextBox
	for staff := 1; staff <= 3; staff++ {
		for x := 80; x < 1000; x += 250 {
			boxes = append(boxes, box("s", x, staff*300+60))
		}
	}

	al := Align(glyphs, boxes, 120, DefaultOptions())
	for i := 1; i < len(al.Boundaries); i++ {
		assert.LessOrEqual(t, al.Boundaries[i-1], al.Boundaries[i])
	}
	assert.Equal(t, glyphs, concat(al.Pairs))
}

func TestAlign_NoTextFallsBackToStaves(t *testing.T) {
	glyphs := []omr.Glyph{
		glyph("a", 1, 10, 100),
		glyph("b", 1, 50, 100),
		glyph("c", 2, 10, 400),
	}

	al := Align(glyphs, nil, 0, DefaultOptions())
	assert.Nil(t, al.Boundaries)
	require.Len(t, al.Pairs, 2)
	assert.Equal(t, []string{"a", "b"}, names(al.Pairs[0].Glyphs))
	assert.Equal(t, []string{"c"}, names(al.Pairs[1].Glyphs))
	for _, p := range al.Pairs {
		assert.False(t, p.HasText)
	}
}

func TestAlign_NoGlyphs(t *testing.T) {
	boxes := []omr.TextBox{box("a", 0, 100), box("b", 100, 100)}

	al := Align(nil, boxes, 100, DefaultOptions())
	assert.Equal(t, []int{0, 0, 0}, al.Boundaries)
	require.Len(t, al.Pairs, 2)
	for _, p := range al.Pairs {
		assert.Empty(t, p.Glyphs)
	}
	assert.Empty(t, Align(nil, nil, 0, DefaultOptions()).Pairs)
}
