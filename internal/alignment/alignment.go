// Package alignment pairs glyph subsequences with the text boxes of the
// syllables sung under them.
package alignment

import (
	"jsomr2mei/internal/omr"
)

type Options struct {
	// Window is the height, in median line spacings, of the band above a
	// text box in which anchor glyphs are searched.
	Window float64
}

func DefaultOptions() Options {
	return Options{Window: 1.0}
}

// Pair is a run of glyphs and the text box it belongs to. HasText is false
// for placeholder pairs (leading glyphs, pages without text).
type Pair struct {
	Glyphs  []omr.Glyph
	Text    omr.TextBox
	HasText bool
}

type Alignment struct {
	Pairs []Pair
	// Boundaries holds the start index of every text box's glyph run plus
	// len(glyphs). It is nil when there were no text boxes.
	Boundaries []int
}

// Align assigns every text box an anchor glyph in one greedy left-to-right
// pass. glyphs must be in reading order (see omr.Annotate) and boxes in
// reading order too. The result never reorders, drops or duplicates glyphs.
func Align(glyphs []omr.Glyph, boxes []omr.TextBox, medianLineSpacing float64, opts Options) Alignment {
	if len(boxes) == 0 {
		return Alignment{Pairs: ByStaff(glyphs)}
	}

	window := opts.Window * medianLineSpacing
	starts := make([]int, 0, len(boxes)+1)
	lastUsed := 0

	for _, box := range boxes {
		anchor := -1
		top := float64(box.UL[1])
		for i := lastUsed; i < len(glyphs); i++ {
			g := glyphs[i].Box
			uly := float64(g.ULY)
			if !(top-window < uly && uly < top) {
				continue
			}
			if box.UL[0] >= g.ULX+g.NCols/2 {
				continue
			}
			if anchor < 0 || g.ULX < glyphs[anchor].Box.ULX {
				anchor = i
			}
		}

		if anchor < 0 {
			starts = append(starts, lastUsed)
			continue
		}
		starts = append(starts, anchor)
		if anchor > lastUsed {
			lastUsed = anchor
		}
	}
	starts = append(starts, len(glyphs))

	pairs := make([]Pair, 0, len(boxes)+1)
	if starts[0] != 0 {
		pairs = append(pairs, Pair{Glyphs: glyphs[:starts[0]]})
	}
	for i, box := range boxes {
		pairs = append(pairs, Pair{
			Glyphs:  glyphs[starts[i]:starts[i+1]],
			Text:    box,
			HasText: true,
		})
	}

	return Alignment{Pairs: pairs, Boundaries: starts}
}

// ByStaff is the fallback used without text data: one placeholder pair per
// staff, in staff order.
func ByStaff(glyphs []omr.Glyph) []Pair {
	var pairs []Pair
	start := 0
	for i := 1; i <= len(glyphs); i++ {
		if i == len(glyphs) || glyphs[i].Staff != glyphs[start].Staff {
			pairs = append(pairs, Pair{Glyphs: glyphs[start:i]})
			start = i
		}
	}
	return pairs
}
