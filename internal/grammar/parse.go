// Package grammar parses the dotted glyph names produced by the classifier,
// e.g. "neume.torculus.a.2.3" or "neume.compound.u2.d3", into descriptors.
package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"jsomr2mei/internal/pitch"
)

// shapeContours holds the motion of the canonical compound shapes.
var shapeContours = map[string][]pitch.Contour{
	"pes":        {pitch.Up},
	"podatus":    {pitch.Up},
	"epiphonus":  {pitch.Up},
	"clivis":     {pitch.Down},
	"cephalicus": {pitch.Down},
	"porrectus":  {pitch.Down, pitch.Up},
	"torculus":   {pitch.Up, pitch.Down},
	"scandicus":  {pitch.Up, pitch.Up},
	"salicus":    {pitch.Up, pitch.Up},
	"climacus":   {pitch.Down, pitch.Down},
	"pressus":    {pitch.Same, pitch.Down},
	"ligature":   {pitch.Down},
}

type tokenKind int

const (
	tokStyle tokenKind = iota
	tokModifier
	tokVariant
)

type token struct {
	kind tokenKind
	text string
}

// tokenize classifies the elements after the base name. Style tags are only
// recognized in the positions the naming convention allows them: first, or
// directly after a modifier.
func tokenize(rest []string) []token {
	out := make([]token, 0, len(rest))
	i := 0
	if i < len(rest) && isStyle(rest[i]) {
		out = append(out, token{tokStyle, rest[i]})
		i++
	}
	if i < len(rest) {
		if _, ok := modifiers[rest[i]]; ok {
			out = append(out, token{tokModifier, rest[i]})
			i++
			if i < len(rest) && isStyle(rest[i]) {
				out = append(out, token{tokStyle, rest[i]})
				i++
			}
		}
	}
	for ; i < len(rest); i++ {
		out = append(out, token{tokVariant, rest[i]})
	}
	return out
}

func isStyle(s string) bool {
	return s == "a" || s == "b"
}

// Parse turns a glyph name into a descriptor.
//
// A *ClassificationError is returned for names whose category is unknown.
// A *GrammarError is returned together with a valid single-component
// descriptor when the variants are malformed.
func Parse(name string) (Descriptor, error) {
	name = strings.TrimSpace(name)
	fields := strings.Split(strings.ToLower(name), ".")
	cat, ok := categories[fields[0]]
	if !ok {
		return Descriptor{Name: name}, &ClassificationError{Name: name, Reason: fmt.Sprintf("unknown category %q", fields[0])}
	}

	d := Descriptor{Name: name, Category: cat}
	if len(fields) > 1 {
		d.Base = fields[1]
	}
	if len(fields) < 3 {
		return d, nil
	}

	for _, tok := range tokenize(fields[2:]) {
		switch tok.kind {
		case tokStyle:
			d.Styles = append(d.Styles, tok.text)
		case tokModifier:
			d.Modifier = modifiers[tok.text]
		case tokVariant:
			d.Variants = append(d.Variants, tok.text)
		}
	}

	var err error
	switch {
	case d.Modifier != ModNone || d.Base == "compound":
		d.Contours, d.Intervals, err = explicitChain(d.Modifier, d.Variants)
		d.Kind = KindExplicitChain
	case shapeContours[d.Base] != nil && len(d.Variants) > 0:
		d.Contours, d.Intervals, err = tabledChain(shapeContours[d.Base], d.Variants)
		d.Kind = KindTabledContour
	}
	if err != nil {
		d.Kind, d.Contours, d.Intervals = KindPrimitive, nil, nil
		return d, &GrammarError{Name: name, Reason: err.Error()}
	}
	if len(d.Contours) == 0 {
		d.Kind = KindPrimitive
	}
	return d, nil
}

func explicitChain(mod Modifier, variants []string) ([]pitch.Contour, []int, error) {
	if mod == ModRepeated && len(variants) == 1 {
		if n, err := strconv.Atoi(variants[0]); err == nil {
			if n < 1 {
				return nil, nil, fmt.Errorf("repetition count %d", n)
			}
			contours := make([]pitch.Contour, n)
			intervals := make([]int, n)
			for i := range intervals {
				contours[i] = pitch.Same
				intervals[i] = 1
			}
			return contours, intervals, nil
		}
	}
	if len(variants) == 0 {
		return nil, nil, fmt.Errorf("%s without motion variants", orCompound(mod))
	}

	contours := make([]pitch.Contour, 0, len(variants))
	intervals := make([]int, 0, len(variants))
	for _, v := range variants {
		c, n, err := parseStep(v)
		if err != nil {
			return nil, nil, err
		}
		contours = append(contours, c)
		intervals = append(intervals, n)
	}
	return contours, intervals, nil
}

func orCompound(mod Modifier) string {
	if mod == ModNone {
		return "compound"
	}
	return string(mod)
}

// parseStep reads "u2", "d3", "s" or "s1".
func parseStep(v string) (pitch.Contour, int, error) {
	if v == "" {
		return 0, 0, fmt.Errorf("empty variant")
	}
	c, ok := pitch.ParseContour(v[:1])
	if !ok {
		return 0, 0, fmt.Errorf("variant %q has no contour letter", v)
	}
	if len(v) == 1 {
		if c == pitch.Same {
			return c, 1, nil
		}
		return 0, 0, fmt.Errorf("variant %q has no interval", v)
	}
	n, err := strconv.Atoi(v[1:])
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("variant %q has invalid interval", v)
	}
	return c, n, nil
}

func tabledChain(table []pitch.Contour, variants []string) ([]pitch.Contour, []int, error) {
	intervals := make([]int, 0, len(table))
	for i, v := range variants {
		n, err := strconv.Atoi(v)
		if err != nil {
			// a variant may repeat the table's contour letter, e.g. "pes.u2"
			c, m, serr := parseStep(v)
			pos := i
			if table[0] == pitch.Same && len(variants) < len(table) {
				pos++
			}
			if serr != nil || pos >= len(table) || c != table[pos] {
				return nil, nil, fmt.Errorf("variant %q is not an interval", v)
			}
			n = m
		}
		if n < 1 {
			return nil, nil, fmt.Errorf("interval %d below 1", n)
		}
		intervals = append(intervals, n)
	}

	if table[0] == pitch.Same && len(intervals) == len(table)-1 {
		intervals = append([]int{1}, intervals...)
	}
	if len(intervals) != len(table) {
		return nil, nil, fmt.Errorf("expected %d intervals, got %d", len(table), len(intervals))
	}

	contours := make([]pitch.Contour, len(table))
	copy(contours, table)
	return contours, intervals, nil
}
