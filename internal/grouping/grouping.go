// Package grouping fuses adjacent primitive neume glyphs into compound
// symbols using inter-glyph spacing relative to a page-wide reference width.
package grouping

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"jsomr2mei/internal/grammar"
	"jsomr2mei/internal/omr"
)

// ErrUndefinedReferenceWidth is a page-level geometry failure.
var ErrUndefinedReferenceWidth = errors.New("undefined reference width")

type Options struct {
	// MaxSpacing is the largest gap, as a fraction of the reference width,
	// across which two groups still merge. Zero or less turns grouping off.
	MaxSpacing float64
	// MaxSize caps the number of glyphs a spacing merge may produce.
	MaxSize int
	// ReferenceShape is the base shape whose median width is the reference.
	ReferenceShape string
}

func DefaultOptions() Options {
	return Options{MaxSpacing: 0.3, MaxSize: 8, ReferenceShape: "punctum"}
}

// Group is an ordered run of glyph indices with its horizontal extent.
type Group struct {
	Members []int
	Left    int
	Right   int
}

func (g *Group) absorb(o *Group) {
	g.Members = append(g.Members, o.Members...)
	if o.Left < g.Left {
		g.Left = o.Left
	}
	if o.Right > g.Right {
		g.Right = o.Right
	}
}

type Result struct {
	Groups         []Group
	ReferenceWidth float64
	// Annotated holds copies of the input glyphs with Group set to the
	// 1-based index of their group.
	Annotated []omr.Glyph
}

type Grouper struct {
	opts Options
}

func New(opts Options) *Grouper {
	return &Grouper{opts: opts}
}

// ReferenceWidth is the median width of the reference shape. Pages without
// that shape fall back to the median width of all neume glyphs.
func ReferenceWidth(glyphs []omr.Glyph, descs []grammar.Descriptor, shape string) float64 {
	var ref, all []float64
	for i, g := range glyphs {
		if !descs[i].Pitched() {
			continue
		}
		w := float64(g.Box.NCols)
		all = append(all, w)
		if descs[i].Base == shape {
			ref = append(ref, w)
		}
	}
	if len(ref) > 0 {
		return median(ref)
	}
	return median(all)
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// Group partitions glyphs (in reading order, descs aligned by index) into
// compound symbols. Only consecutive neume glyphs on the same staff merge.
func (gr *Grouper) Group(glyphs []omr.Glyph, descs []grammar.Descriptor) (*Result, error) {
	if len(glyphs) != len(descs) {
		return nil, fmt.Errorf("glyph/descriptor length mismatch: %d != %d", len(glyphs), len(descs))
	}

	if gr.opts.MaxSpacing <= 0 {
		return ungrouped(glyphs), nil
	}

	res := &Result{}
	hasNeume := false
	for _, d := range descs {
		if d.Pitched() {
			hasNeume = true
			break
		}
	}
	if hasNeume {
		res.ReferenceWidth = ReferenceWidth(glyphs, descs, gr.opts.ReferenceShape)
		if res.ReferenceWidth <= 0 || math.IsNaN(res.ReferenceWidth) {
			return nil, ErrUndefinedReferenceWidth
		}
	}
	maxDist := gr.opts.MaxSpacing * res.ReferenceWidth

	for i := 0; i < len(glyphs); {
		if !descs[i].Pitched() {
			res.Groups = append(res.Groups, singleton(glyphs, i))
			i++
			continue
		}
		j := i + 1
		for j < len(glyphs) && descs[j].Pitched() && glyphs[j].Staff == glyphs[i].Staff {
			j++
		}
		res.Groups = append(res.Groups, gr.groupRun(glyphs, descs, i, j, maxDist)...)
		i = j
	}

	res.Annotated = make([]omr.Glyph, len(glyphs))
	copy(res.Annotated, glyphs)
	for id, g := range res.Groups {
		for _, m := range g.Members {
			res.Annotated[m].Group = id + 1
		}
	}
	return res, nil
}

// ungrouped leaves every glyph on its own with Group 0, for callers that
// rely on the merge post-pass alone.
func ungrouped(glyphs []omr.Glyph) *Result {
	res := &Result{Annotated: make([]omr.Glyph, len(glyphs))}
	for i := range glyphs {
		res.Groups = append(res.Groups, singleton(glyphs, i))
		res.Annotated[i] = glyphs[i]
		res.Annotated[i].Group = 0
	}
	return res
}

func singleton(glyphs []omr.Glyph, i int) Group {
	return Group{Members: []int{i}, Left: glyphs[i].Box.ULX, Right: glyphs[i].Box.LRX()}
}

func (gr *Grouper) fits(a, b *Group) bool {
	return len(a.Members)+len(b.Members) <= gr.opts.MaxSize
}

// hasLigature is true when any member is right-attaching, including a
// ligature that already picked up inclinata on its right.
func hasLigature(g *Group, descs []grammar.Descriptor) bool {
	for _, m := range g.Members {
		if descs[m].IsLigature() {
			return true
		}
	}
	return false
}

// groupRun applies the merge rules to glyphs[from:to].
func (gr *Grouper) groupRun(glyphs []omr.Glyph, descs []grammar.Descriptor, from, to int, maxDist float64) []Group {
	groups := make([]*Group, 0, to-from)
	for i := from; i < to; i++ {
		g := singleton(glyphs, i)
		groups = append(groups, &g)
	}

	// A: left-attaching shapes join the group on their left. MaxSize wins
	// over all three rules.
	for k := 1; k < len(groups); {
		if descs[groups[k].Members[0]].IsInclinatum() && gr.fits(groups[k-1], groups[k]) {
			groups[k-1].absorb(groups[k])
			groups = append(groups[:k], groups[k+1:]...)
			continue
		}
		k++
	}

	// B: right-attaching shapes pull in the group on their right. Scanning
	// right to left lets ligature chains collapse into one group.
	for k := len(groups) - 2; k >= 0; k-- {
		if hasLigature(groups[k], descs) && gr.fits(groups[k], groups[k+1]) {
			groups[k].absorb(groups[k+1])
			groups = append(groups[:k+1], groups[k+2:]...)
		}
	}

	// C: spacing merge into the nearer left neighbour.
	for k := 1; k < len(groups); {
		prevGap := float64(groups[k].Left - groups[k-1].Right)
		nextGap := math.Inf(1)
		if k+1 < len(groups) {
			nextGap = float64(groups[k+1].Left - groups[k].Right)
		}
		if prevGap <= nextGap && prevGap < maxDist && gr.fits(groups[k-1], groups[k]) {
			groups[k-1].absorb(groups[k])
			groups = append(groups[:k], groups[k+1:]...)
			continue
		}
		k++
	}

	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = *g
	}
	return out
}
