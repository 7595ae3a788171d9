// Package assembler turns aligned glyph/text pairs into an MEI document:
// syllables holding neumes with pitched, located components, plus the
// clefs, custodes, divisions and system breaks around them.
package assembler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"jsomr2mei/internal/alignment"
	"jsomr2mei/internal/classifier"
	"jsomr2mei/internal/grammar"
	"jsomr2mei/internal/mei"
	"jsomr2mei/internal/omr"
	"jsomr2mei/internal/pitch"
)

type Options struct {
	Version string
	Title   string
	// Seed makes element IDs reproducible; use something page specific.
	Seed string
	// LigatureWidthUnits is the grid width of one ligature component when
	// a glyph box is split into component boxes.
	LigatureWidthUnits float64
}

func DefaultOptions() Options {
	return Options{Version: "4.0.0", LigatureWidthUnits: 2}
}

type Stats struct {
	Syllables   int `json:"syllables"`
	Neumes      int `json:"neumes"`
	Components  int `json:"components"`
	Zones       int `json:"zones"`
	Skipped     int `json:"skipped"`
	OrphanTexts int `json:"orphan_texts"`
}

type Result struct {
	Doc      *mei.Document
	Warnings []omr.Warning
	Stats    Stats
}

// Merge runs MergeNearby on the document and keeps Stats in step.
func (r *Result) Merge(widthMultiplier float64) int {
	n := MergeNearby(r.Doc, widthMultiplier)
	r.Stats.Neumes -= n
	return n
}

type Assembler struct {
	table *classifier.Table
	opts  Options
}

func New(table *classifier.Table, opts Options) *Assembler {
	if table == nil {
		table = classifier.Default()
	}
	return &Assembler{table: table, opts: opts}
}

// unit is one glyph prepared for emission.
type unit struct {
	glyph omr.Glyph
	index int
	desc  grammar.Descriptor
	tmpl  *mei.Element
	skip  bool
}

func (u unit) pitched() bool {
	return !u.skip && u.desc.Pitched()
}

// pass holds the state of one Assemble call.
type pass struct {
	a        *Assembler
	doc      *mei.Document
	staves   []omr.Staff
	res      *Result
	syllable *mei.Element
	neume    *mei.Element
	group    int
}

// Assemble builds the document. pairs must cover the page's glyphs in
// reading order, as produced by alignment.Align.
func (a *Assembler) Assemble(pairs []alignment.Pair, staves []omr.Staff) (*Result, error) {
	doc, err := mei.NewDocument(mei.DocOptions{
		Version:    a.opts.Version,
		Title:      a.opts.Title,
		StaffLines: staffLines(staves),
		Seed:       a.opts.Seed,
	})
	if err != nil {
		return nil, err
	}

	p := &pass{a: a, doc: doc, staves: staves, res: &Result{Doc: doc}}
	offset := 0
	for _, pair := range pairs {
		units := make([]unit, len(pair.Glyphs))
		for k, g := range pair.Glyphs {
			units[k] = p.prepare(g, offset+k)
		}
		p.emitPair(pair, units)
		offset += len(pair.Glyphs)
	}

	p.res.Stats.Zones = doc.Surface.Len()
	return p.res, nil
}

func staffLines(staves []omr.Staff) int {
	for _, s := range staves {
		if s.NumLines > 0 {
			return s.NumLines
		}
	}
	return 4
}

func (p *pass) warn(kind omr.WarningKind, u unit, format string, args ...any) {
	p.res.Warnings = append(p.res.Warnings, omr.Warning{
		Kind:    kind,
		Index:   u.index,
		Name:    u.glyph.Name,
		Message: fmt.Sprintf(format, args...),
	})
}

// prepare classifies a glyph. Glyphs that cannot be emitted are marked
// skip but still take part in system break placement.
func (p *pass) prepare(g omr.Glyph, index int) unit {
	u := unit{glyph: g, index: index}

	desc, err := grammar.Parse(g.Name)
	var cerr *grammar.ClassificationError
	var gerr *grammar.GrammarError
	switch {
	case errors.As(err, &cerr):
		p.warn(omr.WarnClassification, u, "%s", cerr.Reason)
		u.skip = true
		return u
	case errors.As(err, &gerr):
		p.warn(omr.WarnGrammar, u, "%s, treated as a single component", gerr.Reason)
	}
	u.desc = desc

	if desc.Category == grammar.CategorySkip {
		u.skip = true
		return u
	}

	tmpl, ok := p.a.table.Lookup(g.Name)
	if !ok {
		p.warn(omr.WarnClassification, u, "not found in mapping table")
		u.skip = true
		return u
	}
	u.tmpl = tmpl

	if desc.Pitched() {
		if _, err := pitch.ParseNote(g.Note); err != nil {
			p.warn(omr.WarnClassification, u, "neume without a starting pitch")
			u.skip = true
		}
	}
	return u
}

func (p *pass) emitPair(pair alignment.Pair, units []unit) {
	// pitchedFrom[k] reports whether units[k:] holds a pitched unit.
	pitchedFrom := make([]bool, len(units)+1)
	for k := len(units) - 1; k >= 0; k-- {
		pitchedFrom[k] = pitchedFrom[k+1] || units[k].pitched()
	}

	if pair.HasText && !pitchedFrom[0] {
		p.res.Stats.OrphanTexts++
		p.res.Warnings = append(p.res.Warnings, omr.Warning{
			Kind:    omr.WarnAlignment,
			Index:   -1,
			Name:    pair.Text.Syl,
			Message: fmt.Sprintf("text %q at %s has no neumes and is dropped", pair.Text.Syl, pair.Text.Box()),
		})
	}

	p.syllable = nil
	p.neume = nil
	for k, u := range units {
		// once the syllable is over, nothing else goes into it
		inside := pitchedFrom[k]
		if u.skip {
			p.res.Stats.Skipped++
			p.neume = nil
		} else if u.pitched() {
			p.emitNeume(pair, u)
		} else {
			p.neume = nil
			el := p.primitive(u)
			if inside {
				p.openSyllable(pair).AddChild(el)
			} else {
				p.doc.Layer().AddChild(el)
			}
		}

		if !u.glyph.SystemBegin {
			continue
		}
		sb := p.systemBreak(u)
		if pitchedFrom[k+1] {
			p.openSyllable(pair).AddChild(sb)
		} else {
			p.doc.Layer().AddChild(sb)
		}
		p.neume = nil
	}
}

// openSyllable returns the pair's syllable, creating it on first use. The
// syl is empty and the zone is left out for placeholder pairs.
func (p *pass) openSyllable(pair alignment.Pair) *mei.Element {
	if p.syllable != nil {
		return p.syllable
	}
	syl := p.doc.NewElement("syllable")
	text := p.doc.NewElement("syl")
	if pair.HasText {
		p.doc.Facs(syl, pair.Text.Box())
		text.Text = pair.Text.Syl
	}
	syl.AddChild(text)
	p.doc.Layer().AddChild(syl)
	p.res.Stats.Syllables++
	p.syllable = syl
	return syl
}

func (p *pass) systemBreak(u unit) *mei.Element {
	sb := p.doc.NewElement("sb")
	staff, ok := omr.NextStaff(p.staves, u.glyph.Staff)
	if !ok {
		p.warn(omr.WarnGeometry, u, "no staff after staff %d for the system break", u.glyph.Staff)
		return sb
	}
	p.doc.Facs(sb, staff.Box)
	return sb
}

// primitive emits a clef, custos, division or accidental.
func (p *pass) primitive(u unit) *mei.Element {
	el := p.doc.Instantiate(u.tmpl)
	g := u.glyph

	switch u.desc.Category {
	case grammar.CategoryClef:
		if _, ok := el.Attr("shape"); !ok && u.desc.Base != "" {
			el.SetAttr("shape", strings.ToUpper(u.desc.Base[:1]))
		}
		el.SetAttr("line", strconv.Itoa(g.StrtPos))
	case grammar.CategoryCustos, grammar.CategoryAccid:
		if n, err := pitch.ParseNote(g.Note); err == nil {
			el.SetAttr("pname", n.String())
			el.SetAttr("oct", strconv.Itoa(g.Octave))
		}
	}
	p.doc.Facs(el, g.Box)
	return el
}

// emitNeume appends the components of a pitched glyph, either to the
// neume of the previous glyph when both share a group, or to a new one.
func (p *pass) emitNeume(pair alignment.Pair, u unit) {
	if p.neume == nil || u.glyph.Group == 0 || u.glyph.Group != p.group {
		p.neume = p.doc.NewElement("neume")
		for _, at := range u.tmpl.Attrs {
			p.neume.SetAttr(at.Name, at.Value)
		}
		p.openSyllable(pair).AddChild(p.neume)
		p.res.Stats.Neumes++
	}
	p.group = u.glyph.Group

	for _, nc := range p.components(u) {
		p.neume.AddChild(nc)
	}
}

// components resolves the pitch chain of one glyph and creates its nc
// elements with their zones.
func (p *pass) components(u unit) []*mei.Element {
	g := u.glyph
	contours, intervals := u.desc.Contours, u.desc.Intervals
	if u.desc.Kind == grammar.KindPrimitive {
		cs, is, ok, err := classifier.Chain(u.tmpl)
		if err != nil {
			p.warn(omr.WarnGrammar, u, "template: %v", err)
		} else if ok {
			contours, intervals = cs, is
		}
	}

	note, _ := pitch.ParseNote(g.Note)
	ref, err := pitch.ParseClefRef(g.Clef)
	if err != nil {
		p.warn(omr.WarnGrammar, u, "clef %q: %v, using c", g.Clef, err)
		ref = 'c'
	}
	start := pitch.Pitch{Note: note, Octave: g.Octave, ClefRef: ref}
	pitches, err := pitch.Chain(start, contours, intervals)
	if err != nil {
		p.warn(omr.WarnGrammar, u, "cannot resolve pitches: %v, treated as a single component", err)
		contours, intervals = nil, nil
		pitches = []pitch.Pitch{start}
	}

	boxes := SubBoxes(g.Box, contours, intervals, u.desc.IsLigature(), p.a.opts.LigatureWidthUnits)
	ncTmpls := u.tmpl.ChildrenByName("nc")

	out := make([]*mei.Element, len(pitches))
	for i, pt := range pitches {
		var nc *mei.Element
		if len(ncTmpls) > 0 {
			nc = p.doc.Instantiate(ncTmpls[min(i, len(ncTmpls)-1)])
			nc.RemoveAttr("intm")
		} else {
			nc = p.doc.NewElement("nc")
		}
		nc.SetAttr("pname", pt.Note.String())
		nc.SetAttr("oct", strconv.Itoa(pt.Octave))
		if u.desc.IsLigature() {
			if _, ok := nc.Attr("ligated"); !ok {
				nc.SetAttr("ligated", "true")
			}
		}
		if u.desc.IsInclinatum() {
			if _, ok := nc.Attr("tilt"); !ok {
				nc.SetAttr("tilt", "se")
			}
		}
		p.doc.Facs(nc, boxes[i])
		out[i] = nc
	}
	p.res.Stats.Components += len(out)
	return out
}
