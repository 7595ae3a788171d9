package omr

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// flexInt accepts JSON numbers, numeric strings and the "None" marker written by
// the pitch finder.
type flexInt struct {
	Value int
	Set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" || s == "None" {
		*f = flexInt{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*f = flexInt{Value: int(math.Round(v)), Set: true}
	return nil
}

// flexString accepts strings and numbers ("octave": 3 and "octave": "3" both occur).
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "None" {
			str = ""
		}
		*f = flexString(str)
		return nil
	}
	*f = flexString(s)
	return nil
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var raw struct {
		ULX    flexInt `json:"ulx"`
		ULY    flexInt `json:"uly"`
		NCols  flexInt `json:"ncols"`
		NRows  flexInt `json:"nrows"`
		LRX    flexInt `json:"lrx"`
		LRY    flexInt `json:"lry"`
		X      flexInt `json:"x"`
		Y      flexInt `json:"y"`
		Width  flexInt `json:"width"`
		Height flexInt `json:"height"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = BoundingBox{}
	switch {
	case raw.ULX.Set || raw.ULY.Set:
		b.ULX, b.ULY = raw.ULX.Value, raw.ULY.Value
	default:
		b.ULX, b.ULY = raw.X.Value, raw.Y.Value
	}
	switch {
	case raw.NCols.Set:
		b.NCols = raw.NCols.Value
	case raw.Width.Set:
		b.NCols = raw.Width.Value
	case raw.LRX.Set:
		b.NCols = raw.LRX.Value - b.ULX
	}
	switch {
	case raw.NRows.Set:
		b.NRows = raw.NRows.Value
	case raw.Height.Set:
		b.NRows = raw.Height.Value
	case raw.LRY.Set:
		b.NRows = raw.LRY.Value - b.ULY
	}
	return nil
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []flexInt
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(raw))
	}
	*p = Point{raw[0].Value, raw[1].Value}
	return nil
}

type glyphFields struct {
	Name flexString   `json:"name"`
	Box  *BoundingBox `json:"bounding_box"`
}

type pitchFields struct {
	Staff   flexInt    `json:"staff"`
	Offset  flexInt    `json:"offset"`
	Note    flexString `json:"note"`
	Octave  flexInt    `json:"octave"`
	Clef    flexString `json:"clef"`
	StrtPos flexInt    `json:"strt_pos"`
}

// UnmarshalJSON accepts both the flat glyph layout and the nested
// {"glyph": {...}, "pitch": {...}} layout of the pitch finder.
func (g *Glyph) UnmarshalJSON(data []byte) error {
	var raw struct {
		Glyph *glyphFields `json:"glyph"`
		Pitch *pitchFields `json:"pitch"`
		glyphFields
		pitchFields
		SystemBegin bool `json:"system_begin"`
		Group       int  `json:"group"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	gf := raw.glyphFields
	if raw.Glyph != nil {
		gf = *raw.Glyph
	}
	pf := raw.pitchFields
	if raw.Pitch != nil {
		pf = *raw.Pitch
	}

	*g = Glyph{
		Name:        strings.TrimSpace(string(gf.Name)),
		Staff:       pf.Staff.Value,
		Offset:      pf.Offset.Value,
		Note:        strings.ToLower(strings.TrimSpace(string(pf.Note))),
		Octave:      pf.Octave.Value,
		Clef:        strings.TrimSpace(string(pf.Clef)),
		StrtPos:     pf.StrtPos.Value,
		SystemBegin: raw.SystemBegin,
		Group:       raw.Group,
	}
	if gf.Box != nil {
		g.Box = *gf.Box
	}
	return nil
}

func (s *Staff) UnmarshalJSON(data []byte) error {
	var raw struct {
		Number   flexInt     `json:"staff_no"`
		NumLines flexInt     `json:"num_lines"`
		Box      BoundingBox `json:"bounding_box"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Staff{Number: raw.Number.Value, NumLines: raw.NumLines.Value, Box: raw.Box}
	return nil
}

// LoadPage decodes a JSOMR document.
func LoadPage(r io.Reader) (*Page, error) {
	var p Page
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode JSOMR: %w", err)
	}
	sort.SliceStable(p.Staves, func(i, j int) bool { return p.Staves[i].Number < p.Staves[j].Number })
	return &p, nil
}

// LoadSyllables decodes a text alignment document. Syllable text is
// normalized to NFC so that composed and decomposed diacritics compare equal.
func LoadSyllables(r io.Reader) (*SyllableData, error) {
	var d SyllableData
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode syllables: %w", err)
	}
	for i := range d.SylBoxes {
		d.SylBoxes[i].Syl = norm.NFC.String(strings.TrimSpace(d.SylBoxes[i].Syl))
	}
	return &d, nil
}
