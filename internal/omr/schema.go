package omr

import "fmt"

// BoundingBox is a pixel rectangle in page coordinates.
type BoundingBox struct {
	ULX   int `json:"ulx"`
	ULY   int `json:"uly"`
	NCols int `json:"ncols"`
	NRows int `json:"nrows"`
}

func (b BoundingBox) LRX() int     { return b.ULX + b.NCols }
func (b BoundingBox) LRY() int     { return b.ULY + b.NRows }
func (b BoundingBox) CenterX() int { return b.ULX + b.NCols/2 }

// Degenerate reports whether the box has no area.
func (b BoundingBox) Degenerate() bool {
	return b.NCols <= 0 || b.NRows <= 0
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.ULX, b.ULY, b.LRX(), b.LRY())
}

// Glyph is one classified connected component produced by pitch finding.
type Glyph struct {
	Name    string      `json:"name"`
	Box     BoundingBox `json:"bounding_box"`
	Staff   int         `json:"staff"`
	Offset  int         `json:"offset"`
	Note    string      `json:"note,omitempty"`
	Octave  int         `json:"octave,omitempty"`
	Clef    string      `json:"clef,omitempty"`
	StrtPos int         `json:"strt_pos,omitempty"`

	// Derived fields, filled by Annotate and by grouping. Group 0 means
	// the glyph was never grouped and stands alone.
	SystemBegin bool `json:"system_begin"`
	Group       int  `json:"group"`
}

// Pitched reports whether the glyph carries a starting pitch.
func (g Glyph) Pitched() bool {
	return g.Note != ""
}

// Staff is a detected staff on the page.
type Staff struct {
	Number   int         `json:"staff_no"`
	NumLines int         `json:"num_lines"`
	Box      BoundingBox `json:"bounding_box"`
}

// Page is the JSOMR dataset of one manuscript page.
type Page struct {
	Staves []Staff `json:"staves"`
	Glyphs []Glyph `json:"glyphs"`
}

// Point is an (x, y) pixel coordinate.
type Point [2]int

// TextBox is a recognized text region with its literal content.
type TextBox struct {
	UL  Point  `json:"ul"`
	LR  Point  `json:"lr"`
	Syl string `json:"syl"`
}

func (t TextBox) Box() BoundingBox {
	return BoundingBox{ULX: t.UL[0], ULY: t.UL[1], NCols: t.LR[0] - t.UL[0], NRows: t.LR[1] - t.UL[1]}
}

// SyllableData is the output of the text alignment job for one page.
type SyllableData struct {
	MedianLineSpacing float64   `json:"median_line_spacing"`
	SylBoxes          []TextBox `json:"syl_boxes"`
}

// NextStaff returns the staff with the smallest number greater than n.
func NextStaff(staves []Staff, n int) (Staff, bool) {
	var best Staff
	found := false
	for _, s := range staves {
		if s.Number > n && (!found || s.Number < best.Number) {
			best = s
			found = true
		}
	}
	return best, found
}

type WarningKind string

const (
	WarnClassification WarningKind = "classification"
	WarnGrammar        WarningKind = "grammar"
	WarnGeometry       WarningKind = "geometry"
	WarnAlignment      WarningKind = "alignment"
)

// Warning is a recoverable per-glyph or per-syllable problem.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Index   int         `json:"index"` // glyph position in reading order, -1 if not applicable
	Name    string      `json:"name,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Index < 0 {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: glyph %d (%s): %s", w.Kind, w.Index, w.Name, w.Message)
}
