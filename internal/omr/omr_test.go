package omr

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedPage = `{
  "staves": [
    {"staff_no": "2", "num_lines": 4, "bounding_box": {"ulx": 100, "uly": 600, "ncols": 2000, "nrows": 200}},
    {"staff_no": 1, "num_lines": 4, "bounding_box": {"ulx": 100, "uly": 200, "ncols": 2000, "nrows": 200}}
  ],
  "glyphs": [
    {"glyph": {"name": "neume.punctum", "bounding_box": {"ulx": 300, "uly": 250, "ncols": 40, "nrows": 40}},
     "pitch": {"staff": "1", "offset": "300", "note": "G", "octave": "2", "clef": "clef.c", "strt_pos": "10"}},
    {"name": "clef.c", "bounding_box": {"x": 120, "y": 220, "width": 30, "height": 90},
     "staff": 1, "offset": 120, "note": "None", "octave": "None", "strt_pos": 3}
  ]
}`

func TestLoadPage_NestedAndFlatLayouts(t *testing.T) {
	page, err := LoadPage(strings.NewReader(nestedPage))
	require.NoError(t, err)

	require.Len(t, page.Staves, 2)
	assert.Equal(t, 1, page.Staves[0].Number, "staves are sorted by number")
	assert.Equal(t, 2200, page.Staves[1].Box.LRX())

	require.Len(t, page.Glyphs, 2)
	p := page.Glyphs[0]
	assert.Equal(t, "neume.punctum", p.Name)
	assert.Equal(t, "g", p.Note)
	assert.Equal(t, 2, p.Octave)
	assert.Equal(t, "clef.c", p.Clef)
	assert.Equal(t, 300, p.Offset)
	assert.True(t, p.Pitched())

	c := page.Glyphs[1]
	assert.Equal(t, BoundingBox{ULX: 120, ULY: 220, NCols: 30, NRows: 90}, c.Box)
	assert.False(t, c.Pitched())
	assert.Equal(t, 3, c.StrtPos)

	require.NoError(t, page.Validate())
}

func TestLoadSyllables_NormalizesText(t *testing.T) {
	// "e" followed by a combining acute accent.
	in := `{"median_line_spacing": 120.5, "syl_boxes": [{"ul": [10, 400], "lr": [80.4, 450], "syl": " Be\u0301 "}]}`
	d, err := LoadSyllables(strings.NewReader(in))
	require.NoError(t, err)

	assert.InDelta(t, 120.5, d.MedianLineSpacing, 1e-9)
	require.Len(t, d.SylBoxes, 1)
	assert.Equal(t, "B\u00e9", d.SylBoxes[0].Syl)
	assert.Equal(t, BoundingBox{ULX: 10, ULY: 400, NCols: 70, NRows: 50}, d.SylBoxes[0].Box())
}

func TestValidate_DegenerateBox(t *testing.T) {
	page := &Page{Glyphs: []Glyph{
		{Name: "neume.punctum", Box: BoundingBox{ULX: 1, ULY: 1, NCols: 10, NRows: 10}},
		{Name: "neume.clivis", Box: BoundingBox{ULX: 1, ULY: 1, NCols: 0, NRows: 10}},
	}}

	err := page.Validate()
	var geo *GeometryError
	require.True(t, errors.As(err, &geo))
	assert.Equal(t, 1, geo.Index)
	assert.Equal(t, "neume.clivis", geo.Name)
}

func TestAnnotate(t *testing.T) {
	in := []Glyph{
		{Name: "b", Staff: 2, Offset: 10},
		{Name: "a2", Staff: 1, Offset: 50},
		{Name: "a1", Staff: 1, Offset: 5},
		{Name: "c", Staff: 3, Offset: 1},
	}
	out := Annotate(in)

	names := make([]string, len(out))
	for i, g := range out {
		names[i] = g.Name
	}
	assert.Equal(t, []string{"a1", "a2", "b", "c"}, names)
	assert.Equal(t, []bool{false, true, true, false},
		[]bool{out[0].SystemBegin, out[1].SystemBegin, out[2].SystemBegin, out[3].SystemBegin})

	// the input is left untouched
	assert.Equal(t, "b", in[0].Name)
	assert.False(t, in[1].SystemBegin)
}

func TestNextStaff(t *testing.T) {
	staves := []Staff{{Number: 1}, {Number: 3}, {Number: 4}}

	s, ok := NextStaff(staves, 1)
	require.True(t, ok)
	assert.Equal(t, 3, s.Number)

	_, ok = NextStaff(staves, 4)
	assert.False(t, ok)
}
