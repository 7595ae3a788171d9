package classifier

import (
	"errors"
	"strings"
	"testing"

	"jsomr2mei/internal/pitch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheet = `Neume mapping,,,
revised,2019,,
Image,Encoding classifier,Encoding MEI,Notes
,neume.punctum,<neume><nc/></neume>,
,neume.pes,"<neume><nc/><nc intm=""1S""/></neume>",
,clef.c,<clef shape=“C”/>,curly quotes
,neume.broken,<neume><nc></neume>,
,,<neume/>,no name
,custos,<custós/>,accent
`

func TestLoad(t *testing.T) {
	table, rowErrs, err := Load(strings.NewReader(sheet))
	require.NoError(t, err)

	assert.Equal(t, []string{"clef.c", "custos", "neume.pes", "neume.punctum"}, table.Names())

	require.Len(t, rowErrs, 1)
	assert.Equal(t, "neume.broken", rowErrs[0].Name)
	assert.Equal(t, 7, rowErrs[0].Row)
	assert.Contains(t, rowErrs[0].Error(), "neume.broken")

	clef, ok := table.Lookup("clef.c")
	require.True(t, ok)
	shape, _ := clef.Attr("shape")
	assert.Equal(t, "C", shape)

	custos, ok := table.Lookup("custos")
	require.True(t, ok)
	assert.Equal(t, "custos", custos.Name, "diacritics are stripped before parsing")

	pes, ok := table.Lookup("neume.pes")
	require.True(t, ok)
	assert.Len(t, pes.ChildrenByName("nc"), 2)
}

func TestLoad_NoHeader(t *testing.T) {
	_, _, err := Load(strings.NewReader("a,b\nc,d\n"))
	assert.True(t, errors.Is(err, ErrNoHeader))
}

func TestLookup_TrimsSuffixes(t *testing.T) {
	table := Default()

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"neume.torculus.2.3", "neume", true},
		{"clef.f", "clef", true},
		{"clef.c.3", "clef", true},
		{" custos ", "custos", true},
		{"division.minima", "divLine", true},
		{"accid.flat", "accid", true},
		{"skip", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, ok := table.Lookup(tt.name)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, el.Name)
			}
		})
	}

	f, _ := table.Lookup("clef.f")
	shape, _ := f.Attr("shape")
	assert.Equal(t, "F", shape)
}

func TestLookup_IgnoresCase(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.AddXML("neume.pes", `<neume name="pes"><nc/><nc intm="u2"/></neume>`))
	require.NoError(t, table.AddXML("Clef.C", `<clef shape="C"/>`))

	pes, ok := table.Lookup("Neume.Pes.U2")
	require.True(t, ok)
	n, _ := pes.Attr("name")
	assert.Equal(t, "pes", n)

	_, ok = table.Lookup("clef.c")
	assert.True(t, ok)
	assert.Equal(t, []string{"clef.c", "neume.pes"}, table.Names())
}

func TestHash(t *testing.T) {
	build := func(pes string) *Table {
		table := NewTable()
		require.NoError(t, table.AddXML("neume.punctum", `<neume><nc/></neume>`))
		require.NoError(t, table.AddXML("neume.pes", pes))
		return table
	}

	a := build(`<neume><nc/><nc intm="u2"/></neume>`)
	b := build(`<neume><nc/><nc intm="u2"/></neume>`)
	c := build(`<neume><nc/><nc intm="u3"/></neume>`)

	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Len(), c.Len())
	assert.NotEqual(t, a.Hash(), c.Hash(), "an edited cell changes the fingerprint")
}

func TestMerge(t *testing.T) {
	base := Default()
	over := NewTable()
	require.NoError(t, over.AddXML("neume", `<neume><nc tilt="n"/></neume>`))

	n := base.Len()
	base.Merge(over)
	assert.Equal(t, n, base.Len())

	el, _ := base.Lookup("neume.punctum")
	tilt, ok := el.Children[0].Attr("tilt")
	assert.True(t, ok)
	assert.Equal(t, "n", tilt)
}

func TestParseIntm(t *testing.T) {
	tests := []struct {
		in   string
		want Step
	}{
		{"1S", Step{pitch.Up, 2}},
		{"+1", Step{pitch.Up, 2}},
		{"-2", Step{pitch.Down, 3}},
		{"0", Step{pitch.Same, 1}},
		{"u2", Step{pitch.Up, 2}},
		{"D3", Step{pitch.Down, 3}},
		{"s", Step{pitch.Same, 1}},
		{"u", Step{pitch.Up, 1}},
	}
	for _, tt := range tests {
		got, err := ParseIntm(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "x", "u0", "uu"} {
		_, err := ParseIntm(bad)
		assert.Error(t, err, bad)
	}
}

func TestChain(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.AddXML("neume.torculus", `<neume><nc/><nc intm="u2"/><nc intm="-1"/></neume>`))
	require.NoError(t, table.AddXML("neume.bistropha", `<neume><nc/><nc/></neume>`))

	tmpl, _ := table.Lookup("neume.torculus")
	cs, is, ok, err := Chain(tmpl)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []pitch.Contour{pitch.Up, pitch.Down}, cs)
	assert.Equal(t, []int{2, 2}, is)

	tmpl, _ = table.Lookup("neume.bistropha")
	cs, _, ok, err = Chain(tmpl)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []pitch.Contour{pitch.Same}, cs)

	_, _, ok, err = Chain(Default().entries["neume"])
	assert.NoError(t, err)
	assert.False(t, ok)
}
