// Package classifier loads the table that maps glyph classification names
// to MEI element templates.
package classifier

import (
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"jsomr2mei/internal/mei"
	"jsomr2mei/internal/pitch"
)

const (
	NameColumn = "Encoding classifier"
	MEIColumn  = "Encoding MEI"
)

var ErrNoHeader = errors.New("no header row with " + NameColumn + " and " + MEIColumn)

// RowError describes a table row that was skipped.
type RowError struct {
	Row  int
	Name string
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Name, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Table maps names to templates.
type Table struct {
	entries map[string]*mei.Element
}

func NewTable() *Table {
	return &Table{entries: make(map[string]*mei.Element)}
}

// Add registers the template for name, replacing any previous one. Names
// are case-insensitive, like the glyph name grammar.
func (t *Table) Add(name string, tmpl *mei.Element) {
	t.entries[tableKey(name)] = tmpl
}

func tableKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddXML parses snippet and registers it for name.
func (t *Table) AddXML(name, snippet string) error {
	el, err := mei.ParseElement(normalize(snippet))
	if err != nil {
		return err
	}
	t.Add(name, el)
	return nil
}

// Lookup finds the template for name, dropping trailing dotted elements
// until a match is found: "neume.torculus.2.3" tries "neume.torculus.2.3",
// "neume.torculus.2", "neume.torculus" and finally "neume".
func (t *Table) Lookup(name string) (*mei.Element, bool) {
	key := tableKey(name)
	for key != "" {
		if el, ok := t.entries[key]; ok {
			return el, true
		}
		i := strings.LastIndexByte(key, '.')
		if i < 0 {
			break
		}
		key = key[:i]
	}
	return nil, false
}

func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for n := range t.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Hash fingerprints every name and template, so editing one cell of the
// mapping sheet changes it even when the row count stays the same.
func (t *Table) Hash() uint64 {
	h := xxhash.New()
	enc := xml.NewEncoder(h)
	for _, name := range t.Names() {
		h.WriteString(name)
		h.Write([]byte{0})
		if err := enc.Encode(t.entries[name]); err != nil {
			// templates come from ParseElement, which only yields encodable trees
			panic(err)
		}
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Merge copies all entries of o into t; entries of o win.
func (t *Table) Merge(o *Table) {
	for n, el := range o.entries {
		t.entries[n] = el
	}
}

// Load reads a CSV export of the mapping sheet. The header row may appear
// anywhere; rows before it are ignored. Rows whose MEI cell does not parse
// are skipped and reported.
func Load(r io.Reader) (*Table, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	nameCol, meiCol := -1, -1
	table := NewTable()
	var rowErrs []RowError

	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read mapping table: %w", err)
		}

		if nameCol < 0 {
			nameCol, meiCol = headerColumns(rec)
			continue
		}

		name := cell(rec, nameCol)
		if name == "" {
			continue
		}
		if err := table.AddXML(name, cell(rec, meiCol)); err != nil {
			rowErrs = append(rowErrs, RowError{Row: row, Name: name, Err: err})
		}
	}

	if nameCol < 0 {
		return nil, nil, ErrNoHeader
	}
	return table, rowErrs, nil
}

func headerColumns(rec []string) (int, int) {
	nameCol, meiCol := -1, -1
	for i, v := range rec {
		switch strings.TrimSpace(v) {
		case NameColumn:
			nameCol = i
		case MEIColumn:
			meiCol = i
		}
	}
	if nameCol < 0 || meiCol < 0 {
		return -1, -1
	}
	return nameCol, meiCol
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// normalize strips diacritics and typographic quotes that spreadsheet
// editors like to insert into XML cells.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return quotes.Replace(out)
}

var quotes = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")

// Default returns the built-in table for the generic categories. It is used
// when no mapping sheet is configured and as the fallback under one.
func Default() *Table {
	t := NewTable()
	for name, snippet := range map[string]string{
		"neume":         `<neume><nc/></neume>`,
		"clef":          `<clef shape="C"/>`,
		"clef.c":        `<clef shape="C"/>`,
		"clef.f":        `<clef shape="F"/>`,
		"custos":        `<custos/>`,
		"division":      `<divLine/>`,
		"accid.flat":    `<accid accid="f"/>`,
		"accid.natural": `<accid accid="n"/>`,
		"accid.sharp":   `<accid accid="s"/>`,
	} {
		if err := t.AddXML(name, snippet); err != nil {
			panic(err)
		}
	}
	return t
}

// Step is one resolved interval attribute of a template component.
type Step struct {
	Contour  pitch.Contour
	Interval int
}

// ParseIntm reads an nc@intm value. Signed step counts ("+1", "-2", "1S")
// count scale steps; contour forms ("u2", "d3", "s") use interval numbers
// like glyph names do.
func ParseIntm(v string) (Step, error) {
	s := strings.ToLower(strings.TrimSpace(v))
	if s == "" {
		return Step{}, fmt.Errorf("empty intm")
	}

	if c, ok := pitch.ParseContour(s[:1]); ok {
		if len(s) == 1 {
			return Step{Contour: c, Interval: 1}, nil
		}
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 1 {
			return Step{}, fmt.Errorf("invalid intm %q", v)
		}
		if c == pitch.Same {
			n = 1
		}
		return Step{Contour: c, Interval: n}, nil
	}

	n, err := strconv.Atoi(strings.TrimSuffix(s, "s"))
	if err != nil {
		return Step{}, fmt.Errorf("invalid intm %q", v)
	}
	switch {
	case n > 0:
		return Step{Contour: pitch.Up, Interval: n + 1}, nil
	case n < 0:
		return Step{Contour: pitch.Down, Interval: -n + 1}, nil
	default:
		return Step{Contour: pitch.Same, Interval: 1}, nil
	}
}

// Chain returns the motion encoded by the intm attributes of a neume
// template's components after the first. ok is false when the template
// has fewer than two components.
func Chain(tmpl *mei.Element) (contours []pitch.Contour, intervals []int, ok bool, err error) {
	ncs := tmpl.ChildrenByName("nc")
	if len(ncs) < 2 {
		return nil, nil, false, nil
	}
	for _, nc := range ncs[1:] {
		v, has := nc.Attr("intm")
		step := Step{Contour: pitch.Same, Interval: 1}
		if has {
			step, err = ParseIntm(v)
			if err != nil {
				return nil, nil, false, err
			}
		}
		contours = append(contours, step.Contour)
		intervals = append(intervals, step.Interval)
	}
	return contours, intervals, true, nil
}
