// Package mei builds MEI neume-notation documents with a facsimile surface.
package mei

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"jsomr2mei/internal/omr"
)

const Namespace = "http://www.music-encoding.org/ns/mei"

var SupportedVersions = []string{"4.0.0", "3.9.9"}

type DocOptions struct {
	Version    string
	Title      string
	StaffLines int
	// Seed makes generated xml:ids reproducible for the same page.
	Seed string
}

// Document is an MEI tree plus the zone arena of its facsimile surface.
type Document struct {
	Version string
	Root    *Element
	Surface *Surface

	surfaceEl *Element
	layer     *Element
	ids       *IDGenerator
}

// NewDocument creates the skeleton every page shares: header, facsimile
// surface, a single neume staff definition and one staff with one layer.
func NewDocument(opts DocOptions) (*Document, error) {
	supported := false
	for _, v := range SupportedVersions {
		if v == opts.Version {
			supported = true
		}
	}
	if !supported {
		return nil, fmt.Errorf("unsupported MEI version %q", opts.Version)
	}
	if opts.Title == "" {
		opts.Title = "MEI Encoding Output"
	}
	if opts.StaffLines <= 0 {
		opts.StaffLines = 4
	}

	d := &Document{
		Version: opts.Version,
		Surface: NewSurface(),
		ids:     NewIDGenerator(opts.Seed),
	}

	d.Root = d.NewElement("mei")
	d.Root.SetAttr("xmlns", Namespace)
	d.Root.SetAttr("meiversion", opts.Version)

	head := d.child(d.Root, "meiHead")
	fileDesc := d.child(head, "fileDesc")
	title := d.child(d.child(fileDesc, "titleStmt"), "title")
	title.Text = opts.Title
	d.child(fileDesc, "pubStmt")

	music := d.child(d.Root, "music")
	d.surfaceEl = d.child(d.child(music, "facsimile"), "surface")

	score := d.child(d.child(d.child(music, "body"), "mdiv"), "score")
	staffDef := d.child(d.child(d.child(score, "scoreDef"), "staffGrp"), "staffDef")
	staffDef.SetAttr("n", "1")
	staffDef.SetAttr("lines", fmt.Sprint(opts.StaffLines))
	staffDef.SetAttr("notationtype", "neume")
	staffDef.SetAttr("clef.line", "3")
	staffDef.SetAttr("clef.shape", "C")

	staff := d.child(d.child(score, "section"), "staff")
	staff.SetAttr("n", "1")
	d.layer = d.child(staff, "layer")
	d.layer.SetAttr("n", "1")

	return d, nil
}

func (d *Document) child(parent *Element, name string) *Element {
	el := d.NewElement(name)
	parent.AddChild(el)
	return el
}

// NewElement creates an element with a fresh ID.
func (d *Document) NewElement(name string) *Element {
	return &Element{Name: name, ID: d.ids.Next()}
}

// Instantiate deep-copies a template, giving every node a fresh ID.
func (d *Document) Instantiate(tmpl *Element) *Element {
	el := tmpl.Clone()
	el.Walk(func(x *Element) { x.ID = d.ids.Next() })
	return el
}

// Layer is the container for clefs, syllables and line breaks.
func (d *Document) Layer() *Element {
	return d.layer
}

// RegisterZone adds b to the surface and returns the zone ID to be used as
// a facs reference.
func (d *Document) RegisterZone(b omr.BoundingBox) string {
	id := d.ids.Next()
	d.Surface.Register(id, b)
	return id
}

// Facs sets el's facsimile reference to a new zone for b.
func (d *Document) Facs(el *Element, b omr.BoundingBox) string {
	id := d.RegisterZone(b)
	el.SetAttr("facs", id)
	return id
}

// ZoneOf resolves an element's facs reference.
func (d *Document) ZoneOf(el *Element) (Zone, bool) {
	id, ok := el.Attr("facs")
	if !ok {
		return Zone{}, false
	}
	return d.Surface.Lookup(id)
}

func (d *Document) FindAll(name string) []*Element {
	return d.Root.FindAll(name)
}

// Encode writes the document as indented XML. Zones are materialized from
// the surface arena at this point.
func (d *Document) Encode(w io.Writer) error {
	d.surfaceEl.Children = d.surfaceEl.Children[:0]
	for _, z := range d.Surface.zones {
		d.surfaceEl.AddChild(z.element())
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d.Root); err != nil {
		return fmt.Errorf("failed to encode MEI: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
