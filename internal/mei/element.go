package mei

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type Attr struct {
	Name  string
	Value string
}

// Element is a node of an MEI tree. ID is serialized as xml:id.
type Element struct {
	Name     string
	ID       string
	Attrs    []Attr
	Text     string
	Children []*Element
}

// SetAttr replaces or appends an attribute.
func (e *Element) SetAttr(name, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *Element) RemoveAttr(name string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs = append(e.Attrs[:i], e.Attrs[i+1:]...)
			return
		}
	}
}

func (e *Element) AddChild(c *Element) {
	e.Children = append(e.Children, c)
}

// RemoveChild detaches c if it is a direct child.
func (e *Element) RemoveChild(c *Element) bool {
	for i, x := range e.Children {
		if x == c {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Element) ChildrenByName(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits e and its descendants in document order.
func (e *Element) Walk(fn func(*Element)) {
	fn(e)
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// FindAll returns all descendants (including e) named name, in document order.
func (e *Element) FindAll(name string) []*Element {
	var out []*Element
	e.Walk(func(x *Element) {
		if x.Name == name {
			out = append(out, x)
		}
	})
	return out
}

// MarshalXML writes the element with xml:id first and attributes in
// insertion order.
func (e *Element) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Name}}
	if e.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xml:id"}, Value: e.ID})
	}
	for _, a := range e.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if e.Text != "" {
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		if err := enc.Encode(c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// ParseElement reads a single element tree from an XML snippet, as found in
// the cells of a mapping table. IDs in the snippet are discarded.
func ParseElement(snippet string) (*Element, error) {
	dec := xml.NewDecoder(strings.NewReader(snippet))
	var stack []*Element
	var root *Element

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("multiple root elements")
			}
			el := &Element{Name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Local == "id" && (a.Name.Space == "xml" || a.Name.Space == "http://www.w3.org/XML/1998/namespace") {
					continue
				}
				el.Attrs = append(el.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) > 0 {
				stack[len(stack)-1].AddChild(el)
			} else {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				if s := strings.TrimSpace(string(t)); s != "" {
					stack[len(stack)-1].Text += s
				}
			} else if strings.TrimSpace(string(t)) != "" {
				return nil, fmt.Errorf("text outside root element")
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("no element found")
	}
	return root, nil
}

// Clone deep-copies e without IDs.
func (e *Element) Clone() *Element {
	c := &Element{Name: e.Name, Text: e.Text}
	c.Attrs = append([]Attr(nil), e.Attrs...)
	for _, ch := range e.Children {
		c.Children = append(c.Children, ch.Clone())
	}
	return c
}
