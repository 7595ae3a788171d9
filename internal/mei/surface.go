package mei

import (
	"strconv"

	"jsomr2mei/internal/omr"
)

// Zone is a registered facsimile rectangle.
type Zone struct {
	ID  string
	ULX int
	ULY int
	LRX int
	LRY int
}

func (z Zone) Width() int { return z.LRX - z.ULX }

func (z Zone) element() *Element {
	return &Element{
		Name: "zone",
		ID:   z.ID,
		Attrs: []Attr{
			{"ulx", strconv.Itoa(z.ULX)},
			{"uly", strconv.Itoa(z.ULY)},
			{"lrx", strconv.Itoa(z.LRX)},
			{"lry", strconv.Itoa(z.LRY)},
		},
	}
}

// ZoneRef is a handle into a Surface.
type ZoneRef int

// Surface is the append-only zone arena of one page. Elements refer to
// zones by ID through their facs attribute.
type Surface struct {
	zones []Zone
	byID  map[string]ZoneRef
}

func NewSurface() *Surface {
	return &Surface{byID: make(map[string]ZoneRef)}
}

// Register appends a zone and returns its handle.
func (s *Surface) Register(id string, b omr.BoundingBox) ZoneRef {
	ref := ZoneRef(len(s.zones))
	s.zones = append(s.zones, Zone{ID: id, ULX: b.ULX, ULY: b.ULY, LRX: b.LRX(), LRY: b.LRY()})
	s.byID[id] = ref
	return ref
}

func (s *Surface) Zone(ref ZoneRef) Zone {
	return s.zones[ref]
}

func (s *Surface) Lookup(id string) (Zone, bool) {
	ref, ok := s.byID[id]
	if !ok {
		return Zone{}, false
	}
	return s.zones[ref], true
}

func (s *Surface) Len() int {
	return len(s.zones)
}

// Zones returns a copy of all zones in registration order.
func (s *Surface) Zones() []Zone {
	return append([]Zone(nil), s.zones...)
}
