package mei

import (
	"strconv"

	"github.com/google/uuid"
)

// IDGenerator hands out xml:ids that are stable for a given seed: the n-th
// ID of a document built from the same page is always the same.
type IDGenerator struct {
	ns  uuid.UUID
	seq int
}

func NewIDGenerator(seed string) *IDGenerator {
	return &IDGenerator{ns: uuid.NewSHA1(uuid.NameSpaceURL, []byte("jsomr2mei:"+seed))}
}

// Next returns an ID of the form "m-<uuid>".
func (g *IDGenerator) Next() string {
	g.seq++
	return "m-" + uuid.NewSHA1(g.ns, []byte(strconv.Itoa(g.seq))).String()
}
