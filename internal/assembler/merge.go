package assembler

import (
	"sort"

	"jsomr2mei/internal/mei"
)

// MergeNearby joins adjacent neumes of the same syllable whose facing
// components are at most widthMultiplier median component widths apart.
// It returns the number of neumes that were absorbed. A multiplier <= 0
// leaves the document unchanged.
func MergeNearby(doc *mei.Document, widthMultiplier float64) int {
	if widthMultiplier <= 0 {
		return 0
	}

	var widths []int
	for _, nc := range doc.FindAll("nc") {
		if z, ok := doc.ZoneOf(nc); ok {
			widths = append(widths, z.Width())
		}
	}
	if len(widths) == 0 {
		return 0
	}
	threshold := medianInt(widths) * widthMultiplier

	merged := 0
	for _, syl := range doc.FindAll("syllable") {
		for i := 0; i+1 < len(syl.Children); {
			left, right := syl.Children[i], syl.Children[i+1]
			gap, ok := neumeGap(doc, left, right)
			if !ok || gap > threshold {
				i++
				continue
			}
			left.Children = append(left.Children, right.Children...)
			syl.RemoveChild(right)
			merged++
		}
	}
	return merged
}

// neumeGap is the horizontal distance between the last component of left
// and the first component of right. ok is false unless both are neumes
// with located components.
func neumeGap(doc *mei.Document, left, right *mei.Element) (float64, bool) {
	if left.Name != "neume" || right.Name != "neume" {
		return 0, false
	}
	lnc, rnc := left.ChildrenByName("nc"), right.ChildrenByName("nc")
	if len(lnc) == 0 || len(rnc) == 0 {
		return 0, false
	}
	lz, ok := doc.ZoneOf(lnc[len(lnc)-1])
	if !ok {
		return 0, false
	}
	rz, ok := doc.ZoneOf(rnc[0])
	if !ok {
		return 0, false
	}
	return float64(rz.ULX - lz.LRX), true
}

func medianInt(xs []int) float64 {
	s := append([]int(nil), xs...)
	sort.Ints(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return float64(s[mid])
	}
	return float64(s[mid-1]+s[mid]) / 2
}
