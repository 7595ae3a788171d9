package assembler

import (
	"math"

	"jsomr2mei/internal/omr"
	"jsomr2mei/internal/pitch"
)

// SubBoxes splits one glyph box into a box per component. Components are
// laid out on a grid one unit wide each (ligatureUnits wide inside a
// ligature) and one row up or down per contour step; a ligature step moves
// as many rows as its interval spans. The grid is then stretched over box.
func SubBoxes(box omr.BoundingBox, contours []pitch.Contour, intervals []int, ligature bool, ligatureUnits float64) []omr.BoundingBox {
	n := len(contours) + 1
	if n == 1 {
		return []omr.BoundingBox{box}
	}

	width := 1.0
	if ligature && ligatureUnits > 0 {
		width = ligatureUnits
	}

	xs := make([]float64, n)
	rows := make([]int, n)
	for i := 1; i < n; i++ {
		xs[i] = xs[i-1] + width
		delta := 1
		if ligature && intervals[i-1] > 2 {
			delta = intervals[i-1] - 1
		}
		switch contours[i-1] {
		case pitch.Up:
			rows[i] = rows[i-1] - delta
		case pitch.Down:
			rows[i] = rows[i-1] + delta
		default:
			rows[i] = rows[i-1]
		}
	}

	minRow, maxRow := rows[0], rows[0]
	for _, r := range rows {
		minRow = min(minRow, r)
		maxRow = max(maxRow, r)
	}

	colUnit := float64(box.NCols) / (xs[n-1] + width)
	rowUnit := float64(box.NRows) / float64(maxRow-minRow+1)

	out := make([]omr.BoundingBox, n)
	for i := range out {
		out[i] = omr.BoundingBox{
			ULX:   box.ULX + int(math.Round(xs[i]*colUnit)),
			ULY:   box.ULY + int(math.Round(float64(rows[i]-minRow)*rowUnit)),
			NCols: max(1, int(math.Round(width*colUnit))),
			NRows: max(1, int(math.Round(rowUnit))),
		}
	}
	return out
}
