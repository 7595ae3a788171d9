// Package pitch computes neume component pitches from a starting pitch and a
// chain of contour/interval steps on a seven-letter cyclic scale.
package pitch

import (
	"errors"
	"fmt"
	"strings"
)

const scaleLen = 7

// canonical is the scale in which clef reference notes are looked up.
var canonical = [scaleLen]Note{'a', 'b', 'c', 'd', 'e', 'f', 'g'}

// Note is a pitch letter, 'a' through 'g'.
type Note byte

func (n Note) String() string { return string(rune(n)) }

func (n Note) Valid() bool { return n >= 'a' && n <= 'g' }

// Contour is the direction of motion from one component to the next.
type Contour int

const (
	Same Contour = iota
	Up
	Down
)

func (c Contour) String() string {
	switch c {
	case Up:
		return "u"
	case Down:
		return "d"
	default:
		return "s"
	}
}

// ParseContour accepts the single-letter forms used in glyph names.
func ParseContour(s string) (Contour, bool) {
	switch strings.ToLower(s) {
	case "u":
		return Up, true
	case "d":
		return Down, true
	case "s":
		return Same, true
	}
	return Same, false
}

// Pitch is a note letter, an octave and the clef reference note that
// anchors the octave boundary.
type Pitch struct {
	Note    Note
	Octave  int
	ClefRef Note
}

func (p Pitch) String() string {
	return fmt.Sprintf("%s%d", p.Note, p.Octave)
}

var (
	ErrInvalidNote     = errors.New("invalid note letter")
	ErrInvalidInterval = errors.New("interval must be at least 1")
	ErrOctaveUnderflow = errors.New("octave below zero")
)

// ParseNote parses a single note letter, case-insensitively.
func ParseNote(s string) (Note, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 1 || !Note(s[0]).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}
	return Note(s[0]), nil
}

// ParseClefRef extracts the reference note from a clef field such as "c",
// "C" or "clef.c". An empty field defaults to c.
func ParseClefRef(s string) (Note, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 'c', nil
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	if s != "" {
		s = s[:1]
	}
	return ParseNote(s)
}

func indexOf(n Note) int {
	for i, c := range canonical {
		if c == n {
			return i
		}
	}
	return -1
}

// rotated returns the scale starting at ref.
func rotated(ref Note) [scaleLen]Note {
	var out [scaleLen]Note
	off := indexOf(ref)
	for i := range out {
		out[i] = canonical[(off+i)%scaleLen]
	}
	return out
}

// Resolve moves p by interval in direction c. The interval counts the
// starting note, so an interval of 2 is one scale step.
func Resolve(p Pitch, c Contour, interval int) (Pitch, error) {
	if !p.Note.Valid() {
		return Pitch{}, fmt.Errorf("%w: %q", ErrInvalidNote, p.Note)
	}
	if !p.ClefRef.Valid() {
		return Pitch{}, fmt.Errorf("%w: clef reference %q", ErrInvalidNote, p.ClefRef)
	}
	if interval < 1 {
		return Pitch{}, fmt.Errorf("%w: got %d", ErrInvalidInterval, interval)
	}
	if c == Same {
		return p, nil
	}

	scale := rotated(p.ClefRef)
	idx := 0
	for i, n := range scale {
		if n == p.Note {
			idx = i
			break
		}
	}
	step := interval - 1

	out := Pitch{ClefRef: p.ClefRef}
	switch c {
	case Up:
		next := idx + step
		out.Octave = p.Octave + next/scaleLen
		out.Note = scale[next%scaleLen]
	case Down:
		out.Octave = p.Octave - (scaleLen-idx-1+step)/scaleLen
		out.Note = scale[((idx-step)%scaleLen+scaleLen)%scaleLen]
	default:
		return Pitch{}, fmt.Errorf("unknown contour %d", c)
	}

	if out.Octave < 0 {
		return Pitch{}, fmt.Errorf("%w: %s by %d from %s", ErrOctaveUnderflow, c, interval, p)
	}
	return out, nil
}

// Chain resolves a contour/interval sequence, threading each result into the
// next step. The returned slice starts with start itself.
func Chain(start Pitch, contours []Contour, intervals []int) ([]Pitch, error) {
	if len(contours) != len(intervals) {
		return nil, fmt.Errorf("contour/interval length mismatch: %d != %d", len(contours), len(intervals))
	}
	if !start.Note.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNote, start.Note)
	}

	out := make([]Pitch, 0, len(contours)+1)
	out = append(out, start)
	cur := start
	for i, c := range contours {
		next, err := Resolve(cur, c, intervals[i])
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}
