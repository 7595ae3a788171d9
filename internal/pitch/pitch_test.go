package pitch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allNotes = []Note{'a', 'b', 'c', 'd', 'e', 'f', 'g'}

func TestResolve_UpDownRoundTrip(t *testing.T) {
	for _, ref := range []Note{'c', 'f'} {
		for _, n := range allNotes {
			for oct := 1; oct <= 4; oct++ {
				for interval := 1; interval <= 7; interval++ {
					p := Pitch{Note: n, Octave: oct, ClefRef: ref}
					up, err := Resolve(p, Up, interval)
					require.NoError(t, err)
					back, err := Resolve(up, Down, interval)
					require.NoError(t, err)
					assert.Equal(t, p, back, "ref=%s start=%s interval=%d", ref, p, interval)
				}
			}
		}
	}
}

func TestResolve_SameIsIdentity(t *testing.T) {
	p := Pitch{Note: 'e', Octave: 3, ClefRef: 'c'}
	for interval := 1; interval <= 9; interval++ {
		got, err := Resolve(p, Same, interval)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestResolve_OctaveStep(t *testing.T) {
	for _, n := range allNotes {
		p := Pitch{Note: n, Octave: 2, ClefRef: 'c'}
		got, err := Resolve(p, Up, 8)
		require.NoError(t, err)
		assert.Equal(t, n, got.Note)
		assert.Equal(t, 3, got.Octave)
	}
}

func TestResolve_CarryAtClefReference(t *testing.T) {
	tests := []struct {
		name     string
		start    Pitch
		contour  Contour
		interval int
		want     Pitch
	}{
		{"b up to c carries", Pitch{'b', 3, 'c'}, Up, 2, Pitch{'c', 4, 'c'}},
		{"c down to b borrows", Pitch{'c', 4, 'c'}, Down, 2, Pitch{'b', 3, 'c'}},
		{"f up a fifth", Pitch{'f', 3, 'c'}, Up, 5, Pitch{'c', 4, 'c'}},
		{"g up one step", Pitch{'g', 2, 'c'}, Up, 2, Pitch{'a', 2, 'c'}},
		{"d down a third", Pitch{'d', 3, 'c'}, Down, 3, Pitch{'b', 2, 'c'}},
		{"f reference", Pitch{'e', 2, 'f'}, Up, 2, Pitch{'f', 3, 'f'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.start, tt.contour, tt.interval)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	_, err := Resolve(Pitch{Note: 'c', Octave: 2, ClefRef: 'c'}, Up, 0)
	assert.True(t, errors.Is(err, ErrInvalidInterval))

	_, err = Resolve(Pitch{Note: 'x', Octave: 2, ClefRef: 'c'}, Up, 2)
	assert.True(t, errors.Is(err, ErrInvalidNote))

	_, err = Resolve(Pitch{Note: 'c', Octave: 0, ClefRef: 'c'}, Down, 2)
	assert.True(t, errors.Is(err, ErrOctaveUnderflow))
}

func TestChain(t *testing.T) {
	start := Pitch{Note: 'f', Octave: 3, ClefRef: 'c'}
	got, err := Chain(start, []Contour{Up, Down}, []int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []Pitch{
		{'f', 3, 'c'},
		{'g', 3, 'c'},
		{'e', 3, 'c'},
	}, got)

	_, err = Chain(start, []Contour{Up}, nil)
	assert.Error(t, err)

	_, err = Chain(Pitch{Note: 'c', Octave: 0, ClefRef: 'c'}, []Contour{Down}, []int{2})
	assert.Error(t, err, "no partial result on failure")
}

func TestParseClefRef(t *testing.T) {
	for in, want := range map[string]Note{"": 'c', "c": 'c', "clef.f": 'f', "C": 'c', "clef.c.a": 'a'} {
		got, err := ParseClefRef(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseClefRef("clef.x")
	assert.Error(t, err)
}
