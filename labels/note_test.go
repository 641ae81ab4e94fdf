package labels

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const noteFile = `onset, duration, MIDI note
0.0130, 0.3110, 61.2000
0.3240, 0.2000, 62.7000, 0.95
1.5000, 0.4200, 58.4000
`

func TestReadNotes(t *testing.T) {
	notes, err := ReadNotes(strings.NewReader(noteFile), "song.notes")
	require.NoError(t, err)

	assert.Equal(t, []Note{
		{Onset: 0.013, Duration: 0.311, Pitch: 61.2},
		{Onset: 0.324, Duration: 0.2, Pitch: 62.7},
		{Onset: 1.5, Duration: 0.42, Pitch: 58.4},
	}, notes)
}

func TestReadNotesHeaderOnly(t *testing.T) {
	notes, err := ReadNotes(strings.NewReader("onset, duration, pitch\n"), "empty.notes")
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, 0, Encode(notes).Len())
}

func TestReadNotesMalformed(t *testing.T) {
	cases := map[string]struct {
		body string
		line int
	}{
		"too few fields": {body: "h\n0.1, 0.2, 60\n0.5, 0.2\n", line: 3},
		"not a number":   {body: "h\n0.1, abc, 60\n", line: 2},
		"empty field":    {body: "h\n0.1, , 60\n", line: 2},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadNotes(strings.NewReader(c.body), "bad.notes")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedAnnotation))

			var annErr *AnnotationError
			require.True(t, errors.As(err, &annErr))
			assert.Equal(t, "bad.notes", annErr.Source)
			assert.Equal(t, c.line, annErr.Line)
			assert.Contains(t, err.Error(), "bad.notes")
		})
	}
}

func TestReadNotesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.notes.Corrected")
	require.NoError(t, os.WriteFile(path, []byte(noteFile), 0o644))

	notes, err := ReadNotesFile(path)
	require.NoError(t, err)
	assert.Len(t, notes, 3)

	_, err = ReadNotesFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func writeMIDI(t *testing.T) []byte {
	t.Helper()

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(960, midi.NoteOff(0, 60))
	tr.Add(480, midi.NoteOn(0, 64, 90))
	tr.Add(480, midi.NoteOff(0, 64))
	tr.Close(0)
	require.NoError(t, s.Add(tr))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadMIDI(t *testing.T) {
	notes, err := ReadMIDI(bytes.NewReader(writeMIDI(t)), "melody.mid")
	require.NoError(t, err)
	require.Len(t, notes, 2)

	// 960 ticks per quarter at 120 bpm is half a second
	assert := assert.New(t)
	assert.InDelta(0.0, notes[0].Onset, 1e-9)
	assert.InDelta(0.5, notes[0].Duration, 1e-9)
	assert.Equal(60.0, notes[0].Pitch)
	assert.InDelta(0.75, notes[1].Onset, 1e-9)
	assert.InDelta(0.25, notes[1].Duration, 1e-9)
	assert.Equal(64.0, notes[1].Pitch)
}

func TestReadMIDIRejectsGarbage(t *testing.T) {
	_, err := ReadMIDI(strings.NewReader("not a midi file"), "junk.mid")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedAnnotation))
}

func TestStateVectorValid(t *testing.T) {
	for _, s := range []StateVector{SilenceState, AttackState, SustainState, ReleaseState, BoundaryState} {
		assert.True(t, s.Valid(), "%v", s)
	}
	assert.False(t, StateVector{}.Valid())
	assert.False(t, StateVector{1, 1, 0, 1, 0, 1}.Valid())
	assert.Equal(t, "not_offset", NotOffset.String())
	first, second := PairOffset.Attributes()
	assert.Equal(t, Offset, first)
	assert.Equal(t, NotOffset, second)
}
