package labels

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadMIDI extracts onset-ordered notes from a standard MIDI file. Every note
// on / note off pair on the same channel and key becomes one Note whose pitch
// is the MIDI key number. Notes still sounding at the end of a track are dropped.
func ReadMIDI(r io.Reader, source string) (notes []Note, err error) {
	// smf can panic on truncated input
	defer func() {
		if rec := recover(); rec != nil {
			err = &AnnotationError{Source: source, Err: fmt.Errorf("midi: %v", rec)}
		}
	}()

	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, &AnnotationError{Source: source, Err: fmt.Errorf("midi: %w", err)}
	}

	return notesFromSMF(s), nil
}

// ReadMIDIFile extracts notes from the MIDI file at path
func ReadMIDIFile(path string) ([]Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read midi %s: %w", path, err)
	}
	return ReadMIDI(bytes.NewReader(data), path)
}

type noteKey struct {
	channel uint8
	key     uint8
}

func notesFromSMF(s *smf.SMF) []Note {
	var notes []Note

	for _, events := range s.Tracks {
		sounding := make(map[noteKey]int64)
		var absTicks int64

		for _, event := range events {
			absTicks += int64(event.Delta)

			var channel, key, velocity uint8
			switch {
			case event.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
				k := noteKey{channel: channel, key: key}
				if _, ok := sounding[k]; !ok {
					sounding[k] = s.TimeAt(absTicks)
				}
			case event.Message.GetNoteOn(&channel, &key, &velocity),
				event.Message.GetNoteOff(&channel, &key, &velocity):
				k := noteKey{channel: channel, key: key}
				start, ok := sounding[k]
				if !ok {
					continue
				}
				delete(sounding, k)

				end := s.TimeAt(absTicks)
				notes = append(notes, Note{
					Onset:    float64(start) / 1e6,
					Duration: float64(end-start) / 1e6,
					Pitch:    float64(key),
				})
			}
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Onset != notes[j].Onset {
			return notes[i].Onset < notes[j].Onset
		}
		return notes[i].Pitch < notes[j].Pitch
	})
	return notes
}
