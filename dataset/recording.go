package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-notes/features"
	"github.com/RyanBlaney/sonido-notes/labels"
	"gonum.org/v1/gonum/mat"
)

// Recording pairs the feature matrix of one audio file with its note annotation
type Recording struct {
	ID       string
	Features *mat.Dense // channels x frames
	Notes    []labels.Note
}

// Source names the files a Recording is loaded from
type Source struct {
	ID       string `json:"id,omitempty"` // defaults to the feature file name
	Features string `json:"features"`     // .npy feature matrix
	Notes    string `json:"notes"`        // note annotation file, or .mid/.midi
}

// Load reads the features and notes named by src
func Load(src Source) (Recording, error) {
	id := src.ID
	if id == "" {
		id = filepath.Base(src.Features)
	}

	feats, err := features.LoadFile(src.Features)
	if err != nil {
		return Recording{}, fmt.Errorf("recording %q: %w", id, err)
	}

	notes, err := ReadNotes(src.Notes)
	if err != nil {
		return Recording{}, fmt.Errorf("recording %q: %w", id, err)
	}

	return Recording{ID: id, Features: feats, Notes: notes}, nil
}

// ReadNotes reads an annotation file, picking the MIDI reader for .mid and .midi files
func ReadNotes(path string) ([]labels.Note, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi":
		return labels.ReadMIDIFile(path)
	default:
		return labels.ReadNotesFile(path)
	}
}

// Encode returns the frame labels of the recording's notes
func (r Recording) Encode() labels.Encoding {
	return labels.Encode(r.Notes)
}

// Labelled returns the features cut to the frames covered by the annotation,
// together with the encoding. Features of a recording whose annotation is empty
// cannot be cut and yield an error.
func (r Recording) Labelled() (*mat.Dense, labels.Encoding, error) {
	enc := r.Encode()
	if enc.Len() == 0 {
		return nil, enc, fmt.Errorf("recording %q has no annotated frames", r.ID)
	}
	return features.Truncate(r.Features, enc.Len()), enc, nil
}
