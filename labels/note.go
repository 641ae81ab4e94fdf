package labels

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedAnnotation is matched by every note parsing failure
var ErrMalformedAnnotation = errors.New("malformed annotation")

// AnnotationError reports a note line that could not be parsed
type AnnotationError struct {
	Source string // file or recording the line came from
	Line   int    // 1-based line number, header included
	Err    error
}

func (e *AnnotationError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %v: %v", e.Source, ErrMalformedAnnotation, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v: %v", e.Source, e.Line, ErrMalformedAnnotation, e.Err)
}

func (e *AnnotationError) Unwrap() error {
	return e.Err
}

func (e *AnnotationError) Is(target error) bool {
	return target == ErrMalformedAnnotation
}

// Note is one annotated note event
type Note struct {
	Onset    float64 `json:"onset"`    // seconds
	Duration float64 `json:"duration"` // seconds
	Pitch    float64 `json:"pitch"`
}

// Offset returns the release time of the note in seconds
func (n Note) Offset() float64 {
	return n.Onset + n.Duration
}

// noteFields is the number of leading columns a note line must carry
const noteFields = 3

// ReadNotes parses a note annotation stream. The first line is a header and is
// skipped; every following line holds comma separated floats of which the first
// three are onset, duration and pitch. Blank lines are ignored. Any other line
// that does not parse aborts the read, since dropping it would shift every
// later frame.
func ReadNotes(r io.Reader, source string) ([]Note, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var notes []Note
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum == 1 {
			continue
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		note, err := parseNoteLine(line)
		if err != nil {
			return nil, &AnnotationError{Source: source, Line: lineNum, Err: err}
		}
		notes = append(notes, note)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notes from %s: %w", source, err)
	}
	return notes, nil
}

// ReadNotesFile parses the note annotation file at path
func ReadNotesFile(path string) ([]Note, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open notes %s: %w", path, err)
	}
	defer f.Close()

	return ReadNotes(f, path)
}

func parseNoteLine(line string) (Note, error) {
	fields := strings.Split(line, ",")
	if len(fields) < noteFields {
		return Note{}, fmt.Errorf("expected at least %d fields, got %d", noteFields, len(fields))
	}

	var values [noteFields]float64
	for i := range noteFields {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return Note{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		values[i] = v
	}

	return Note{Onset: values[0], Duration: values[1], Pitch: values[2]}, nil
}
