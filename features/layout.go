package features

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is matched by every ShapeError
var ErrShapeMismatch = errors.New("feature shape mismatch")

// ShapeError reports a feature window whose height cannot be split into the
// configured channel groups
type ShapeError struct {
	Recording string // recording the window was cut from
	Window    int    // first frame of the window in the recording
	Rows      int    // feature height found
	Layout    Layout // layout expected
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%v: recording %q window at frame %d has %d rows, want %d groups x %d rows = %d",
		ErrShapeMismatch, e.Recording, e.Window, e.Rows, e.Layout.Groups, e.Layout.Height, e.Layout.Rows())
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// Layout describes how the feature height splits into channel groups.
// Group g occupies rows [g*Height, (g+1)*Height).
type Layout struct {
	Groups int `json:"groups"`
	Height int `json:"height"`
}

// Rows returns the total feature height of the layout
func (l Layout) Rows() int {
	return l.Groups * l.Height
}

// Window wraps a Groups*Height x width matrix after checking its height.
// recording and start only label the error.
func (l Layout) Window(data *mat.Dense, recording string, start int) (Window, error) {
	rows, _ := data.Dims()
	if l.Groups < 1 || l.Height < 1 || rows != l.Rows() {
		return Window{}, &ShapeError{Recording: recording, Window: start, Rows: rows, Layout: l}
	}
	return Window{Layout: l, Data: data}, nil
}

// Window is a fixed-width slice of features in grouped layout
type Window struct {
	Layout Layout
	Data   *mat.Dense
}

// Width returns the number of frames in the window
func (w Window) Width() int {
	_, c := w.Data.Dims()
	return c
}

// Group returns a view of channel group g
func (w Window) Group(g int) mat.Matrix {
	return w.Data.Slice(g*w.Layout.Height, (g+1)*w.Layout.Height, 0, w.Width())
}

// Float32 flattens the window row-major, i.e. as a (Groups, Height, Width) tensor
func (w Window) Float32() []float32 {
	rows, cols := w.Data.Dims()
	out := make([]float32, 0, rows*cols)
	for i := range rows {
		for _, v := range w.Data.RawRowView(i) {
			out = append(out, float32(v))
		}
	}
	return out
}
