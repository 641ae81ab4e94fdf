package features

import (
	"gonum.org/v1/gonum/mat"
)

// Frames returns the number of frames (columns) of a feature matrix
func Frames(m mat.Matrix) int {
	_, c := m.Dims()
	return c
}

// Truncate returns a view of the first n frames of m. n must be in [1, Frames(m)].
func Truncate(m *mat.Dense, n int) *mat.Dense {
	r, c := m.Dims()
	if n >= c {
		return m
	}
	return m.Slice(0, r, 0, n).(*mat.Dense)
}

// Columns returns a view of frames [start, end) of m
func Columns(m *mat.Dense, start, end int) *mat.Dense {
	r, _ := m.Dims()
	return m.Slice(0, r, start, end).(*mat.Dense)
}

// Pad returns a copy of m with left and right zero frames added
func Pad(m mat.Matrix, left, right int) *mat.Dense {
	r, c := m.Dims()
	padded := mat.NewDense(r, left+c+right, nil)
	padded.Slice(0, r, left, left+c).(*mat.Dense).Copy(m)
	return padded
}
