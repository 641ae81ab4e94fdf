package features

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sequential(r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = float64(i)
	}
	return mat.NewDense(r, c, data)
}

func TestSaveLoadKeepsShape(t *testing.T) {
	m := sequential(6, 4)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, m))

	got, err := Load(&buf)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.wav_FEAT.npy")
	m := sequential(3, 5)

	require.NoError(t, SaveFile(path, m))
	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("definitely not numpy")))
	assert.Error(t, err)
}

func TestTruncateAndPad(t *testing.T) {
	m := sequential(2, 5)

	truncated := Truncate(m, 3)
	assert.Equal(t, 3, Frames(truncated))
	assert.Equal(t, m.At(1, 2), truncated.At(1, 2))
	assert.Same(t, m, Truncate(m, 9))

	padded := Pad(truncated, 2, 1)
	r, c := padded.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 6, c)
	assert.Zero(t, padded.At(1, 0))
	assert.Zero(t, padded.At(1, 5))
	assert.Equal(t, m.At(1, 0), padded.At(1, 2))
	assert.Equal(t, m.At(0, 2), padded.At(0, 4))

	cols := Columns(m, 1, 3)
	assert.Equal(t, 2, Frames(cols))
	assert.Equal(t, m.At(0, 1), cols.At(0, 0))
}

func TestLayoutWindow(t *testing.T) {
	layout := Layout{Groups: 3, Height: 2}
	m := sequential(6, 4)

	w, err := layout.Window(m, "song", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, w.Width())

	group := w.Group(1)
	assert.Equal(t, m.At(2, 0), group.At(0, 0))
	assert.Equal(t, m.At(3, 3), group.At(1, 3))

	flat := w.Float32()
	require.Len(t, flat, 24)
	// row-major: element (g, h, x) sits at (g*Height+h)*Width + x
	assert.Equal(t, float32(m.At(5, 2)), flat[(2*2+1)*4+2])
}

func TestLayoutWindowShapeMismatch(t *testing.T) {
	layout := Layout{Groups: 3, Height: 522}
	_, err := layout.Window(sequential(1565, 2), "43-M1_ElChocolate", 17)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "43-M1_ElChocolate", shapeErr.Recording)
	assert.Equal(t, 17, shapeErr.Window)
	assert.Equal(t, 1565, shapeErr.Rows)
	assert.Contains(t, err.Error(), "1566")
}
