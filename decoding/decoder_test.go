package decoding

import (
	"context"
	"errors"
	"testing"

	"github.com/RyanBlaney/sonido-notes/config"
	"github.com/RyanBlaney/sonido-notes/dataset"
	"github.com/RyanBlaney/sonido-notes/features"
	"github.com/RyanBlaney/sonido-notes/labels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testConfig(context int) *config.Config {
	cfg := config.Default()
	cfg.GroupHeight = 2
	cfg.ContextFrames = context
	cfg.DecodeWorkers = 2
	return cfg
}

func newDecoder(t *testing.T, cfg *config.Config, c Classifier) *Decoder {
	t.Helper()
	d, err := NewDecoder(cfg, c)
	require.NoError(t, err)
	return d
}

func TestNewDecoderRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(9)
	cfg.DecodeWorkers = 0
	_, err := NewDecoder(cfg, echo)
	assert.Error(t, err)

	cfg = testConfig(-1)
	_, err = NewDecoder(cfg, echo)
	assert.Error(t, err)

	_, err = NewDecoder(testConfig(9), nil)
	assert.Error(t, err)
}

// ramp builds 6-row features whose values are the 1-based frame number
func ramp(frames int) *mat.Dense {
	m := mat.NewDense(6, frames, nil)
	for r := range 6 {
		for c := range frames {
			m.Set(r, c, float64(c+1))
		}
	}
	return m
}

// echo reports the first, center and last column of the last group
var echo = ClassifierFunc(func(w features.Window) (labels.Scores, error) {
	g := w.Group(w.Layout.Groups - 1)
	width := w.Width()
	return labels.Scores{g.At(0, 0), g.At(0, width/2), g.At(1, width-1), float64(width)}, nil
})

func TestDecodeOutputAlignsWithFrames(t *testing.T) {
	for _, frames := range []int{1, 5, 19, 40} {
		d := newDecoder(t, testConfig(9), echo)
		out, err := d.Decode("song", ramp(frames))
		require.NoError(t, err)
		assert.Len(t, out, frames)
	}
}

func TestDecodeCentersWindowOnEachFrame(t *testing.T) {
	d := newDecoder(t, testConfig(2), echo)
	assert.Equal(t, 5, d.WindowSize())

	out, err := d.Decode("song", ramp(6))
	require.NoError(t, err)
	require.Len(t, out, 6)

	for i, s := range out {
		assert.Equal(t, float64(i+1), s[1], "center of frame %d", i)
		assert.Equal(t, 5.0, s[3])
	}
	// zero padding at both edges
	assert.Equal(t, 0.0, out[0][0])
	assert.Equal(t, 0.0, out[1][0])
	assert.Equal(t, 1.0, out[2][0])
	assert.Equal(t, 0.0, out[5][2])
	assert.Equal(t, 6.0, out[3][2])
}

func TestFramesIsRestartable(t *testing.T) {
	d := newDecoder(t, testConfig(3), echo)
	seq := d.Frames("song", ramp(12))

	collect := func() []labels.Scores {
		var out []labels.Scores
		for s, err := range seq {
			require.NoError(t, err)
			out = append(out, s)
		}
		return out
	}

	first := collect()
	assert.Len(t, first, 12)
	assert.Equal(t, first, collect())

	calls := 0
	for range seq {
		calls++
		if calls == 3 {
			break
		}
	}
	assert.Equal(t, 3, calls)
}

func TestDecodeClassifierFailure(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	failing := ClassifierFunc(func(w features.Window) (labels.Scores, error) {
		calls++
		if calls == 5 {
			return labels.Scores{}, boom
		}
		return labels.Scores{}, nil
	})

	_, err := newDecoder(t, testConfig(9), failing).Decode("43-M1_ElChocolate", ramp(20))
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "frame 4")
	assert.Contains(t, err.Error(), "43-M1_ElChocolate")
	assert.Equal(t, 5, calls)
}

func TestDecodeShapeMismatch(t *testing.T) {
	_, err := newDecoder(t, testConfig(9), echo).Decode("odd", mat.NewDense(5, 10, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, features.ErrShapeMismatch))
}

func TestDecodeAll(t *testing.T) {
	recs := []dataset.Recording{
		{ID: "a", Features: ramp(3)},
		{ID: "b", Features: ramp(30)},
		{ID: "c", Features: ramp(11)},
	}

	out, err := newDecoder(t, testConfig(4), echo).DecodeAll(context.Background(), recs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, rec := range recs {
		assert.Len(t, out[i], features.Frames(rec.Features), rec.ID)
	}
}

func TestDecodeAllStopsOnFailure(t *testing.T) {
	recs := []dataset.Recording{
		{ID: "good", Features: ramp(8)},
		{ID: "bad", Features: mat.NewDense(4, 8, nil)},
	}

	_, err := newDecoder(t, testConfig(4), echo).DecodeAll(context.Background(), recs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, features.ErrShapeMismatch))
}
