package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/sonido-notes/config"
	"github.com/RyanBlaney/sonido-notes/features"
	"github.com/RyanBlaney/sonido-notes/labels"
	"github.com/RyanBlaney/sonido-notes/sampling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const notes = `onset, duration, pitch
0.10, 0.30, 60.0
0.40, 0.20, 62.0
`

func writeSource(t *testing.T, dir, name string, frames int, body string) Source {
	t.Helper()

	featPath := filepath.Join(dir, name+".wav_FEAT.npy")
	require.NoError(t, features.SaveFile(featPath, mat.NewDense(6, frames, nil)))

	notePath := filepath.Join(dir, name+".notes.Corrected")
	require.NoError(t, os.WriteFile(notePath, []byte(body), 0o644))

	return Source{Features: featPath, Notes: notePath}
}

func testSampler(t *testing.T, windowSize int) *sampling.Sampler {
	t.Helper()
	cfg := config.Default()
	cfg.WindowSize = windowSize
	cfg.GroupHeight = 2
	s, err := sampling.NewSampler(cfg)
	require.NoError(t, err)
	return s
}

func TestLoad(t *testing.T) {
	src := writeSource(t, t.TempDir(), "song", 80, notes)

	rec, err := Load(src)
	require.NoError(t, err)
	assert.Equal(t, "song.wav_FEAT.npy", rec.ID)
	assert.Len(t, rec.Notes, 2)

	feats, enc, err := rec.Labelled()
	require.NoError(t, err)
	assert.Equal(t, enc.Len(), features.Frames(feats))
	assert.Less(t, enc.Len(), 80)
}

func TestLoadMalformedNotes(t *testing.T) {
	src := writeSource(t, t.TempDir(), "bad", 40, "header\n0.1, 0.2\n")
	src.ID = "bad-recording"

	_, err := Load(src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, labels.ErrMalformedAnnotation))
	assert.Contains(t, err.Error(), "bad-recording")
}

func TestRepeat(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a", 40, notes)
	b := writeSource(t, dir, "b", 40, notes)

	ds := New([]Source{a, b}, testSampler(t, 9)).Repeat(5)
	require.Equal(t, 5, ds.Len())
	assert.Equal(t, []Source{a, b, a, b, a}, ds.Sources())

	assert.Equal(t, 2, New([]Source{a, b}, nil).Repeat(0).Len())
}

func TestGet(t *testing.T) {
	dir := t.TempDir()
	ds := New([]Source{writeSource(t, dir, "song", 80, notes)}, testSampler(t, 9))

	sample, err := ds.Get(0, sampling.NewRand(0))
	require.NoError(t, err)
	assert.Equal(t, 9, sample.Features.Width())
	require.Len(t, sample.Labels, 1)
	assert.True(t, sample.Labels[0].Valid())

	_, err = ds.Get(1, sampling.NewRand(0))
	assert.Error(t, err)
}

func TestGetEmptyAnnotation(t *testing.T) {
	ds := New([]Source{writeSource(t, t.TempDir(), "silent", 40, "header\n")}, testSampler(t, 9))

	_, err := ds.Get(0, sampling.NewRand(0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sampling.ErrEmptyRecording))
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "deblas-1", "features": "a.npy", "notes": "a.notes"},
		{"features": "b.npy", "notes": "b.mid"}
	]`), 0o644))

	sources, err := ReadManifest(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "deblas-1", sources[0].ID)
	assert.Equal(t, "b.mid", sources[1].Notes)

	require.NoError(t, os.WriteFile(path, []byte(`[{"features": "a.npy"}]`), 0o644))
	_, err = ReadManifest(path)
	assert.Error(t, err)
}
