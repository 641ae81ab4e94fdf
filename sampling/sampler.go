package sampling

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/RyanBlaney/sonido-notes/config"
	"github.com/RyanBlaney/sonido-notes/features"
	"github.com/RyanBlaney/sonido-notes/labels"
	"github.com/RyanBlaney/sonido-notes/logging"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyRecording is returned for recordings without a single labelled frame
var ErrEmptyRecording = errors.New("empty recording")

// Sample is one fixed-width training window
type Sample struct {
	Features features.Window      // Groups*Height x WindowSize
	Labels   []labels.StateVector // one centered state, or one state per frame
	Start    int                  // first frame of the window in the recording
	Padded   bool                 // recording was shorter than the window
}

// Sampler cuts training windows out of labelled recordings
type Sampler struct {
	windowSize int
	layout     features.Layout
	policy     config.LabelPolicy
	logger     logging.Logger
}

// NewSampler creates a window sampler from the shared configuration.
// A nil cfg selects the defaults; any other cfg must pass Validate.
func NewSampler(cfg *config.Config) (*Sampler, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sampler config: %w", err)
	}

	return &Sampler{
		windowSize: cfg.WindowSize,
		layout:     features.Layout{Groups: cfg.Groups, Height: cfg.GroupHeight},
		policy:     cfg.LabelPolicy,
		logger: logging.WithFields(logging.Fields{
			"component": "window_sampler",
		}),
	}, nil
}

// NewRand returns a deterministic random source for window selection
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// WindowSize returns the number of frames per window
func (s *Sampler) WindowSize() int {
	return s.windowSize
}

// Center returns the offset of the labelled frame inside a window
func (s *Sampler) Center() int {
	return (s.windowSize - 1) / 2
}

// Sample draws one window from a recording.
//
// Features beyond the last labelled frame are dropped. Recordings of at least
// WindowSize frames are cropped at a start drawn from rng; shorter ones are
// zero padded at the end to WindowSize frames. The labels returned depend on
// the sampler's label policy.
func (s *Sampler) Sample(rng *rand.Rand, recording string, feats *mat.Dense, states []labels.StateVector) (Sample, error) {
	length := min(features.Frames(feats), len(states))
	if length == 0 {
		return Sample{}, fmt.Errorf("recording %q: %w", recording, ErrEmptyRecording)
	}
	feats = features.Truncate(feats, length)
	states = states[:length]

	if length > s.windowSize-1 {
		return s.crop(rng, recording, feats, states)
	}
	return s.pad(recording, feats, states)
}

func (s *Sampler) crop(rng *rand.Rand, recording string, feats *mat.Dense, states []labels.StateVector) (Sample, error) {
	length := len(states)

	start := 0
	if hi := length - s.windowSize - 1; hi >= 0 {
		start = rng.IntN(hi + 1)
	}

	window := mat.DenseCopyOf(features.Columns(feats, start, start+s.windowSize))
	w, err := s.layout.Window(window, recording, start)
	if err != nil {
		return Sample{}, err
	}

	var lbls []labels.StateVector
	switch s.policy {
	case config.LabelWindow:
		lbls = make([]labels.StateVector, s.windowSize)
		copy(lbls, states[start:start+s.windowSize])
	default:
		lbls = []labels.StateVector{states[start+s.Center()]}
	}

	return Sample{Features: w, Labels: lbls, Start: start}, nil
}

func (s *Sampler) pad(recording string, feats *mat.Dense, states []labels.StateVector) (Sample, error) {
	length := len(states)
	missing := s.windowSize - length

	s.logger.Debug("Padding short recording", logging.Fields{
		"recording": recording,
		"frames":    length,
		"padding":   missing,
	})

	w, err := s.layout.Window(features.Pad(feats, 0, missing), recording, 0)
	if err != nil {
		return Sample{}, err
	}

	filler := labels.SilenceState
	if s.policy == config.LabelLegacy {
		filler = labels.StateVector{}
	}

	padded := make([]labels.StateVector, s.windowSize)
	copy(padded, states)
	for i := length; i < s.windowSize; i++ {
		padded[i] = filler
	}

	lbls := padded
	if s.policy == config.LabelCenter {
		lbls = padded[s.Center() : s.Center()+1]
	}

	return Sample{Features: w, Labels: lbls, Start: 0, Padded: true}, nil
}
