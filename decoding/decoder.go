package decoding

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/RyanBlaney/sonido-notes/config"
	"github.com/RyanBlaney/sonido-notes/dataset"
	"github.com/RyanBlaney/sonido-notes/features"
	"github.com/RyanBlaney/sonido-notes/labels"
	"github.com/RyanBlaney/sonido-notes/logging"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Classifier scores the center frame of a feature window
type Classifier interface {
	Classify(w features.Window) (labels.Scores, error)
}

// ClassifierFunc adapts a function to the Classifier interface
type ClassifierFunc func(w features.Window) (labels.Scores, error)

func (f ClassifierFunc) Classify(w features.Window) (labels.Scores, error) {
	return f(w)
}

// Decoder runs a frame classifier over whole recordings with a sliding window
type Decoder struct {
	classifier Classifier
	context    int // frames on each side of the decoded frame
	layout     features.Layout
	workers    int
	logger     logging.Logger
}

// NewDecoder creates a sliding window decoder around classifier.
// A nil cfg selects the defaults; any other cfg must pass Validate.
func NewDecoder(cfg *config.Config, classifier Classifier) (*Decoder, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decoder config: %w", err)
	}
	if classifier == nil {
		return nil, errors.New("decoder needs a classifier")
	}

	return &Decoder{
		classifier: classifier,
		context:    cfg.ContextFrames,
		layout:     features.Layout{Groups: cfg.Groups, Height: cfg.GroupHeight},
		workers:    cfg.DecodeWorkers,
		logger: logging.WithFields(logging.Fields{
			"component": "sliding_window_decoder",
		}),
	}, nil
}

// WindowSize returns the width of the window handed to the classifier
func (d *Decoder) WindowSize() int {
	return 2*d.context + 1
}

// Frames lazily decodes feats, yielding the classifier's scores for every frame
// in order. The recording is zero padded by the context width on both edges so
// every frame gets a centered window. Iteration stops after the first error.
// The windows passed to the classifier share memory with the padded recording
// and are only valid during the call.
func (d *Decoder) Frames(recording string, feats *mat.Dense) iter.Seq2[labels.Scores, error] {
	return func(yield func(labels.Scores, error) bool) {
		frames := features.Frames(feats)
		padded := features.Pad(feats, d.context, d.context)
		if _, err := d.layout.Window(padded, recording, 0); err != nil {
			yield(labels.Scores{}, err)
			return
		}

		width := d.WindowSize()
		for t := range frames {
			window := features.Window{Layout: d.layout, Data: features.Columns(padded, t, t+width)}

			scores, err := d.classifier.Classify(window)
			if err != nil {
				yield(labels.Scores{}, fmt.Errorf("recording %q frame %d: classifier failed: %w", recording, t, err))
				return
			}
			if !yield(scores, nil) {
				return
			}
		}
	}
}

// Decode returns the classifier's scores for every frame of feats
func (d *Decoder) Decode(recording string, feats *mat.Dense) ([]labels.Scores, error) {
	start := time.Now()
	out := make([]labels.Scores, 0, features.Frames(feats))

	for scores, err := range d.Frames(recording, feats) {
		if err != nil {
			return nil, err
		}
		out = append(out, scores)
	}

	d.logger.Debug("Decoded recording", logging.Fields{
		"recording": recording,
		"frames":    len(out),
		"elapsed":   time.Since(start).String(),
	})
	return out, nil
}

// DecodeAll decodes recordings concurrently, keeping at most the configured
// number of workers busy. The classifier must be safe for concurrent use.
// Results are in the order of recs. The first failure cancels the recordings
// that have not started yet.
func (d *Decoder) DecodeAll(ctx context.Context, recs []dataset.Recording) ([][]labels.Scores, error) {
	out := make([][]labels.Scores, len(recs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for i, rec := range recs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			scores, err := d.Decode(rec.ID, rec.Features)
			if err != nil {
				return err
			}
			out[i] = scores
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		d.logger.Error(err, "Failed to decode recordings", logging.Fields{
			"recordings": len(recs),
		})
		return nil, err
	}
	return out, nil
}
