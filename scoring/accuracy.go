package scoring

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-notes/labels"
	"github.com/RyanBlaney/sonido-notes/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Report summarizes how well predicted frames match the reference
type Report struct {
	Frames       int                      `json:"frames"`
	Correct      int                      `json:"correct"`       // frames matching on all six attributes
	Accuracy     float64                  `json:"accuracy"`      // Correct / Frames
	PairAccuracy [labels.NumPairs]float64 `json:"pair_accuracy"` // per attribute pair
	Degenerate   int                      `json:"degenerate"`    // frames with a pair that could not be normalized
}

// Scorer thresholds classifier scores and compares them with reference labels
type Scorer struct {
	threshold float64
	logger    logging.Logger
}

// NewScorer creates a scorer with the given decision threshold
func NewScorer(threshold float64) *Scorer {
	return &Scorer{
		threshold: threshold,
		logger: logging.WithFields(logging.Fields{
			"component": "frame_scorer",
		}),
	}
}

// Binarize normalizes each attribute pair of scores to sum to 1 and thresholds
// every element. The returned mask reports, per pair, whether normalization was
// possible; a pair whose sum is not a positive finite number is left at zero.
// Thresholding is element-wise, so a pair can come out as (0,0) or (1,1).
func (s *Scorer) Binarize(scores labels.Scores) (labels.StateVector, [labels.NumPairs]bool) {
	var out labels.StateVector
	var ok [labels.NumPairs]bool

	for p := range labels.Pair(labels.NumPairs) {
		a, b := p.Attributes()
		pair := scores[a : b+1]

		sum := floats.Sum(pair)
		if math.IsNaN(sum) || math.IsInf(sum, 0) || sum <= 0 {
			continue
		}
		ok[p] = true

		for i, v := range pair {
			if v/sum > s.threshold {
				out[int(a)+i] = 1
			}
		}
	}
	return out, ok
}

// Evaluate scores a batch of predicted frame sequences against the reference.
// A frame is correct when all six thresholded values equal the reference.
// Frames with a pair that cannot be normalized count as mismatches.
func (s *Scorer) Evaluate(predicted [][]labels.Scores, reference [][]labels.StateVector) (Report, error) {
	if err := checkShape(len(predicted), len(reference), func(i int) (int, int) {
		return len(predicted[i]), len(reference[i])
	}); err != nil {
		return Report{}, err
	}

	var report Report
	var pairCorrect [labels.NumPairs]int

	for i, seq := range predicted {
		for j, scores := range seq {
			ref := reference[i][j]
			got, ok := s.Binarize(scores)

			report.Frames++
			frameOK := true
			degenerate := false
			for p := range labels.Pair(labels.NumPairs) {
				a, b := p.Attributes()
				match := ok[p] && got[a] == ref[a] && got[b] == ref[b]
				if match {
					pairCorrect[p]++
				}
				frameOK = frameOK && match
				degenerate = degenerate || !ok[p]
			}

			if frameOK {
				report.Correct++
			}
			if degenerate {
				report.Degenerate++
			}
		}
	}

	if report.Frames == 0 {
		return report, nil
	}

	report.Accuracy = float64(report.Correct) / float64(report.Frames)
	for p, c := range pairCorrect {
		report.PairAccuracy[p] = float64(c) / float64(report.Frames)
	}

	if report.Degenerate > 0 {
		s.logger.Debug("Unnormalizable score pairs counted as mismatches", logging.Fields{
			"degenerate": report.Degenerate,
			"frames":     report.Frames,
		})
	}
	return report, nil
}

// Accuracy returns the ratio of fully matching frames over the whole batch
func (s *Scorer) Accuracy(predicted [][]labels.Scores, reference [][]labels.StateVector) (float64, error) {
	report, err := s.Evaluate(predicted, reference)
	if err != nil {
		return 0, err
	}
	return report.Accuracy, nil
}

// MeanAccuracy averages per-batch accuracies, 0 for no batches
func MeanAccuracy(batches []float64) float64 {
	if len(batches) == 0 {
		return 0
	}
	return stat.Mean(batches, nil)
}

func checkShape(predicted, reference int, lengths func(i int) (int, int)) error {
	if predicted != reference {
		return fmt.Errorf("batch size mismatch: %d predicted sequences, %d reference sequences", predicted, reference)
	}
	for i := range predicted {
		p, r := lengths(i)
		if p != r {
			return fmt.Errorf("sequence %d: %d predicted frames, %d reference frames", i, p, r)
		}
	}
	return nil
}
