package scoring

import (
	"math"

	"github.com/RyanBlaney/sonido-notes/labels"
	"gonum.org/v1/gonum/floats"
)

// minLog bounds log terms so saturated scores give a finite loss
const minLog = -100

// BinaryCrossEntropy returns the mean binary cross entropy between scores,
// read as per-attribute probabilities, and the reference labels. It averages
// over every attribute of every frame, 0 for an empty batch.
func BinaryCrossEntropy(predicted [][]labels.Scores, reference [][]labels.StateVector) (float64, error) {
	if err := checkShape(len(predicted), len(reference), func(i int) (int, int) {
		return len(predicted[i]), len(reference[i])
	}); err != nil {
		return 0, err
	}

	var terms []float64
	for i, seq := range predicted {
		for j, scores := range seq {
			ref := reference[i][j]
			for k, p := range scores {
				y := float64(ref[k])
				terms = append(terms, -(y*clampedLog(p) + (1-y)*clampedLog(1-p)))
			}
		}
	}

	if len(terms) == 0 {
		return 0, nil
	}
	return floats.Sum(terms) / float64(len(terms)), nil
}

func clampedLog(x float64) float64 {
	if x <= 0 {
		return minLog
	}
	return math.Max(math.Log(x), minLog)
}
