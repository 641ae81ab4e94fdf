package cmd

import (
	"fmt"

	"github.com/RyanBlaney/sonido-notes/features"
	"github.com/RyanBlaney/sonido-notes/labels"
	"github.com/RyanBlaney/sonido-notes/scoring"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var scoreThreshold float64

func init() {
	scoreCmd.Flags().Float64Var(&scoreThreshold, "threshold", 0, "decision threshold, overrides the configured one when set")
	rootCmd.AddCommand(scoreCmd)
}

var scoreCmd = &cobra.Command{
	Use:   "score PREDICTED.npy REFERENCE.npy",
	Short: "Scores predicted frame scores against reference labels",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold := cfg.Threshold
		if cmd.Flags().Changed("threshold") {
			threshold = scoreThreshold
		}

		pred, err := loadFrameMatrix(args[0])
		if err != nil {
			return err
		}
		ref, err := loadFrameMatrix(args[1])
		if err != nil {
			return err
		}

		frames, _ := pred.Dims()
		predicted := make([]labels.Scores, frames)
		for i := range predicted {
			mat.Row(predicted[i][:], i, pred)
		}

		frames, _ = ref.Dims()
		reference := make([]labels.StateVector, frames)
		for i := range reference {
			for a := range labels.NumAttributes {
				if ref.At(i, a) > 0.5 {
					reference[i][a] = 1
				}
			}
		}

		batchPred := [][]labels.Scores{predicted}
		batchRef := [][]labels.StateVector{reference}

		report, err := scoring.NewScorer(threshold).Evaluate(batchPred, batchRef)
		if err != nil {
			return err
		}
		loss, err := scoring.BinaryCrossEntropy(batchPred, batchRef)
		if err != nil {
			return err
		}

		printReport(cmd.OutOrStdout(), report)
		fmt.Fprintf(cmd.OutOrStdout(), "bce=%.6f\n", loss)
		return nil
	},
}

// loadFrameMatrix reads a frames x 6 matrix
func loadFrameMatrix(path string) (*mat.Dense, error) {
	m, err := features.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if _, cols := m.Dims(); cols != labels.NumAttributes {
		return nil, fmt.Errorf("%s: expected %d columns, got %d", path, labels.NumAttributes, cols)
	}
	return m, nil
}
