package cmd

import (
	"fmt"

	"github.com/RyanBlaney/sonido-notes/dataset"
	"github.com/RyanBlaney/sonido-notes/features"
	"github.com/RyanBlaney/sonido-notes/labels"
	"github.com/RyanBlaney/sonido-notes/logging"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var (
	labelsOut string
	pitchOut  string
)

func init() {
	encodeCmd.Flags().StringVar(&labelsOut, "labels-out", "", "write frames x 6 state labels as .npy")
	encodeCmd.Flags().StringVar(&pitchOut, "pitch-out", "", "write per-frame pitch as .npy")
	rootCmd.AddCommand(encodeCmd)
}

var encodeCmd = &cobra.Command{
	Use:   "encode NOTES",
	Short: "Encodes a note annotation into frame state labels",
	Long: `Encodes a note annotation (onset, duration, pitch lines, or a MIDI file)
into one six-attribute state per 20ms frame.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, err := dataset.ReadNotes(args[0])
		if err != nil {
			return err
		}

		enc := labels.Encode(notes)
		if enc.Len() == 0 && (labelsOut != "" || pitchOut != "") {
			logging.Warn("Annotation has no notes, nothing written", logging.Fields{"notes": args[0]})
		}
		if labelsOut != "" && enc.Len() > 0 {
			if err := features.SaveFile(labelsOut, statesMatrix(enc.States)); err != nil {
				return err
			}
		}
		if pitchOut != "" && enc.Len() > 0 {
			if err := features.SaveFile(pitchOut, mat.NewDense(enc.Len(), 1, enc.Pitches)); err != nil {
				return err
			}
		}

		c := enc.Counts()
		fmt.Fprintf(cmd.OutOrStdout(), "notes=%d frames=%d onsets=%d offsets=%d boundaries=%d\n",
			len(notes), c.Frames, c.Onsets, c.Offsets, c.Boundaries)
		return nil
	},
}

// statesMatrix lays non-empty states out as a frames x 6 matrix
func statesMatrix(states []labels.StateVector) *mat.Dense {
	m := mat.NewDense(len(states), labels.NumAttributes, nil)
	for i, s := range states {
		m.SetRow(i, s.Float64())
	}
	return m
}
