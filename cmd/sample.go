package cmd

import (
	"fmt"

	"github.com/RyanBlaney/sonido-notes/dataset"
	"github.com/RyanBlaney/sonido-notes/sampling"
	"github.com/spf13/cobra"
)

var (
	sampleSeed  uint64
	sampleCount int
)

func init() {
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 0, "random seed, overrides the configured one when set")
	sampleCmd.Flags().IntVar(&sampleCount, "count", 1, "number of windows to draw")
	rootCmd.AddCommand(sampleCmd)
}

var sampleCmd = &cobra.Command{
	Use:   "sample FEATURES NOTES",
	Short: "Draws training windows from a recording",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sampleCount < 1 {
			return fmt.Errorf("--count must be positive, got %d", sampleCount)
		}

		seed := cfg.Seed
		if cmd.Flags().Changed("seed") {
			seed = sampleSeed
		}

		sampler, err := sampling.NewSampler(cfg)
		if err != nil {
			return err
		}

		ds := dataset.New([]dataset.Source{{Features: args[0], Notes: args[1]}}, sampler)
		rng := sampling.NewRand(seed)
		out := cmd.OutOrStdout()

		for i := range sampleCount {
			sample, err := ds.Get(0, rng)
			if err != nil {
				return err
			}

			branch := "crop"
			if sample.Padded {
				branch = "pad"
			}
			fmt.Fprintf(out, "%d start=%d branch=%s width=%d labels=%d", i, sample.Start, branch, sample.Features.Width(), len(sample.Labels))
			if len(sample.Labels) == 1 {
				fmt.Fprintf(out, " state=%v", sample.Labels[0])
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}
