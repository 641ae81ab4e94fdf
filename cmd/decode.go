package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/sonido-notes/dataset"
	"github.com/RyanBlaney/sonido-notes/decoding"
	"github.com/RyanBlaney/sonido-notes/features"
	"github.com/RyanBlaney/sonido-notes/labels"
	"github.com/RyanBlaney/sonido-notes/logging"
	"github.com/RyanBlaney/sonido-notes/onnx"
	"github.com/RyanBlaney/sonido-notes/scoring"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var (
	modelPath    string
	ortLibrary   string
	useCUDA      bool
	decodeNotes  string
	decodeOut    string
	manifestPath string
)

func init() {
	decodeCmd.Flags().StringVar(&modelPath, "model", "", "exported ONNX frame classifier")
	decodeCmd.Flags().StringVar(&ortLibrary, "ort-library", "", "onnxruntime shared library")
	decodeCmd.Flags().BoolVar(&useCUDA, "cuda", false, "use the CUDA execution provider when available")
	decodeCmd.Flags().StringVar(&decodeNotes, "notes", "", "reference annotation to score against")
	decodeCmd.Flags().StringVar(&decodeOut, "out", "", "write frames x 6 scores as .npy")
	decodeCmd.Flags().StringVar(&manifestPath, "manifest", "", "JSON list of recordings to decode and score")
	_ = decodeCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(decodeCmd)
}

var decodeCmd = &cobra.Command{
	Use:   "decode [FEATURES]",
	Short: "Runs the frame classifier over whole recordings",
	Long: `Runs the frame classifier centered on every frame of a feature matrix.
With --notes the features are cut to the annotated frames and the result is
scored. With --manifest every listed recording is decoded and scored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 1) == (manifestPath != "") {
			return fmt.Errorf("give either FEATURES or --manifest")
		}

		ocfg := onnx.DefaultConfig(modelPath)
		ocfg.SharedLibraryPath = ortLibrary
		ocfg.UseCUDA = useCUDA

		classifier, err := onnx.New(ocfg, features.Layout{Groups: cfg.Groups, Height: cfg.GroupHeight}, cfg.DecodeWindow())
		if err != nil {
			return err
		}
		defer classifier.Close()

		decoder, err := decoding.NewDecoder(cfg, classifier)
		if err != nil {
			return err
		}

		if manifestPath != "" {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return decodeManifest(ctx, cmd.OutOrStdout(), decoder)
		}
		return decodeOne(cmd.OutOrStdout(), decoder, args[0])
	},
}

func decodeOne(out io.Writer, decoder *decoding.Decoder, path string) error {
	feats, err := features.LoadFile(path)
	if err != nil {
		return err
	}

	var reference []labels.StateVector
	if decodeNotes != "" {
		notes, err := dataset.ReadNotes(decodeNotes)
		if err != nil {
			return err
		}
		var enc labels.Encoding
		feats, enc, err = dataset.Recording{ID: path, Features: feats, Notes: notes}.Labelled()
		if err != nil {
			return err
		}
		reference = enc.States
	}

	scores, err := decoder.Decode(path, feats)
	if err != nil {
		return err
	}

	if decodeOut != "" {
		if err := features.SaveFile(decodeOut, scoresMatrix(scores)); err != nil {
			return err
		}
	}

	if reference == nil {
		fmt.Fprintf(out, "frames=%d\n", len(scores))
		return nil
	}

	report, err := scoring.NewScorer(cfg.Threshold).Evaluate(
		[][]labels.Scores{scores}, [][]labels.StateVector{reference[:len(scores)]})
	if err != nil {
		return err
	}
	printReport(out, report)
	return nil
}

func decodeManifest(ctx context.Context, out io.Writer, decoder *decoding.Decoder) error {
	sources, err := dataset.ReadManifest(manifestPath)
	if err != nil {
		return err
	}

	recs := make([]dataset.Recording, len(sources))
	reference := make([][]labels.StateVector, len(sources))
	for i, src := range sources {
		rec, err := dataset.Load(src)
		if err != nil {
			return err
		}
		feats, enc, err := rec.Labelled()
		if err != nil {
			return err
		}
		rec.Features = feats
		recs[i] = rec
		reference[i] = enc.States[:features.Frames(feats)]
	}

	predicted, err := decoder.DecodeAll(ctx, recs)
	if err != nil {
		return err
	}

	scorer := scoring.NewScorer(cfg.Threshold)
	perRecording := make([]float64, len(recs))
	for i, rec := range recs {
		report, err := scorer.Evaluate(predicted[i:i+1], reference[i:i+1])
		if err != nil {
			return err
		}
		perRecording[i] = report.Accuracy
		logging.Info("Scored recording", logging.Fields{
			"recording": rec.ID,
			"frames":    report.Frames,
			"accuracy":  report.Accuracy,
		})
	}

	report, err := scorer.Evaluate(predicted, reference)
	if err != nil {
		return err
	}
	printReport(out, report)
	fmt.Fprintf(out, "mean_recording_accuracy=%.4f\n", scoring.MeanAccuracy(perRecording))
	return nil
}

func scoresMatrix(scores []labels.Scores) *mat.Dense {
	m := mat.NewDense(len(scores), labels.NumAttributes, nil)
	for i, s := range scores {
		m.SetRow(i, s[:])
	}
	return m
}

func printReport(out io.Writer, r scoring.Report) {
	fmt.Fprintf(out, "frames=%d correct=%d accuracy=%.4f degenerate=%d\n",
		r.Frames, r.Correct, r.Accuracy, r.Degenerate)
	for p, acc := range r.PairAccuracy {
		fmt.Fprintf(out, "  %s=%.4f\n", labels.Pair(p), acc)
	}
}
