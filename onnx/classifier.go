package onnx

import (
	"fmt"
	"sync"

	"github.com/RyanBlaney/sonido-notes/features"
	"github.com/RyanBlaney/sonido-notes/labels"
	"github.com/RyanBlaney/sonido-notes/logging"
	ort "github.com/yalue/onnxruntime_go"
)

// Config describes the exported frame classifier
type Config struct {
	ModelPath         string `json:"model_path"`
	SharedLibraryPath string `json:"shared_library_path,omitempty"` // onnxruntime shared library, runtime default when empty
	InputName         string `json:"input_name"`
	OutputName        string `json:"output_name"`
	UseCUDA           bool   `json:"use_cuda"`
	IntraOpThreads    int    `json:"intra_op_threads"` // 0 lets onnxruntime pick
}

// DefaultConfig returns the tensor names used when exporting the classifier
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:  modelPath,
		InputName:  "input",
		OutputName: "output",
	}
}

var envMu sync.Mutex

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	return ort.InitializeEnvironment()
}

// Classifier scores feature windows with an ONNX model taking a
// (1, Groups, Height, Width) float32 input and producing six scores.
// It is safe for concurrent use.
type Classifier struct {
	session *ort.DynamicAdvancedSession
	layout  features.Layout
	width   int
	logger  logging.Logger
}

// New loads the model for windows of the given layout and width
func New(cfg Config, layout features.Layout, width int) (*Classifier, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "onnx_classifier",
		"model":     cfg.ModelPath,
	})

	if err := initEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("failed to set graph optimization: %w", err)
	}
	if err := opts.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		logger.Warn("Failed to set intra-op thread count", logging.Fields{"error": err.Error()})
	}

	if cfg.UseCUDA {
		if err := appendCUDA(opts); err != nil {
			logger.Warn("CUDA unavailable, running on CPU", logging.Fields{"error": err.Error()})
		} else {
			logger.Info("CUDA execution provider enabled")
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", cfg.ModelPath, err)
	}

	logger.Info("Loaded frame classifier", logging.Fields{
		"groups": layout.Groups,
		"height": layout.Height,
		"width":  width,
	})

	return &Classifier{session: session, layout: layout, width: width, logger: logger}, nil
}

func appendCUDA(opts *ort.SessionOptions) error {
	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer cudaOpts.Destroy()

	if err := cudaOpts.Update(map[string]string{"device_id": "0"}); err != nil {
		return err
	}
	return opts.AppendExecutionProviderCUDA(cudaOpts)
}

// Classify runs the model on one window
func (c *Classifier) Classify(w features.Window) (labels.Scores, error) {
	if err := c.checkWindow(w); err != nil {
		return labels.Scores{}, err
	}

	shape := ort.NewShape(1, int64(c.layout.Groups), int64(c.layout.Height), int64(c.width))
	input, err := ort.NewTensor(shape, w.Float32())
	if err != nil {
		return labels.Scores{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := c.session.Run([]ort.Value{input}, outputs); err != nil {
		return labels.Scores{}, fmt.Errorf("failed to run model: %w", err)
	}
	defer outputs[0].Destroy()

	output, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return labels.Scores{}, fmt.Errorf("model output is %T, want a float32 tensor", outputs[0])
	}
	return scoresFromOutput(output.GetData())
}

// Close releases the session
func (c *Classifier) Close() error {
	return c.session.Destroy()
}

func (c *Classifier) checkWindow(w features.Window) error {
	if w.Layout != c.layout {
		return fmt.Errorf("window layout %dx%d, model expects %dx%d",
			w.Layout.Groups, w.Layout.Height, c.layout.Groups, c.layout.Height)
	}
	if w.Width() != c.width {
		return fmt.Errorf("window width %d, model expects %d", w.Width(), c.width)
	}
	return nil
}

// scoresFromOutput accepts a (6), (1, 6) or (1, 1, 6) output, all flattening to six values
func scoresFromOutput(data []float32) (labels.Scores, error) {
	var scores labels.Scores
	if len(data) != labels.NumAttributes {
		return scores, fmt.Errorf("model produced %d values, want %d", len(data), labels.NumAttributes)
	}
	for i, v := range data {
		scores[i] = float64(v)
	}
	return scores, nil
}
