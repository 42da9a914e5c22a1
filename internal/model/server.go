package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/samber/lo"
	ort "github.com/yalue/onnxruntime_go"
)

// Server runs the classifier through ONNX Runtime. Its input and output
// tensors are allocated once and reused, so Score calls are serialized.
type Server struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// Load opens the model at cfg.ModelPath. A missing file yields
// ErrModelMissing; anything else that goes wrong yields ErrModelLoadFailure.
func Load(cfg LoadConfig) (*Server, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelMissing, cfg.ModelPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrModelLoadFailure, err)
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: initialize ONNX environment: %v", ErrModelLoadFailure, err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read model info: %v", ErrModelLoadFailure, err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("%w: expected one input and one output, got %d and %d",
			ErrModelLoadFailure, len(inputs), len(outputs))
	}

	inputShape, outputShape, err := resolveShapes(inputs[0].Dimensions, outputs[0].Dimensions, len(cfg.Classes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoadFailure, err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("%w: create input tensor: %v", ErrModelLoadFailure, err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		_ = inputTensor.Destroy()
		return nil, fmt.Errorf("%w: create output tensor: %v", ErrModelLoadFailure, err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		_ = inputTensor.Destroy()
		_ = outputTensor.Destroy()
		return nil, fmt.Errorf("%w: create ONNX session: %v", ErrModelLoadFailure, err)
	}

	return &Server{
		session: session,
		Metadata: Metadata{
			InputName:   inputs[0].Name,
			OutputName:  outputs[0].Name,
			InputShape:  inputShape,
			OutputShape: outputShape,
			Classes:     cfg.Classes,
			ImageSize:   ImageSize,
		},
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// resolveShapes checks the model's declared tensor shapes against what the
// pipeline produces and pins dynamic dimensions. The input must be NHWC
// (N, 224, 224, 3) and the output's last dimension must equal classes.
func resolveShapes(input, output ort.Shape, classes int) (ort.Shape, ort.Shape, error) {
	if len(input) != 4 {
		return nil, nil, fmt.Errorf("input must have 4 dimensions, got %v", input)
	}
	want := []int64{1, ImageSize, ImageSize, Channels}
	resolvedIn := make([]int64, len(input))
	for i, dim := range input {
		if dim > 0 && dim != want[i] {
			return nil, nil, fmt.Errorf("input shape %v does not match %v", input, want)
		}
		resolvedIn[i] = want[i]
	}

	if len(output) == 0 {
		return nil, nil, fmt.Errorf("output has no dimensions")
	}
	if width := output[len(output)-1]; width != int64(classes) {
		return nil, nil, fmt.Errorf("output width %d does not match %d classes", width, classes)
	}
	resolvedOut := lo.Map(output, func(dim int64, _ int) int64 {
		if dim <= 0 {
			return 1
		}
		return dim
	})
	if n := lo.Reduce(resolvedOut, func(acc int64, dim int64, _ int) int64 { return acc * dim }, int64(1)); n != int64(classes) {
		return nil, nil, fmt.Errorf("output shape %v holds %d scores, want %d", output, n, classes)
	}

	return ort.NewShape(resolvedIn...), ort.NewShape(resolvedOut...), nil
}

// Score runs one forward pass. The returned slice is owned by the caller.
func (s *Server) Score(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.inputTensor.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInputSize, len(input), len(data))
	}
	copy(data, input)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := s.outputTensor.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		_ = s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		_ = s.outputTensor.Destroy()
	}
	if s.session != nil {
		_ = s.session.Destroy()
	}
	_ = ort.DestroyEnvironment()
}
