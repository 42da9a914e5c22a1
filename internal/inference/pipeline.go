package inference

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Brownie44l1/cropdoc/internal/advisory"
	"github.com/Brownie44l1/cropdoc/internal/model"
)

// NotLoaded is returned as both label and advice when no model is loaded.
const NotLoaded = "Model is not loaded"

// Result is the outcome of classifying one image.
type Result struct {
	ID          uuid.UUID          `json:"id" yaml:"id"`
	Class       string             `json:"class" yaml:"class"`
	Solution    string             `json:"solution" yaml:"solution"`
	Confidence  float32            `json:"confidence" yaml:"confidence"`
	Predictions map[string]float32 `json:"predictions,omitempty" yaml:"predictions,omitempty"`
	ModelLoaded bool               `json:"model_loaded" yaml:"model_loaded"`
}

// Observer receives the outcome of every completed inference.
type Observer interface {
	ObserveInference(class string, elapsed time.Duration)
}

// Recorder persists completed predictions.
type Recorder interface {
	Record(ctx context.Context, result Result) error
}

// Pipeline classifies leaf images with an optional scorer. A nil scorer
// means the model failed to load; every prediction then short-circuits to
// the NotLoaded result.
type Pipeline struct {
	scorer   model.Scorer
	log      *slog.Logger
	observer   Observer
	recorder   Recorder
	autoOrient bool
}

type Option func(*Pipeline)

// WithRecorder stores every prediction made by the model in r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithAutoOrient applies JPEG EXIF orientation before classifying uploads.
// Off by default: the model sees the stored pixel grid.
func WithAutoOrient(on bool) Option {
	return func(p *Pipeline) {
		p.autoOrient = on
	}
}

// WithObserver reports inference timings to o.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

func NewPipeline(scorer model.Scorer, log *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{scorer: scorer, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Loaded reports whether predictions run a model.
func (p *Pipeline) Loaded() bool {
	return p.scorer != nil
}

// Predict classifies img and attaches the advisory for the predicted class.
func (p *Pipeline) Predict(ctx context.Context, img image.Image) (Result, error) {
	if p.scorer == nil {
		return p.PredictTensor(ctx, nil)
	}

	return p.PredictTensor(ctx, Preprocess(img).Data)
}

// PredictTensor classifies an already preprocessed NHWC tensor.
func (p *Pipeline) PredictTensor(ctx context.Context, data []float32) (Result, error) {
	id := uuid.New()
	if p.scorer == nil {
		return Result{ID: id, Class: NotLoaded, Solution: NotLoaded}, nil
	}

	start := time.Now()
	scores, err := p.scorer.Score(ctx, data)
	if err != nil {
		return Result{}, err
	}
	if len(scores) != advisory.Count {
		return Result{}, fmt.Errorf("%w: got %d scores, want %d", ErrScoreWidth, len(scores), advisory.Count)
	}

	idx := ArgMax(scores)
	label, ok := advisory.LabelAt(idx)
	if !ok {
		return Result{}, fmt.Errorf("%w: no label at index %d", ErrScoreWidth, idx)
	}

	// JSON and YAML cannot carry NaN; it is reported as a zero score.
	predictions := make(map[string]float32, len(scores))
	for i, s := range scores {
		predictions[advisory.Labels[i].String()] = finite(s)
	}

	result := Result{
		ID:          id,
		Class:       label.String(),
		Solution:    advisory.AdviceFor(label.String()),
		Confidence:  finite(scores[idx]),
		Predictions: predictions,
		ModelLoaded: true,
	}

	elapsed := time.Since(start)
	p.log.Debug("Prediction done", "id", id, "class", result.Class, "confidence", result.Confidence, "elapsed", elapsed)
	if p.observer != nil {
		p.observer.ObserveInference(result.Class, elapsed)
	}
	if p.recorder != nil {
		if err := p.recorder.Record(ctx, result); err != nil {
			p.log.Warn("Record prediction", "id", id, "error", err)
		}
	}
	return result, nil
}

// PredictBytes decodes an uploaded JPEG or PNG and classifies it. Without a
// model the bytes are not inspected.
func (p *Pipeline) PredictBytes(ctx context.Context, data []byte) (Result, error) {
	if p.scorer == nil {
		return p.PredictTensor(ctx, nil)
	}
	img, _, err := p.Decode(data)
	if err != nil {
		return Result{}, err
	}
	return p.Predict(ctx, img)
}

// Decode turns upload bytes into the image the pipeline classifies.
func (p *Pipeline) Decode(data []byte) (*image.RGBA, string, error) {
	if p.autoOrient {
		return DecodeUpright(data)
	}
	return DecodeImage(data)
}

// ArgMax returns the index of the largest score, the lowest index on ties,
// or -1 for an empty vector. A NaN score wins over any number, so the first
// NaN index is returned when one is present.
func ArgMax(scores []float32) int {
	best := -1
	for i, s := range scores {
		if math.IsNaN(float64(s)) {
			return i
		}
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}

func finite(s float32) float32 {
	if math.IsNaN(float64(s)) {
		return 0
	}
	return s
}
