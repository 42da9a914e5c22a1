//go:generate go run go.uber.org/mock/mockgen -source=scorer.go -destination=../mocks/mock_scorer.go -package=mocks
package model

import "context"

// Scorer turns a preprocessed image tensor into one score per class.
type Scorer interface {
	Score(ctx context.Context, input []float32) ([]float32, error)
}
