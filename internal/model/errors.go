package model

import "errors"

var (
	ErrModelMissing     = errors.New("model file not found")
	ErrModelLoadFailure = errors.New("model failed to load")
	ErrInputSize        = errors.New("input size does not match model input")
)
