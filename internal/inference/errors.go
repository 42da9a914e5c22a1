package inference

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidImage      = errors.New("image could not be decoded")
	ErrScoreWidth        = errors.New("score vector does not match label count")
)
