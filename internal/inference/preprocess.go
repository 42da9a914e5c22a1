package inference

import (
	"image"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/cropdoc/internal/model"
)

// TensorSize is the number of values in one preprocessed image.
const TensorSize = model.ImageSize * model.ImageSize * model.Channels

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Preprocess turns an image into the classifier input: resized to
// 224x224, channels scaled from [0,255] to [0,1], laid out as NHWC with a
// batch of one.
func Preprocess(img image.Image) Tensor {
	size := model.ImageSize
	resized := resize.Resize(uint(size), uint(size), img, resize.Bicubic)

	bounds := resized.Bounds()
	data := make([]float32, TensorSize)
	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			data[i] = float32(r>>8) / 255.0
			data[i+1] = float32(g>>8) / 255.0
			data[i+2] = float32(b>>8) / 255.0
			i += model.Channels
		}
	}

	return Tensor{
		Shape: []int64{1, int64(size), int64(size), model.Channels},
		Data:  data,
	}
}
