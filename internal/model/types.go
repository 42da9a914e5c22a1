package model

// ImageSize is the side of the square image the classifier expects.
const ImageSize = 224

// Channels is the number of colour channels per pixel (RGB).
const Channels = 3

// Metadata describes the loaded model's tensors.
type Metadata struct {
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// LoadConfig tells Load where the model and the runtime live.
type LoadConfig struct {
	ModelPath string
	// LibraryPath is the onnxruntime shared library. Empty uses the
	// platform default lookup.
	LibraryPath string
	// Classes are the label names in model output order.
	Classes []string
}
