package inference

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
)

// Accepted upload types.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

// DecodeImage sniffs and decodes an uploaded JPEG or PNG into an opaque RGB
// image with the pixel grid as stored; EXIF orientation is ignored. The
// detected MIME type is returned alongside.
func DecodeImage(data []byte) (*image.RGBA, string, error) {
	return decode(data, false)
}

// DecodeUpright is DecodeImage followed by the JPEG EXIF orientation, so
// phone photos come out upright.
func DecodeUpright(data []byte) (*image.RGBA, string, error) {
	return decode(data, true)
}

func decode(data []byte, upright bool) (*image.RGBA, string, error) {
	mt := mimetype.Detect(data)
	if !mt.Is(MIMEJPEG) && !mt.Is(MIMEPNG) {
		return nil, mt.String(), fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, mt.String(), fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	rgb := toOpaqueRGBA(img)
	if upright && mt.Is(MIMEJPEG) {
		rgb = applyOrientation(rgb, exifOrientation(data))
	}
	return rgb, mt.String(), nil
}

// toOpaqueRGBA drops the alpha channel without premultiplying, the way an
// RGB conversion of a PNG with transparency keeps the stored colours.
func toOpaqueRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			out.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}
