package output

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/deanable/wanvidgen/vidruntime/backend"
)

// FrameImage converts a (channels, height, width) pixel tensor with
// values in 0-255 into an RGBA image. Values outside the range clamp.
func FrameImage(frame *backend.Tensor) (*image.RGBA, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil tensor", ErrInvalidFrame)
	}
	shape := frame.Shape()
	if len(shape) != 3 || shape[0] != backend.ImageChannels {
		return nil, fmt.Errorf("%w: shape %v, want (%d, h, w)",
			ErrInvalidFrame, shape, backend.ImageChannels)
	}

	h, w := shape[1], shape[2]
	plane := h * w
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = clampByte(frame.Data[0*plane+y*w+x])
			img.Pix[i+1] = clampByte(frame.Data[1*plane+y*w+x])
			img.Pix[i+2] = clampByte(frame.Data[2*plane+y*w+x])
			img.Pix[i+3] = 0xFF
		}
	}
	return img, nil
}

// ScaleFrame resizes img to width x height using Catmull-Rom
// interpolation.
func ScaleFrame(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
