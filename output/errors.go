package output

import "errors"

// Output errors.
var (
	// ErrNoFrames indicates a save was attempted on a result without
	// any decoded frames.
	ErrNoFrames = errors.New("output: result has no frames")

	// ErrUnsupportedFormat indicates a format outside SupportedFormats.
	ErrUnsupportedFormat = errors.New("output: unsupported format")

	// ErrEncoderMissing indicates the selected format needs ffmpeg and
	// no usable executable was found.
	ErrEncoderMissing = errors.New("output: ffmpeg not found")

	// ErrInvalidFrame indicates a frame tensor with the wrong shape.
	ErrInvalidFrame = errors.New("output: invalid frame tensor")

	// ErrWrite indicates a filesystem failure while writing output.
	ErrWrite = errors.New("output: write failed")
)
