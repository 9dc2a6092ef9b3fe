package backend

import "errors"

// Sentinel errors for backend operations. The pipeline layer translates
// these into its caller-facing error taxonomy.
var (
	// ErrWeightsNotFound indicates the weight file does not exist.
	ErrWeightsNotFound = errors.New("backend: weights file not found")

	// ErrLoadFailed indicates the weight file exists but loading failed.
	ErrLoadFailed = errors.New("backend: failed to load model")

	// ErrClosed indicates a domain operation on a closed handle.
	ErrClosed = errors.New("backend: model handle is closed")

	// ErrShape indicates an input tensor with an unexpected shape.
	ErrShape = errors.New("backend: unexpected tensor shape")
)
