// Package output turns generation results into files on disk: per-frame
// PNGs, animated GIFs encoded in-process, or mp4/webm/webp handed to an
// ffmpeg subprocess. Every save lands in its own run directory next to
// a preview.png thumbnail and a manifest.json recording the generation
// parameters.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deanable/wanvidgen/vidruntime"
	"github.com/deanable/wanvidgen/vidruntime/backend"
)

// Supported output formats.
const (
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatMP4  = "mp4"
	FormatWebM = "webm"
	FormatWebP = "webp"
)

// SupportedFormats lists the formats Save understands. PNG and GIF are
// encoded in-process; the rest need ffmpeg on the machine.
func SupportedFormats() []string {
	return []string{FormatPNG, FormatGIF, FormatMP4, FormatWebM, FormatWebP}
}

func ffmpegFormat(format string) bool {
	return format == FormatMP4 || format == FormatWebM || format == FormatWebP
}

// WriterConfig configures NewWriter.
type WriterConfig struct {
	// Dir is the root output directory. Each save creates a run
	// subdirectory beneath it.
	Dir string

	// Format selects the container, one of SupportedFormats.
	Format string

	// FFmpegPath overrides the ffmpeg executable. Empty relies on PATH.
	FFmpegPath string

	// Logger may be nil.
	Logger *zap.Logger
}

// Writer saves generation results under a root directory in one format.
type Writer struct {
	dir    string
	format string
	ffmpeg string
	log    *zap.Logger
}

// NewWriter validates the format and builds a writer. The root
// directory is created lazily on first save.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	supported := false
	for _, f := range SupportedFormats() {
		if format == f {
			supported = true
			break
		}
	}
	if !supported {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFormat, cfg.Format, strings.Join(SupportedFormats(), ", "))
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: output directory is required", ErrWrite)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{dir: cfg.Dir, format: format, ffmpeg: cfg.FFmpegPath, log: log}, nil
}

// Format returns the configured output format.
func (w *Writer) Format() string { return w.format }

// Save writes the result into a fresh run directory and returns its
// path. An empty runID gets a generated UUID. Every format also gets a
// preview.png thumbnail of the first frame. The manifest is written
// last, so a directory containing manifest.json holds a complete save.
func (w *Writer) Save(ctx context.Context, res *vidruntime.Result, runID string) (string, error) {
	if res == nil || res.FrameCount() == 0 {
		return "", ErrNoFrames
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	fps := res.FPS()
	if fps < 1 {
		fps = 1
	}

	outDir := filepath.Join(w.dir, runID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}

	var err error
	switch {
	case w.format == FormatPNG:
		err = writePNGFrames(outDir, res.Frames)
	case w.format == FormatGIF:
		err = w.writeGIF(outDir, res.Frames, fps)
	case ffmpegFormat(w.format):
		err = w.writeVideo(ctx, outDir, res.Frames, fps)
	}
	if err != nil {
		return "", err
	}

	if err := writePreview(outDir, res.Frames[0]); err != nil {
		return "", err
	}

	if err := writeManifest(outDir, res, runID, w.format, fps); err != nil {
		return "", err
	}

	w.log.Info("output saved",
		zap.String("dir", outDir),
		zap.String("format", w.format),
		zap.Int("frames", res.FrameCount()))
	return outDir, nil
}

// writePNGFrames writes one numbered PNG per frame.
func writePNGFrames(dir string, frames []*backend.Tensor) error {
	for i, frame := range frames {
		img, err := FrameImage(frame)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	return nil
}

// previewMaxEdge bounds the longest side of the preview thumbnail.
const previewMaxEdge = 256

// writePreview renders the first frame as preview.png, scaled so its
// longest side is at most previewMaxEdge. Frames already that small
// keep their size; aspect ratio is preserved.
func writePreview(dir string, frame *backend.Tensor) error {
	img, err := FrameImage(frame)
	if err != nil {
		return err
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	preview := img
	if longest > previewMaxEdge {
		scale := float64(previewMaxEdge) / float64(longest)
		w := int(float64(width)*scale + 0.5)
		h := int(float64(height)*scale + 0.5)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		preview = ScaleFrame(img, w, h)
	}

	f, err := os.Create(filepath.Join(dir, "preview.png"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := png.Encode(f, preview); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return f.Close()
}

// writeGIF encodes all frames into one looping animation.gif. Frames
// are quantized to the Plan9 palette with Floyd-Steinberg dithering.
func (w *Writer) writeGIF(dir string, frames []*backend.Tensor, fps int) error {
	delay := 100 / fps // GIF delays are centiseconds
	if delay < 1 {
		delay = 1
	}

	anim := &gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		img, err := FrameImage(frame)
		if err != nil {
			return err
		}
		paletted := image.NewPaletted(img.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, img.Bounds(), img, image.Point{})
		anim.Image = append(anim.Image, paletted)
		anim.Delay = append(anim.Delay, delay)
	}

	path := filepath.Join(dir, "animation.gif")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := gif.EncodeAll(f, anim); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return f.Close()
}

// writeVideo stages frames as PNGs and hands them to ffmpeg.
func (w *Writer) writeVideo(ctx context.Context, dir string, frames []*backend.Tensor, fps int) error {
	ffmpeg := w.ffmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	path, err := exec.LookPath(ffmpeg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncoderMissing, err)
	}

	stage := filepath.Join(dir, ".frames")
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer os.RemoveAll(stage)

	if err := writePNGFrames(stage, frames); err != nil {
		return err
	}

	args := []string{
		"-y",
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", filepath.Join(stage, "frame_%04d.png"),
	}
	switch w.format {
	case FormatMP4:
		args = append(args, "-c:v", "libx264", "-pix_fmt", "yuv420p",
			filepath.Join(dir, "video.mp4"))
	case FormatWebM:
		args = append(args, "-c:v", "libvpx-vp9", "-b:v", "0", "-crf", "32",
			filepath.Join(dir, "video.webm"))
	case FormatWebP:
		args = append(args, "-c:v", "libwebp", "-loop", "0",
			filepath.Join(dir, "animation.webp"))
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: ffmpeg: %v (stderr: %s)",
			ErrWrite, err, strings.TrimSpace(stderr.String()))
	}

	w.log.Debug("ffmpeg encode complete",
		zap.String("format", w.format),
		zap.Int("frames", len(frames)))
	return nil
}

// writeManifest records the run's provenance next to its frames.
func writeManifest(dir string, res *vidruntime.Result, runID, format string, fps int) error {
	manifest := map[string]any{
		"id":          runID,
		"created_at":  time.Now().UTC().Format(time.RFC3339),
		"format":      format,
		"fps":         fps,
		"frame_count": res.FrameCount(),
		"metadata":    res.Metadata,
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
