package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	// Stdlib decoders registered for Inspect and the full decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	disimg "github.com/disintegration/imaging"

	// Extended decoders. webp here is decode-only; encoding goes
	// through chai2010/webp.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Target encodings produced by the pipeline.
const (
	FormatWebP = "webp"
	FormatJPEG = "jpeg"
)

// ErrUnsupportedFormat is returned when the payload is not a decodable image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// CompressionError wraps a pipeline stage failure. The cause is preserved
// for logs; callers surface only a generic message.
type CompressionError struct {
	Stage string
	Err   error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("image compression failed at %s: %v", e.Stage, e.Err)
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}

// Meta describes an image payload without fully decoding it.
type Meta struct {
	Width  int
	Height int
	Format string
}

// Options bounds the output of SmartCompress.
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// DefaultOptions returns the standard pipeline bounds.
func DefaultOptions() Options {
	return Options{
		MaxWidth:  1920,
		MaxHeight: 1080,
		Quality:   85,
	}
}

// CompressionResult is the output of a successful SmartCompress run.
type CompressionResult struct {
	Buffer         []byte
	Format         string
	Width          int
	Height         int
	OriginalSize   int
	CompressedSize int
	// CompressionRatio is the percentage saved relative to the original,
	// clamped at zero when re-encoding grows the payload.
	CompressionRatio int
}

// Inspect reads the image header and reports dimensions and source format
// without decoding pixel data.
func Inspect(buf []byte) (Meta, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return Meta{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	return Meta{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}

// SelectTargetFormat maps a source format to the encoding the pipeline
// produces: png and jpeg sources become webp, everything else becomes jpeg.
func SelectTargetFormat(sourceFormat string) string {
	switch sourceFormat {
	case "png", "jpeg", "jpg":
		return FormatWebP
	default:
		return FormatJPEG
	}
}

// SmartCompress runs the full ingestion pipeline: inspect, pick a target
// format, scale down to fit the bounds (never up), and re-encode. It holds
// no shared state and is safe for concurrent use. On any stage failure it
// returns a CompressionError and no partial output.
func SmartCompress(buf []byte, opts Options) (*CompressionResult, error) {
	meta, err := Inspect(buf)
	if err != nil {
		return nil, &CompressionError{Stage: "inspect", Err: err}
	}

	src, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, &CompressionError{Stage: "decode", Err: err}
	}

	if meta.Width > opts.MaxWidth || meta.Height > opts.MaxHeight {
		src = disimg.Fit(src, opts.MaxWidth, opts.MaxHeight, disimg.Lanczos)
	}

	targetFormat := SelectTargetFormat(meta.Format)

	var out bytes.Buffer
	switch targetFormat {
	case FormatWebP:
		err = webp.Encode(&out, src, &webp.Options{Quality: float32(opts.Quality)})
	default:
		err = disimg.Encode(&out, src, disimg.JPEG, disimg.JPEGQuality(opts.Quality))
	}
	if err != nil {
		return nil, &CompressionError{Stage: "encode", Err: err}
	}

	bounds := src.Bounds()
	originalSize := len(buf)
	compressedSize := out.Len()

	ratio := int(math.Round((1 - float64(compressedSize)/float64(originalSize)) * 100))
	if ratio < 0 {
		ratio = 0
	}

	return &CompressionResult{
		Buffer:           out.Bytes(),
		Format:           targetFormat,
		Width:            bounds.Dx(),
		Height:           bounds.Dy(),
		OriginalSize:     originalSize,
		CompressedSize:   compressedSize,
		CompressionRatio: ratio,
	}, nil
}
