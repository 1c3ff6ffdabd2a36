package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, makeTestImage(width, height)))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, makeTestImage(width, height), &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func encodeGIF(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, makeTestImage(width, height), nil))
	return buf.Bytes()
}

func TestSelectTargetFormat(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"png", FormatWebP},
		{"jpeg", FormatWebP},
		{"jpg", FormatWebP},
		{"gif", FormatJPEG},
		{"bmp", FormatJPEG},
		{"tiff", FormatJPEG},
		{"webp", FormatJPEG},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectTargetFormat(tt.source))
		})
	}
}

func TestInspect(t *testing.T) {
	t.Run("reads dimensions and format from png header", func(t *testing.T) {
		meta, err := Inspect(encodePNG(t, 640, 480))
		require.NoError(t, err)
		assert.Equal(t, 640, meta.Width)
		assert.Equal(t, 480, meta.Height)
		assert.Equal(t, "png", meta.Format)
	})

	t.Run("reads jpeg format", func(t *testing.T) {
		meta, err := Inspect(encodeJPEG(t, 100, 100))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", meta.Format)
	})

	t.Run("rejects non-image payloads", func(t *testing.T) {
		_, err := Inspect([]byte("definitely not an image"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestSmartCompress(t *testing.T) {
	opts := DefaultOptions()

	t.Run("oversized png is scaled down and encoded as webp", func(t *testing.T) {
		original := encodePNG(t, 2500, 1500)

		result, err := SmartCompress(original, opts)
		require.NoError(t, err)

		assert.Equal(t, FormatWebP, result.Format)
		assert.LessOrEqual(t, result.Width, opts.MaxWidth)
		assert.LessOrEqual(t, result.Height, opts.MaxHeight)
		assert.Equal(t, len(original), result.OriginalSize)
		assert.Equal(t, len(result.Buffer), result.CompressedSize)
		assert.GreaterOrEqual(t, result.CompressionRatio, 0)
		assert.LessOrEqual(t, result.CompressionRatio, 100)
	})

	t.Run("small image keeps its dimensions", func(t *testing.T) {
		result, err := SmartCompress(encodeJPEG(t, 800, 600), opts)
		require.NoError(t, err)

		assert.Equal(t, 800, result.Width)
		assert.Equal(t, 600, result.Height)
		assert.Equal(t, FormatWebP, result.Format)
	})

	t.Run("gif source falls back to jpeg output", func(t *testing.T) {
		result, err := SmartCompress(encodeGIF(t, 300, 200), opts)
		require.NoError(t, err)

		assert.Equal(t, FormatJPEG, result.Format)

		// Output must itself be a decodable jpeg
		meta, err := Inspect(result.Buffer)
		require.NoError(t, err)
		assert.Equal(t, "jpeg", meta.Format)
	})

	t.Run("undecodable payload fails at inspect with no partial output", func(t *testing.T) {
		result, err := SmartCompress([]byte{0x00, 0x01, 0x02}, opts)
		require.Error(t, err)
		assert.Nil(t, result)

		var compErr *CompressionError
		require.ErrorAs(t, err, &compErr)
		assert.Equal(t, "inspect", compErr.Stage)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("never upscales small images", func(t *testing.T) {
		result, err := SmartCompress(encodePNG(t, 50, 40), opts)
		require.NoError(t, err)
		assert.Equal(t, 50, result.Width)
		assert.Equal(t, 40, result.Height)
	})
}
