package storage

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"ecoquest/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractPublicID(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		baseFolder string
		want       string
	}{
		{
			name:       "standard delivery url",
			url:        "https://res.cloudinary.com/demo/image/upload/v1699999999/eco-quest/abc123.webp",
			baseFolder: "eco-quest",
			want:       "eco-quest/abc123",
		},
		{
			name:       "jpeg extension",
			url:        "https://res.cloudinary.com/demo/image/upload/eco-quest/photo.jpg",
			baseFolder: "eco-quest",
			want:       "eco-quest/photo",
		},
		{
			name:       "no extension",
			url:        "https://res.cloudinary.com/demo/image/upload/eco-quest/raw-id",
			baseFolder: "eco-quest",
			want:       "eco-quest/raw-id",
		},
		{
			name:       "bare filename",
			url:        "abc123.webp",
			baseFolder: "eco-quest",
			want:       "eco-quest/abc123",
		},
		{
			name:       "trailing slash yields empty id",
			url:        "https://res.cloudinary.com/demo/image/upload/",
			baseFolder: "eco-quest",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPublicID(tt.url, tt.baseFolder))
		})
	}
}

func TestValidatePayload(t *testing.T) {
	svc := &Service{
		Upload: config.UploadConfig{MaxFileSize: 10 * 1024 * 1024},
		Logger: zap.NewNop(),
	}

	t.Run("accepts a png payload", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

		assert.NoError(t, svc.ValidatePayload(buf.Bytes()))
	})

	t.Run("rejects non-image content", func(t *testing.T) {
		err := svc.ValidatePayload([]byte("%PDF-1.4 not a picture"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidContentType)
	})

	t.Run("rejects oversized payloads", func(t *testing.T) {
		small := &Service{
			Upload: config.UploadConfig{MaxFileSize: 8},
			Logger: zap.NewNop(),
		}

		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

		err := small.ValidatePayload(buf.Bytes())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})
}

func TestNewServiceRequiresCredentials(t *testing.T) {
	_, err := NewService(config.CloudinaryConfig{}, config.UploadConfig{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
