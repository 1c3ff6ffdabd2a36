package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"ecoquest/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// Custom errors for specific failure cases.
var (
	ErrFileTooLarge       = fmt.Errorf("file size exceeds limit")
	ErrInvalidContentType = fmt.Errorf("invalid content type")
	ErrMissingCredentials = fmt.Errorf("cloudinary credentials are missing")
	ErrCloudinaryInit     = fmt.Errorf("failed to initialize Cloudinary")
	ErrUploadFailed       = fmt.Errorf("failed to upload file")
	ErrDeleteFailed       = fmt.Errorf("failed to delete file")
)

// defaultImageFormats is the raster allow-list for challenge photos.
// Detection is by content sniffing, never by the client-supplied filename.
var defaultImageFormats = []string{"jpeg", "jpg", "png", "gif", "webp"}

// allowedContentTypes maps configured format names to sniffable MIME types
func allowedContentTypes(formats []string) []string {
	if len(formats) == 0 {
		formats = defaultImageFormats
	}
	types := make([]string, 0, len(formats))
	for _, f := range formats {
		types = append(types, "image/"+strings.TrimSpace(f))
	}
	return types
}

// ObjectStorage is the interface services depend on for photo persistence.
type ObjectStorage interface {
	Store(ctx context.Context, payload []byte, folder string) (*StoredObject, error)
	Delete(ctx context.Context, publicID string) error
}

// StoredObject identifies an uploaded object.
type StoredObject struct {
	PublicID  string
	SecureURL string
	Format    string
	Size      int
}

// Service wraps the Cloudinary client with retries, timeouts and payload
// validation.
type Service struct {
	Client *cloudinary.Cloudinary
	Config config.CloudinaryConfig
	Upload config.UploadConfig
	Logger *zap.Logger
}

// NewService creates a Cloudinary-backed storage service.
func NewService(cfg config.CloudinaryConfig, upload config.UploadConfig, logger *zap.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingCredentials
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCloudinaryInit, err)
	}

	logger.Info("Cloudinary service initialized",
		zap.String("base_folder", cfg.BaseFolder),
		zap.Int("max_retries", cfg.MaxRetries),
	)

	return &Service{
		Client: cld,
		Config: cfg,
		Upload: upload,
		Logger: logger,
	}, nil
}

// ptrBool returns a pointer to a bool.
func ptrBool(b bool) *bool {
	return &b
}

// ValidatePayload checks the raw bytes against the size cap and the image
// allow-list before any upload is attempted.
func (s *Service) ValidatePayload(payload []byte) error {
	if int64(len(payload)) > s.Upload.MaxFileSize {
		s.Logger.Warn("Payload size validation failed",
			zap.Int("size", len(payload)),
			zap.Int64("limit", s.Upload.MaxFileSize))
		return fmt.Errorf("%w: %d bytes exceeds %d bytes", ErrFileTooLarge, len(payload), s.Upload.MaxFileSize)
	}

	contentType := http.DetectContentType(payload)
	if !slices.Contains(allowedContentTypes(s.Upload.AllowedFormats), contentType) {
		s.Logger.Warn("Content type not allowed",
			zap.String("content_type", contentType))
		return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	return nil
}

// Store uploads a compressed image payload under the given folder, retrying
// transient failures with exponential backoff. Progressive delivery and
// automatic quality/format negotiation are requested as an eager
// transformation since the encoder emits baseline images only.
func (s *Service) Store(ctx context.Context, payload []byte, folder string) (*StoredObject, error) {
	startTime := time.Now()
	s.Logger.Info("Starting photo upload",
		zap.String("folder", folder),
		zap.Int("size", len(payload)))

	if err := s.ValidatePayload(payload); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Config.UploadTimeout)
	defer cancel()

	uploadParams := uploader.UploadParams{
		Folder:         folder,
		UseFilename:    ptrBool(false),
		UniqueFilename: ptrBool(true),
		ResourceType:   "image",
		Transformation: "q_auto,f_auto,fl_progressive",
	}

	var result *uploader.UploadResult
	operation := func() error {
		var opErr error
		result, opErr = s.Client.Upload.Upload(ctx, bytes.NewReader(payload), uploadParams)
		return opErr
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.Config.UploadTimeout / 2
	err := backoff.RetryNotify(
		operation,
		backoff.WithMaxRetries(b, uint64(s.Config.MaxRetries)),
		func(err error, d time.Duration) {
			s.Logger.Warn("Upload attempt failed",
				zap.String("folder", folder),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)

	if err != nil {
		s.Logger.Error("All upload attempts failed",
			zap.String("folder", folder),
			zap.Int("attempts", s.Config.MaxRetries),
			zap.Error(err))
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrUploadFailed, s.Config.MaxRetries, err)
	}

	s.Logger.Info("Photo uploaded successfully",
		zap.String("public_id", result.PublicID),
		zap.String("url", result.SecureURL),
		zap.Duration("duration", time.Since(startTime)))

	return &StoredObject{
		PublicID:  result.PublicID,
		SecureURL: result.SecureURL,
		Format:    result.Format,
		Size:      result.Bytes,
	}, nil
}

// Delete removes an object from Cloudinary by its public ID.
func (s *Service) Delete(ctx context.Context, publicID string) error {
	startTime := time.Now()
	s.Logger.Info("Starting photo deletion", zap.String("public_id", publicID))

	ctx, cancel := context.WithTimeout(ctx, s.Config.DeleteTimeout)
	defer cancel()

	_, err := s.Client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})

	if err != nil {
		s.Logger.Error("Failed to delete photo",
			zap.String("public_id", publicID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	s.Logger.Info("Photo deleted successfully",
		zap.String("public_id", publicID),
		zap.Duration("duration", time.Since(startTime)))
	return nil
}

// ExtractPublicID derives a deletable public ID from a delivery URL: the last
// path segment with its extension stripped, re-qualified under baseFolder.
// This is a contract with the upload convention above (single folder level,
// generated filename); URLs produced any other way will not round-trip.
func ExtractPublicID(rawURL, baseFolder string) string {
	segment := rawURL
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}

	if ext := path.Ext(segment); ext != "" {
		segment = strings.TrimSuffix(segment, ext)
	}

	if segment == "" {
		return ""
	}

	return baseFolder + "/" + segment
}
