package upload

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/config"
)

// Service provides file upload functionality with provider switching
type Service struct {
	provider Provider
	options  *UploadOptions
}

// NewService creates a new upload service
func NewService(provider Provider) *Service {
	return &Service{
		provider: provider,
		options:  DefaultUploadOptions(),
	}
}

// NewProviderFromConfig selects the storage backend by UPLOAD_PROVIDER.
func NewProviderFromConfig(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.UploadProvider {
	case "s3":
		return NewS3Provider(ctx, S3Config{
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Region:          cfg.AWSRegion,
			Bucket:          cfg.AWSBucket,
			Endpoint:        cfg.AWSEndpoint,
			PublicBaseURL:   cfg.UploadBaseURL,
		})
	case "cloudinary":
		return NewCloudinaryProvider(cfg.CloudinaryURL)
	case "local", "":
		baseURL := cfg.UploadBaseURL
		if baseURL == "" {
			baseURL = cfg.PublicURL
		}
		return NewLocalProvider(cfg.UploadDir, baseURL)
	default:
		return nil, fmt.Errorf("unknown upload provider: %s", cfg.UploadProvider)
	}
}

// ValidateImage checks size and MIME type. The declared type must be
// allowed and the content must sniff as the same kind of image.
func (s *Service) ValidateImage(data []byte, contentType string) error {
	if int64(len(data)) > s.options.MaxSize {
		return ErrFileTooLarge
	}
	if !s.allowed(contentType) {
		return ErrTypeNotAllowed
	}
	if sniffed := http.DetectContentType(data); !s.allowed(sniffed) {
		return ErrTypeNotAllowed
	}
	return nil
}

// ValidateHeader runs the cheap checks on a multipart header before the
// file is read.
func (s *Service) ValidateHeader(fh *multipart.FileHeader) error {
	if fh.Size > s.options.MaxSize {
		return ErrFileTooLarge
	}
	if !s.allowed(fh.Header.Get("Content-Type")) {
		return ErrTypeNotAllowed
	}
	return nil
}

// SaveImage validates and stores an image under folder with a generated
// name and returns its public location.
func (s *Service) SaveImage(ctx context.Context, data []byte, contentType, folder string) (*UploadResult, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}
	if err := s.ValidateImage(data, contentType); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%d_%s%s", time.Now().Unix(), uuid.New().String()[:8], ExtensionFor(contentType))
	result, err := s.provider.Upload(ctx, bytes.NewReader(data), filename, contentType, &UploadOptions{Folder: folder})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("provider", s.provider.GetProviderName()).
		Str("public_id", result.PublicID).
		Int64("size", result.Size).
		Msg("Image stored")
	return result, nil
}

// Delete deletes a file by public ID
func (s *Service) Delete(ctx context.Context, publicID string) error {
	if s.provider == nil {
		return ErrNotConfigured
	}
	return s.provider.Delete(ctx, publicID)
}

// GetURL gets the public URL for a file
func (s *Service) GetURL(publicID string) string {
	if s.provider == nil {
		return ""
	}
	return s.provider.GetURL(publicID)
}

// GetProviderName returns the current provider name
func (s *Service) GetProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.GetProviderName()
}

func (s *Service) allowed(contentType string) bool {
	for _, t := range s.options.AllowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}
