package upload

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrFileTooLarge    = errors.New("File too large (10MB max)")
	ErrTypeNotAllowed  = errors.New("Only JPG/PNG files allowed")
	ErrNotConfigured   = errors.New("upload provider not configured")
	ErrInvalidPublicID = errors.New("invalid file id")
)

// UploadResult represents the result of a file upload
type UploadResult struct {
	URL          string `json:"url"`           // Public URL to access the file
	SecureURL    string `json:"secure_url"`    // HTTPS URL (for Cloudinary)
	FileName     string `json:"file_name"`     // Stored filename
	Size         int64  `json:"size"`          // File size in bytes
	Format       string `json:"format"`        // File extension/format
	ResourceType string `json:"resource_type"` // image, video, raw, etc.
	PublicID     string `json:"public_id"`     // Provider-specific identifier
}

// UploadOptions represents upload configuration options
type UploadOptions struct {
	Folder       string   `json:"folder"`        // Folder/directory to upload to
	PublicID     string   `json:"public_id"`     // Custom public ID
	Overwrite    bool     `json:"overwrite"`     // Overwrite existing file
	AllowedTypes []string `json:"allowed_types"` // Allowed MIME types
	MaxSize      int64    `json:"max_size"`      // Max file size in bytes
}

// Provider defines the interface for file storage backends
type Provider interface {
	// Upload stores the content under options.Folder and returns its location
	Upload(ctx context.Context, file io.Reader, filename, contentType string, options *UploadOptions) (*UploadResult, error)

	// Delete deletes a file by public ID
	Delete(ctx context.Context, publicID string) error

	// GetURL gets the public URL for a file
	GetURL(publicID string) string

	// GetProviderName returns the provider name
	GetProviderName() string
}

// DefaultUploadOptions returns default upload options
func DefaultUploadOptions() *UploadOptions {
	return &UploadOptions{
		Folder:       "transforms",
		AllowedTypes: []string{"image/jpeg", "image/png"},
		MaxSize:      10 * 1024 * 1024, // 10MB
	}
}

// MergeOptions merges custom options with defaults
func MergeOptions(custom *UploadOptions) *UploadOptions {
	defaults := DefaultUploadOptions()

	if custom == nil {
		return defaults
	}

	if custom.Folder != "" {
		defaults.Folder = custom.Folder
	}
	if custom.PublicID != "" {
		defaults.PublicID = custom.PublicID
	}
	if len(custom.AllowedTypes) > 0 {
		defaults.AllowedTypes = custom.AllowedTypes
	}
	if custom.MaxSize > 0 {
		defaults.MaxSize = custom.MaxSize
	}
	defaults.Overwrite = custom.Overwrite

	return defaults
}

// ExtensionFor maps the supported image types to a file extension.
func ExtensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

// cleanKey turns a folder and filename into a forward-slash object key and
// rejects anything that escapes the folder.
func cleanKey(folder, filename string) (string, error) {
	key := path.Clean(path.Join(strings.ReplaceAll(folder, "\\", "/"), filename))
	if key == "." || strings.HasPrefix(key, "../") || strings.HasPrefix(key, "/") || key == ".." {
		return "", ErrInvalidPublicID
	}
	return key, nil
}

func resourceType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	default:
		return "raw"
	}
}
