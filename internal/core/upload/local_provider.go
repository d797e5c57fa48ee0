package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalProvider stores files on disk; the API serves basePath under /uploads.
type LocalProvider struct {
	basePath   string // Base directory for uploads
	baseURL    string // Base URL to access files
	publicPath string // Public path for URL generation
}

// NewLocalProvider creates a new local file storage provider
func NewLocalProvider(basePath, baseURL string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &LocalProvider{
		basePath:   basePath,
		baseURL:    strings.TrimRight(baseURL, "/"),
		publicPath: "/uploads/",
	}, nil
}

// Upload writes a file below basePath
func (p *LocalProvider) Upload(ctx context.Context, file io.Reader, filename, contentType string, options *UploadOptions) (*UploadResult, error) {
	options = MergeOptions(options)

	ext := filepath.Ext(filename)
	finalFilename := filename
	if options.PublicID != "" {
		finalFilename = options.PublicID + ext
	}

	key, err := cleanKey(options.Folder, finalFilename)
	if err != nil {
		return nil, err
	}
	filePath := filepath.Join(p.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !options.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	out, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("file already exists: %s", key)
		}
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(out, file)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	publicURL := p.GetURL(key)
	return &UploadResult{
		URL:          publicURL,
		SecureURL:    publicURL,
		FileName:     filepath.Base(filePath),
		Size:         size,
		Format:       strings.TrimPrefix(ext, "."),
		ResourceType: resourceType(contentType),
		PublicID:     key,
	}, nil
}

// Delete deletes a file from local filesystem
func (p *LocalProvider) Delete(ctx context.Context, publicID string) error {
	key, err := cleanKey("", publicID)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(p.basePath, filepath.FromSlash(key))); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", publicID)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// GetURL gets the public URL for a file
func (p *LocalProvider) GetURL(publicID string) string {
	return p.baseURL + p.publicPath + publicID
}

// GetProviderName returns the provider name
func (p *LocalProvider) GetProviderName() string {
	return "Local Storage"
}
