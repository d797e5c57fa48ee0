package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Provider implements file upload to AWS S3 or an S3-compatible store
type S3Provider struct {
	client     *s3.Client
	bucketName string
	baseURL    string // Base URL for accessing files (bucket URL or CDN)
}

// S3Config holds the connection settings. Endpoint is optional and switches
// the client to path-style addressing (MinIO, R2).
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Endpoint        string
	PublicBaseURL   string
}

// NewS3Provider creates a new AWS S3 provider
func NewS3Provider(ctx context.Context, c S3Config) (*S3Provider, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKeyID,
			c.SecretAccessKey,
			"",
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := c.PublicBaseURL
	switch {
	case baseURL != "":
	case c.Endpoint != "":
		baseURL = fmt.Sprintf("%s/%s", strings.TrimRight(c.Endpoint, "/"), c.Bucket)
	default:
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
	}

	return &S3Provider{
		client:     client,
		bucketName: c.Bucket,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload uploads a file to S3
func (p *S3Provider) Upload(ctx context.Context, file io.Reader, filename, contentType string, options *UploadOptions) (*UploadResult, error) {
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

	counter := &countingReader{r: file}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucketName),
		Key:         aws.String(key),
		Body:        counter,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := p.GetURL(key)
	return &UploadResult{
		URL:          publicURL,
		SecureURL:    publicURL,
		FileName:     finalFilename,
		Size:         counter.n,
		Format:       strings.TrimPrefix(ext, "."),
		ResourceType: resourceType(contentType),
		PublicID:     key,
	}, nil
}

// Delete deletes a file from S3
func (p *S3Provider) Delete(ctx context.Context, publicID string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// GetURL gets the public URL for a file from S3
func (p *S3Provider) GetURL(publicID string) string {
	return fmt.Sprintf("%s/%s", p.baseURL, publicID)
}

// GetProviderName returns the provider name
func (p *S3Provider) GetProviderName() string {
	return "AWS S3"
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)
	return n, err
}
