package imagegen

import (
	"context"
	"net/http"
	"time"
)

// DemoProvider echoes the input image after a delay. Used when no provider
// key is configured.
type DemoProvider struct {
	delay time.Duration
}

func NewDemoProvider(delay time.Duration) *DemoProvider {
	return &DemoProvider{delay: delay}
}

func (p *DemoProvider) Name() string {
	return string(ProviderDemo)
}

func (p *DemoProvider) Generate(ctx context.Context, req *Request) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.delay):
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(req.Image)
	}
	return &Result{Image: req.Image, ContentType: contentType}, nil
}
