package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider uses the image edit endpoint with the uploaded photo as the
// base image.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return NewOpenAIProviderWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewOpenAIProviderWithConfig(cfg openai.ClientConfig, model string) *OpenAIProvider {
	if model == "" {
		model = "gpt-image-1"
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return string(ProviderOpenAI)
}

func (p *OpenAIProvider) Generate(ctx context.Context, req *Request) (*Result, error) {
	edit := openai.ImageEditRequest{
		Image:  &namedReader{Reader: bytes.NewReader(req.Image), name: uploadName(req.ContentType)},
		Prompt: req.Prompt,
		Model:  p.model,
		N:      1,
	}
	// gpt-image models always answer in base64 and reject response_format.
	if p.model == "dall-e-2" {
		edit.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := p.client.CreateEditImage(ctx, edit)
	if err != nil {
		return nil, fmt.Errorf("OpenAI image edit failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrEmptyResult
	}

	image, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return &Result{Image: image, ContentType: http.DetectContentType(image)}, nil
}

// namedReader gives the multipart builder a filename with the right extension.
type namedReader struct {
	io.Reader
	name string
}

func (r *namedReader) Name() string {
	return r.name
}

func uploadName(contentType string) string {
	if contentType == "image/jpeg" {
		return "room.jpg"
	}
	return "room.png"
}
