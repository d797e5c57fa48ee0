package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const maxImageDownload = 32 << 20

// FluxProvider talks to the Black Forest Labs Kontext API: submit, poll the
// returned polling_url, then download result.sample.
type FluxProvider struct {
	apiKey       string
	endpoint     string
	pollInterval time.Duration
	maxPolls     int
	client       *http.Client
}

type FluxOption func(*FluxProvider)

func WithPollInterval(d time.Duration) FluxOption {
	return func(p *FluxProvider) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

func WithMaxPolls(n int) FluxOption {
	return func(p *FluxProvider) {
		if n > 0 {
			p.maxPolls = n
		}
	}
}

func WithHTTPClient(c *http.Client) FluxOption {
	return func(p *FluxProvider) {
		p.client = c
	}
}

func NewFluxProvider(apiKey, endpoint string, opts ...FluxOption) *FluxProvider {
	p := &FluxProvider{
		apiKey:       apiKey,
		endpoint:     endpoint,
		pollInterval: 2 * time.Second,
		maxPolls:     30,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *FluxProvider) Name() string {
	return string(ProviderFlux)
}

func (p *FluxProvider) Generate(ctx context.Context, req *Request) (*Result, error) {
	pollingURL, err := p.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for i := 0; i < p.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := p.poll(ctx, pollingURL)
		if err != nil {
			return nil, err
		}

		switch status.Get("status").String() {
		case "Ready":
			sample := status.Get("result.sample").String()
			if sample == "" {
				return nil, ErrEmptyResult
			}
			image, contentType, err := p.download(ctx, sample)
			if err != nil {
				return nil, err
			}
			return &Result{Image: image, ContentType: contentType, SourceURL: sample}, nil
		case "Error", "Failed":
			return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, status.Get("status").String())
		}

		log.Debug().Int("attempt", i+1).Str("status", status.Get("status").String()).Msg("Flux generation pending")
	}

	return nil, ErrTimeout
}

func (p *FluxProvider) submit(ctx context.Context, req *Request) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"prompt":      req.Prompt,
		"input_image": base64.StdEncoding.EncodeToString(req.Image),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.setHeaders(httpReq)

	body, err := p.do(httpReq)
	if err != nil {
		return "", err
	}

	pollingURL := gjson.GetBytes(body, "polling_url").String()
	if pollingURL == "" {
		return "", ErrNoPollingURL
	}
	return pollingURL, nil
}

func (p *FluxProvider) poll(ctx context.Context, pollingURL string) (gjson.Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pollingURL, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(httpReq)

	body, err := p.do(httpReq)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

func (p *FluxProvider) download(ctx context.Context, url string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download result: %s", resp.Status)
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxImageDownload))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read result: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(image)
	}
	return image, contentType, nil
}

func (p *FluxProvider) setHeaders(req *http.Request) {
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-key", p.apiKey)
}

func (p *FluxProvider) do(req *http.Request) ([]byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Flux API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Flux API error: %s - %s", resp.Status, string(body))
	}
	return body, nil
}
