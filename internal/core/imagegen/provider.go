package imagegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/config"
)

var (
	ErrNoPollingURL     = errors.New("No polling URL received")
	ErrGenerationFailed = errors.New("Generation failed")
	ErrTimeout          = errors.New("Generation timed out")
	ErrEmptyResult      = errors.New("Provider returned no image")
)

// Request is a single room transformation.
type Request struct {
	Prompt      string
	Image       []byte
	ContentType string
}

// Result holds the generated image. SourceURL is set when the provider
// hosted the output before it was downloaded.
type Result struct {
	Image       []byte
	ContentType string
	SourceURL   string
}

// Provider generates a staged room image from a photo and a prompt.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
	Name() string
}

// ProviderType selects the image backend.
type ProviderType string

const (
	ProviderFlux   ProviderType = "flux"
	ProviderOpenAI ProviderType = "openai"
	ProviderDemo   ProviderType = "demo"
)

// NewProvider builds the configured provider. Flux without a usable API key
// falls back to demo mode.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch ProviderType(cfg.ImageProvider) {
	case ProviderFlux:
		if cfg.FluxDemoMode() {
			log.Warn().Msg("BFL_API_KEY not set, image transforms run in demo mode")
			return NewDemoProvider(cfg.DemoDelay), nil
		}
		return NewFluxProvider(cfg.BFLAPIKey, cfg.BFLAPIURL,
			WithPollInterval(cfg.BFLPollInterval),
			WithMaxPolls(cfg.BFLMaxPolls),
		), nil

	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required")
		}
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIImageModel), nil

	case ProviderDemo:
		return NewDemoProvider(cfg.DemoDelay), nil

	default:
		return nil, fmt.Errorf("unknown image provider: %s", cfg.ImageProvider)
	}
}
