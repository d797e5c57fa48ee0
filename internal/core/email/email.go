package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/config"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Provider defines the interface for email providers
type Provider interface {
	SendEmail(ctx context.Context, msg Message) error
	GetProviderName() string
}

// Service wraps the email provider
type Service struct {
	provider Provider
}

// NewService creates a new email service with the specified provider
func NewService(provider Provider) *Service {
	return &Service{
		provider: provider,
	}
}

// NewProviderFromConfig returns nil when EMAIL_PROVIDER is unset.
func NewProviderFromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.EmailProvider {
	case "":
		return nil, nil
	case "brevo":
		if cfg.BrevoAPIKey == "" {
			return nil, fmt.Errorf("BREVO_API_KEY is required")
		}
		return NewBrevoProvider(cfg.BrevoAPIKey, cfg.EmailFrom, cfg.EmailFromName), nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("RESEND_API_KEY is required")
		}
		return NewResendProvider(cfg.ResendAPIKey, cfg.EmailFrom, cfg.EmailFromName), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.EmailProvider)
	}
}

// Enabled reports whether a provider is configured
func (s *Service) Enabled() bool {
	return s != nil && s.provider != nil
}

// Send delivers msg through the configured provider
func (s *Service) Send(ctx context.Context, msg Message) error {
	if !s.Enabled() {
		return fmt.Errorf("no email provider configured")
	}
	if err := s.provider.SendEmail(ctx, msg); err != nil {
		return err
	}
	log.Info().Str("provider", s.provider.GetProviderName()).Str("to", msg.To).Str("subject", msg.Subject).Msg("Email sent")
	return nil
}

// GetProviderName returns the name of the current provider
func (s *Service) GetProviderName() string {
	if !s.Enabled() {
		return "none"
	}
	return s.provider.GetProviderName()
}
