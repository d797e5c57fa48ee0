package credits

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/metrics"
)

var (
	ErrInsufficientCredits = errors.New("Insufficient credits")
	ErrInvalidAmount       = errors.New("Invalid credit amount")
	ErrUserNotFound        = errors.New("User not found")
)

const maxHistoryLimit = 100

// AuditRecorder receives ledger events.
type AuditRecorder interface {
	LogAction(ctx context.Context, userID, action, entityType, entityID string, metadata map[string]interface{}) error
}

type Service struct {
	repo  Repository
	audit AuditRecorder
}

func NewService(repo Repository, audit AuditRecorder) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.GetBalance(ctx, userID)
}

// Deduct spends amount credits and returns the remaining balance. A zero
// amount is a no-op that reports the current balance.
func (s *Service) Deduct(ctx context.Context, userID uuid.UUID, amount int, operation string, metadata map[string]interface{}) (int, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	if amount == 0 {
		return s.repo.GetBalance(ctx, userID)
	}

	remaining, err := s.repo.Deduct(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	metrics.RecordCreditsDeducted(amount)

	if operation == "" {
		operation = OperationImageGeneration
	}
	s.logUsage(ctx, userID, amount, operation, metadata)

	log.Info().
		Str("user_id", userID.String()).
		Int("amount", amount).
		Int("remaining", remaining).
		Str("operation", operation).
		Msg("Credits deducted")
	return remaining, nil
}

// Add credits a user, e.g. after a purchase or a manual top-up.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	balance, err := s.repo.Add(ctx, userID, amount)
	if err != nil {
		return 0, err
	}

	s.logUsage(ctx, userID, -amount, OperationManualTopUp, map[string]interface{}{"reason": reason})
	s.record(ctx, userID, "credits.add", map[string]interface{}{"amount": amount, "reason": reason, "balance": balance})

	log.Info().Str("user_id", userID.String()).Int("amount", amount).Int("balance", balance).Msg("Credits added")
	return balance, nil
}

// Refund returns credits spent on a failed operation.
func (s *Service) Refund(ctx context.Context, userID uuid.UUID, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	balance, err := s.repo.Add(ctx, userID, amount)
	if err != nil {
		return 0, err
	}

	s.logUsage(ctx, userID, -amount, OperationRefund, map[string]interface{}{"reason": reason})
	s.record(ctx, userID, "credits.refund", map[string]interface{}{"amount": amount, "reason": reason})

	log.Info().Str("user_id", userID.String()).Int("amount", amount).Str("reason", reason).Msg("Credits refunded")
	return balance, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]Usage, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.ListUsage(ctx, userID, limit)
}

// logUsage never fails the caller: the balance change is already committed.
func (s *Service) logUsage(ctx context.Context, userID uuid.UUID, creditsUsed int, operation string, metadata map[string]interface{}) {
	usage := &Usage{
		UserID:        userID,
		CreditsUsed:   creditsUsed,
		OperationType: operation,
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err == nil {
			usage.Metadata = datatypes.JSON(raw)
		}
	}
	if err := s.repo.LogUsage(ctx, usage); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Str("operation", operation).Msg("Failed to log credit usage")
	}
}

func (s *Service) record(ctx context.Context, userID uuid.UUID, action string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogAction(ctx, userID.String(), action, "user", userID.String(), metadata); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Failed to write audit log")
	}
}
