package credits

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the ledger's persistence boundary.
type Repository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	Deduct(ctx context.Context, userID uuid.UUID, amount int) (int, error)
	Add(ctx context.Context, userID uuid.UUID, amount int) (int, error)
	LogUsage(ctx context.Context, usage *Usage) error
	ListUsage(ctx context.Context, userID uuid.UUID, limit int) ([]Usage, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type balanceRow struct {
	Credits int
}

// GetBalance returns 0 for unknown or inactive users.
func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var row balanceRow
	err := r.db.WithContext(ctx).
		Raw(`SELECT credits FROM users WHERE id = ? AND is_active = true`, userID).
		Scan(&row).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return row.Credits, nil
}

// Deduct is a single conditional UPDATE, so concurrent deductions can never
// drive the balance below zero.
func (r *repository) Deduct(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	var row balanceRow
	res := r.db.WithContext(ctx).Raw(
		`UPDATE users SET credits = GREATEST(credits - ?, 0), updated_at = NOW()
		 WHERE id = ? AND is_active = true AND credits >= ?
		 RETURNING credits`,
		amount, userID, amount,
	).Scan(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to deduct credits: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrInsufficientCredits
	}
	return row.Credits, nil
}

func (r *repository) Add(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	var row balanceRow
	res := r.db.WithContext(ctx).Raw(
		`UPDATE users SET credits = credits + ?, updated_at = NOW()
		 WHERE id = ?
		 RETURNING credits`,
		amount, userID,
	).Scan(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to add credits: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrUserNotFound
	}
	return row.Credits, nil
}

func (r *repository) LogUsage(ctx context.Context, usage *Usage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) ListUsage(ctx context.Context, userID uuid.UUID, limit int) ([]Usage, error) {
	var usages []Usage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&usages).Error
	return usages, err
}
