package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrOrderNotFound = errors.New("Transaction not found")

// Repository is the persistence boundary of the payment service.
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByReference(ctx context.Context, orderReference string) (*Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Transaction, error)
	// CompleteAndCredit marks a pending order completed and credits its
	// owner in one database transaction. credited is false when the order
	// had already been completed.
	CompleteAndCredit(ctx context.Context, orderReference string, callbackData []byte) (txn *Transaction, credited bool, err error)
	// UpdateStatus never overwrites a completed order.
	UpdateStatus(ctx context.Context, orderReference, status string, callbackData []byte) error
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Transaction, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, txn *Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *repository) GetByReference(ctx context.Context, orderReference string) (*Transaction, error) {
	var txn Transaction
	err := r.db.WithContext(ctx).Where("order_reference = ?", orderReference).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Transaction, error) {
	var txns []Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

func (r *repository) CompleteAndCredit(ctx context.Context, orderReference string, callbackData []byte) (*Transaction, bool, error) {
	var txn Transaction
	credited := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_reference = ?", orderReference).
			First(&txn).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if txn.Status == StatusCompleted {
			return nil
		}

		updates := map[string]interface{}{"status": StatusCompleted}
		if len(callbackData) > 0 {
			updates["callback_data"] = datatypes.JSON(callbackData)
		}
		if err := tx.Model(&Transaction{}).Where("id = ?", txn.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to complete transaction: %w", err)
		}

		res := tx.Exec(
			`UPDATE users SET credits = credits + ?, updated_at = NOW() WHERE id = ?`,
			txn.CreditsAdded, txn.UserID,
		)
		if res.Error != nil {
			return fmt.Errorf("failed to add credits: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s not found", txn.UserID)
		}

		txn.Status = StatusCompleted
		credited = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &txn, credited, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderReference, status string, callbackData []byte) error {
	updates := map[string]interface{}{"status": status}
	if len(callbackData) > 0 {
		updates["callback_data"] = datatypes.JSON(callbackData)
	}
	return r.db.WithContext(ctx).Model(&Transaction{}).
		Where("order_reference = ? AND status <> ?", orderReference, StatusCompleted).
		Updates(updates).Error
}

func (r *repository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Transaction, error) {
	var txns []Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}
