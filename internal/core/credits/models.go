package credits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Operation types recorded in credit_usage.
const (
	OperationImageGeneration = "image_generation"
	OperationRefund          = "refund"
	OperationManualTopUp     = "manual_topup"
)

// Usage is one ledger entry. Refunds and top-ups are stored with a negative
// CreditsUsed so that SUM(credits_used) is the net spend.
type Usage struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	CreditsUsed   int            `gorm:"not null" json:"credits_used"`
	OperationType string         `gorm:"type:varchar(50);not null" json:"operation_type"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (Usage) TableName() string {
	return "credit_usage"
}

func (u *Usage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
