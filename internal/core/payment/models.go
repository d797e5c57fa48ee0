package payment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction status values. Gateway statuses other than Approved are stored
// lower-cased as received (declined, refunded, inprocessing, ...).
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

// Transaction is one purchase attempt of a credit package.
type Transaction struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	OrderReference string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"orderReference"`
	ProductID      string         `gorm:"type:varchar(100)" json:"productId"`
	Amount         float64        `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency       string         `gorm:"type:varchar(3);not null;default:'UAH'" json:"currency"`
	CreditsAdded   int            `gorm:"not null" json:"creditsAdded"`
	Status         string         `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"`
	PaymentSystem  string         `gorm:"type:varchar(50)" json:"paymentSystem"`
	CallbackData   datatypes.JSON `gorm:"type:jsonb" json:"-"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Transaction) TableName() string {
	return "payment_transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
