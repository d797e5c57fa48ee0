package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog represents a system audit log entry
type AuditLog struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`

	// Acting user; nil for gateway callbacks and scheduled tasks
	UserID *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`

	// Action details
	Action   string `json:"action" gorm:"type:text;not null;index"` // auth.register, credits.deduct, payment.approved, ...
	Entity   string `json:"entity" gorm:"type:text;not null;index"` // user, credits, payment, job
	EntityID string `json:"entity_id" gorm:"type:text;index"`       // ID of the affected entity

	// Request metadata
	IPAddress string `json:"ip_address,omitempty" gorm:"type:text"`
	UserAgent string `json:"user_agent,omitempty" gorm:"type:text"`

	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditFilter represents filters for querying audit logs
type AuditFilter struct {
	UserID    *uuid.UUID
	Action    string
	Entity    string
	EntityID  string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// AuditLogResponse represents paginated audit log response
type AuditLogResponse struct {
	Logs       []AuditLog `json:"logs"`
	TotalCount int64      `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
