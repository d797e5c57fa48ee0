package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxPageSize = 200

// Service provides audit logging functionality
type Service struct {
	db *gorm.DB
}

// NewService creates a new audit service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Log creates a new audit log entry
func (s *Service) Log(ctx context.Context, entry *AuditLog) error {
	info := requestInfoFrom(ctx)
	if entry.IPAddress == "" {
		entry.IPAddress = info.ip
	}
	if entry.UserAgent == "" {
		entry.UserAgent = info.userAgent
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// LogAction records an action. userID may be empty for system events.
func (s *Service) LogAction(ctx context.Context, userID, action, entityType, entityID string, metadata map[string]interface{}) error {
	entry := &AuditLog{
		Action:   action,
		Entity:   entityType,
		EntityID: entityID,
	}

	if id, err := uuid.Parse(userID); err == nil {
		entry.UserID = &id
	}

	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			log.Warn().Err(err).Str("action", action).Msg("Failed to serialize audit metadata")
		} else {
			entry.Metadata = datatypes.JSON(raw)
		}
	}

	return s.Log(ctx, entry)
}

// GetLogs retrieves audit logs with filtering
func (s *Service) GetLogs(ctx context.Context, filter AuditFilter) (*AuditLogResponse, error) {
	query := s.db.WithContext(ctx).Model(&AuditLog{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Entity != "" {
		query = query.Where("entity = ?", filter.Entity)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.StartDate != nil {
		query = query.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("created_at <= ?", *filter.EndDate)
	}

	var totalCount int64
	if err := query.Session(&gorm.Session{}).Count(&totalCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count audit logs: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	offset := (filter.Page - 1) * filter.PageSize

	logs := []AuditLog{}
	if err := query.
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}

	totalPages := int(totalCount) / filter.PageSize
	if int(totalCount)%filter.PageSize > 0 {
		totalPages++
	}

	return &AuditLogResponse{
		Logs:       logs,
		TotalCount: totalCount,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetActionStats returns how often each action was recorded since startDate
func (s *Service) GetActionStats(ctx context.Context, startDate *time.Time) (map[string]int64, error) {
	query := s.db.WithContext(ctx).Model(&AuditLog{}).Select("action, COUNT(*) as count")
	if startDate != nil {
		query = query.Where("created_at >= ?", *startDate)
	}

	var results []struct {
		Action string
		Count  int64
	}
	if err := query.Group("action").Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to get action stats: %w", err)
	}

	stats := make(map[string]int64, len(results))
	for _, result := range results {
		stats[result.Action] = result.Count
	}
	return stats, nil
}

// DeleteOldLogs deletes audit logs older than retention
func (s *Service) DeleteOldLogs(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < 24*time.Hour {
		return 0, fmt.Errorf("retention must be at least one day")
	}

	cutoff := s.db.NowFunc().Add(-retention)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		log.Info().Int64("deleted", result.RowsAffected).Dur("retention", retention).Msg("Deleted old audit logs")
	}
	return result.RowsAffected, nil
}
