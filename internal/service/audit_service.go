package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/daksh-api/internal/models"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListRecent(ctx context.Context, action string, limit int) ([]models.AuditLog, error)
}

// AuditService writes the optional audit trail. A nil service or repository records nothing.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record stores entry; failures are logged and never surface to callers.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLog) {
	if s == nil || s.repo == nil || entry == nil {
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

// Recent lists the newest audit entries. Without a repository the trail is empty.
func (s *AuditService) Recent(ctx context.Context, action string, limit int) ([]models.AuditLog, error) {
	if s == nil || s.repo == nil {
		return []models.AuditLog{}, nil
	}
	logs, err := s.repo.ListRecent(ctx, action, limit)
	if err != nil {
		s.logger.Error("list audit logs failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}

// auditEntry builds an entry with a JSON payload.
func auditEntry(action, resource string, actor, resourceID string, values map[string]interface{}) *models.AuditLog {
	entry := &models.AuditLog{Action: action, Resource: resource}
	if actor != "" {
		entry.Actor = &actor
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if values != nil {
		if raw, err := json.Marshal(values); err == nil {
			entry.NewValues = raw
		}
	}
	return entry
}
