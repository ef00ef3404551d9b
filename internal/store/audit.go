package store

import (
	"time"

	"github.com/go-grantgate/grantgate/internal/models"
)

// Audit log operations. These run on the audit worker goroutine, outside any
// request context, so they deliberately take no ctx.

func (s *Store) CreateAuditLog(l *models.AuditLog) error {
	return s.db.Create(l).Error
}

func (s *Store) CreateAuditLogBatch(logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.Create(logs).Error
}

// DeleteOldAuditLogs deletes audit logs created before cutoff.
func (s *Store) DeleteOldAuditLogs(cutoff time.Time) (int64, error) {
	res := s.db.Where("event_time < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}
