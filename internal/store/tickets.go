package store

import (
	"context"
	"time"

	"github.com/go-grantgate/grantgate/internal/models"

	"gorm.io/gorm"
)

// CreateTicket persists a permission ticket.
func (s *Store) CreateTicket(ctx context.Context, t *models.UmaPermissionTicket) error {
	err := s.db.WithContext(ctx).Create(t).Error
	if IsDuplicate(err) {
		return ErrDuplicateToken
	}
	return err
}

// GetTicket retrieves a ticket by its opaque value.
func (s *Store) GetTicket(ctx context.Context, ticket string) (*models.UmaPermissionTicket, error) {
	var t models.UmaPermissionTicket
	if err := s.db.WithContext(ctx).Where("ticket = ?", ticket).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// ConsumeTicket flips a ticket issued -> consumed and creates the backing RPT
// grant and its tokens in the same transaction. The conditional update is the
// consume-once point: of two concurrent exchanges exactly one matches the
// `status = issued AND not expired` predicate; the loser gets
// ErrTicketConsumed or ErrTicketExpired depending on why it lost.
func (s *Store) ConsumeTicket(
	ctx context.Context,
	ticket string,
	grant *models.AuthorizationGrant,
	rptTokens []*models.Token,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UmaPermissionTicket{}).
			Where("ticket = ? AND status = ? AND expires_at > ?",
				ticket, models.TicketStatusIssued, time.Now()).
			Updates(map[string]any{
				"status":    models.TicketStatusConsumed,
				"deletable": false,
				"grant_id":  grant.GrantID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.classifyConsumeFailure(tx, ticket)
		}

		if err := tx.Create(grant).Error; err != nil {
			return err
		}
		for _, t := range rptTokens {
			if err := tx.Create(t).Error; err != nil {
				if IsDuplicate(err) {
					return ErrDuplicateToken
				}
				return err
			}
		}
		return nil
	})
}

// classifyConsumeFailure distinguishes why the conditional consume matched
// nothing: unknown ticket, already consumed, or expired.
func (s *Store) classifyConsumeFailure(tx *gorm.DB, ticket string) error {
	var t models.UmaPermissionTicket
	if err := tx.Where("ticket = ?", ticket).First(&t).Error; err != nil {
		return ErrTicketNotFound
	}
	if t.Status == models.TicketStatusConsumed {
		return ErrTicketConsumed
	}
	return ErrTicketExpired
}

// MarkExpiredTicketsBatch transitions up to limit overdue issued tickets to
// expired. Consumed tickets never match: they are deletable=false and their
// status is terminal.
func (s *Store) MarkExpiredTicketsBatch(ctx context.Context, limit int) (int64, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.UmaPermissionTicket{}).
		Where("status = ? AND deletable = ? AND expires_at < ?",
			models.TicketStatusIssued, true, time.Now()).
		Limit(limit).
		Pluck("ticket", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	res := s.db.WithContext(ctx).Model(&models.UmaPermissionTicket{}).
		Where("ticket IN ? AND status = ?", ids, models.TicketStatusIssued).
		Update("status", models.TicketStatusExpired)
	return res.RowsAffected, res.Error
}

// DeleteExpiredTicketsBatch removes up to limit tickets already marked expired.
func (s *Store) DeleteExpiredTicketsBatch(ctx context.Context, limit int) (int64, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.UmaPermissionTicket{}).
		Where("status = ?", models.TicketStatusExpired).
		Limit(limit).
		Pluck("ticket", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	res := s.db.WithContext(ctx).Where("ticket IN ?", ids).
		Delete(&models.UmaPermissionTicket{})
	return res.RowsAffected, res.Error
}
