package store

import (
	"context"

	"github.com/go-grantgate/grantgate/internal/models"

	"gorm.io/gorm"
)

// CreateGrant persists a grant record.
func (s *Store) CreateGrant(ctx context.Context, g *models.AuthorizationGrant) error {
	return s.db.WithContext(ctx).Create(g).Error
}

// CreateGrantWithToken creates a grant and its first token in one
// transaction. Used for code issuance and client_credentials grants, where a
// grant must never be visible without its token.
func (s *Store) CreateGrantWithToken(
	ctx context.Context,
	g *models.AuthorizationGrant,
	t *models.Token,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		if err := tx.Create(t).Error; err != nil {
			if IsDuplicate(err) {
				return ErrDuplicateToken
			}
			return err
		}
		return nil
	})
}

// GetGrant retrieves a grant by its id.
func (s *Store) GetGrant(ctx context.Context, grantID string) (*models.AuthorizationGrant, error) {
	var g models.AuthorizationGrant
	if err := s.db.WithContext(ctx).Where("grant_id = ?", grantID).First(&g).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// DeleteGrantCascade removes a grant, every token issued under it, and —
// when the grant backs a consumed UMA ticket — the ticket record, in one
// transaction. A concurrent reader of the grant sees either the full
// pre-revoke token set or nothing.
func (s *Store) DeleteGrantCascade(ctx context.Context, grantID string) (int64, error) {
	var tokensDeleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g models.AuthorizationGrant
		if err := tx.Where("grant_id = ?", grantID).First(&g).Error; err != nil {
			return notFound(err)
		}

		res := tx.Where("grant_id = ?", grantID).Delete(&models.Token{})
		if res.Error != nil {
			return res.Error
		}
		tokensDeleted = res.RowsAffected

		if g.TicketID != "" {
			// Consumed tickets are retained only while their RPT grant lives
			if err := tx.Where("ticket = ?", g.TicketID).
				Delete(&models.UmaPermissionTicket{}).Error; err != nil {
				return err
			}
		}

		return tx.Where("grant_id = ?", grantID).Delete(&models.AuthorizationGrant{}).Error
	})
	return tokensDeleted, err
}

// DeleteOrphanGrantsBatch removes up to limit grants that no longer have any
// tokens. Called by the expiry sweep after token deletion.
func (s *Store) DeleteOrphanGrantsBatch(ctx context.Context, limit int) (int64, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.AuthorizationGrant{}).
		Where("NOT EXISTS (SELECT 1 FROM tokens WHERE tokens.grant_id = authorization_grants.grant_id)").
		Limit(limit).
		Pluck("grant_id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	var deleted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Consumed tickets die with their backing grant
		if err := tx.Where("grant_id IN ?", ids).
			Delete(&models.UmaPermissionTicket{}).Error; err != nil {
			return err
		}
		res := tx.Where("grant_id IN ?", ids).Delete(&models.AuthorizationGrant{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
