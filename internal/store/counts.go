package store

import (
	"context"
	"time"

	"github.com/go-grantgate/grantgate/internal/models"
)

// Count queries feeding the periodic gauge updates.

// CountActiveTokensByType counts unexpired tokens of one type.
func (s *Store) CountActiveTokensByType(
	ctx context.Context,
	tokenType models.TokenType,
) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("token_type = ? AND expires_at > ?", tokenType, time.Now()).
		Count(&count).Error
	return count, err
}

// CountIssuedTickets counts unexpired tickets still awaiting exchange.
func (s *Store) CountIssuedTickets(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UmaPermissionTicket{}).
		Where("status = ? AND expires_at > ?", models.TicketStatusIssued, time.Now()).
		Count(&count).Error
	return count, err
}
