package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-grantgate/grantgate/internal/models"

	"gorm.io/gorm"
)

// CreateToken persists a token record. Returns ErrDuplicateToken when the
// token hash collides with a live token; callers re-mint and retry.
func (s *Store) CreateToken(ctx context.Context, t *models.Token) error {
	err := s.db.WithContext(ctx).Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateToken
	}
	return err
}

// GetTokenByHash retrieves a token by the SHA-256 hash of its wire value.
func (s *Store) GetTokenByHash(ctx context.Context, hash string) (*models.Token, error) {
	var t models.Token
	if err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// GetTokenByHashAndType retrieves a token by hash restricted to a token type.
func (s *Store) GetTokenByHashAndType(
	ctx context.Context,
	hash string,
	tokenType models.TokenType,
) (*models.Token, error) {
	var t models.Token
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND token_type = ?", hash, tokenType).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// GetTokensByGrantID returns all live tokens issued under one grant.
func (s *Store) GetTokensByGrantID(ctx context.Context, grantID string) ([]models.Token, error) {
	var tokens []models.Token
	err := s.db.WithContext(ctx).
		Where("grant_id = ?", grantID).
		Order("created_at ASC").
		Find(&tokens).Error
	return tokens, err
}

// ExchangeCodeTokens consumes an authorization code and creates the
// replacement tokens in one transaction. The conditional delete on the code
// row is the single-use enforcement point: of two concurrent exchanges,
// exactly one deletes the row; the other sees 0 rows and ErrCodeAlreadyUsed.
// Either every new token is created and visible, or none are.
func (s *Store) ExchangeCodeTokens(
	ctx context.Context,
	codeHash string,
	newTokens []*models.Token,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where(
			"token_hash = ? AND token_type = ?",
			codeHash, models.TokenTypeAuthorizationCode,
		).Delete(&models.Token{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCodeAlreadyUsed
		}

		for _, t := range newTokens {
			if err := tx.Create(t).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrDuplicateToken
				}
				return err
			}
		}
		return nil
	})
}

// RefreshTokens performs a refresh exchange in one transaction.
//
// Rotation mode deletes the old refresh token (conditionally: a concurrent
// revoke that already removed it makes this exchange lose with ErrTokenGone)
// and optionally the grant's prior access tokens. Fixed mode touches the old
// refresh token's last_used_at under the same condition instead of deleting
// it. The new tokens are created in the same transaction.
func (s *Store) RefreshTokens(
	ctx context.Context,
	oldRefreshHash, grantID string,
	rotate, revokePriorAccess bool,
	newTokens []*models.Token,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rotate {
			res := tx.Where(
				"token_hash = ? AND token_type = ?",
				oldRefreshHash, models.TokenTypeRefreshToken,
			).Delete(&models.Token{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrTokenGone
			}

			if revokePriorAccess {
				if err := tx.Where(
					"grant_id = ? AND token_type = ?",
					grantID, models.TokenTypeAccessToken,
				).Delete(&models.Token{}).Error; err != nil {
					return err
				}
			}
		} else {
			now := time.Now()
			res := tx.Model(&models.Token{}).
				Where("token_hash = ? AND token_type = ?",
					oldRefreshHash, models.TokenTypeRefreshToken).
				Update("last_used_at", &now)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrTokenGone
			}
		}

		for _, t := range newTokens {
			if err := tx.Create(t).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrDuplicateToken
				}
				return err
			}
		}
		return nil
	})
}

// DeleteExpiredTokensBatch removes up to limit expired tokens.
func (s *Store) DeleteExpiredTokensBatch(ctx context.Context, limit int) (int64, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("expires_at < ?", time.Now()).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Token{})
	return res.RowsAffected, res.Error
}
