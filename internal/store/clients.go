package store

import (
	"context"

	"github.com/go-grantgate/grantgate/internal/models"
)

// Client operations

func (s *Store) CreateClient(ctx context.Context, c *models.Client) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *Store) GetClient(ctx context.Context, clientID string) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).Where("client_id = ?", clientID).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) UpdateClient(ctx context.Context, c *models.Client) error {
	return s.db.WithContext(ctx).Save(c).Error
}

// UMA resource registry operations

func (s *Store) CreateResource(ctx context.Context, r *models.UmaResource) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *Store) GetResource(ctx context.Context, resourceID string) (*models.UmaResource, error) {
	var r models.UmaResource
	err := s.db.WithContext(ctx).Where("resource_id = ?", resourceID).First(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}
