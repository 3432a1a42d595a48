package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
)

func (r *GormRepo) ProfileByUser(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) CreateProfile(ctx context.Context, p *models.UserProfile) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) SaveProfile(ctx context.Context, p *models.UserProfile) error {
	return r.DB.WithContext(ctx).Save(p).Error
}
