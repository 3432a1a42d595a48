package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
)

func (r *GormRepo) DefaultAddress(ctx context.Context, userID uuid.UUID, addressType string) (*models.Address, error) {
	var a models.Address
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND address_type = ? AND \"default\" = ?", userID, addressType, true).
		Order("id DESC").
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) CreateAddress(ctx context.Context, a *models.Address) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

// ClearDefaultAddresses unsets the default flag on every (user, type) address.
func (r *GormRepo) ClearDefaultAddresses(ctx context.Context, userID uuid.UUID, addressType string) error {
	return r.DB.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND address_type = ? AND \"default\" = ?", userID, addressType, true).
		Update("default", false).Error
}
