package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
)

func (r *GormRepo) CreateRefund(ctx context.Context, rf *models.Refund) error {
	return r.DB.WithContext(ctx).Omit("Order").Create(rf).Error
}

func (r *GormRepo) GetRefund(ctx context.Context, id uint) (*models.Refund, error) {
	var rf models.Refund
	if err := r.DB.WithContext(ctx).Preload("Order").First(&rf, id).Error; err != nil {
		return nil, err
	}
	return &rf, nil
}

func (r *GormRepo) ListRefunds(ctx context.Context, pendingOnly bool, offset, limit int) (int64, []models.Refund, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if pendingOnly {
			return db.Where("accepted = ?", false)
		}
		return db
	}

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Refund{}).Scopes(scope).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	refunds := make([]models.Refund, 0, limit)
	if err := r.DB.WithContext(ctx).
		Scopes(scope).
		Preload("Order").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&refunds).Error; err != nil {
		return 0, nil, err
	}
	return total, refunds, nil
}

func (r *GormRepo) AcceptRefund(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Model(&models.Refund{}).Where("id = ?", id).Update("accepted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
