package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
)

func withOrderGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_items.id ASC") }).
		Preload("Items.Item").
		Preload("Items.Lenses").
		Preload("Coupon").
		Preload("ShippingAddress").
		Preload("BillingAddress").
		Preload("Payment")
}

// ActiveOrder returns the user's unordered order with its full graph. When
// lock is set the order row is held FOR UPDATE until the transaction ends.
func (r *GormRepo) ActiveOrder(ctx context.Context, userID uuid.UUID, lock bool) (*models.Order, error) {
	q := r.DB.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order models.Order
	if err := withOrderGraph(q).Where("user_id = ? AND ordered = ?", userID, false).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *GormRepo) UpdateOrder(ctx context.Context, orderID uint, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := withOrderGraph(r.DB.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) OrderByRefCode(ctx context.Context, refCode string, lock bool) (*models.Order, error) {
	q := r.DB.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order models.Order
	if err := withOrderGraph(q).Where("ref_code = ?", refCode).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrderedOrders(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	base := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ? AND ordered = ?", userID, true)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	orders := make([]models.Order, 0, limit)
	if err := withOrderGraph(r.DB.WithContext(ctx)).
		Where("user_id = ? AND ordered = ?", userID, true).
		Order("ordered_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// OpenOrderItem returns the user's not-yet-ordered line for item.
func (r *GormRepo) OpenOrderItem(ctx context.Context, userID uuid.UUID, itemID uint) (*models.OrderItem, error) {
	var oi models.OrderItem
	if err := r.DB.WithContext(ctx).
		Preload("Item").
		Preload("Lenses").
		Where("user_id = ? AND item_id = ? AND ordered = ?", userID, itemID, false).
		First(&oi).Error; err != nil {
		return nil, err
	}
	return &oi, nil
}

func (r *GormRepo) CreateOrderItem(ctx context.Context, oi *models.OrderItem) error {
	return r.DB.WithContext(ctx).Omit("Item", "Lenses").Create(oi).Error
}

func (r *GormRepo) UpdateOrderItem(ctx context.Context, id uint, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.OrderItem{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) IncrementOrderItem(ctx context.Context, id uint, delta int) error {
	return r.UpdateOrderItem(ctx, id, map[string]any{"quantity": gorm.Expr("quantity + ?", delta)})
}

func (r *GormRepo) DeleteOrderItem(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&models.OrderItem{}, id).Error
}

func (r *GormRepo) MarkOrderItemsOrdered(ctx context.Context, orderID uint) (int64, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND ordered = ?", orderID, false).
		Update("ordered", true)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) CreateLenses(ctx context.Context, l *models.EyeLenses) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

func (r *GormRepo) DeleteLenses(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&models.EyeLenses{}, id).Error
}

func (r *GormRepo) CouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.DB.WithContext(ctx).Create(p).Error
}
