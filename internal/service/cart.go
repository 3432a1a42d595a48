package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/eyewear_shop/internal/metrics"
	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/mykafka"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
)

const (
	MsgItemAdded   = "The Product is Added to your cart!"
	MsgItemUpdated = "The Product is Updated to your cart!"
	MsgItemRemoved = "The Product is removed from your cart!"
	MsgQtyUpdated  = "This item quantity was updated."
	MsgCouponAdded = "Coupon Successfully Applied!"
	MsgLensesAdded = "Lenses are added to your product"
	MsgLensesGone  = "Successully Removed the Lenses"
)

type CartService struct {
	Repo    *repo.GormRepo
	Events  EventPublisher
	Metrics *metrics.ShopMetrics
	Now     Clock
}

func (s *CartService) item(ctx context.Context, tx *repo.GormRepo, slug string) (*models.Item, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("slug required: %w", ErrValidation)
	}
	item, err := tx.GetItemBySlug(ctx, slug)
	if isNotFound(err) {
		return nil, newError(ErrNotFound, "This product does not exist")
	}
	return item, err
}

// AddToCart puts one unit of the item into the user's active order, creating
// the order on first use. It reports whether a new line was attached (true)
// or an existing line's quantity was incremented (false).
func (s *CartService) AddToCart(ctx context.Context, userID uuid.UUID, slug string) (*models.Order, bool, error) {
	var (
		added   bool
		orderID uint
		itemID  uint
	)
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		item, err := s.item(ctx, tx, slug)
		if err != nil {
			return err
		}
		itemID = item.ID

		order, err := activeOrCreate(ctx, tx, userID, s.Now.now())
		if err != nil {
			return err
		}
		orderID = order.ID

		line, err := tx.OpenOrderItem(ctx, userID, item.ID)
		switch {
		case isNotFound(err):
			added = true
			return tx.CreateOrderItem(ctx, &models.OrderItem{
				UserID:   userID,
				ItemID:   item.ID,
				OrderID:  &order.ID,
				Quantity: 1,
			})
		case err != nil:
			return err
		case line.OrderID != nil && *line.OrderID == order.ID:
			return tx.IncrementOrderItem(ctx, line.ID, 1)
		default:
			// open line left detached from any order, adopt it
			added = true
			return tx.UpdateOrderItem(ctx, line.ID, map[string]any{"order_id": order.ID})
		}
	})
	if err != nil {
		return nil, false, err
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}

	action := "updated"
	if added {
		action = "added"
	}
	s.Metrics.CartUpdated(action)
	publish(ctx, s.Events, mykafka.TopicCart, userID.String(), map[string]any{
		"type": "add_cart_item", "user_id": userID.String(), "order_id": orderID, "item_id": itemID, "new_line": added,
	})
	return order, added, nil
}

// RemoveFromCart drops the whole line for the item, whatever its quantity.
func (s *CartService) RemoveFromCart(ctx context.Context, userID uuid.UUID, slug string) (*models.Order, error) {
	var orderID, itemID uint
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		item, err := s.item(ctx, tx, slug)
		if err != nil {
			return err
		}
		itemID = item.ID

		order, err := tx.ActiveOrder(ctx, userID, true)
		if isNotFound(err) {
			return newError(ErrNoActiveOrder, "You don't have any active order!")
		}
		if err != nil {
			return err
		}
		orderID = order.ID

		line := findLine(order, item.ID)
		if line == nil {
			return newError(ErrNotInCart, "The Product was not in your cart!")
		}
		return deleteLine(ctx, tx, line)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.CartUpdated("removed")
	publish(ctx, s.Events, mykafka.TopicCart, userID.String(), map[string]any{
		"type": "remove_cart_item", "user_id": userID.String(), "order_id": orderID, "item_id": itemID,
	})
	return s.Repo.GetOrder(ctx, orderID)
}

// DecrementItem takes one unit off the line. The last unit removes the line.
func (s *CartService) DecrementItem(ctx context.Context, userID uuid.UUID, slug string) (*models.Order, bool, error) {
	var (
		orderID, itemID uint
		removed         bool
	)
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		item, err := s.item(ctx, tx, slug)
		if err != nil {
			return err
		}
		itemID = item.ID

		order, err := tx.ActiveOrder(ctx, userID, true)
		if isNotFound(err) {
			return newError(ErrNoActiveOrder, "You do not have an active order")
		}
		if err != nil {
			return err
		}
		orderID = order.ID

		line := findLine(order, item.ID)
		if line == nil {
			return newError(ErrNotInCart, "This item was not in your cart")
		}
		if line.Quantity > 1 {
			return tx.IncrementOrderItem(ctx, line.ID, -1)
		}
		removed = true
		return deleteLine(ctx, tx, line)
	})
	if err != nil {
		return nil, false, err
	}

	s.Metrics.CartUpdated("decremented")
	publish(ctx, s.Events, mykafka.TopicCart, userID.String(), map[string]any{
		"type": "decrement_cart_item", "user_id": userID.String(), "order_id": orderID, "item_id": itemID, "removed": removed,
	})
	order, err := s.Repo.GetOrder(ctx, orderID)
	return order, removed, err
}

func deleteLine(ctx context.Context, tx *repo.GormRepo, line *models.OrderItem) error {
	if err := tx.DeleteOrderItem(ctx, line.ID); err != nil {
		return err
	}
	if line.LensesID != nil {
		return tx.DeleteLenses(ctx, *line.LensesID)
	}
	return nil
}

func (s *CartService) OrderSummary(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.ActiveOrder(ctx, userID, false)
	if isNotFound(err) {
		return nil, newError(ErrNoActiveOrder, "You don't have any items in your cart!")
	}
	return order, err
}

func (s *CartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*models.Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, newError(ErrValidation, "Please enter a coupon code")
	}

	var orderID uint
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		order, err := tx.ActiveOrder(ctx, userID, true)
		if isNotFound(err) {
			return newError(ErrNoActiveOrder, "You do not have any active order!")
		}
		if err != nil {
			return err
		}
		orderID = order.ID

		coupon, err := tx.CouponByCode(ctx, code)
		if isNotFound(err) {
			return newError(ErrNotFound, "This coupon does not exist")
		}
		if err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, order.ID, map[string]any{"coupon_id": coupon.ID})
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.CouponApplied()
	return s.Repo.GetOrder(ctx, orderID)
}

func (s *CartService) CreateCoupon(ctx context.Context, req transport.CreateCouponRequest) (*models.Coupon, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" || len(code) > 15 {
		return nil, fmt.Errorf("code must be 1-15 characters: %w", ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be > 0: %w", ErrValidation)
	}
	if _, err := s.Repo.CouponByCode(ctx, code); err == nil {
		return nil, fmt.Errorf("coupon %q exists: %w", code, ErrConflict)
	} else if !isNotFound(err) {
		return nil, err
	}

	c := &models.Coupon{Code: code, Amount: req.Amount}
	if err := s.Repo.CreateCoupon(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
