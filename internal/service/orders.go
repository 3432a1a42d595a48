package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/mykafka"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/pkg/util"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, util.Meta, error) {
	offset, limit := util.Calculate(page, size)
	total, orders, err := s.Repo.ListOrderedOrders(ctx, userID, offset, limit)
	if err != nil {
		return nil, util.Meta{}, err
	}
	return orders, util.NewMeta(page, limit, total), nil
}

// UserOrder returns one of the user's finalized orders. Another user's
// reference code is reported as missing.
func (s *OrderService) UserOrder(ctx context.Context, userID uuid.UUID, ref string) (*models.Order, error) {
	order, err := s.Repo.OrderByRefCode(ctx, strings.TrimSpace(ref), false)
	if isNotFound(err) || (err == nil && order.UserID != userID) {
		return nil, newError(ErrNotFound, "Order does not exist")
	}
	return order, err
}

type transition struct {
	event string
	allow func(*models.Order) error
	set   map[string]any
}

var (
	shipTransition = transition{
		event: "order_shipped",
		allow: func(o *models.Order) error {
			if o.BeingDelivered {
				return newError(ErrConflict, "Order is already being delivered")
			}
			return nil
		},
		set: map[string]any{"being_delivered": true},
	}
	receiveTransition = transition{
		event: "order_received",
		allow: func(o *models.Order) error {
			if !o.BeingDelivered {
				return newError(ErrConflict, "Order has not been shipped yet")
			}
			if o.Received {
				return newError(ErrConflict, "Order is already received")
			}
			return nil
		},
		set: map[string]any{"received": true},
	}
)

func (s *OrderService) MarkBeingDelivered(ctx context.Context, ref string) (*models.Order, error) {
	return s.advance(ctx, ref, shipTransition)
}

func (s *OrderService) MarkReceived(ctx context.Context, ref string) (*models.Order, error) {
	return s.advance(ctx, ref, receiveTransition)
}

func (s *OrderService) advance(ctx context.Context, ref string, t transition) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	var orderID uint
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		order, err := tx.OrderByRefCode(ctx, ref, true)
		if isNotFound(err) {
			return newError(ErrNotFound, "Order does not exist")
		}
		if err != nil {
			return err
		}
		if !order.Ordered {
			return newError(ErrConflict, "Order is not finalized")
		}
		if err := t.allow(order); err != nil {
			return err
		}
		orderID = order.ID
		return tx.UpdateOrder(ctx, order.ID, t.set)
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicOrder, ref, map[string]any{
		"type": t.event, "order_id": orderID, "ref_code": ref,
	})
	return s.Repo.GetOrder(ctx, orderID)
}
