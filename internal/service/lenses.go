package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
)

// cartLine finds the item's line in the user's active order.
func (s *CartService) cartLine(ctx context.Context, tx *repo.GormRepo, userID uuid.UUID, slug string, lock bool) (*models.Order, *models.OrderItem, error) {
	item, err := s.item(ctx, tx, slug)
	if err != nil {
		return nil, nil, err
	}
	order, err := tx.ActiveOrder(ctx, userID, lock)
	if isNotFound(err) {
		return nil, nil, newError(ErrNoActiveOrder, "Your Cart seems to be empty")
	}
	if err != nil {
		return nil, nil, err
	}
	line := findLine(order, item.ID)
	if line == nil {
		return nil, nil, newError(ErrNotInCart, "The Product is not in your cart!")
	}
	return order, line, nil
}

func (s *CartService) GetLenses(ctx context.Context, userID uuid.UUID, slug string) (*models.OrderItem, error) {
	_, line, err := s.cartLine(ctx, s.Repo, userID, slug, false)
	return line, err
}

// AttachLenses records prescription lenses for a cart line, replacing any
// lenses attached before.
func (s *CartService) AttachLenses(ctx context.Context, userID uuid.UUID, slug string, req transport.LensesRequest) (*models.OrderItem, error) {
	power := strings.TrimSpace(req.PowerType)
	kind := strings.TrimSpace(req.LensesType)
	if power == "" || kind == "" {
		return nil, newError(ErrValidation, "Please fill the power type and lenses type")
	}

	var itemID uint
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		_, line, err := s.cartLine(ctx, tx, userID, slug, true)
		if err != nil {
			return err
		}
		itemID = line.ItemID

		lenses := &models.EyeLenses{
			UserID:            userID,
			PowerType:         power,
			LensesType:        kind,
			PrescriptionImage: strings.TrimSpace(req.PrescriptionImage),
		}
		if err := tx.CreateLenses(ctx, lenses); err != nil {
			return err
		}
		if err := tx.UpdateOrderItem(ctx, line.ID, map[string]any{
			"lenses_id":       lenses.ID,
			"lenses_required": true,
		}); err != nil {
			return err
		}
		if line.LensesID != nil {
			return tx.DeleteLenses(ctx, *line.LensesID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Repo.OpenOrderItem(ctx, userID, itemID)
}

func (s *CartService) RemoveLenses(ctx context.Context, userID uuid.UUID, slug string) (*models.OrderItem, error) {
	var itemID uint
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		_, line, err := s.cartLine(ctx, tx, userID, slug, true)
		if err != nil {
			if errors.Is(err, ErrNotInCart) {
				return newError(ErrNotInCart, "Can't Find this Product in your cart")
			}
			return err
		}
		itemID = line.ItemID

		if !line.LensesRequired || line.LensesID == nil {
			return newError(ErrLensesNotAttached, "You don't have attached Lenses to this product")
		}
		if err := tx.UpdateOrderItem(ctx, line.ID, map[string]any{
			"lenses_id":       nil,
			"lenses_required": false,
		}); err != nil {
			return err
		}
		return tx.DeleteLenses(ctx, *line.LensesID)
	})
	if err != nil {
		return nil, err
	}
	return s.Repo.OpenOrderItem(ctx, userID, itemID)
}
