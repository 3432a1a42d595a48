package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
)

const profileOrdersLimit = 20

type ProfileService struct {
	Repo *repo.GormRepo
}

func (s *ProfileService) profile(ctx context.Context, tx *repo.GormRepo, userID uuid.UUID) (*models.UserProfile, error) {
	p, err := tx.ProfileByUser(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	p = &models.UserProfile{UserID: userID}
	if err := tx.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Profile returns the user's profile, creating an empty one on first visit,
// together with the most recent finalized orders.
func (s *ProfileService) Profile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, []models.Order, error) {
	var p *models.UserProfile
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		p, err = s.profile(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	_, orders, err := s.Repo.ListOrderedOrders(ctx, userID, 0, profileOrdersLimit)
	if err != nil {
		return nil, nil, err
	}
	return p, orders, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, req transport.PatchProfileRequest) (*models.UserProfile, error) {
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				return nil, newError(ErrValidation, "Please enter a valid email")
			}
		}
		req.Email = &email
	}

	var p *models.UserProfile
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		if p, err = s.profile(ctx, tx, userID); err != nil {
			return err
		}
		if req.DisplayName != nil {
			p.DisplayName = strings.TrimSpace(*req.DisplayName)
		}
		if req.Email != nil {
			p.Email = *req.Email
		}
		if req.Phone != nil {
			p.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.OneClickPurchasing != nil {
			p.OneClickPurchasing = *req.OneClickPurchasing
		}
		return tx.SaveProfile(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
