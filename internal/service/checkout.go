package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
)

const (
	PaymentOptionPayPal = "P"
	PaymentOptionStripe = "S"
)

type CheckoutService struct {
	Repo *repo.GormRepo
	// Country is stamped on every address entered at checkout.
	Country string
}

type CheckoutState struct {
	Order           *models.Order
	DefaultShipping *models.Address
	DefaultBilling  *models.Address
}

func (s *CheckoutService) country() string {
	if s.Country == "" {
		return "India"
	}
	return s.Country
}

func nonEmptyActive(ctx context.Context, tx *repo.GormRepo, userID uuid.UUID, lock bool) (*models.Order, error) {
	order, err := tx.ActiveOrder(ctx, userID, lock)
	if isNotFound(err) {
		return nil, newError(ErrNoActiveOrder, "Order Does Not Exist!")
	}
	if err != nil {
		return nil, err
	}
	if len(order.Items) == 0 {
		return nil, newError(ErrEmptyCart, "You don't have any items in your cart!")
	}
	return order, nil
}

func optionalDefault(ctx context.Context, tx *repo.GormRepo, userID uuid.UUID, kind string) (*models.Address, error) {
	a, err := tx.DefaultAddress(ctx, userID, kind)
	if isNotFound(err) {
		return nil, nil
	}
	return a, err
}

// View returns what the checkout page needs: the cart and any saved defaults.
func (s *CheckoutService) View(ctx context.Context, userID uuid.UUID) (*CheckoutState, error) {
	order, err := nonEmptyActive(ctx, s.Repo, userID, false)
	if err != nil {
		return nil, err
	}
	shipping, err := optionalDefault(ctx, s.Repo, userID, models.AddressShipping)
	if err != nil {
		return nil, err
	}
	billing, err := optionalDefault(ctx, s.Repo, userID, models.AddressBilling)
	if err != nil {
		return nil, err
	}
	return &CheckoutState{Order: order, DefaultShipping: shipping, DefaultBilling: billing}, nil
}

type addressInput struct {
	street, apartment, zip string
	makeDefault            bool
}

func (s *CheckoutService) saveAddress(ctx context.Context, tx *repo.GormRepo, userID uuid.UUID, kind string, in addressInput) (*models.Address, error) {
	street := strings.TrimSpace(in.street)
	zip := strings.TrimSpace(in.zip)
	if street == "" || zip == "" {
		return nil, newError(ErrValidation, "Please Fill all the required fields")
	}
	if in.makeDefault {
		if err := tx.ClearDefaultAddresses(ctx, userID, kind); err != nil {
			return nil, err
		}
	}
	a := &models.Address{
		UserID:           userID,
		StreetAddress:    street,
		ApartmentAddress: strings.TrimSpace(in.apartment),
		Country:          s.country(),
		ZipCode:          zip,
		AddressType:      kind,
		Default:          in.makeDefault,
	}
	if err := tx.CreateAddress(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Checkout attaches shipping and, when given, billing addresses to the active
// order and returns the payment option the client should continue with.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID, req transport.CheckoutRequest) (*models.Order, string, error) {
	option := strings.ToUpper(strings.TrimSpace(req.PaymentMethod))
	if option != PaymentOptionPayPal && option != PaymentOptionStripe {
		return nil, "", newError(ErrValidation, "Failed to Checkout")
	}

	var orderID uint
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		order, err := nonEmptyActive(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		orderID = order.ID

		var shipping *models.Address
		if req.UseDefaultShipping {
			shipping, err = optionalDefault(ctx, tx, userID, models.AddressShipping)
			if err != nil {
				return err
			}
			if shipping == nil {
				return newError(ErrNoDefaultAddress, "You do not have any default shipping address!")
			}
		} else {
			shipping, err = s.saveAddress(ctx, tx, userID, models.AddressShipping, addressInput{
				street:      req.ShippingStreetAddress,
				apartment:   req.ShippingApartmentAddress,
				zip:         req.ShippingZipCode,
				makeDefault: req.SetDefaultShipping,
			})
			if err != nil {
				return err
			}
		}

		fields := map[string]any{"shipping_address_id": shipping.ID}

		var billing *models.Address
		switch {
		case req.SameBillingAddress:
			billing, err = s.saveAddress(ctx, tx, userID, models.AddressBilling, addressInput{
				street:      shipping.StreetAddress,
				apartment:   shipping.ApartmentAddress,
				zip:         shipping.ZipCode,
				makeDefault: req.SetDefaultBilling,
			})
		case req.UseDefaultBilling:
			billing, err = optionalDefault(ctx, tx, userID, models.AddressBilling)
			if err == nil && billing == nil {
				err = newError(ErrNoDefaultAddress, "You do not have any default billing address!")
			}
		case strings.TrimSpace(req.BillingStreetAddress) != "" || strings.TrimSpace(req.BillingZipCode) != "":
			billing, err = s.saveAddress(ctx, tx, userID, models.AddressBilling, addressInput{
				street:      req.BillingStreetAddress,
				apartment:   req.BillingApartmentAddress,
				zip:         req.BillingZipCode,
				makeDefault: req.SetDefaultBilling,
			})
		}
		if err != nil {
			return err
		}
		if billing != nil {
			fields["billing_address_id"] = billing.ID
		}

		return tx.UpdateOrder(ctx, order.ID, fields)
	})
	if err != nil {
		return nil, "", err
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	provider := models.ProviderStripe
	if option == PaymentOptionPayPal {
		provider = models.ProviderPayPal
	}
	return order, provider, nil
}
