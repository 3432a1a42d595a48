package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/eyewear_shop/internal/metrics"
	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/mykafka"
	"github.com/Skotchmaster/eyewear_shop/internal/payment"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/pkg/logging"
)

const (
	MsgOrderDone      = "Order Successfully Done!"
	MsgOrderCancelled = "Order Cancelled!"
)

type PaymentService struct {
	Repo     *repo.GormRepo
	PayPal   *payment.PayPal
	Stripe   payment.Charger
	Currency string
	Events   EventPublisher
	Metrics  *metrics.ShopMetrics
	Now      Clock
	// RefCode generates order references; NewRefCode when nil.
	RefCode func() (string, error)
}

func (s *PaymentService) refCode() (string, error) {
	if s.RefCode != nil {
		return s.RefCode()
	}
	return NewRefCode()
}

// PayPalForm returns the form the browser posts to PayPal for the active order.
func (s *PaymentService) PayPalForm(ctx context.Context, userID uuid.UUID, buyer string) (*payment.Form, *models.Order, error) {
	if s.PayPal == nil {
		return nil, nil, errors.New("paypal is not configured")
	}
	order, err := nonEmptyActive(ctx, s.Repo, userID, false)
	if err != nil {
		return nil, nil, err
	}
	if order.BillingAddressID == nil {
		return nil, nil, newError(ErrBillingRequired, "You must have Billing Address to your order!")
	}
	if buyer == "" {
		buyer = userID.String()
	}
	form := s.PayPal.Form(payment.FormOrder{OrderID: order.ID, Buyer: buyer, Total: order.Total()})
	return &form, order, nil
}

// StripePage returns the order the card form is about to pay for.
func (s *PaymentService) StripePage(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	return nonEmptyActive(ctx, s.Repo, userID, false)
}

// StripeCharge charges the active order's total and finalizes the order.
// A declined card leaves the order untouched.
func (s *PaymentService) StripeCharge(ctx context.Context, userID uuid.UUID, token string) (*models.Order, error) {
	if s.Stripe == nil {
		return nil, errors.New("stripe is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, newError(ErrValidation, "Please provide a card token")
	}
	order, err := nonEmptyActive(ctx, s.Repo, userID, false)
	if err != nil {
		return nil, err
	}

	l := logging.FromContext(ctx).With("order_id", order.ID, "provider", models.ProviderStripe)
	req := payment.ChargeRequest{
		Amount:      order.Total(),
		Currency:    s.Currency,
		Source:      token,
		Description: fmt.Sprintf("Order %d", order.ID),
	}
	req.IdempotencyKey = payment.ChargeKey("order-"+strconv.FormatUint(uint64(order.ID), 10), req)
	charge, err := s.Stripe.Charge(ctx, req)
	if err != nil {
		s.Metrics.PaymentFailed(models.ProviderStripe)
		if errors.Is(err, payment.ErrDeclined) {
			l.Warn("charge_declined", "error", err)
			return nil, newError(ErrPaymentFailed, "Your card has been declined.")
		}
		l.Error("charge_error", "error", err)
		return nil, newError(ErrPaymentFailed, "Something went wrong with the payment, you were not charged. Please try again.")
	}

	return s.CompletePayment(ctx, userID, models.ProviderStripe, charge.ID)
}

// PaymentDone is the PayPal return hook. Without a transaction id the order
// id stands in for it. The txn id is not checked with PayPal here; that is
// the job of the IPN consumer.
func (s *PaymentService) PaymentDone(ctx context.Context, userID uuid.UUID, txnID string) (*models.Order, error) {
	txnID = strings.TrimSpace(txnID)
	if txnID == "" {
		order, err := nonEmptyActive(ctx, s.Repo, userID, false)
		if err != nil {
			return nil, err
		}
		txnID = strconv.FormatUint(uint64(order.ID), 10)
	}
	return s.CompletePayment(ctx, userID, models.ProviderPayPal, txnID)
}

// CompletePayment turns the active order into a finalized order: its lines
// are marked ordered, a payment for the order total is recorded and a fresh
// reference code is assigned. The next add-to-cart starts a new order.
func (s *PaymentService) CompletePayment(ctx context.Context, userID uuid.UUID, provider, txnID string) (*models.Order, error) {
	var orderID uint
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		order, err := nonEmptyActive(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		orderID = order.ID

		if _, err := tx.MarkOrderItemsOrdered(ctx, order.ID); err != nil {
			return err
		}

		p := &models.Payment{
			UserID:        userID,
			Provider:      provider,
			TransactionID: txnID,
			Amount:        order.Total(),
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return err
		}

		ref, err := s.refCode()
		if err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, order.ID, map[string]any{
			"ordered":    true,
			"ordered_at": s.Now.now(),
			"ref_code":   ref,
			"payment_id": p.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	amount := order.Payment.Amount
	s.Metrics.OrderPaid(provider, s.Currency, amount.InexactFloat64())
	publish(ctx, s.Events, mykafka.TopicOrder, *order.RefCode, map[string]any{
		"type":     "order_paid",
		"user_id":  userID.String(),
		"order_id": order.ID,
		"ref_code": *order.RefCode,
		"provider": provider,
		"amount":   amount.StringFixed(2),
		"currency": s.Currency,
	})
	logging.FromContext(ctx).Info("order_paid", "order_id", order.ID, "provider", provider, "amount", amount.StringFixed(2))
	return order, nil
}
