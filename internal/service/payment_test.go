package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/payment"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
)

func TestNewRefCode(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^[a-z0-9]{20}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewRefCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Len(t, seen, 50)
}

func TestStripeCharge_CompletesOrder(t *testing.T) {
	s := newTestShop(t)
	ctx := context.Background()
	user := uuid.New()
	seedItem(t, s.repo, "aviator", "2500", "2000")
	seedCoupon(t, s.repo, "SAVE100", "100")

	_, _, err := s.cart.AddToCart(ctx, user, "aviator")
	require.NoError(t, err)
	_, err = s.cart.ApplyCoupon(ctx, user, "SAVE100")
	require.NoError(t, err)

	order, err := s.payments.StripeCharge(ctx, user, "tok_visa")
	require.NoError(t, err)

	require.Len(t, s.charger.reqs, 1)
	req := s.charger.reqs[0]
	assert.Equal(t, "1900.00", req.Amount.StringFixed(2))
	assert.Equal(t, "INR", req.Currency)
	assert.Regexp(t, fmt.Sprintf("^order-%d-[0-9a-f]{16}$", order.ID), req.IdempotencyKey)

	assert.True(t, order.Ordered)
	require.NotNil(t, order.RefCode)
	assert.Len(t, *order.RefCode, 20)
	require.NotNil(t, order.OrderedAt)
	assert.True(t, fixedNow.Equal(*order.OrderedAt))
	require.NotNil(t, order.Payment)
	assert.Equal(t, models.ProviderStripe, order.Payment.Provider)
	assert.Equal(t, "ch_test_1", order.Payment.TransactionID)
	assert.Equal(t, "1900.00", order.Payment.Amount.StringFixed(2))
	for _, it := range order.Items {
		assert.True(t, it.Ordered)
	}
	assert.Contains(t, s.events.types(), "order_paid")

	_, err = s.cart.OrderSummary(ctx, user)
	require.ErrorIs(t, err, ErrNoActiveOrder, "paid order is no longer the cart")

	next, added, err := s.cart.AddToCart(ctx, user, "aviator")
	require.NoError(t, err)
	assert.True(t, added)
	assert.NotEqual(t, order.ID, next.ID)
}

func TestStripeCharge_Declined(t *testing.T) {
	s := newTestShop(t)
	ctx := context.Background()
	user := uuid.New()
	seedItem(t, s.repo, "aviator", "2500", "")

	_, _, err := s.cart.AddToCart(ctx, user, "aviator")
	require.NoError(t, err)

	s.charger.err = fmt.Errorf("stripe: card declined: %w", payment.ErrDeclined)
	_, err = s.payments.StripeCharge(ctx, user, "tok_chargeDeclined")
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, "Your card has been declined.", Message(err))

	s.charger.err = errors.New("connection reset")
	_, err = s.payments.StripeCharge(ctx, user, "tok_visa")
	require.ErrorIs(t, err, ErrPaymentFailed)

	order, err := s.cart.OrderSummary(ctx, user)
	require.NoError(t, err)
	assert.False(t, order.Ordered, "order untouched after a failed charge")
	assert.Nil(t, order.PaymentID)

	_, err = s.payments.StripeCharge(ctx, user, " ")
	require.ErrorIs(t, err, ErrValidation)
}

// replayStripe mimics Stripe's idempotency handling: a known key replays the
// stored response, a known key with different parameters is a 400.
type replayStripe struct {
	mu   sync.Mutex
	seen map[string]replayed
}

type replayed struct {
	form   url.Values
	status int
	body   string
}

func (rs *replayStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	key := r.Header.Get("Idempotency-Key")

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if prev, ok := rs.seen[key]; ok {
		if prev.form.Encode() != r.PostForm.Encode() {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"idempotency_error","message":"Keys for idempotent requests can only be used with the same parameters"}}`))
			return
		}
		w.WriteHeader(prev.status)
		_, _ = w.Write([]byte(prev.body))
		return
	}

	res := replayed{form: r.PostForm, status: http.StatusOK,
		body: `{"id":"ch_` + r.PostForm.Get("source") + `","paid":true,"status":"succeeded"}`}
	if r.PostForm.Get("source") == "tok_chargeDeclined" {
		res.status = http.StatusPaymentRequired
		res.body = `{"error":{"type":"card_error","message":"Your card was declined."}}`
	}
	rs.seen[key] = res
	w.WriteHeader(res.status)
	_, _ = w.Write([]byte(res.body))
}

func TestStripeCharge_RetryWithNewCardAfterDecline(t *testing.T) {
	s := newTestShop(t)
	ctx := context.Background()
	user := uuid.New()
	seedItem(t, s.repo, "aviator", "2500", "")

	srv := httptest.NewServer(&replayStripe{seen: map[string]replayed{}})
	defer srv.Close()
	s.payments.Stripe = payment.NewStripeClient(srv.URL, "sk_test", srv.Client())

	_, _, err := s.cart.AddToCart(ctx, user, "aviator")
	require.NoError(t, err)

	_, err = s.payments.StripeCharge(ctx, user, "tok_chargeDeclined")
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, "Your card has been declined.", Message(err))

	order, err := s.payments.StripeCharge(ctx, user, "tok_visa")
	require.NoError(t, err)
	assert.True(t, order.Ordered)
	require.NotNil(t, order.Payment)
	assert.Equal(t, "ch_tok_visa", order.Payment.TransactionID)
}

func TestPayPalForm(t *testing.T) {
	s := newTestShop(t)
	ctx := context.Background()
	user := uuid.New()
	seedItem(t, s.repo, "aviator", "1234.5", "")

	_, _, err := s.cart.AddToCart(ctx, user, "aviator")
	require.NoError(t, err)

	_, _, err = s.payments.PayPalForm(ctx, user, "")
	require.ErrorIs(t, err, ErrBillingRequired)
	assert.Equal(t, "You must have Billing Address to your order!", Message(err))

	_, _, err = s.checkout.Checkout(ctx, user, shippingForm("P"))
	require.NoError(t, err)

	form, order, err := s.payments.PayPalForm(ctx, user, "meera")
	require.NoError(t, err)
	assert.Equal(t, payment.PayPalSandboxURL, form.Action)
	assert.Equal(t, "1234.50", form.Fields["amount"])
	assert.Equal(t, fmt.Sprintf("Order %d by meera", order.ID), form.Fields["item_name"])
	assert.Equal(t, "shop@example.com", form.Fields["business"])
	assert.Equal(t, "INR", form.Fields["currency_code"])
}

func TestPaymentDone_DefaultsTxnToOrderID(t *testing.T) {
	s := newTestShop(t)
	ctx := context.Background()
	user := uuid.New()
	seedItem(t, s.repo, "aviator", "2500", "")

	_, err := s.payments.PaymentDone(ctx, user, "")
	require.ErrorIs(t, err, ErrNoActiveOrder)

	cart, _, err := s.cart.AddToCart(ctx, user, "aviator")
	require.NoError(t, err)

	s.payments.RefCode = func() (string, error) { return "abcdefghij0123456789", nil }
	order, err := s.payments.PaymentDone(ctx, user, "")
	require.NoError(t, err)
	assert.Equal(t, "abcdefghij0123456789", *order.RefCode)
	assert.Equal(t, models.ProviderPayPal, order.Payment.Provider)
	assert.Equal(t, fmt.Sprintf("%d", cart.ID), order.Payment.TransactionID)
}

func TestCompletePayment_RefCodeFailureRollsBack(t *testing.T) {
	s := newTestShop(t)
	ctx := context.Background()
	user := uuid.New()
	seedItem(t, s.repo, "aviator", "2500", "")

	_, _, err := s.cart.AddToCart(ctx, user, "aviator")
	require.NoError(t, err)

	s.payments.RefCode = func() (string, error) { return "", errors.New("entropy") }
	_, err = s.payments.PaymentDone(ctx, user, "tx-1")
	require.Error(t, err)

	var payments int64
	require.NoError(t, s.repo.DB.Model(&models.Payment{}).Count(&payments).Error)
	assert.Zero(t, payments)

	order, err := s.cart.OrderSummary(ctx, user)
	require.NoError(t, err)
	assert.False(t, order.Items[0].Ordered)
}

func TestOrders_ListAndLookup(t *testing.T) {
	s := newTestShop(t)
	ctx := context.Background()
	user, other := uuid.New(), uuid.New()
	seedItem(t, s.repo, "aviator", "2500", "")

	first := s.paidOrder(t, user, "aviator")
	second := s.paidOrder(t, user, "aviator")

	orders, meta, err := s.orders.ListOrders(ctx, user, 1, 10)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.EqualValues(t, 2, meta.Total)

	got, err := s.orders.UserOrder(ctx, user, *first.RefCode)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = s.orders.UserOrder(ctx, other, *first.RefCode)
	assert.ErrorIs(t, err, ErrNotFound)

	p, recent, err := s.profiles.Profile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, user, p.UserID)
	assert.Len(t, recent, 2)
}

func TestFulfillment(t *testing.T) {
	s := newTestShop(t)
	ctx := context.Background()
	user := uuid.New()
	seedItem(t, s.repo, "aviator", "2500", "")
	order := s.paidOrder(t, user, "aviator")
	ref := *order.RefCode

	_, err := s.orders.MarkReceived(ctx, ref)
	assert.ErrorIs(t, err, ErrConflict, "cannot receive before shipping")

	got, err := s.orders.MarkBeingDelivered(ctx, ref)
	require.NoError(t, err)
	assert.True(t, got.BeingDelivered)

	_, err = s.orders.MarkBeingDelivered(ctx, ref)
	assert.ErrorIs(t, err, ErrConflict)

	got, err = s.orders.MarkReceived(ctx, ref)
	require.NoError(t, err)
	assert.True(t, got.Received)

	_, err = s.orders.MarkReceived(ctx, ref)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.orders.MarkBeingDelivered(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Subset(t, s.events.types(), []string{"order_shipped", "order_received"})
}

func TestUpdateProfile(t *testing.T) {
	s := newTestShop(t)
	ctx := context.Background()
	user := uuid.New()

	name, email, oneClick := " Meera ", "meera@example.com", true
	p, err := s.profiles.UpdateProfile(ctx, user, transport.PatchProfileRequest{DisplayName: &name, Email: &email, OneClickPurchasing: &oneClick})
	require.NoError(t, err)
	assert.Equal(t, "Meera", p.DisplayName)
	assert.True(t, p.OneClickPurchasing)

	bad := "not-an-email"
	_, err = s.profiles.UpdateProfile(ctx, user, transport.PatchProfileRequest{Email: &bad})
	require.ErrorIs(t, err, ErrValidation)

	again, _, err := s.profiles.Profile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, "meera@example.com", again.Email)
}
