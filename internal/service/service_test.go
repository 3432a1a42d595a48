package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/payment"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
)

type publishedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	m, _ := event.(map[string]any)
	f.events = append(f.events, publishedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Event["type"].(string))
	}
	return out
}

type fakeCharger struct {
	err  error
	reqs []payment.ChargeRequest
}

func (f *fakeCharger) Charge(_ context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Charge{ID: "ch_test_1", Paid: true, Status: "succeeded"}, nil
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := &repo.GormRepo{DB: db}
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func seedItem(t *testing.T, r *repo.GormRepo, slug, price, discount string) *models.Item {
	t.Helper()
	it := &models.Item{Title: slug, Slug: slug, Price: decimal.RequireFromString(price)}
	if discount != "" {
		it.DiscountPrice = decimal.NewNullDecimal(decimal.RequireFromString(discount))
	}
	require.NoError(t, r.CreateItem(context.Background(), it))
	return it
}

func seedCoupon(t *testing.T, r *repo.GormRepo, code, amount string) {
	t.Helper()
	require.NoError(t, r.CreateCoupon(context.Background(), &models.Coupon{Code: code, Amount: decimal.RequireFromString(amount)}))
}

type testShop struct {
	repo     *repo.GormRepo
	events   *fakePublisher
	charger  *fakeCharger
	cart     *CartService
	checkout *CheckoutService
	payments *PaymentService
	refunds  *RefundService
	orders   *OrderService
	profiles *ProfileService
}

func newTestShop(t *testing.T) *testShop {
	t.Helper()
	r := newTestRepo(t)
	ev := &fakePublisher{}
	ch := &fakeCharger{}
	return &testShop{
		repo:     r,
		events:   ev,
		charger:  ch,
		cart:     &CartService{Repo: r, Events: ev, Now: fixedClock},
		checkout: &CheckoutService{Repo: r, Country: "India"},
		payments: &PaymentService{
			Repo:     r,
			PayPal:   &payment.PayPal{ReceiverEmail: "shop@example.com", Currency: "INR", ReturnURL: "http://shop/done", CancelURL: "http://shop/cancelled"},
			Stripe:   ch,
			Currency: "INR",
			Events:   ev,
			Now:      fixedClock,
		},
		refunds:  &RefundService{Repo: r, Events: ev},
		orders:   &OrderService{Repo: r, Events: ev},
		profiles: &ProfileService{Repo: r},
	}
}

// paidOrder puts slug into a fresh cart for user, checks out and pays by card.
func (s *testShop) paidOrder(t *testing.T, user uuid.UUID, slug string) *models.Order {
	t.Helper()
	ctx := context.Background()
	_, _, err := s.cart.AddToCart(ctx, user, slug)
	require.NoError(t, err)
	_, _, err = s.checkout.Checkout(ctx, user, shippingForm("P"))
	require.NoError(t, err)
	order, err := s.payments.StripeCharge(ctx, user, "tok_visa")
	require.NoError(t, err)
	return order
}
