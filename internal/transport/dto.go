package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/pkg/util"
)

type CreateItemRequest struct {
	Title         string           `json:"title"`
	Slug          string           `json:"slug"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	Label         string           `json:"label"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	ImageURL      string           `json:"image_url"`
}

type PatchItemRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Category      *string          `json:"category"`
	Label         *string          `json:"label"`
	Price         *decimal.Decimal `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	ClearDiscount bool             `json:"clear_discount"`
	ImageURL      *string          `json:"image_url"`
}

type CouponRequest struct {
	Code string `json:"code" form:"code"`
}

type CreateCouponRequest struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

type LensesRequest struct {
	PowerType         string `json:"power_type"         form:"power_type"`
	LensesType        string `json:"lenses_type"        form:"lenses_type"`
	PrescriptionImage string `json:"prescription_image" form:"prescription_image"`
}

type CheckoutRequest struct {
	UseDefaultShipping       bool   `json:"use_default_shipping"       form:"use_default_shipping"`
	ShippingStreetAddress    string `json:"shipping_street_address"    form:"shipping_street_address"`
	ShippingApartmentAddress string `json:"shipping_apartment_address" form:"shipping_apartment_address"`
	ShippingZipCode          string `json:"shipping_zip_code"          form:"shipping_zip_code"`
	SetDefaultShipping       bool   `json:"set_default_shipping"       form:"set_default_shipping"`

	SameBillingAddress      bool   `json:"same_billing_address"      form:"same_billing_address"`
	UseDefaultBilling       bool   `json:"use_default_billing"       form:"use_default_billing"`
	BillingStreetAddress    string `json:"billing_street_address"    form:"billing_street_address"`
	BillingApartmentAddress string `json:"billing_apartment_address" form:"billing_apartment_address"`
	BillingZipCode          string `json:"billing_zip_code"          form:"billing_zip_code"`
	SetDefaultBilling       bool   `json:"set_default_billing"       form:"set_default_billing"`

	PaymentMethod string `json:"payment_method" form:"payment_method"`
}

type StripeChargeRequest struct {
	Token string `json:"stripe_token" form:"stripeToken"`
}

type PaymentDoneRequest struct {
	TxnID string `json:"txn_id" form:"txn_id" query:"tx"`
}

type RefundRequest struct {
	RefCode string `json:"ref_code" form:"ref_code"`
	Email   string `json:"email"    form:"email"`
	Message string `json:"message"  form:"message"`
}

type PatchProfileRequest struct {
	DisplayName        *string `json:"display_name"`
	Email              *string `json:"email"`
	Phone              *string `json:"phone"`
	OneClickPurchasing *bool   `json:"one_click_purchasing"`
}

type OrderItemView struct {
	ID             uint              `json:"id"`
	Item           models.Item       `json:"item"`
	Quantity       uint              `json:"quantity"`
	LensesRequired bool              `json:"lenses_required"`
	Lenses         *models.EyeLenses `json:"lenses,omitempty"`
	TotalPrice     decimal.Decimal   `json:"total_price"`
	FinalPrice     decimal.Decimal   `json:"final_price"`
	Saving         decimal.Decimal   `json:"saving"`
}

type OrderView struct {
	ID              uint            `json:"id"`
	RefCode         *string         `json:"ref_code"`
	Ordered         bool            `json:"ordered"`
	OrderDate       time.Time       `json:"order_date"`
	OrderedAt       *time.Time      `json:"ordered_at,omitempty"`
	Items           []OrderItemView `json:"items"`
	Coupon          *models.Coupon  `json:"coupon,omitempty"`
	ShippingAddress *models.Address `json:"shipping_address,omitempty"`
	BillingAddress  *models.Address `json:"billing_address,omitempty"`
	Payment         *models.Payment `json:"payment,omitempty"`
	BeingDelivered  bool            `json:"being_delivered"`
	Received        bool            `json:"received"`
	RefundRequest   bool            `json:"refund_request"`
	RefundGranted   bool            `json:"refund_granted"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Saving          decimal.Decimal `json:"saving"`
	Total           decimal.Decimal `json:"total"`
}

func NewOrderView(o *models.Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, oi := range o.Items {
		items = append(items, NewOrderItemView(oi))
	}
	return OrderView{
		ID:              o.ID,
		RefCode:         o.RefCode,
		Ordered:         o.Ordered,
		OrderDate:       o.OrderDate,
		OrderedAt:       o.OrderedAt,
		Items:           items,
		Coupon:          o.Coupon,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Payment:         o.Payment,
		BeingDelivered:  o.BeingDelivered,
		Received:        o.Received,
		RefundRequest:   o.RefundRequest,
		RefundGranted:   o.RefundGranted,
		Subtotal:        o.Subtotal(),
		Saving:          o.Saving(),
		Total:           o.Total(),
	}
}

func NewOrderItemView(oi models.OrderItem) OrderItemView {
	return OrderItemView{
		ID:             oi.ID,
		Item:           oi.Item,
		Quantity:       oi.Quantity,
		LensesRequired: oi.LensesRequired,
		Lenses:         oi.Lenses,
		TotalPrice:     oi.TotalPrice(),
		FinalPrice:     oi.FinalPrice(),
		Saving:         oi.Saving(),
	}
}

func NewOrderViews(orders []models.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderView(&orders[i]))
	}
	return out
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CartResponse struct {
	Message string    `json:"message"`
	Order   OrderView `json:"order"`
}

type CheckoutView struct {
	Order           OrderView       `json:"order"`
	DefaultShipping *models.Address `json:"default_shipping_address"`
	DefaultBilling  *models.Address `json:"default_billing_address"`
}

type CheckoutResponse struct {
	Message string    `json:"message"`
	Order   OrderView `json:"order"`
	Next    string    `json:"next"`
	NextURL string    `json:"next_url"`
}

type ProfileResponse struct {
	Profile *models.UserProfile `json:"profile"`
	Orders  []OrderView         `json:"orders"`
}

type Page[T any] struct {
	Data []T      `json:"data"`
	Meta util.Meta `json:"meta"`
}
