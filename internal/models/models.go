package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Item struct {
	ID            uint                `gorm:"primaryKey;autoIncrement"           json:"id"`
	Title         string              `gorm:"not null"                           json:"title"`
	Slug          string              `gorm:"uniqueIndex;not null"               json:"slug"`
	Description   string              `gorm:"not null;default:''"                json:"description"`
	Category      string              `gorm:"index"                              json:"category"`
	Label         string              `                                          json:"label"`
	Price         decimal.Decimal     `gorm:"type:numeric(12,2);not null"        json:"price"`
	DiscountPrice decimal.NullDecimal `gorm:"type:numeric(12,2)"                 json:"discount_price"`
	ImageURL      string              `                                          json:"image_url"`
	CreatedAt     time.Time           `                                          json:"created_at"`
	UpdatedAt     time.Time           `                                          json:"updated_at"`
}

// UnitPrice is what a single unit actually costs, the discount price when one is set.
func (i Item) UnitPrice() decimal.Decimal {
	if i.DiscountPrice.Valid {
		return i.DiscountPrice.Decimal
	}
	return i.Price
}

type EyeLenses struct {
	ID                uint      `gorm:"primaryKey"       json:"id"`
	UserID            uuid.UUID `gorm:"index;not null"   json:"user_id"`
	PowerType         string    `gorm:"not null"         json:"power_type"`
	LensesType        string    `gorm:"not null"         json:"lenses_type"`
	PrescriptionImage string    `                        json:"prescription_image"`
	CreatedAt         time.Time `                        json:"created_at"`
}

func (EyeLenses) TableName() string { return "eye_lenses" }

// OrderItem is one line of a cart. Rows with Ordered=false belong to the
// user's active cart; each (user, item) pair has at most one such row.
type OrderItem struct {
	ID             uint       `gorm:"primaryKey"                                                      json:"id"`
	UserID         uuid.UUID  `gorm:"not null;uniqueIndex:idx_order_items_open,where:ordered = false" json:"user_id"`
	ItemID         uint       `gorm:"not null;uniqueIndex:idx_order_items_open,where:ordered = false" json:"item_id"`
	Item           Item       `gorm:"constraint:OnDelete:RESTRICT"                                    json:"item"`
	OrderID        *uint      `gorm:"index"                                                           json:"order_id"`
	Quantity       uint       `gorm:"not null;default:1;check:quantity>0"                             json:"quantity"`
	Ordered        bool       `gorm:"not null;default:false"                                          json:"ordered"`
	LensesRequired bool       `gorm:"not null;default:false"                                          json:"lenses_required"`
	LensesID       *uint      `                                                                       json:"lenses_id"`
	Lenses         *EyeLenses `gorm:"constraint:OnDelete:SET NULL"                                    json:"lenses,omitempty"`
	CreatedAt      time.Time  `                                                                       json:"created_at"`
}

func (oi OrderItem) TotalPrice() decimal.Decimal {
	return oi.Item.Price.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

func (oi OrderItem) TotalDiscountPrice() decimal.Decimal {
	if !oi.Item.DiscountPrice.Valid {
		return decimal.Zero
	}
	return oi.Item.DiscountPrice.Decimal.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

func (oi OrderItem) FinalPrice() decimal.Decimal {
	if oi.Item.DiscountPrice.Valid {
		return oi.TotalDiscountPrice()
	}
	return oi.TotalPrice()
}

func (oi OrderItem) Saving() decimal.Decimal {
	if !oi.Item.DiscountPrice.Valid {
		return decimal.Zero
	}
	return oi.TotalPrice().Sub(oi.TotalDiscountPrice())
}

const (
	AddressShipping = "S"
	AddressBilling  = "B"
)

type Address struct {
	ID               uint      `gorm:"primaryKey"                    json:"id"`
	UserID           uuid.UUID `gorm:"index:idx_addresses_owner;not null" json:"user_id"`
	StreetAddress    string    `gorm:"not null"                      json:"street_address"`
	ApartmentAddress string    `                                     json:"apartment_address"`
	Country          string    `gorm:"not null"                      json:"country"`
	ZipCode          string    `gorm:"not null"                      json:"zip_code"`
	AddressType      string    `gorm:"index:idx_addresses_owner;size:1;not null" json:"address_type"`
	Default          bool      `gorm:"not null;default:false"        json:"default"`
	CreatedAt        time.Time `                                     json:"created_at"`
}

func (Address) TableName() string { return "addresses" }

type Coupon struct {
	ID     uint            `gorm:"primaryKey"                  json:"id"`
	Code   string          `gorm:"uniqueIndex;size:15;not null" json:"code"`
	Amount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
}

const (
	ProviderPayPal = "paypal"
	ProviderStripe = "stripe"
)

type Payment struct {
	ID            uint            `gorm:"primaryKey"                  json:"id"`
	UserID        uuid.UUID       `gorm:"index;not null"              json:"user_id"`
	Provider      string          `gorm:"not null"                    json:"provider"`
	TransactionID string          `gorm:"not null"                    json:"transaction_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	CreatedAt     time.Time       `                                   json:"created_at"`
}

// Order is the cart while Ordered is false and an immutable order record,
// addressed by RefCode, afterwards. A user has at most one unordered Order.
type Order struct {
	ID                uint        `gorm:"primaryKey"                                                json:"id"`
	UserID            uuid.UUID   `gorm:"not null;index;uniqueIndex:idx_orders_active_cart,where:ordered = false" json:"user_id"`
	RefCode           *string     `gorm:"uniqueIndex;size:20"                                       json:"ref_code"`
	Items             []OrderItem `gorm:"foreignKey:OrderID"                                        json:"items"`
	OrderDate         time.Time   `gorm:"not null"                                                  json:"order_date"`
	OrderedAt         *time.Time  `                                                                 json:"ordered_at"`
	Ordered           bool        `gorm:"not null;default:false"                                    json:"ordered"`
	ShippingAddressID *uint       `                                                                 json:"shipping_address_id"`
	ShippingAddress   *Address    `gorm:"constraint:OnDelete:SET NULL"                              json:"shipping_address,omitempty"`
	BillingAddressID  *uint       `                                                                 json:"billing_address_id"`
	BillingAddress    *Address    `gorm:"constraint:OnDelete:SET NULL"                              json:"billing_address,omitempty"`
	CouponID          *uint       `                                                                 json:"coupon_id"`
	Coupon            *Coupon     `gorm:"constraint:OnDelete:SET NULL"                              json:"coupon,omitempty"`
	PaymentID         *uint       `                                                                 json:"payment_id"`
	Payment           *Payment    `gorm:"constraint:OnDelete:SET NULL"                              json:"payment,omitempty"`
	BeingDelivered    bool        `gorm:"not null;default:false"                                    json:"being_delivered"`
	Received          bool        `gorm:"not null;default:false"                                    json:"received"`
	RefundRequest     bool        `gorm:"not null;default:false"                                    json:"refund_request"`
	RefundGranted     bool        `gorm:"not null;default:false"                                    json:"refund_granted"`
}

func (o Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.FinalPrice())
	}
	return total
}

// Total is the amount due: subtotal less the coupon, never below zero.
func (o Order) Total() decimal.Decimal {
	total := o.Subtotal()
	if o.Coupon != nil {
		total = total.Sub(o.Coupon.Amount)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

func (o Order) Saving() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Saving())
	}
	return total
}

type Refund struct {
	ID        uint      `gorm:"primaryKey"        json:"id"`
	OrderID   uint      `gorm:"index;not null"    json:"order_id"`
	Order     *Order    `gorm:"constraint:OnDelete:CASCADE" json:"order,omitempty"`
	Message   string    `gorm:"not null"          json:"message"`
	Email     string    `gorm:"not null"          json:"email"`
	Accepted  bool      `gorm:"not null;default:false" json:"accepted"`
	CreatedAt time.Time `                         json:"created_at"`
}

type UserProfile struct {
	ID                 uint      `gorm:"primaryKey"           json:"id"`
	UserID             uuid.UUID `gorm:"uniqueIndex;not null" json:"user_id"`
	DisplayName        string    `                            json:"display_name"`
	Email              string    `                            json:"email"`
	Phone              string    `                            json:"phone"`
	OneClickPurchasing bool      `gorm:"not null;default:false" json:"one_click_purchasing"`
	CreatedAt          time.Time `                            json:"created_at"`
	UpdatedAt          time.Time `                            json:"updated_at"`
}

func All() []any {
	return []any{
		&Item{}, &EyeLenses{}, &Address{}, &Coupon{}, &Payment{},
		&Order{}, &OrderItem{}, &Refund{}, &UserProfile{},
	}
}
