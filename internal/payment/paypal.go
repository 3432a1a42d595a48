package payment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const PayPalSandboxURL = "https://www.sandbox.paypal.com/cgi-bin/webscr"

// PayPal builds PayPal Payments Standard ("Buy Now") forms. The browser posts
// the form to ActionURL; PayPal then sends the buyer back to ReturnURL.
type PayPal struct {
	ReceiverEmail string
	ActionURL     string
	Currency      string
	ReturnURL     string
	CancelURL     string
	NotifyURL     string
}

type Form struct {
	Action string            `json:"action"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields"`
}

type FormOrder struct {
	OrderID uint
	Buyer   string
	Total   decimal.Decimal
}

func (p *PayPal) Form(o FormOrder) Form {
	action := p.ActionURL
	if action == "" {
		action = PayPalSandboxURL
	}
	invoice := strconv.FormatUint(uint64(o.OrderID), 10)
	return Form{
		Action: action,
		Method: "POST",
		Fields: map[string]string{
			"cmd":           "_xclick",
			"business":      p.ReceiverEmail,
			"amount":        o.Total.StringFixed(2),
			"item_name":     fmt.Sprintf("Order %d by %s", o.OrderID, o.Buyer),
			"invoice":       invoice,
			"currency_code": strings.ToUpper(p.Currency),
			"notify_url":    p.NotifyURL,
			"return":        p.ReturnURL,
			"cancel_return": p.CancelURL,
		},
	}
}
