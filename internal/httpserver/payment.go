package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/eyewear_shop/internal/service"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
	"github.com/Skotchmaster/eyewear_shop/pkg/logging"
)

type PaymentHTTP struct {
	Svc *service.PaymentService
}

func (h *PaymentHTTP) PayPalForm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.paypal_form")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	form, order, err := h.Svc.PayPalForm(ctx, userID, "")
	if err != nil {
		return fail(l, "paypal_form_error", err, "cannot prepare paypal payment")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"form":  form,
		"order": transport.NewOrderView(order),
	})
}

func (h *PaymentHTTP) StripePage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.stripe_page")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.StripePage(ctx, userID)
	if err != nil {
		return fail(l, "stripe_page_error", err, "cannot prepare card payment")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"order":    transport.NewOrderView(order),
		"amount":   order.Total().StringFixed(2),
		"currency": h.Svc.Currency,
	})
}

func (h *PaymentHTTP) StripeCharge(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.stripe_charge")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req transport.StripeChargeRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("stripe_charge_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.StripeCharge(ctx, userID, req.Token)
	if err != nil {
		return fail(l, "stripe_charge_error", err, "cannot complete payment")
	}
	return c.JSON(http.StatusOK, transport.CartResponse{Message: service.MsgOrderDone, Order: transport.NewOrderView(order)})
}

// PaymentDone is where PayPal sends the buyer back after paying.
func (h *PaymentHTTP) PaymentDone(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.done")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req transport.PaymentDoneRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("payment_done_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.TxnID == "" {
		req.TxnID = c.QueryParam("tx")
	}

	order, err := h.Svc.PaymentDone(ctx, userID, req.TxnID)
	if err != nil {
		return fail(l, "payment_done_error", err, "cannot complete payment")
	}
	return c.JSON(http.StatusOK, transport.CartResponse{Message: service.MsgOrderDone, Order: transport.NewOrderView(order)})
}

func (h *PaymentHTTP) PaymentCancelled(c echo.Context) error {
	return message(c, http.StatusOK, service.MsgOrderCancelled)
}
