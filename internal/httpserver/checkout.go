package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/service"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
	"github.com/Skotchmaster/eyewear_shop/pkg/logging"
)

type CheckoutHTTP struct {
	Svc *service.CheckoutService
}

var nextStep = map[string]string{
	models.ProviderPayPal: "/api/v1/payment/paypal",
	models.ProviderStripe: "/api/v1/payment/stripe",
}

func (h *CheckoutHTTP) GetCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.get")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	state, err := h.Svc.View(ctx, userID)
	if err != nil {
		return fail(l, "get_checkout_error", err, "cannot load checkout")
	}
	return c.JSON(http.StatusOK, transport.CheckoutView{
		Order:           transport.NewOrderView(state.Order),
		DefaultShipping: state.DefaultShipping,
		DefaultBilling:  state.DefaultBilling,
	})
}

func (h *CheckoutHTTP) PostCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.post")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, next, err := h.Svc.Checkout(ctx, userID, req)
	if err != nil {
		return fail(l, "checkout_error", err, "Failed to Checkout")
	}

	l.Info("checkout_success", "order_id", order.ID, "next", next)
	return c.JSON(http.StatusOK, transport.CheckoutResponse{
		Message: "Checkout completed, continue to payment",
		Order:   transport.NewOrderView(order),
		Next:    next,
		NextURL: nextStep[next],
	})
}
