package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/eyewear_shop/internal/service"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
	"github.com/Skotchmaster/eyewear_shop/pkg/logging"
)

type AccountHTTP struct {
	Profiles *service.ProfileService
	Orders   *service.OrderService
	Refunds  *service.RefundService
}

func (h *AccountHTTP) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.get_profile")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	p, orders, err := h.Profiles.Profile(ctx, userID)
	if err != nil {
		return fail(l, "get_profile_error", err, "cannot load profile")
	}
	return c.JSON(http.StatusOK, transport.ProfileResponse{Profile: p, Orders: transport.NewOrderViews(orders)})
}

func (h *AccountHTTP) PatchProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.patch_profile")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req transport.PatchProfileRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_profile_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Profiles.UpdateProfile(ctx, userID, req)
	if err != nil {
		return fail(l, "patch_profile_error", err, "cannot update profile")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AccountHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.list_orders")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	page, size := pageParams(c)
	orders, meta, err := h.Orders.ListOrders(ctx, userID, page, size)
	if err != nil {
		return fail(l, "list_orders_error", err, "cannot list orders")
	}
	return c.JSON(http.StatusOK, transport.Page[transport.OrderView]{Data: transport.NewOrderViews(orders), Meta: meta})
}

func (h *AccountHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.get_order")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	order, err := h.Orders.UserOrder(ctx, userID, c.Param("ref"))
	if err != nil {
		return fail(l, "get_order_error", err, "cannot get order")
	}
	return c.JSON(http.StatusOK, transport.NewOrderView(order))
}

// RequestRefund needs no login; the reference code identifies the order.
func (h *AccountHTTP) RequestRefund(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.request_refund")

	var req transport.RefundRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("request_refund_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	rf, err := h.Refunds.RequestRefund(ctx, req)
	if err != nil {
		return fail(l, "request_refund_error", err, "cannot request refund")
	}

	l.Info("request_refund_success", "refund_id", rf.ID, "order_id", rf.OrderID)
	return message(c, http.StatusCreated, service.MsgRefundRequested)
}
