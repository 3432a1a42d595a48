package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/service"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
	"github.com/Skotchmaster/eyewear_shop/pkg/logging"
)

type AdminHTTP struct {
	Refunds *service.RefundService
	Orders  *service.OrderService
}

func (h *AdminHTTP) ListRefunds(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_refunds")

	page, size := pageParams(c)
	pending := c.QueryParam("pending") == "true"

	refunds, meta, err := h.Refunds.ListRefunds(ctx, pending, page, size)
	if err != nil {
		return fail(l, "list_refunds_error", err, "cannot list refunds")
	}
	return c.JSON(http.StatusOK, transport.Page[models.Refund]{Data: refunds, Meta: meta})
}

func (h *AdminHTTP) GrantRefund(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.grant_refund")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		l.Warn("grant_refund_error", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	rf, err := h.Refunds.GrantRefund(ctx, uint(id))
	if err != nil {
		return fail(l, "grant_refund_error", err, "cannot grant refund")
	}

	l.Info("grant_refund_success", "refund_id", rf.ID)
	return c.JSON(http.StatusOK, rf)
}

func (h *AdminHTTP) ShipOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.ship_order")

	order, err := h.Orders.MarkBeingDelivered(ctx, c.Param("ref"))
	if err != nil {
		return fail(l, "ship_order_error", err, "cannot update order")
	}
	return c.JSON(http.StatusOK, transport.NewOrderView(order))
}

func (h *AdminHTTP) ReceiveOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.receive_order")

	order, err := h.Orders.MarkReceived(ctx, c.Param("ref"))
	if err != nil {
		return fail(l, "receive_order_error", err, "cannot update order")
	}
	return c.JSON(http.StatusOK, transport.NewOrderView(order))
}
