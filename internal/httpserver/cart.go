package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/eyewear_shop/internal/service"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
	"github.com/Skotchmaster/eyewear_shop/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.OrderSummary(ctx, userID)
	if err != nil {
		return fail(l, "get_cart_error", err, "cannot get cart")
	}
	return c.JSON(http.StatusOK, transport.NewOrderView(order))
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_to_cart")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	order, added, err := h.Svc.AddToCart(ctx, userID, c.Param("slug"))
	if err != nil {
		return fail(l, "add_to_cart_error", err, "cannot add item to cart")
	}

	msg := service.MsgItemUpdated
	if added {
		msg = service.MsgItemAdded
	}
	l.Info("add_to_cart_success", "order_id", order.ID, "new_line", added)
	return c.JSON(http.StatusOK, transport.CartResponse{Message: msg, Order: transport.NewOrderView(order)})
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_from_cart")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.RemoveFromCart(ctx, userID, c.Param("slug"))
	if err != nil {
		return fail(l, "remove_from_cart_error", err, "cannot remove item from cart")
	}

	l.Info("remove_from_cart_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, transport.CartResponse{Message: service.MsgItemRemoved, Order: transport.NewOrderView(order)})
}

func (h *CartHTTP) DecrementItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.decrement_item")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	order, removed, err := h.Svc.DecrementItem(ctx, userID, c.Param("slug"))
	if err != nil {
		return fail(l, "decrement_item_error", err, "cannot update item quantity")
	}

	msg := service.MsgQtyUpdated
	if removed {
		msg = service.MsgItemRemoved
	}
	return c.JSON(http.StatusOK, transport.CartResponse{Message: msg, Order: transport.NewOrderView(order)})
}

func (h *CartHTTP) ApplyCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.apply_coupon")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req transport.CouponRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("apply_coupon_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.ApplyCoupon(ctx, userID, req.Code)
	if err != nil {
		return fail(l, "apply_coupon_error", err, "cannot apply coupon")
	}
	return c.JSON(http.StatusOK, transport.CartResponse{Message: service.MsgCouponAdded, Order: transport.NewOrderView(order)})
}

func (h *CartHTTP) GetLenses(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_lenses")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	line, err := h.Svc.GetLenses(ctx, userID, c.Param("slug"))
	if err != nil {
		return fail(l, "get_lenses_error", err, "cannot get lenses")
	}
	return c.JSON(http.StatusOK, transport.NewOrderItemView(*line))
}

func (h *CartHTTP) AttachLenses(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.attach_lenses")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req transport.LensesRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("attach_lenses_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	line, err := h.Svc.AttachLenses(ctx, userID, c.Param("slug"), req)
	if err != nil {
		return fail(l, "attach_lenses_error", err, "cannot attach lenses")
	}

	l.Info("attach_lenses_success", "order_item_id", line.ID)
	return c.JSON(http.StatusOK, map[string]any{
		"message": service.MsgLensesAdded,
		"item":    transport.NewOrderItemView(*line),
	})
}

func (h *CartHTTP) RemoveLenses(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_lenses")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	line, err := h.Svc.RemoveLenses(ctx, userID, c.Param("slug"))
	if err != nil {
		return fail(l, "remove_lenses_error", err, "cannot remove lenses")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": service.MsgLensesGone,
		"item":    transport.NewOrderItemView(*line),
	})
}

func (h *CartHTTP) CreateCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_coupon")

	var req transport.CreateCouponRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_coupon_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	coupon, err := h.Svc.CreateCoupon(ctx, req)
	if err != nil {
		return fail(l, "create_coupon_error", err, "cannot create coupon")
	}
	return c.JSON(http.StatusCreated, coupon)
}
