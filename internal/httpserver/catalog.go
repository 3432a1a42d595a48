package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/service"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
	"github.com/Skotchmaster/eyewear_shop/pkg/logging"
	"github.com/Skotchmaster/eyewear_shop/pkg/util"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) GetItems(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_items")

	page, size := pageParams(c)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListItems(ctx, offset, limit)
	if err != nil {
		return fail(l, "get_items_error", err, "cannot get items")
	}

	return c.JSON(http.StatusOK, transport.Page[models.Item]{Data: items, Meta: util.NewMeta(page, limit, total)})
}

func (h *CatalogHTTP) SearchItems(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search_items")

	page, size := pageParams(c)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.Search(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(l, "search_items_error", err, "cannot search items")
	}

	return c.JSON(http.StatusOK, transport.Page[models.Item]{Data: items, Meta: util.NewMeta(page, limit, total)})
}

func (h *CatalogHTTP) GetItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_item")

	item, err := h.Svc.GetItem(ctx, c.Param("slug"))
	if err != nil {
		return fail(l, "get_item_error", err, "cannot get item")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CatalogHTTP) CreateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_item")

	var req transport.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_item_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.CreateItem(ctx, req)
	if err != nil {
		return fail(l, "create_item_error", err, "cannot create item")
	}

	l.Info("create_item_success", "item_id", item.ID)
	return c.JSON(http.StatusCreated, item)
}

func (h *CatalogHTTP) PatchItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch_item")

	var req transport.PatchItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_item_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.PatchItem(ctx, c.Param("slug"), req)
	if err != nil {
		return fail(l, "patch_item_error", err, "cannot update item")
	}

	l.Info("patch_item_success", "item_id", item.ID)
	return c.JSON(http.StatusOK, item)
}

func (h *CatalogHTTP) DeleteItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_item")

	if err := h.Svc.DeleteItem(ctx, c.Param("slug")); err != nil {
		return fail(l, "delete_item_error", err, "cannot delete item")
	}

	l.Info("delete_item_success")
	return c.NoContent(http.StatusNoContent)
}
