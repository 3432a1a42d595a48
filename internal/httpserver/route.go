package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/eyewear_shop/internal/metrics"
	middleware "github.com/Skotchmaster/eyewear_shop/pkg/middleware/auth"
	"github.com/Skotchmaster/eyewear_shop/pkg/middleware/csrf"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Catalog  *CatalogHTTP
	Cart     *CartHTTP
	Checkout *CheckoutHTTP
	Payment  *PaymentHTTP
	Account  *AccountHTTP
	Admin    *AdminHTTP

	DB      Pinger
	Metrics *metrics.ShopMetrics

	JWTSecret  []byte
	AuthClient middleware.Refresher
	// AuthProxyURL, when set, exposes the auth service under /api/v1/auth.
	AuthProxyURL string
	CSRF         csrf.Config
}

const apiPrefix = "/api/v1"

// PaymentReturnPaths are posted to by the payment provider's pages and so
// cannot carry our CSRF token.
var PaymentReturnPaths = []string{
	apiPrefix + "/payment/done",
	apiPrefix + "/payment/cancelled",
}

func Register(e *echo.Echo, d *Deps) error {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB != nil {
			if err := d.DB.Ping(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	if d.AuthProxyURL != "" {
		authProxy, err := newAuthProxy(d.AuthProxyURL)
		if err != nil {
			return err
		}
		// login and refresh are issued by the auth service, outside our CSRF scope
		e.Any(apiPrefix+"/auth/*", authProxy)
	}

	csrfCfg := d.CSRF
	csrfCfg.SkipPaths = append(csrfCfg.SkipPaths, PaymentReturnPaths...)

	api := e.Group(apiPrefix, csrf.Middleware(csrfCfg))
	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	items := api.Group("/items")
	items.GET("", d.Catalog.GetItems)
	items.GET("/search", d.Catalog.SearchItems)
	items.GET("/:slug", d.Catalog.GetItem)

	api.POST("/refunds", d.Account.RequestRefund)

	user := api.Group("", authMW.RequireAuth)

	user.GET("/cart", d.Cart.GetCart)
	user.POST("/cart/items/:slug", d.Cart.AddToCart)
	user.DELETE("/cart/items/:slug", d.Cart.RemoveFromCart)
	user.POST("/cart/items/:slug/decrement", d.Cart.DecrementItem)
	user.GET("/cart/items/:slug/lenses", d.Cart.GetLenses)
	user.POST("/cart/items/:slug/lenses", d.Cart.AttachLenses)
	user.DELETE("/cart/items/:slug/lenses", d.Cart.RemoveLenses)
	user.POST("/cart/coupon", d.Cart.ApplyCoupon)

	user.GET("/checkout", d.Checkout.GetCheckout)
	user.POST("/checkout", d.Checkout.PostCheckout)

	user.GET("/payment/paypal", d.Payment.PayPalForm)
	user.GET("/payment/stripe", d.Payment.StripePage)
	user.POST("/payment/stripe", d.Payment.StripeCharge)
	user.GET("/payment/done", d.Payment.PaymentDone)
	user.POST("/payment/done", d.Payment.PaymentDone)
	user.POST("/payment/cancelled", d.Payment.PaymentCancelled)

	user.GET("/profile", d.Account.GetProfile)
	user.PATCH("/profile", d.Account.PatchProfile)
	user.GET("/orders", d.Account.ListOrders)
	user.GET("/orders/:ref", d.Account.GetOrder)

	admin := api.Group("/admin", authMW.RequireAdmin)
	admin.POST("/items", d.Catalog.CreateItem)
	admin.PATCH("/items/:slug", d.Catalog.PatchItem)
	admin.DELETE("/items/:slug", d.Catalog.DeleteItem)
	admin.POST("/coupons", d.Cart.CreateCoupon)
	admin.GET("/refunds", d.Admin.ListRefunds)
	admin.POST("/refunds/:id/grant", d.Admin.GrantRefund)
	admin.POST("/orders/:ref/ship", d.Admin.ShipOrder)
	admin.POST("/orders/:ref/receive", d.Admin.ReceiveOrder)

	return nil
}
