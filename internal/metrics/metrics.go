package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShopMetrics holds the storefront collectors. A nil *ShopMetrics is valid
// and records nothing.
type ShopMetrics struct {
	cartUpdates     *prometheus.CounterVec
	ordersPaid      *prometheus.CounterVec
	paymentFailures *prometheus.CounterVec
	refunds         *prometheus.CounterVec
	couponsApplied  prometheus.Counter
	revenue         *prometheus.CounterVec

	httpDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

func New() *ShopMetrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func NewWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *ShopMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &ShopMetrics{
		cartUpdates: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_updates_total",
			Help: "Cart mutations by action",
		}, []string{"action"}),
		ordersPaid: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_paid_total",
			Help: "Orders finalized by payment provider",
		}, []string{"provider"}),
		paymentFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_payment_failures_total",
			Help: "Payment attempts rejected by the provider",
		}, []string{"provider"}),
		refunds: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_refunds_total",
			Help: "Refund workflow transitions by outcome",
		}, []string{"outcome"}),
		couponsApplied: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_coupons_applied_total",
			Help: "Coupons attached to active orders",
		}),
		revenue: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_revenue_total",
			Help: "Paid order amounts in major currency units",
		}, []string{"currency"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: gatherer,
	}
}

func (m *ShopMetrics) CartUpdated(action string) {
	if m == nil {
		return
	}
	m.cartUpdates.WithLabelValues(action).Inc()
}

func (m *ShopMetrics) OrderPaid(provider, currency string, amount float64) {
	if m == nil {
		return
	}
	m.ordersPaid.WithLabelValues(provider).Inc()
	if amount > 0 {
		m.revenue.WithLabelValues(currency).Add(amount)
	}
}

func (m *ShopMetrics) PaymentFailed(provider string) {
	if m == nil {
		return
	}
	m.paymentFailures.WithLabelValues(provider).Inc()
}

func (m *ShopMetrics) Refund(outcome string) {
	if m == nil {
		return
	}
	m.refunds.WithLabelValues(outcome).Inc()
}

func (m *ShopMetrics) CouponApplied() {
	if m == nil {
		return
	}
	m.couponsApplied.Inc()
}

// Middleware observes request latency keyed by the matched route, not the raw path.
func (m *ShopMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.httpDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *ShopMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
