package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	storecfg "github.com/Skotchmaster/eyewear_shop/internal/config"
	"github.com/Skotchmaster/eyewear_shop/internal/httpserver"
	"github.com/Skotchmaster/eyewear_shop/internal/metrics"
	"github.com/Skotchmaster/eyewear_shop/internal/mykafka"
	"github.com/Skotchmaster/eyewear_shop/internal/payment"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/internal/search"
	"github.com/Skotchmaster/eyewear_shop/internal/service"
	"github.com/Skotchmaster/eyewear_shop/pkg/authclient"
	pkgdb "github.com/Skotchmaster/eyewear_shop/pkg/db"
	"github.com/Skotchmaster/eyewear_shop/pkg/logging"
	"github.com/Skotchmaster/eyewear_shop/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/eyewear_shop/pkg/middleware/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := storecfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	repo := &repo.GormRepo{DB: db}
	if err := repo.Migrate(ctx); err != nil {
		cancel()
		log.Fatalf("db migrate: %v", err)
	}
	cancel()

	var events service.EventPublisher
	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		topicsCtx, topicsCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := mykafka.EnsureTopics(topicsCtx, cfg.KafkaBrokers[0], mykafka.Topics()...); err != nil {
			logger.Warn("kafka_topics_error", "error", err)
		}
		topicsCancel()

		producer, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		events = producer
	} else {
		logger.Info("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	var index service.ItemIndex
	if cfg.Search.URL != "" {
		es, err := search.NewClient(cfg.Search)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		ix := &search.Index{ES: es, Name: cfg.Search.Index}
		esCtx, esCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := ix.EnsureIndex(esCtx); err != nil {
			logger.Warn("search_index_error", "reason", "searching the database until the index is reachable", "error", err)
		}
		esCancel()
		index = ix
	}

	m := metrics.New()

	var charger payment.Charger
	if cfg.StripeSecretKey != "" {
		charger = payment.NewStripeClient(cfg.StripeURL, cfg.StripeSecretKey, nil)
	} else {
		logger.Warn("stripe_disabled", "reason", "STRIPE_SECRET_KEY is empty")
	}

	orders := &service.OrderService{Repo: repo, Events: events}
	refunds := &service.RefundService{Repo: repo, Events: events, Metrics: m}
	cart := &service.CartService{Repo: repo, Events: events, Metrics: m}

	deps := &httpserver.Deps{
		Catalog:  &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: repo, Index: index, Events: events}},
		Cart:     &httpserver.CartHTTP{Svc: cart},
		Checkout: &httpserver.CheckoutHTTP{Svc: &service.CheckoutService{Repo: repo, Country: cfg.ShippingCountry}},
		Payment: &httpserver.PaymentHTTP{Svc: &service.PaymentService{
			Repo: repo,
			PayPal: &payment.PayPal{
				ReceiverEmail: cfg.PayPalReceiverEmail,
				ActionURL:     cfg.PayPalURL,
				Currency:      cfg.Currency,
				ReturnURL:     cfg.PayPalReturnURL(),
				CancelURL:     cfg.PayPalCancelURL(),
				NotifyURL:     cfg.PayPalNotifyURL,
			},
			Stripe:   charger,
			Currency: cfg.Currency,
			Events:   events,
			Metrics:  m,
		}},
		Account: &httpserver.AccountHTTP{
			Profiles: &service.ProfileService{Repo: repo},
			Orders:   orders,
			Refunds:  refunds,
		},
		Admin:        &httpserver.AdminHTTP{Refunds: refunds, Orders: orders},
		DB:           repo,
		Metrics:      m,
		JWTSecret:    cfg.JWTAccessSecret,
		AuthClient:   authclient.NewClient(cfg.AuthHTTPURL),
		AuthProxyURL: cfg.AuthHTTPURL,
		CSRF:         csrf.DefaultConfig(),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(m.Middleware())
	e.Use(echomw.CORS())

	if err := httpserver.Register(e, deps); err != nil {
		log.Fatalf("register routes: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("storefront_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka_close_error", "error", err)
		}
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Warn("db_close_error", "error", err)
	}

	logger.Info("storefront_stopped")
}
