package config

import (
	"errors"
	"os"
	"strings"

	"github.com/Skotchmaster/eyewear_shop/internal/payment"
	"github.com/Skotchmaster/eyewear_shop/internal/search"
	"github.com/Skotchmaster/eyewear_shop/pkg/config"
	pkgdb "github.com/Skotchmaster/eyewear_shop/pkg/db"
)

type ServiceConfig struct {
	config.Config

	Search search.Config

	PayPalReceiverEmail string
	PayPalURL           string
	// PayPalNotifyURL is handed to PayPal as notify_url; IPN is consumed elsewhere.
	PayPalNotifyURL string

	StripeSecretKey string
	StripeURL       string

	Currency        string
	ShippingCountry string
	PublicBaseURL   string
}

// FromEnv reads the storefront settings without checking them.
func FromEnv() ServiceConfig {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "storefront"
	}
	if cfg.DBDriver == pkgdb.DriverSQLite && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "storefront.db"
	}

	return ServiceConfig{
		Config: cfg,
		Search: search.Config{
			URL:      os.Getenv("ES_URL"),
			User:     os.Getenv("ES_USER"),
			Password: os.Getenv("ES_PASSWORD"),
			Index:    config.EnvDefault("ES_INDEX", "items"),
		},
		PayPalReceiverEmail: os.Getenv("PAYPAL_RECEIVER_EMAIL"),
		PayPalURL:           config.EnvDefault("PAYPAL_URL", payment.PayPalSandboxURL),
		PayPalNotifyURL:     os.Getenv("PAYPAL_NOTIFY_URL"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeURL:           config.EnvDefault("STRIPE_URL", payment.StripeAPIURL),
		Currency:            strings.ToUpper(config.EnvDefault("CURRENCY", "INR")),
		ShippingCountry:     config.EnvDefault("SHIPPING_COUNTRY", "India"),
		PublicBaseURL:       strings.TrimRight(config.EnvDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func (c ServiceConfig) Validate() error {
	var errs []error
	if c.DBDriver != pkgdb.DriverSQLite {
		errs = append(errs, config.NonEmpty(c.DatabaseURL, "DATABASE_URL"))
	}
	errs = append(errs, config.NonEmpty(string(c.JWTAccessSecret), "JWT_SECRET"))
	return errors.Join(errs...)
}

func Load() ServiceConfig {
	cfg := FromEnv()
	if cfg.DBDriver != pkgdb.DriverSQLite {
		config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	}
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	return cfg
}

func (c ServiceConfig) PayPalReturnURL() string { return c.PublicBaseURL + "/api/v1/payment/done" }

func (c ServiceConfig) PayPalCancelURL() string { return c.PublicBaseURL + "/api/v1/payment/cancelled" }
