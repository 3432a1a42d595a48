package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const StripeAPIURL = "https://api.stripe.com"

// ErrDeclined is returned when the provider refuses the charge; transport
// failures come back as plain errors.
var ErrDeclined = errors.New("payment declined")

type ChargeRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Source      string
	Description string
	// IdempotencyKey makes retries of the same charge safe on the provider side.
	IdempotencyKey string
}

// ChargeKey derives an idempotency key from prefix and the charge parameters.
// Resending the same card and amount reuses the key; a new card token or a
// changed total gets a fresh one.
func ChargeKey(prefix string, req ChargeRequest) string {
	sum := sha256.Sum256([]byte(req.Source + "|" +
		strconv.FormatInt(MinorUnits(req.Amount, req.Currency), 10) + "|" +
		strings.ToLower(req.Currency)))
	return prefix + "-" + hex.EncodeToString(sum[:])[:16]
}

type Charge struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Paid     bool   `json:"paid"`
	Status   string `json:"status"`
}

type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// StripeClient creates charges with the Stripe REST API.
type StripeClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewStripeClient(baseURL, secretKey string, hc *http.Client) *StripeClient {
	if baseURL == "" {
		baseURL = StripeAPIURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &StripeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: hc,
	}
}

var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true,
	"KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// MinorUnits converts a major-unit amount into the integer the provider
// expects, e.g. 1250.50 INR becomes 125050 paise.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimal[strings.ToUpper(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *StripeClient) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if req.Source == "" {
		return nil, fmt.Errorf("stripe: empty source token: %w", ErrDeclined)
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(MinorUnits(req.Amount, req.Currency), 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("source", req.Source)
	if req.Description != "" {
		form.Set("description", req.Description)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/charges", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("stripe: create request: %w", err)
	}
	httpReq.SetBasicAuth(s.secretKey, "")
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stripe: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("stripe: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var se stripeError
		_ = json.Unmarshal(body, &se)
		msg := se.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		// 402 card errors and 400 invalid requests count as declines.
		if resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("stripe: %s: %w", msg, ErrDeclined)
		}
		return nil, fmt.Errorf("stripe: status %d: %s", resp.StatusCode, msg)
	}

	var ch Charge
	if err := json.Unmarshal(body, &ch); err != nil {
		return nil, fmt.Errorf("stripe: decode charge: %w", err)
	}
	if !ch.Paid {
		return nil, fmt.Errorf("stripe: charge %s is %s: %w", ch.ID, ch.Status, ErrDeclined)
	}
	return &ch, nil
}
