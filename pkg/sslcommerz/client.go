package sslcommerz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mehadihasan/bazarly-backend/pkg/config"
	pkgerrors "github.com/mehadihasan/bazarly-backend/pkg/errors"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

const (
	sandboxBaseURL = "https://sandbox.sslcommerz.com"
	liveBaseURL    = "https://securepay.sslcommerz.com"

	sessionPath   = "/gwprocess/v4/api.php"
	validatorPath = "/validator/api/validationserverAPI.php"

	responseBodyReadLimit int64 = 4096
)

// Client talks to the SSLCommerz hosted-checkout and validator APIs.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	storeID       string
	storePassword string
	currency      string
	retryMax      int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the environment-derived base URL. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds an SSLCommerz client from the store credentials.
func NewClient(cfg config.SSLCommerzConfig, retryMax int, opts ...Option) (*Client, error) {
	storeID := strings.TrimSpace(cfg.StoreID)
	storePassword := strings.TrimSpace(cfg.StorePassword)
	if storeID == "" || storePassword == "" {
		return nil, fmt.Errorf("sslcommerz store credentials are required")
	}

	baseURL := sandboxBaseURL
	if cfg.Environment() == "live" {
		baseURL = liveBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if retryMax < 0 {
		retryMax = 0
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		storeID:       storeID,
		storePassword: storePassword,
		currency:      cfg.Currency,
		retryMax:      retryMax,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SessionRequest describes one hosted-checkout session to initiate.
type SessionRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string

	SuccessURL string
	FailURL    string
	CancelURL  string
	IPNURL     string

	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	CustomerCity    string
	CustomerCountry string

	ProductName     string
	ProductCategory string
}

// Session is the gateway's answer to a session request.
type Session struct {
	SessionKey     string
	GatewayPageURL string
}

// InitiateSession registers the transaction with the gateway and returns the
// hosted payment page URL the customer must be redirected to.
func (c *Client) InitiateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sslcommerz client not configured")
	}
	if strings.TrimSpace(req.TransactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = c.currency
	}

	form := url.Values{}
	form.Set("store_id", c.storeID)
	form.Set("store_passwd", c.storePassword)
	form.Set("tran_id", req.TransactionID)
	form.Set("total_amount", req.Amount.StringFixed(2))
	form.Set("currency", currency)
	form.Set("success_url", req.SuccessURL)
	form.Set("fail_url", req.FailURL)
	form.Set("cancel_url", req.CancelURL)
	if req.IPNURL != "" {
		form.Set("ipn_url", req.IPNURL)
	}
	form.Set("cus_name", req.CustomerName)
	form.Set("cus_email", req.CustomerEmail)
	form.Set("cus_phone", req.CustomerPhone)
	form.Set("cus_add1", req.CustomerAddress)
	form.Set("cus_city", req.CustomerCity)
	form.Set("cus_country", req.CustomerCountry)
	form.Set("shipping_method", "NO")
	form.Set("product_name", req.ProductName)
	form.Set("product_category", req.ProductCategory)
	form.Set("product_profile", "general")

	var apiResp struct {
		Status         string `json:"status"`
		FailedReason   string `json:"failedreason"`
		SessionKey     string `json:"sessionkey"`
		GatewayPageURL string `json:"GatewayPageURL"`
	}
	if err := c.postForm(ctx, c.buildURL(sessionPath), form, &apiResp); err != nil {
		return nil, err
	}

	if !strings.EqualFold(apiResp.Status, "SUCCESS") {
		reason := strings.TrimSpace(apiResp.FailedReason)
		if reason == "" {
			reason = "gateway rejected the session"
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, fmt.Errorf("session %s: %s", apiResp.Status, reason), "initiate checkout session")
	}
	if apiResp.GatewayPageURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway returned no payment page URL")
	}

	return &Session{
		SessionKey:     apiResp.SessionKey,
		GatewayPageURL: apiResp.GatewayPageURL,
	}, nil
}

// Validation is the validator API's verdict on a completed transaction.
type Validation struct {
	Status        string
	TransactionID string
	ValidationID  string
	Amount        decimal.Decimal
	Currency      string
}

// Valid reports whether the gateway considers the transaction settled.
func (v *Validation) Valid() bool {
	if v == nil {
		return false
	}
	return strings.EqualFold(v.Status, "VALID") || strings.EqualFold(v.Status, "VALIDATED")
}

// ValidateTransaction asks the validator API whether the val_id carried by a
// callback corresponds to a settled transaction. Callbacks are never trusted
// on their own say-so.
func (c *Client) ValidateTransaction(ctx context.Context, valID string) (*Validation, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sslcommerz client not configured")
	}
	trimmed := strings.TrimSpace(valID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "val_id is required")
	}

	query := url.Values{}
	query.Set("val_id", trimmed)
	query.Set("store_id", c.storeID)
	query.Set("store_passwd", c.storePassword)
	query.Set("format", "json")

	var apiResp struct {
		Status        string `json:"status"`
		TransactionID string `json:"tran_id"`
		ValID         string `json:"val_id"`
		Amount        string `json:"amount"`
		Currency      string `json:"currency"`
	}
	if err := c.getJSON(ctx, c.buildURL(validatorPath)+"?"+query.Encode(), &apiResp); err != nil {
		return nil, err
	}

	amount := decimal.Zero
	if trimmedAmount := strings.TrimSpace(apiResp.Amount); trimmedAmount != "" {
		parsed, err := decimal.NewFromString(trimmedAmount)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "parse validated amount")
		}
		amount = parsed
	}

	return &Validation{
		Status:        apiResp.Status,
		TransactionID: apiResp.TransactionID,
		ValidationID:  apiResp.ValID,
		Amount:        amount,
		Currency:      apiResp.Currency,
	}, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	body := form.Encode()
	return c.doWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, out)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return c.doWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, out)
}

// doWithRetry executes the request, retrying transport failures and gateway
// 5xx answers with exponential backoff.
func (c *Client) doWithRetry(ctx context.Context, build func(context.Context) (*http.Request, error), out any) error {
	backoff := retry.WithMaxRetries(uint64(c.retryMax), retry.NewExponential(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := build(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "build gateway request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeGateway, err, "execute gateway request"))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= http.StatusInternalServerError {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
			return retry.RetryableError(pkgerrors.Wrap(
				pkgerrors.CodeGateway,
				fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
				"gateway request failed",
			))
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
			return pkgerrors.Wrap(
				pkgerrors.CodeGateway,
				fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
				"gateway request failed",
			)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode gateway response")
		}
		return nil
	})
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
