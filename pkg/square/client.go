package square

// SQUARE ONLINE CHECKOUT CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SandboxBaseURL    = "https://connect.squareupsandbox.com"
	ProductionBaseURL = "https://connect.squareup.com"

	paymentLinksPath = "/v2/online-checkout/payment-links"
	currencyJPY      = "JPY"
)

var ErrNotConfigured = errors.New("square: access token or location id missing")

// LineItem is one billed entry of a payment link. Amount is in JPY.
type LineItem struct {
	Name     string
	Amount   int
	Quantity int
}

type Client struct {
	baseURL    string
	token      string
	locationID string
	httpClient *http.Client
	newKey     func() string
	logger     *zap.Logger
}

func NewClient(baseURL, token, locationID string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		locationID: locationID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		newKey: uuid.NewString,
		logger: logger,
	}
}

// BaseURL picks the API host for an environment name. Only "sandbox" selects
// the sandbox host.
func BaseURL(environment string) string {
	if environment == "sandbox" {
		return SandboxBaseURL
	}
	return ProductionBaseURL
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type lineItemRequest struct {
	Name           string `json:"name"`
	Quantity       string `json:"quantity"`
	BasePriceMoney money  `json:"base_price_money"`
}

type orderRequest struct {
	LocationID  string            `json:"location_id"`
	LineItems   []lineItemRequest `json:"line_items"`
	ReferenceID string            `json:"reference_id,omitempty"`
}

type paymentLinkRequest struct {
	IdempotencyKey string       `json:"idempotency_key"`
	Order          orderRequest `json:"order"`
}

type paymentLinkResponse struct {
	PaymentLink struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"payment_link"`
}

// CreatePaymentLink creates a hosted checkout page and returns its URL.
func (c *Client) CreatePaymentLink(ctx context.Context, items []LineItem, referenceID string) (string, error) {
	if c.token == "" || c.locationID == "" || c.baseURL == "" {
		return "", ErrNotConfigured
	}

	lineItems := make([]lineItemRequest, 0, len(items))
	for _, it := range items {
		q := it.Quantity
		if q < 1 {
			q = 1
		}
		lineItems = append(lineItems, lineItemRequest{
			Name:           it.Name,
			Quantity:       strconv.Itoa(q),
			BasePriceMoney: money{Amount: int64(it.Amount), Currency: currencyJPY},
		})
	}

	body, err := json.Marshal(paymentLinkRequest{
		IdempotencyKey: c.newKey(),
		Order: orderRequest{
			LocationID:  c.locationID,
			LineItems:   lineItems,
			ReferenceID: referenceID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+paymentLinksPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Square payment link request failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", detail))
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result paymentLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.PaymentLink.URL == "" {
		return "", errors.New("square: response has no payment link url")
	}

	c.logger.Info("Payment link created",
		zap.String("reference_id", referenceID),
		zap.String("payment_link_id", result.PaymentLink.ID))
	return result.PaymentLink.URL, nil
}
