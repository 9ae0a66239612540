// Package payment talks to the Lemon Squeezy API to create hosted
// checkout sessions. Webhook verification lives in entitlement; this
// package only covers the outbound direction.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://api.lemonsqueezy.com/v1"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	contentTypeJSONAPI  = "application/vnd.api+json"
)

// Client is a minimal JSON:API client for the checkout endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	storeID    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey, storeID string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		storeID: storeID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Error is a failed API call, carrying whatever detail the upstream
// payload included.
type Error struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("payment api: %s (status %d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("payment api: status %d", e.StatusCode)
}

// CheckoutRequest describes one checkout session to create.
type CheckoutRequest struct {
	// UserID is threaded through checkout custom data so the payment
	// webhook can attribute the purchase back to an account.
	UserID string
	// VariantID is the numeric product variant to sell.
	VariantID string
	// RedirectURL is where the buyer lands after paying.
	RedirectURL string
	// ReceiptButtonText labels the post-purchase receipt button.
	ReceiptButtonText string
}

type checkoutPayload struct {
	Data struct {
		Type          string             `json:"type"`
		Attributes    checkoutAttributes `json:"attributes"`
		Relationships struct {
			Store   relationship `json:"store"`
			Variant relationship `json:"variant"`
		} `json:"relationships"`
	} `json:"data"`
}

type checkoutAttributes struct {
	CheckoutData struct {
		Custom map[string]string `json:"custom"`
	} `json:"checkout_data"`
	ProductOptions struct {
		RedirectURL       string `json:"redirect_url,omitempty"`
		ReceiptButtonText string `json:"receipt_button_text,omitempty"`
		ReceiptLinkURL    string `json:"receipt_link_url,omitempty"`
	} `json:"product_options"`
}

type relationship struct {
	Data struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"data"`
}

type checkoutResponse struct {
	Data struct {
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateCheckout creates a hosted checkout session and returns its URL.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if req.UserID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if req.VariantID == "" {
		return "", fmt.Errorf("variant id is required")
	}
	if c.storeID == "" {
		return "", fmt.Errorf("store id is not configured")
	}

	var payload checkoutPayload
	payload.Data.Type = "checkouts"
	payload.Data.Attributes.CheckoutData.Custom = map[string]string{
		"user_id": req.UserID,
	}
	payload.Data.Attributes.ProductOptions.RedirectURL = req.RedirectURL
	payload.Data.Attributes.ProductOptions.ReceiptButtonText = req.ReceiptButtonText
	payload.Data.Attributes.ProductOptions.ReceiptLinkURL = req.RedirectURL
	payload.Data.Relationships.Store.Data.Type = "stores"
	payload.Data.Relationships.Store.Data.ID = c.storeID
	payload.Data.Relationships.Variant.Data.Type = "variants"
	payload.Data.Relationships.Variant.Data.ID = req.VariantID

	var resp checkoutResponse
	if err := c.post(ctx, "/checkouts", payload, &resp); err != nil {
		return "", err
	}

	if resp.Data.Attributes.URL == "" {
		return "", fmt.Errorf("no checkout url in response")
	}
	return resp.Data.Attributes.URL, nil
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	reqURL, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("failed to build url: %w", err)
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerAuthorization, "Bearer "+c.apiKey)
	req.Header.Set(headerContentType, contentTypeJSONAPI)
	req.Header.Set(headerAccept, contentTypeJSONAPI)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// parseError extracts the first JSON:API error detail; anything else
// falls back to the raw body.
func parseError(statusCode int, body []byte) error {
	var apiErrors struct {
		Errors []struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &apiErrors); err == nil && len(apiErrors.Errors) > 0 {
		detail := apiErrors.Errors[0].Detail
		if detail == "" {
			detail = apiErrors.Errors[0].Title
		}
		return &Error{StatusCode: statusCode, Detail: detail}
	}
	return &Error{StatusCode: statusCode, Detail: string(body)}
}
