package khalti

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrInvalidVerifyRequest is returned when neither identifier shape is usable.
var ErrInvalidVerifyRequest = errors.New("either pidx or token with amount must be provided")

// StatusCompleted is the only provider status accepted as a settled payment.
const StatusCompleted = "Completed"

// GatewayError wraps a provider-side failure (unreachable host, non-2xx
// response) so callers can tell it apart from a plain verification miss.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("khalti gateway error (status %d): %s", e.StatusCode, e.Message)
}

// CustomerInfo identifies the payer on the hosted payment page
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// InitiateRequest starts a hosted payment for one checkout.
// Amount is in rupees; the client converts to paisa on the wire.
type InitiateRequest struct {
	Amount            float64
	PurchaseOrderID   string
	PurchaseOrderName string
	ReturnURL         string
	WebsiteURL        string
	Customer          CustomerInfo
}

// InitiateResponse carries the provider transaction token and the hosted
// payment page the client is redirected to.
type InitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
}

// VerifyRequest holds the identifiers returned by the client redirect.
// Exactly one shape must be set: Pidx (current API) or Token+Amount (legacy).
type VerifyRequest struct {
	Pidx   string
	Token  string
	Amount int64 // paisa, legacy shape only
}

// VerifyResult is the provider's answer to a server-to-server lookup.
// Verified is true only for a provider-reported "Completed" status; any other
// status is a verification miss, not an error.
type VerifyResult struct {
	Verified      bool
	Status        string
	TransactionID string
	TotalAmount   int64 // paisa, as reported by the provider
	Raw           json.RawMessage
}

// Client is the payment gateway boundary used by the checkout and
// verification services.
type Client interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

// HTTPClient talks to the Khalti ePayment API
type HTTPClient struct {
	http *resty.Client
}

// NewHTTPClient creates a gateway client for the given API base URL.
func NewHTTPClient(baseURL, secretKey string) *HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Authorization", "Key "+secretKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPClient{http: client}
}

// Initiate performs the server-to-server initiate call and returns the
// provider token plus the hosted payment page URL.
func (c *HTTPClient) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	body := map[string]any{
		"amount":              toPaisa(req.Amount),
		"purchase_order_id":   req.PurchaseOrderID,
		"purchase_order_name": req.PurchaseOrderName,
		"return_url":          req.ReturnURL,
		"website_url":         req.WebsiteURL,
		"customer_info":       req.Customer,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/epayment/initiate/")
	if err != nil {
		return nil, &GatewayError{StatusCode: 0, Message: err.Error()}
	}
	if resp.StatusCode() >= 300 {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: providerMessage(resp.Body())}
	}

	var out InitiateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: "malformed initiate response"}
	}
	if out.Pidx == "" || out.PaymentURL == "" {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: "initiate response missing pidx or payment_url"}
	}
	return &out, nil
}

// Verify re-derives the payment state from the provider. It never trusts the
// caller's claim of success.
func (c *HTTPClient) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	switch {
	case req.Pidx != "":
		return c.lookup(ctx, req.Pidx)
	case req.Token != "" && req.Amount > 0:
		return c.legacyVerify(ctx, req.Token, req.Amount)
	default:
		return nil, ErrInvalidVerifyRequest
	}
}

// lookup resolves a pidx through the current ePayment lookup endpoint.
func (c *HTTPClient) lookup(ctx context.Context, pidx string) (*VerifyResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"pidx": pidx}).
		Post("/epayment/lookup/")
	if err != nil {
		return nil, &GatewayError{StatusCode: 0, Message: err.Error()}
	}
	if resp.StatusCode() >= 300 {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: providerMessage(resp.Body())}
	}

	var out struct {
		Pidx          string `json:"pidx"`
		TotalAmount   int64  `json:"total_amount"`
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: "malformed lookup response"}
	}

	return &VerifyResult{
		Verified:      out.Status == StatusCompleted,
		Status:        out.Status,
		TransactionID: out.TransactionID,
		TotalAmount:   out.TotalAmount,
		Raw:           json.RawMessage(resp.Body()),
	}, nil
}

// legacyVerify resolves a (token, amount) pair through the old verify
// endpoint. The provider answers 400 for an unknown or unpaid token, which is
// a verification miss rather than a gateway failure.
func (c *HTTPClient) legacyVerify(ctx context.Context, token string, amount int64) (*VerifyResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"token": token, "amount": amount}).
		Post("/payment/verify/")
	if err != nil {
		return nil, &GatewayError{StatusCode: 0, Message: err.Error()}
	}
	if resp.StatusCode() == 400 {
		return &VerifyResult{
			Verified: false,
			Status:   "Rejected",
			Raw:      json.RawMessage(resp.Body()),
		}, nil
	}
	if resp.StatusCode() >= 300 {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: providerMessage(resp.Body())}
	}

	var out struct {
		Idx    string `json:"idx"`
		Amount int64  `json:"amount"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Message: "malformed verify response"}
	}

	return &VerifyResult{
		Verified:      out.Idx != "",
		Status:        StatusCompleted,
		TransactionID: out.Idx,
		TotalAmount:   out.Amount,
		Raw:           json.RawMessage(resp.Body()),
	}, nil
}

// toPaisa converts rupees to the provider's minor unit, rounded.
func toPaisa(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

// providerMessage pulls a human-readable message out of an error body.
func providerMessage(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	if len(body) == 0 {
		return "empty provider response"
	}
	return string(body)
}
