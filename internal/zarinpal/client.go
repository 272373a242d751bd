package zarinpal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	productionBaseURL = "https://www.zarinpal.com/pg/rest/WebGate"
	sandboxBaseURL    = "https://sandbox.zarinpal.com/pg/rest/WebGate"

	productionStartPayURL = "https://www.zarinpal.com/pg/StartPay/"
	sandboxStartPayURL    = "https://sandbox.zarinpal.com/pg/StartPay/"
)

// Client is the narrow surface the rest of the service depends on.
// Implementations return the gateway status code alongside an error so
// callers can distinguish transport failures from declined requests.
type Client interface {
	// InitiatePayment registers a payment and returns the gateway status
	// and the authority token used to send the customer to the pay page.
	InitiatePayment(ctx context.Context, req PaymentRequest) (int, string, error)
	// VerifyPayment confirms a returned payment and yields the gateway
	// status and the reference id assigned to the settled transaction.
	VerifyPayment(ctx context.Context, req VerifyRequest) (int, int64, error)
}

// ClientSelector picks the client for the environment a store's
// settings resolve to. The sandbox flag is per-store overridable, so
// the choice happens per call.
type ClientSelector func(useSandbox bool) Client

// NewSelector returns a selector over a fixed sandbox/production pair.
func NewSelector(sandbox, production Client) ClientSelector {
	return func(useSandbox bool) Client {
		if useSandbox {
			return sandbox
		}
		return production
	}
}

// PaymentRequest carries the fields for registering a payment.
type PaymentRequest struct {
	MerchantID  string
	Amount      int64
	Description string
	Email       string
	Mobile      string
	CallbackURL string
}

// VerifyRequest carries the fields for verifying a returned payment.
type VerifyRequest struct {
	MerchantID string
	Authority  string
	Amount     int64
}

// HTTPClient talks to the gateway REST endpoints.
type HTTPClient struct {
	BaseURL     string
	StartPayURL string
	HTTP        *http.Client
}

// NewHTTPClient builds a gateway client for either environment. The
// transport is instrumented so outbound calls show up in traces.
func NewHTTPClient(useSandbox bool, timeout time.Duration) *HTTPClient {
	base, start := productionBaseURL, productionStartPayURL
	if useSandbox {
		base, start = sandboxBaseURL, sandboxStartPayURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		BaseURL:     base,
		StartPayURL: start,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// PayPageURL returns the address the customer is redirected to for the
// given authority token.
func (c *HTTPClient) PayPageURL(authority string) string {
	return c.StartPayURL + authority
}

type paymentRequestBody struct {
	MerchantID  string `json:"MerchantID"`
	Amount      int64  `json:"Amount"`
	Description string `json:"Description"`
	Email       string `json:"Email,omitempty"`
	Mobile      string `json:"Mobile,omitempty"`
	CallbackURL string `json:"CallbackURL"`
}

type paymentResponseBody struct {
	Status    int    `json:"Status"`
	Authority string `json:"Authority"`
}

type verifyRequestBody struct {
	MerchantID string `json:"MerchantID"`
	Authority  string `json:"Authority"`
	Amount     int64  `json:"Amount"`
}

type verifyResponseBody struct {
	Status int   `json:"Status"`
	RefID  int64 `json:"RefID"`
}

// InitiatePayment registers a payment with the gateway.
func (c *HTTPClient) InitiatePayment(ctx context.Context, req PaymentRequest) (int, string, error) {
	body := paymentRequestBody{
		MerchantID:  req.MerchantID,
		Amount:      req.Amount,
		Description: req.Description,
		Email:       req.Email,
		Mobile:      req.Mobile,
		CallbackURL: req.CallbackURL,
	}
	var resp paymentResponseBody
	if err := c.post(ctx, "/PaymentRequest.json", body, &resp); err != nil {
		return 0, "", err
	}
	return resp.Status, resp.Authority, nil
}

// VerifyPayment confirms a payment that returned through the callback.
func (c *HTTPClient) VerifyPayment(ctx context.Context, req VerifyRequest) (int, int64, error) {
	body := verifyRequestBody{
		MerchantID: req.MerchantID,
		Authority:  req.Authority,
		Amount:     req.Amount,
	}
	var resp verifyResponseBody
	if err := c.post(ctx, "/PaymentVerification.json", body, &resp); err != nil {
		return 0, 0, err
	}
	return resp.Status, resp.RefID, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode gateway request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call gateway: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned HTTP %d", httpResp.StatusCode)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
