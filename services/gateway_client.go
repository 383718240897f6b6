package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"settlement-service/config"
	"settlement-service/models"

	"go.uber.org/zap"
)

// GatewayError is surfaced for any network, timeout or protocol failure
// talking to the payment gateway. Never swallowed at this layer.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ChargeRequest is the provider-neutral input for both the hosted-redirect
// and direct-charge flows.
type ChargeRequest struct {
	ReferenceID   string  `json:"reference_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	WalletType    string  `json:"wallet_type,omitempty"`
	CustomerPhone string  `json:"customer_phone,omitempty"`
	CustomerEmail string  `json:"customer_email,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// ChargeResponse is what the gateway answers for either flow.
type ChargeResponse struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	Status        string `json:"status"`
}

// GatewayClient is the adapter boundary to the external payment gateway.
type GatewayClient interface {
	BuildRedirect(ctx context.Context, req ChargeRequest) (*ChargeResponse, error)
	ChargeDirect(ctx context.Context, req ChargeRequest) (*ChargeResponse, error)
	VerifyRemote(ctx context.Context, transactionID string) (string, error)
	Sign(n models.GatewayNotification) string
	VerifySignature(n models.GatewayNotification) bool
}

type httpGatewayClient struct {
	cfg    config.GatewayConfig
	client *http.Client
	logger *zap.Logger
}

func NewGatewayClient(cfg config.GatewayConfig, logger *zap.Logger) GatewayClient {
	return &httpGatewayClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// BuildRedirect asks the gateway for a hosted-payment-page URL.
func (g *httpGatewayClient) BuildRedirect(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	return g.post(ctx, "/v1/checkout", req)
}

// ChargeDirect performs a server-to-server charge.
func (g *httpGatewayClient) ChargeDirect(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	return g.post(ctx, "/v1/charges", req)
}

func (g *httpGatewayClient) post(ctx context.Context, path string, req ChargeRequest) (*ChargeResponse, error) {
	op := path
	payload := struct {
		ChargeRequest
		MerchantID  string `json:"merchant_id"`
		CallbackURL string `json:"callback_url"`
	}{
		ChargeRequest: req,
		MerchantID:    g.cfg.MerchantID,
		CallbackURL:   g.cfg.CallbackURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}

	// One retry on transport failure. Anything past that is the caller's
	// problem; the webhook path never blocks on this.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, &GatewayError{Op: op, Err: err}
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

		resp, err := g.client.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}

		var out ChargeResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return nil, &GatewayError{Op: op, Err: fmt.Errorf("gateway returned %d", resp.StatusCode)}
		}
		if decodeErr != nil {
			return nil, &GatewayError{Op: op, Err: decodeErr}
		}
		return &out, nil
	}
	return nil, &GatewayError{Op: op, Err: lastErr}
}

// VerifyRemote queries the gateway for a transaction's current status.
// Advisory only; callers must not mutate local state from the answer.
func (g *httpGatewayClient) VerifyRemote(ctx context.Context, transactionID string) (string, error) {
	url := fmt.Sprintf("%s/v1/transactions/%s", g.cfg.BaseURL, transactionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &GatewayError{Op: "verify", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", &GatewayError{Op: "verify", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &GatewayError{Op: "verify", Err: fmt.Errorf("gateway returned %d", resp.StatusCode)}
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &GatewayError{Op: "verify", Err: err}
	}
	return out.Status, nil
}

// canonicalPayload serializes the signed fields of a notification in a fixed
// order, excluding the signature itself.
func canonicalPayload(n models.GatewayNotification) string {
	return n.TransactionID + "|" +
		n.ReferenceID + "|" +
		n.Status + "|" +
		strconv.FormatFloat(n.Amount, 'f', 2, 64) + "|" +
		n.Currency + "|" +
		n.PaymentMethod + "|" +
		n.Timestamp
}

// Sign computes the hex HMAC-SHA256 of the canonical payload.
func (g *httpGatewayClient) Sign(n models.GatewayNotification) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.HMACSecret))
	mac.Write([]byte(canonicalPayload(n)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a notification's signature in constant time.
func (g *httpGatewayClient) VerifySignature(n models.GatewayNotification) bool {
	if n.Signature == "" {
		return false
	}
	expected := g.Sign(n)
	return hmac.Equal([]byte(expected), []byte(n.Signature))
}
