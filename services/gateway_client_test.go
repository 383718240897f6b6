package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"settlement-service/config"
	"settlement-service/models"
	"settlement-service/services"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func gatewayFor(t *testing.T, baseURL string) services.GatewayClient {
	t.Helper()
	return services.NewGatewayClient(config.GatewayConfig{
		BaseURL:     baseURL,
		MerchantID:  "merchant-1",
		APIKey:      "test-api-key",
		HMACSecret:  "test-secret",
		CallbackURL: "https://settlement.example/payments/webhook",
		Timeout:     2 * time.Second,
	}, zap.NewNop())
}

func TestSignVerify_RoundTrip(t *testing.T) {
	gw := gatewayFor(t, "http://unused")

	n := models.GatewayNotification{
		TransactionID: "tx-1",
		ReferenceID:   "REF-1",
		Status:        models.GatewayStatusCompleted,
		Amount:        100,
		Currency:      "USD",
		Timestamp:     "2026-08-29T10:00:00Z",
	}
	n.Signature = gw.Sign(n)

	assert.True(t, gw.VerifySignature(n))
}

func TestVerifySignature_RejectsTampering(t *testing.T) {
	gw := gatewayFor(t, "http://unused")

	n := models.GatewayNotification{
		TransactionID: "tx-1",
		ReferenceID:   "REF-1",
		Status:        models.GatewayStatusCompleted,
		Amount:        100,
		Currency:      "USD",
		PaymentMethod: "card",
		Timestamp:     "2026-08-29T10:00:00Z",
	}
	n.Signature = gw.Sign(n)

	tampered := n
	tampered.Amount = 1
	assert.False(t, gw.VerifySignature(tampered))

	tampered = n
	tampered.Status = models.GatewayStatusFailed
	assert.False(t, gw.VerifySignature(tampered))

	tampered = n
	tampered.PaymentMethod = "wallet"
	assert.False(t, gw.VerifySignature(tampered))

	tampered = n
	tampered.Signature = ""
	assert.False(t, gw.VerifySignature(tampered))
}

func TestVerifySignature_SecretMatters(t *testing.T) {
	gw := gatewayFor(t, "http://unused")
	other := services.NewGatewayClient(config.GatewayConfig{
		BaseURL: "http://unused", HMACSecret: "other-secret", Timeout: time.Second,
	}, zap.NewNop())

	n := models.GatewayNotification{ReferenceID: "REF-1", Status: models.GatewayStatusCompleted, Amount: 100}
	n.Signature = other.Sign(n)

	assert.False(t, gw.VerifySignature(n))
}

func TestBuildRedirect_PostsChargeAndReturnsURL(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(services.ChargeResponse{
			TransactionID: "tx-42",
			RedirectURL:   "https://gateway.example/hpp/tx-42",
		})
	}))
	defer srv.Close()

	gw := gatewayFor(t, srv.URL)
	resp, err := gw.BuildRedirect(context.Background(), services.ChargeRequest{
		ReferenceID: "REF-42",
		Amount:      250,
		Currency:    "USD",
	})

	assert.NoError(t, err)
	assert.Equal(t, "tx-42", resp.TransactionID)
	assert.Equal(t, "https://gateway.example/hpp/tx-42", resp.RedirectURL)
	assert.Equal(t, "Bearer test-api-key", gotAuth)
	assert.Equal(t, "REF-42", gotBody["reference_id"])
	assert.Equal(t, "merchant-1", gotBody["merchant_id"])
	assert.NotEmpty(t, gotBody["callback_url"])
}

func TestBuildRedirect_GatewayErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw := gatewayFor(t, srv.URL)
	_, err := gw.BuildRedirect(context.Background(), services.ChargeRequest{ReferenceID: "REF-1"})

	assert.Error(t, err)
	var gwErr *services.GatewayError
	assert.ErrorAs(t, err, &gwErr)
}

func TestVerifyRemote_ReturnsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions/tx-7", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "COMPLETED"})
	}))
	defer srv.Close()

	gw := gatewayFor(t, srv.URL)
	status, err := gw.VerifyRemote(context.Background(), "tx-7")

	assert.NoError(t, err)
	assert.Equal(t, "COMPLETED", status)
}

func TestVerifyRemote_NotFoundSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gw := gatewayFor(t, srv.URL)
	_, err := gw.VerifyRemote(context.Background(), "tx-unknown")

	assert.Error(t, err)
}
