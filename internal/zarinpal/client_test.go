package zarinpal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewHTTPClient(true, time.Second)
	client.BaseURL = srv.URL
	return client, srv
}

func TestInitiatePaymentSuccess(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/PaymentRequest.json", r.URL.Path)
		var body paymentRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "merchant-1", body.MerchantID)
		assert.Equal(t, int64(49), body.Amount)
		assert.Equal(t, "https://shop.example.com/callback", body.CallbackURL)

		json.NewEncoder(w).Encode(paymentResponseBody{Status: 100, Authority: "A0000012345"})
	})

	status, authority, err := client.InitiatePayment(context.Background(), PaymentRequest{
		MerchantID:  "merchant-1",
		Amount:      49,
		Description: "Store One",
		CallbackURL: "https://shop.example.com/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, "A0000012345", authority)
}

func TestInitiatePaymentDeclined(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(paymentResponseBody{Status: -11})
	})

	status, authority, err := client.InitiatePayment(context.Background(), PaymentRequest{MerchantID: "m"})
	require.NoError(t, err)
	assert.Equal(t, -11, status)
	assert.Empty(t, authority)
}

func TestVerifyPaymentSuccess(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/PaymentVerification.json", r.URL.Path)
		var body verifyRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "A0000012345", body.Authority)
		json.NewEncoder(w).Encode(verifyResponseBody{Status: 100, RefID: 555})
	})

	status, refID, err := client.VerifyPayment(context.Background(), VerifyRequest{
		MerchantID: "merchant-1",
		Authority:  "A0000012345",
		Amount:     49,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, int64(555), refID)
}

func TestVerifyPaymentTransportFailure(t *testing.T) {
	client := NewHTTPClient(true, time.Second)
	client.BaseURL = "http://127.0.0.1:1"

	status, refID, err := client.VerifyPayment(context.Background(), VerifyRequest{MerchantID: "m", Authority: "a", Amount: 1})
	require.Error(t, err)
	assert.Zero(t, status)
	assert.Zero(t, refID)
}

func TestPostRejectsNon200(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	status, _, err := client.InitiatePayment(context.Background(), PaymentRequest{MerchantID: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
	assert.Zero(t, status)
}

func TestPayPageURL(t *testing.T) {
	sandbox := NewHTTPClient(true, 0)
	assert.Equal(t, "https://sandbox.zarinpal.com/pg/StartPay/A123", sandbox.PayPageURL("A123"))

	prod := NewHTTPClient(false, 0)
	assert.Equal(t, "https://www.zarinpal.com/pg/StartPay/A123", prod.PayPageURL("A123"))
}
