package khalti

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitiate(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/epayment/initiate/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"pidx":        "pidx-abc",
			"payment_url": "https://pay.khalti.com/?pidx=pidx-abc",
			"expires_at":  "2026-03-01T12:00:00+05:45",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-secret")
	out, err := client.Initiate(context.Background(), InitiateRequest{
		Amount:            412.5,
		PurchaseOrderID:   "ORDER-9",
		PurchaseOrderName: "Oak Desk",
		ReturnURL:         "https://furnirent.example/payment/return",
		WebsiteURL:        "https://furnirent.example",
		Customer:          CustomerInfo{Name: "Sita Rai", Phone: "9800000001"},
	})
	require.NoError(t, err)
	require.Equal(t, "pidx-abc", out.Pidx)
	require.Equal(t, "https://pay.khalti.com/?pidx=pidx-abc", out.PaymentURL)

	require.Equal(t, "Key test-secret", gotAuth)
	// Rupees go over the wire in paisa.
	require.Equal(t, float64(41250), gotBody["amount"])
	require.Equal(t, "ORDER-9", gotBody["purchase_order_id"])
	require.Equal(t, "https://furnirent.example/payment/return", gotBody["return_url"])
}

func TestInitiate_ProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Amount should be greater than Rs. 1"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-secret")
	_, err := client.Initiate(context.Background(), InitiateRequest{Amount: 0.5})

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	require.Equal(t, http.StatusBadRequest, gatewayErr.StatusCode)
	require.Contains(t, gatewayErr.Message, "Amount should be greater")
}

func TestVerify_LookupCompleted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/epayment/lookup/", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "pidx-abc", body["pidx"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"pidx":           "pidx-abc",
			"total_amount":   40000,
			"status":         "Completed",
			"transaction_id": "txn-001",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-secret")
	result, err := client.Verify(context.Background(), VerifyRequest{Pidx: "pidx-abc"})
	require.NoError(t, err)
	require.True(t, result.Verified)
	require.Equal(t, "Completed", result.Status)
	require.Equal(t, "txn-001", result.TransactionID)
	require.Equal(t, int64(40000), result.TotalAmount)
	require.NotEmpty(t, result.Raw)
}

func TestVerify_LookupNotCompleted(t *testing.T) {
	// Anything other than "Completed" is a miss, not an error.
	for _, status := range []string{"Pending", "Initiated", "Refunded", "Expired", "User canceled"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"pidx":   "pidx-abc",
				"status": status,
			})
		}))

		client := NewHTTPClient(server.URL, "test-secret")
		result, err := client.Verify(context.Background(), VerifyRequest{Pidx: "pidx-abc"})
		server.Close()

		require.NoError(t, err, status)
		require.False(t, result.Verified, status)
		require.Equal(t, status, result.Status)
	}
}

func TestVerify_LegacyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payment/verify/", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "tok-123", body["token"])
		require.Equal(t, float64(40000), body["amount"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"idx":    "txn-legacy",
			"amount": 40000,
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-secret")
	result, err := client.Verify(context.Background(), VerifyRequest{Token: "tok-123", Amount: 40000})
	require.NoError(t, err)
	require.True(t, result.Verified)
	require.Equal(t, "txn-legacy", result.TransactionID)
}

func TestVerify_LegacyTokenRejected(t *testing.T) {
	// The legacy endpoint answers 400 for unknown or unpaid tokens; that is
	// a verification miss, not a gateway failure.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"detail": "Invalid token"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-secret")
	result, err := client.Verify(context.Background(), VerifyRequest{Token: "tok-bad", Amount: 40000})
	require.NoError(t, err)
	require.False(t, result.Verified)
}

func TestVerify_MissingIdentifiers(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:0", "test-secret")

	_, err := client.Verify(context.Background(), VerifyRequest{})
	require.ErrorIs(t, err, ErrInvalidVerifyRequest)

	// Token without amount is just as unusable.
	_, err = client.Verify(context.Background(), VerifyRequest{Token: "tok-123"})
	require.ErrorIs(t, err, ErrInvalidVerifyRequest)
}

func TestVerify_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-secret")
	_, err := client.Verify(context.Background(), VerifyRequest{Pidx: "pidx-abc"})

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	require.Equal(t, http.StatusInternalServerError, gatewayErr.StatusCode)
}
