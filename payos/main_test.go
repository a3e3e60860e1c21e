package payos

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/clinicops/backend/models"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return &Client{
		BaseURL:             url,
		ClientID:            "client-id",
		APIKey:              "api-key",
		PathPaymentRequests: "/v2/payment-requests",
		ReturnURL:           "https://clinic.example/return",
		CancelURL:           "https://clinic.example/cancel",
	}
}

func TestCreatePaymentLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/payment-requests", r.URL.Path)
		require.Equal(t, "client-id", r.Header.Get("x-client-id"))
		require.Equal(t, "api-key", r.Header.Get("x-api-key"))

		var request CreatePaymentLinkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.EqualValues(t, 1234, request.OrderCode)
		require.Equal(t, 150000, request.Amount)
		require.Equal(t, "https://clinic.example/return", request.ReturnURL)
		require.Equal(t, "https://clinic.example/cancel", request.CancelURL)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CreatePaymentLinkResponse{
			PaymentLinkID: "pl-41",
			OrderCode:     request.OrderCode,
			Status:        "PENDING",
			QRCode:        "00020101021238570010A000000727",
			CheckoutURL:   "https://pay.example/pl-41",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	response, err := client.CreatePaymentLink(&CreatePaymentLinkRequest{
		OrderCode:   1234,
		Amount:      150000,
		Description: "Reception 41",
	})
	require.NoError(t, err)
	require.Equal(t, "pl-41", response.PaymentLinkID)
	require.Equal(t, "00020101021238570010A000000727", response.QRCode)
}

func TestCreatePaymentLinkMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreatePaymentLink(&CreatePaymentLinkRequest{OrderCode: 1, Amount: 1})
	require.Error(t, err)
}

func TestCreatePaymentLinkBadStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreatePaymentLink(&CreatePaymentLinkRequest{OrderCode: 1, Amount: 1})
	require.Error(t, err)
}

func TestGetPaymentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v2/payment-requests/pl-41", r.URL.Path)

		json.NewEncoder(w).Encode(GetPaymentLinkResponse{
			PaymentLinkID: "pl-41",
			OrderCode:     1234,
			Status:        "PAID",
			AmountPaid:    150000,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	status, err := client.GetPaymentStatus("pl-41")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusCompleted, status)
}

func TestMapStatus(t *testing.T) {
	cases := map[string]models.PaymentStatus{
		"PAID":      models.PaymentStatusCompleted,
		"CANCELLED": models.PaymentStatusCancelled,
		"EXPIRED":   models.PaymentStatusFailed,
		"FAILED":    models.PaymentStatusFailed,
		"PENDING":   models.PaymentStatusPending,
		"":          models.PaymentStatusPending,
		"SOMETHING": models.PaymentStatusPending,
	}

	for provider, want := range cases {
		require.Equal(t, want, MapStatus(provider), provider)
	}
}
