package payos

import (
	"bytes"
	"encoding/json"
	"fmt"
	io "io/ioutil"
	"net/http"

	"bitbucket.org/clinicops/backend/models"
	"github.com/pkg/errors"
)

const (
	payosContentType = `application/json`
)

// Client talks to the PayOS-style QR transfer provider. The provider owns the
// payment status; this service only creates payment links and reads their
// status back.
type Client struct {
	BaseURL             string
	ClientID            string
	APIKey              string
	PathPaymentRequests string
	ReturnURL           string
	CancelURL           string
}

type CreatePaymentLinkRequest struct {
	OrderCode   int64                    `json:"orderCode"`
	Amount      int                      `json:"amount"`
	Description string                   `json:"description"`
	Items       []CreatePaymentLinkItem  `json:"items"`
	ReturnURL   string                   `json:"returnUrl"`
	CancelURL   string                   `json:"cancelUrl"`
}

type CreatePaymentLinkItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int    `json:"price"`
}

type CreatePaymentLinkResponse struct {
	PaymentLinkID string `json:"paymentLinkId"`
	OrderCode     int64  `json:"orderCode"`
	Status        string `json:"status"`
	QRCode        string `json:"qrCode"`
	CheckoutURL   string `json:"checkoutUrl"`
}

type GetPaymentLinkResponse struct {
	PaymentLinkID string `json:"paymentLinkId"`
	OrderCode     int64  `json:"orderCode"`
	Status        string `json:"status"`
	AmountPaid    int    `json:"amountPaid"`
}

func (c *Client) CreatePaymentLink(request *CreatePaymentLinkRequest) (*CreatePaymentLinkResponse, error) {
	if request.ReturnURL == "" {
		request.ReturnURL = c.ReturnURL
	}
	if request.CancelURL == "" {
		request.CancelURL = c.CancelURL
	}

	responseBody, err := c.post(fmt.Sprintf("%s%s", c.BaseURL, c.PathPaymentRequests), request)
	if err != nil {
		return nil, err
	}

	if responseBody == nil {
		return nil, errors.New("failed creating payment link in PayOS")
	}

	var response CreatePaymentLinkResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, err
	}

	if response.PaymentLinkID == "" {
		return nil, errors.New("bad response from PayOS, missing payment link id")
	}

	return &response, nil
}

func (c *Client) GetPaymentLink(paymentLinkID string) (*GetPaymentLinkResponse, error) {
	responseBody, err := c.get(fmt.Sprintf("%s%s/%s", c.BaseURL, c.PathPaymentRequests, paymentLinkID))
	if err != nil {
		return nil, err
	}

	if responseBody == nil {
		return nil, errors.New("failed getting payment link from PayOS")
	}

	var response GetPaymentLinkResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// GetPaymentStatus reads the payment link and maps the provider status to the
// payment status owned by this service.
func (c *Client) GetPaymentStatus(paymentLinkID string) (models.PaymentStatus, error) {
	response, err := c.GetPaymentLink(paymentLinkID)
	if err != nil {
		return "", err
	}

	return MapStatus(response.Status), nil
}

// MapStatus translates a provider status. Unknown values map to PENDING so a
// provider-side addition never breaks the polling loop.
func MapStatus(provider string) models.PaymentStatus {
	switch provider {
	case "PAID":
		return models.PaymentStatusCompleted
	case "CANCELLED":
		return models.PaymentStatusCancelled
	case "EXPIRED", "FAILED":
		return models.PaymentStatusFailed
	default:
		return models.PaymentStatusPending
	}
}

func (c *Client) post(url string, body interface{}) ([]byte, error) {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, err
	}

	return c.do(request, http.StatusCreated, http.StatusOK)
}

func (c *Client) get(url string) ([]byte, error) {
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	return c.do(request, http.StatusOK)
}

func (c *Client) do(request *http.Request, allowedCodes ...int) ([]byte, error) {
	request.Header.Set("Content-Type", payosContentType)
	request.Header.Set("x-client-id", c.ClientID)
	request.Header.Set("x-api-key", c.APIKey)

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	for _, code := range allowedCodes {
		if response.StatusCode == code {
			return responseBody, nil
		}
	}

	return nil, errors.Errorf("bad response %d", response.StatusCode)
}
