package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/clinicops/backend/cache"
	"bitbucket.org/clinicops/backend/config"
	"bitbucket.org/clinicops/backend/db"
	"bitbucket.org/clinicops/backend/middlewares"
	"bitbucket.org/clinicops/backend/models"
	"bitbucket.org/clinicops/backend/payos"
	"bitbucket.org/clinicops/backend/polling"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

// stubStorage overrides the storage methods the payment handlers touch and
// records what they were called with. Anything else panics through the
// embedded nil interface, which is exactly what a test wants.
type stubStorage struct {
	db.Storage

	mu sync.Mutex

	patient   *models.Patient
	reception *models.Reception
	services  []models.Service
	user      *models.User

	payments           map[int]*models.Payment
	paymentsByContract map[string]*models.Payment

	inserted   []*db.InsertPaymentOpts
	markedPaid [][]int
}

func (s *stubStorage) GetPatientByID(int) (*models.Patient, error) { return s.patient, nil }

func (s *stubStorage) GetOpenReceptionByPatientID(int) (*models.Reception, error) {
	return s.reception, nil
}

func (s *stubStorage) GetServicesByIDs([]int) ([]models.Service, error) { return s.services, nil }

func (s *stubStorage) InsertPayment(opts *db.InsertPaymentOpts) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, opts)

	payment := &models.Payment{
		ID:                40 + len(s.inserted),
		Amount:            opts.Amount,
		Method:            opts.Method,
		Status:            opts.Status,
		InvoiceNumber:     opts.InvoiceNumber,
		PaymentContractID: opts.PaymentContractID,
	}
	s.payments[payment.ID] = payment
	if payment.PaymentContractID != "" {
		s.paymentsByContract[payment.PaymentContractID] = payment
	}

	return payment.ID, nil
}

func (s *stubStorage) MarkServicesPaid(paymentID int, serviceIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markedPaid = append(s.markedPaid, serviceIDs)
	return nil
}

func (s *stubStorage) UpdatePaymentStatus(paymentID int, status models.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payment, ok := s.payments[paymentID]; ok {
		payment.Status = status
	}
	return nil
}

func (s *stubStorage) GetPaymentByID(paymentID int) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[paymentID], nil
}

func (s *stubStorage) GetPaymentByContractID(contractID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paymentsByContract[contractID], nil
}

func (s *stubStorage) insertedFirst() *db.InsertPaymentOpts {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inserted) == 0 {
		return nil
	}
	return s.inserted[0]
}

func (s *stubStorage) paymentStatusByContract(contractID string) models.PaymentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payment, ok := s.paymentsByContract[contractID]; ok {
		return payment.Status
	}
	return ""
}

func newStubStorage() *stubStorage {
	return &stubStorage{
		patient:   &models.Patient{ID: 7, Firstname: "Linh", Lastname: "Nguyen"},
		reception: &models.Reception{ID: 12, Status: "OPEN"},
		services: []models.Service{
			{ID: 1, ReceptionID: 12, Name: "Hexaxim", Type: models.ServiceTypeVaccination, Price: 100000},
			{ID: 2, ReceptionID: 12, Name: "Consultation", Type: models.ServiceTypeExamination, Price: 50000},
		},
		payments:           make(map[int]*models.Payment),
		paymentsByContract: make(map[string]*models.Payment),
	}
}

// neverClock parks every wait forever; Stop is the only way out.
type neverClock struct{}

func (neverClock) Now() time.Time                       { return time.Unix(1700000000, 0) }
func (neverClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

func newTestContext(storage db.Storage) *config.AppContext {
	return &config.AppContext{
		DB:    storage,
		Cache: cache.New(time.Minute),
	}
}

func cashierRequest(method, target, body string, vars map[string]string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	user := map[string]interface{}{
		"ID":        3,
		"IsAdmin":   false,
		"IsCashier": true,
		"IsDoctor":  false,
		"IsNurse":   false,
		"Roles":     []int{db.ConstRoles.Cashier},
	}
	return r.WithContext(context.WithValue(r.Context(), "user", user))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestInsertReceiptPaymentRejectsTransfer(t *testing.T) {
	storage := newStubStorage()
	ctx := newTestContext(storage)

	rec := httptest.NewRecorder()
	r := cashierRequest(http.MethodPost, "/vaccination-reception/receptions/7/payments",
		`{"amount":150000,"method":"TRANSFER","service_ids":[1,2]}`,
		map[string]string{"patient_id": "7"})

	InsertReceiptPayment(ctx, middlewares.NewResponseWriter(rec), r)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, storage.inserted)
}

func TestInsertReceiptPaymentRejectsInvalidRole(t *testing.T) {
	storage := newStubStorage()
	ctx := newTestContext(storage)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/vaccination-reception/receptions/7/payments",
		strings.NewReader(`{"amount":150000,"method":"CASH","service_ids":[1,2]}`))
	r = mux.SetURLVars(r, map[string]string{"patient_id": "7"})
	r = r.WithContext(context.WithValue(r.Context(), "user", map[string]interface{}{
		"ID": 5, "IsAdmin": false, "IsCashier": false, "IsDoctor": true, "IsNurse": false,
	}))

	InsertReceiptPayment(ctx, middlewares.NewResponseWriter(rec), r)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, storage.inserted)
}

func TestInsertReceiptPaymentRejectsAmountMismatch(t *testing.T) {
	storage := newStubStorage()
	ctx := newTestContext(storage)

	rec := httptest.NewRecorder()
	r := cashierRequest(http.MethodPost, "/vaccination-reception/receptions/7/payments",
		`{"amount":99999,"method":"CASH","service_ids":[1,2]}`,
		map[string]string{"patient_id": "7"})

	InsertReceiptPayment(ctx, middlewares.NewResponseWriter(rec), r)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, storage.inserted)
}

func TestInsertReceiptPaymentSettlesImmediately(t *testing.T) {
	storage := newStubStorage()
	ctx := newTestContext(storage)

	// pre-populated lists must go stale on settlement
	for _, key := range cache.SettlementKeys {
		ctx.Cache.Put(key, "7", "stale")
	}
	ctx.Cache.Put(cache.TransactionHistoryList, "", "history")

	rec := httptest.NewRecorder()
	r := cashierRequest(http.MethodPost, "/vaccination-reception/receptions/7/payments",
		`{"amount":150000,"method":"CASH","service_ids":[1,2]}`,
		map[string]string{"patient_id": "7"})

	InsertReceiptPayment(ctx, middlewares.NewResponseWriter(rec), r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, storage.inserted, 1)

	inserted := storage.inserted[0]
	require.Equal(t, models.PaymentMethodCash, inserted.Method)
	require.Equal(t, models.PaymentStatusCompleted, inserted.Status)
	require.NotEmpty(t, inserted.InvoiceNumber)
	require.Equal(t, [][]int{{1, 2}}, storage.markedPaid)

	for _, key := range cache.SettlementKeys {
		require.Equal(t, 0, ctx.Cache.Len(key), string(key))
	}
	// cash never shows up in the transfer history
	_, ok := ctx.Cache.Get(cache.TransactionHistoryList, "")
	require.True(t, ok)

	envelope := decodeEnvelope(t, rec)
	require.Equal(t, inserted.InvoiceNumber, envelope["Data"])
}

func TestInsertQRPaymentForcesTransfer(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(payos.CreatePaymentLinkResponse{
			PaymentLinkID: "pl-41",
			Status:        "PENDING",
			QRCode:        "00020101021238570010A000000727",
			CheckoutURL:   "https://pay.example/pl-41",
		})
	}))
	defer provider.Close()

	storage := newStubStorage()
	ctx := newTestContext(storage)
	ctx.PayOS = &payos.Client{
		BaseURL:             provider.URL,
		PathPaymentRequests: "/v2/payment-requests",
	}
	ctx.Watcher = polling.NewWatcher(polling.WatcherOpts{
		Interval: 5 * time.Second,
		Budget:   120 * time.Second,
		Clock:    neverClock{},
		Check: func(string, string) (models.PaymentStatus, error) {
			return models.PaymentStatusPending, nil
		},
	})
	defer ctx.Watcher.StopAll()

	for _, key := range cache.SettlementKeys {
		ctx.Cache.Put(key, "7", "fresh")
	}
	ctx.Cache.Put(cache.TransactionHistoryList, "", "history")

	rec := httptest.NewRecorder()
	// the caller's method is ignored, a QR payment is always a transfer
	r := cashierRequest(http.MethodPost, "/vaccination-reception/receptions/7/payos-payment",
		`{"amount":150000,"method":"CASH","service_ids":[1,2]}`,
		map[string]string{"patient_id": "7"})

	InsertQRPayment(ctx, middlewares.NewResponseWriter(rec), r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, storage.inserted, 1)

	inserted := storage.inserted[0]
	require.Equal(t, models.PaymentMethodTransfer, inserted.Method)
	require.Equal(t, models.PaymentStatusPending, inserted.Status)
	require.Equal(t, "pl-41", inserted.PaymentContractID)

	// nothing is settled yet
	require.Empty(t, storage.markedPaid)
	for _, key := range cache.SettlementKeys {
		_, ok := ctx.Cache.Get(key, "7")
		require.True(t, ok, string(key))
	}
	_, ok := ctx.Cache.Get(cache.TransactionHistoryList, "")
	require.False(t, ok)

	// a polling session is live for the new pair
	require.NotNil(t, ctx.Watcher.Session("41", "pl-41"))
}

func TestQRPaymentCancelledLinkReportsCancelled(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(payos.CreatePaymentLinkResponse{
			PaymentLinkID: "pl-41",
			Status:        "PENDING",
			QRCode:        "00020101021238570010A000000727",
		})
	}))
	defer provider.Close()

	storage := newStubStorage()
	ctx := newTestContext(storage)
	ctx.PayOS = &payos.Client{
		BaseURL:             provider.URL,
		PathPaymentRequests: "/v2/payment-requests",
	}
	ctx.Watcher = polling.NewWatcher(polling.WatcherOpts{
		Interval: 5 * time.Second,
		Budget:   120 * time.Second,
		Clock:    neverClock{},
		Check: func(string, string) (models.PaymentStatus, error) {
			return models.PaymentStatusCancelled, nil
		},
	})
	defer ctx.Watcher.StopAll()

	rec := httptest.NewRecorder()
	r := cashierRequest(http.MethodPost, "/vaccination-reception/receptions/7/payos-payment",
		`{"amount":150000,"service_ids":[1,2]}`,
		map[string]string{"patient_id": "7"})

	InsertQRPayment(ctx, middlewares.NewResponseWriter(rec), r)
	require.Equal(t, http.StatusOK, rec.Code)

	// the poller observes the dead link and writes the terminal status back
	require.Eventually(t, func() bool {
		return storage.paymentStatusByContract("pl-41") == models.PaymentStatusCancelled
	}, 2*time.Second, 5*time.Millisecond)

	// nothing was settled along the way
	require.Empty(t, storage.markedPaid)
	require.Equal(t, models.PaymentMethodTransfer, storage.insertedFirst().Method)

	statusRec := httptest.NewRecorder()
	statusReq := cashierRequest(http.MethodGet, "/vaccination-reception/payment-status?payment_contract_id=pl-41", "", nil)

	GetPaymentStatus(ctx, middlewares.NewResponseWriter(statusRec), statusReq)
	require.Equal(t, http.StatusOK, statusRec.Code)
	require.Equal(t, "CANCELLED", decodeEnvelope(t, statusRec)["Data"])
}

func TestInsertQRPaymentProviderDown(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer provider.Close()

	storage := newStubStorage()
	ctx := newTestContext(storage)
	ctx.PayOS = &payos.Client{
		BaseURL:             provider.URL,
		PathPaymentRequests: "/v2/payment-requests",
	}

	rec := httptest.NewRecorder()
	r := cashierRequest(http.MethodPost, "/vaccination-reception/receptions/7/payos-payment",
		`{"amount":150000,"service_ids":[1,2]}`,
		map[string]string{"patient_id": "7"})

	InsertQRPayment(ctx, middlewares.NewResponseWriter(rec), r)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Empty(t, storage.inserted)
}

func TestGetPaymentStatus(t *testing.T) {
	storage := newStubStorage()
	storage.payments[41] = &models.Payment{ID: 41, Status: models.PaymentStatusCompleted}
	storage.paymentsByContract["pl-41"] = &models.Payment{ID: 41, Status: models.PaymentStatusPending}
	storage.payments[52] = &models.Payment{ID: 52}
	ctx := newTestContext(storage)

	t.Run("missing both identifiers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := cashierRequest(http.MethodGet, "/vaccination-reception/payment-status", "", nil)

		GetPaymentStatus(ctx, middlewares.NewResponseWriter(rec), r)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("by payment id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := cashierRequest(http.MethodGet, "/vaccination-reception/payment-status?payment_id=41", "", nil)

		GetPaymentStatus(ctx, middlewares.NewResponseWriter(rec), r)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "COMPLETED", decodeEnvelope(t, rec)["Data"])
	})

	t.Run("by contract id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := cashierRequest(http.MethodGet, "/vaccination-reception/payment-status?payment_contract_id=pl-41", "", nil)

		GetPaymentStatus(ctx, middlewares.NewResponseWriter(rec), r)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "PENDING", decodeEnvelope(t, rec)["Data"])
	})

	t.Run("status defaults to pending", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := cashierRequest(http.MethodGet, "/vaccination-reception/payment-status?payment_id=52", "", nil)

		GetPaymentStatus(ctx, middlewares.NewResponseWriter(rec), r)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "PENDING", decodeEnvelope(t, rec)["Data"])
	})

	t.Run("unknown payment", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := cashierRequest(http.MethodGet, "/vaccination-reception/payment-status?payment_id=99", "", nil)

		GetPaymentStatus(ctx, middlewares.NewResponseWriter(rec), r)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
