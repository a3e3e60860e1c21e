package api

import (
	"fmt"
	"net/http"
	"strconv"

	"bitbucket.org/clinicops/backend/cache"
	"bitbucket.org/clinicops/backend/config"
	"bitbucket.org/clinicops/backend/db"
	"bitbucket.org/clinicops/backend/helpers"
	"bitbucket.org/clinicops/backend/middlewares"
	"bitbucket.org/clinicops/backend/models"
	"bitbucket.org/clinicops/backend/payos"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/lithammer/shortuuid/v3"
	"github.com/mitchellh/mapstructure"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/thedevsaddam/govalidator"
)

// InsertReceiptPayment settles a cash or card payment for a patient's unpaid
// services. The backend treats these as settled at creation time, so the
// invoice number comes back immediately and every list that depends on the
// payment is made stale. There is no retry on failure: a cash payment is a
// single authoritative transaction and a blind retry risks a double charge.
func InsertReceiptPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsCashier {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	vars := mux.Vars(r)
	patientID, err := strconv.Atoi(vars["patient_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing patient id")
		return
	}

	var opts models.InsertReceiptPaymentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertReceiptPaymentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	method := models.ParsePaymentMethod(opts.Method)
	if !method.Valid() || method == models.PaymentMethodTransfer {
		// Transfer payments go through the QR endpoint; a receipt payment
		// never carries the TRANSFER method.
		w.Write(http.StatusBadRequest, nil, nil, middlewares.Responses.InvalidPaymentMethod)
		return
	}

	if opts.Amount <= 0 {
		w.Write(http.StatusBadRequest, nil, nil, middlewares.Responses.AmountMismatch)
		return
	}

	patient, reception, services, rm := resolvePaymentTarget(ctx, patientID, opts.ServiceIDs, opts.Amount)
	if rm != nil {
		w.Write(http.StatusBadRequest, nil, nil, rm)
		return
	}
	if patient == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.PatientNotFound)
		return
	}

	invoiceNumber := db.GenerateInvoiceNumber(reception.ID)

	paymentID, err := ctx.DB.InsertPayment(&db.InsertPaymentOpts{
		PatientID:         patientID,
		ReceptionID:       reception.ID,
		Amount:            opts.Amount,
		Method:            method,
		Status:            models.PaymentStatusCompleted,
		InvoiceNumber:     invoiceNumber,
		PaymentContractID: shortuuid.New(),
		Note:              opts.Note,
		UserID:            userInfo.ID,
	})
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	if err := ctx.DB.MarkServicesPaid(paymentID, opts.ServiceIDs); err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	// A settled payment may immediately unblock vaccination and examination
	// queues, so everything downstream goes stale at once.
	ctx.Cache.Invalidate(cache.SettlementKeys...)

	payment := &models.Payment{
		ID:            paymentID,
		PatientID:     patientID,
		ReceptionID:   reception.ID,
		Amount:        opts.Amount,
		Method:        method,
		Status:        models.PaymentStatusCompleted,
		InvoiceNumber: invoiceNumber,
	}
	go sendInvoice(ctx, w, payment, patient, services)

	w.WriteJSON(http.StatusOK, invoiceNumber, nil, "")
}

// InsertQRPayment creates a transfer payment at the QR provider. The payment
// is not settled at creation time; only the transaction history is made stale
// so the pending transaction shows up, and a polling session takes over until
// the provider reports a terminal status.
func InsertQRPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsCashier {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	vars := mux.Vars(r)
	patientID, err := strconv.Atoi(vars["patient_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing patient id")
		return
	}

	var opts models.InsertQRPaymentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertQRPaymentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	if opts.Amount <= 0 {
		w.Write(http.StatusBadRequest, nil, nil, middlewares.Responses.AmountMismatch)
		return
	}

	patient, reception, services, rm := resolvePaymentTarget(ctx, patientID, opts.ServiceIDs, opts.Amount)
	if rm != nil {
		w.Write(http.StatusBadRequest, nil, nil, rm)
		return
	}
	if patient == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.PatientNotFound)
		return
	}

	items := make([]payos.CreatePaymentLinkItem, 0, len(services))
	for _, service := range services {
		items = append(items, payos.CreatePaymentLinkItem{Name: service.Name, Quantity: 1, Price: service.Price})
	}

	// The method is forced to TRANSFER no matter what the caller sent.
	response, err := ctx.PayOS.CreatePaymentLink(&payos.CreatePaymentLinkRequest{
		OrderCode:   db.GenerateOrderCode(),
		Amount:      opts.Amount,
		Description: fmt.Sprintf("Reception %d", reception.ID),
		Items:       items,
	})
	if err != nil {
		w.Write(http.StatusBadGateway, nil, err, middlewares.Responses.ProviderUnavailable)
		return
	}

	invoiceNumber := db.GenerateInvoiceNumber(reception.ID)

	paymentID, err := ctx.DB.InsertPayment(&db.InsertPaymentOpts{
		PatientID:         patientID,
		ReceptionID:       reception.ID,
		Amount:            opts.Amount,
		Method:            models.PaymentMethodTransfer,
		Status:            models.PaymentStatusPending,
		InvoiceNumber:     invoiceNumber,
		PaymentContractID: response.PaymentLinkID,
		QRCode:            response.QRCode,
		Note:              opts.Note,
		UserID:            userInfo.ID,
	})
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	// The payment is still pending. Only the transaction history becomes
	// stale here; the settlement keys wait for the poller.
	ctx.Cache.Invalidate(cache.TransactionHistoryList)

	payment := &models.Payment{
		ID:                paymentID,
		PatientID:         patientID,
		ReceptionID:       reception.ID,
		Amount:            opts.Amount,
		Method:            models.PaymentMethodTransfer,
		Status:            models.PaymentStatusPending,
		InvoiceNumber:     invoiceNumber,
		PaymentContractID: response.PaymentLinkID,
	}

	serviceIDs := opts.ServiceIDs
	_, err = ctx.Watcher.Watch(strconv.Itoa(paymentID), response.PaymentLinkID, func() {
		settleQRPayment(ctx, w, payment, patient, services, serviceIDs)
	}, func(status models.PaymentStatus) {
		closeQRPayment(ctx, w, payment, status)
	})
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, models.QRPaymentResponse{
		PaymentID:         paymentID,
		PaymentContractID: response.PaymentLinkID,
		QRCode:            response.QRCode,
		CheckoutURL:       response.CheckoutURL,
		Amount:            opts.Amount,
		InvoiceNumber:     invoiceNumber,
	}, nil, "")
}

// GetPaymentStatus answers the status the cashier stations poll. At least one
// of payment_id and payment_contract_id is required; with neither, the
// request is rejected and no lookup happens.
func GetPaymentStatus(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetPaymentStatusRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetPaymentStatusOpts
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.Decode(&opts, r.URL.Query())

	if opts.PaymentID == "" && opts.PaymentContractID == "" {
		w.Write(http.StatusBadRequest, nil, nil, middlewares.Responses.MissingIdentifier)
		return
	}

	var payment *models.Payment
	var err error
	if opts.PaymentID != "" {
		paymentID, convErr := strconv.Atoi(opts.PaymentID)
		if convErr != nil {
			w.WriteJSON(http.StatusBadRequest, nil, convErr, "failed parsing payment id")
			return
		}
		payment, err = ctx.DB.GetPaymentByID(paymentID)
	} else {
		payment, err = ctx.DB.GetPaymentByContractID(opts.PaymentContractID)
	}
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	if payment == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.PaymentNotFound)
		return
	}

	status := payment.Status
	if status == "" {
		status = models.PaymentStatusPending
	}

	w.WriteJSON(http.StatusOK, status, nil, "")
}

// GetPaymentQRImage renders the stored QR payload as a PNG for display on the
// cashier screen.
func GetPaymentQRImage(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	paymentID, err := strconv.Atoi(vars["payment_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing payment id")
		return
	}

	payment, err := ctx.DB.GetPaymentByID(paymentID)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	if payment == nil || payment.QRCode == "" {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.PaymentNotFound)
		return
	}

	png, err := qrcode.Encode(payment.QRCode, qrcode.Medium, 256)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.Writer.Header().Set("Content-Type", "image/png")
	w.Writer.WriteHeader(http.StatusOK)
	w.Writer.Write(png)
}

// resolvePaymentTarget loads the patient, the open reception and the unpaid
// services a payment is about to cover, validating amount and paid state.
func resolvePaymentTarget(ctx *config.AppContext, patientID int, serviceIDs []int, amount int) (*models.Patient, *models.Reception, []models.Service, *middlewares.NewRM) {
	patient, err := ctx.DB.GetPatientByID(patientID)
	if err != nil {
		return nil, nil, nil, middlewares.Responses.InternalServerError
	}
	if patient == nil {
		return nil, nil, nil, nil
	}

	reception, err := ctx.DB.GetOpenReceptionByPatientID(patientID)
	if err != nil {
		return nil, nil, nil, middlewares.Responses.InternalServerError
	}
	if reception == nil {
		return patient, nil, nil, middlewares.Responses.ReceptionNotFound
	}

	services, err := ctx.DB.GetServicesByIDs(serviceIDs)
	if err != nil {
		return nil, nil, nil, middlewares.Responses.InternalServerError
	}
	if len(services) != len(serviceIDs) {
		return patient, reception, nil, middlewares.Responses.ServicesNotFound
	}

	total := 0
	for _, service := range services {
		if service.Paid {
			return patient, reception, nil, middlewares.Responses.ServiceAlreadyPaid
		}
		total += service.Price
	}

	if total != amount {
		return patient, reception, nil, middlewares.Responses.AmountMismatch
	}

	return patient, reception, services, nil
}

// settleQRPayment runs when the poller observes COMPLETED: the local record
// catches up with the provider, downstream lists go stale, and the invoice is
// generated and mailed. Side-effect failures are logged, never fatal; the
// payment itself is already settled.
func settleQRPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, payment *models.Payment, patient *models.Patient, services []models.Service, serviceIDs []int) {
	w.StartLogger("settleQRPayment")

	if err := ctx.DB.UpdatePaymentStatusByContractID(payment.PaymentContractID, models.PaymentStatusCompleted); err != nil {
		w.LogError(err, "failed updating payment status")
		return
	}

	if err := ctx.DB.MarkServicesPaid(payment.ID, serviceIDs); err != nil {
		w.LogError(err, "failed marking services paid")
		return
	}

	payment.Status = models.PaymentStatusCompleted

	ctx.Cache.Invalidate(cache.SettlementKeys...)
	ctx.Cache.Invalidate(cache.TransactionHistoryList)

	sendInvoice(ctx, w, payment, patient, services)

	w.LogInfo(payment.PaymentContractID, "payment settled")
}

// closeQRPayment runs when the poller observes FAILED or CANCELLED: the local
// record catches up so the status endpoint stops answering PENDING for a dead
// link. Nothing is settled and no invoice is sent.
func closeQRPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, payment *models.Payment, status models.PaymentStatus) {
	w.StartLogger("closeQRPayment")

	if err := ctx.DB.UpdatePaymentStatus(payment.ID, status); err != nil {
		w.LogError(err, "failed updating payment status")
		return
	}

	payment.Status = status

	ctx.Cache.Invalidate(cache.TransactionHistoryList)

	w.LogInfo(payment.PaymentContractID, "payment closed without settlement")
}

func sendInvoice(ctx *config.AppContext, w *middlewares.ResponseWriter, payment *models.Payment, patient *models.Patient, services []models.Service) {
	pdfBuffer, err := helpers.GenerateInvoicePDF(ctx.Config.Mail.InvoiceTemplate, payment, patient, services)
	if err != nil {
		w.LogError(err, "failed generating invoice pdf")
		return
	}

	if _, err := helpers.AddFileToS3(ctx, pdfBuffer, fmt.Sprintf("%s/%d.pdf", ctx.Config.AwsS3.S3PathInvoice, payment.ID)); err != nil {
		w.LogError(err, "failed uploading invoice pdf")
		return
	}

	if patient.Email == "" {
		return
	}

	ed := &helpers.EmailData{
		EmailTo:      patient.Email,
		NameTo:       patient.Firstname,
		EmailFrom:    ctx.Config.Mail.EmailFrom,
		NameFrom:     ctx.Config.Mail.NameFrom,
		Subject:      ctx.Config.Mail.PaymentSuccess.Subject,
		TemplatePath: fmt.Sprintf("%s%s/%s", ctx.Config.Mail.Folder, ctx.Config.Mail.Path, ctx.Config.Mail.PaymentSuccess.Template),
		FileName:     ctx.Config.Mail.PaymentSuccess.FileName,
		FileContent:  pdfBuffer.Bytes(),
		AwsSMTP:      ctx.AwsSMTP,
	}

	if err := ed.SendEmail(models.ReceiptMailHTML{
		InvoiceNumber: payment.InvoiceNumber,
		Firstname:     patient.Firstname,
		Lastname:      patient.Lastname,
		Method:        string(payment.Method),
		Amount:        helpers.FormatAmount(payment.Amount),
	}); err != nil {
		w.LogError(err, "failed sending email")
		return
	}

	w.LogInfo(nil, "success sending email")
}
