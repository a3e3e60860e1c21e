package api

import (
	"net/http"

	"bitbucket.org/clinicops/backend/config"
	"bitbucket.org/clinicops/backend/middlewares"
	"bitbucket.org/clinicops/backend/server"
)

// HealthcheckHandler indicates the service's healthy
func HealthcheckHandler(_ *config.AppContext, w *middlewares.ResponseWriter, _ *http.Request) {
	w.String(http.StatusOK, "OK")
}

// GetRoutes ...
func GetRoutes() []*server.Route {
	return []*server.Route{
		{Path: "/healthcheck", Methods: []string{"GET", "HEAD"}, Handler: HealthcheckHandler, IsProtected: false},

		// Auth
		{Path: "/auth/login", Methods: []string{"POST", "HEAD"}, Handler: Login, IsProtected: false},
		{Path: "/auth/password", Methods: []string{"PUT", "HEAD"}, Handler: UpdateUserPassword, IsProtected: false},
		{Path: "/auth/token", Methods: []string{"POST", "HEAD"}, Handler: SendRememberToken, IsProtected: false},

		// User
		{Path: "/user/admin", Methods: []string{"POST", "HEAD"}, Handler: InsertAdminUser, IsProtected: true},
		{Path: "/user", Methods: []string{"GET", "HEAD"}, Handler: GetUsers, IsProtected: true},
		{Path: "/user/{id}", Methods: []string{"GET", "HEAD"}, Handler: GetUser, IsProtected: true},

		// Patient
		{Path: "/patient", Methods: []string{"POST", "HEAD"}, Handler: InsertPatient, IsProtected: true},
		{Path: "/patient", Methods: []string{"GET", "HEAD"}, Handler: GetPatients, IsProtected: true},
		{Path: "/patient/{patient_id}", Methods: []string{"GET", "HEAD"}, Handler: GetPatient, IsProtected: true},

		// Payments
		{Path: "/vaccination-reception/receptions/{patient_id}/payments", Methods: []string{"POST", "HEAD"}, Handler: InsertReceiptPayment, IsProtected: true},
		{Path: "/vaccination-reception/receptions/{patient_id}/payos-payment", Methods: []string{"POST", "HEAD"}, Handler: InsertQRPayment, IsProtected: true},
		{Path: "/vaccination-reception/payment-status", Methods: []string{"GET", "HEAD"}, Handler: GetPaymentStatus, IsProtected: true},
		{Path: "/vaccination-reception/payments/{payment_id}/qr", Methods: []string{"GET", "HEAD"}, Handler: GetPaymentQRImage, IsProtected: true},

		// Cached lists
		{Path: "/vaccination-reception/receptions/{patient_id}/payments", Methods: []string{"GET", "HEAD"}, Handler: GetPatientPayments, IsProtected: true},
		{Path: "/vaccination-reception/receptions/{patient_id}/unpaid-services", Methods: []string{"GET", "HEAD"}, Handler: GetUnpaidServices, IsProtected: true},
		{Path: "/vaccination-reception/transaction-history", Methods: []string{"GET", "HEAD"}, Handler: GetTransactionHistory, IsProtected: true},
		{Path: "/vaccination-reception/waiting-vaccination", Methods: []string{"GET", "HEAD"}, Handler: GetWaitingVaccinationPatients, IsProtected: true},
		{Path: "/vaccination-reception/patients-for-examination", Methods: []string{"GET", "HEAD"}, Handler: GetPatientsForExamination, IsProtected: true},
		{Path: "/vaccination-reception/receptions/{reception_id}/medicine-vaccination", Methods: []string{"GET", "HEAD"}, Handler: GetMedicineVaccination, IsProtected: true},
		{Path: "/vaccination-reception/receptions/{reception_id}/examinations", Methods: []string{"GET", "HEAD"}, Handler: GetExaminations, IsProtected: true},
	}
}
