package api

import (
	"net/http"
	"strconv"

	"bitbucket.org/clinicops/backend/cache"
	"bitbucket.org/clinicops/backend/config"
	"bitbucket.org/clinicops/backend/middlewares"
	"bitbucket.org/clinicops/backend/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/thedevsaddam/govalidator"
)

// The list handlers below read through the query cache. Each list lives under
// a logical key plus the argument that scopes it; a settled payment drops the
// whole key, so a hit here is always from after the last settlement.

func GetPatientPayments(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	vars := mux.Vars(r)
	patientID, err := strconv.Atoi(vars["patient_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing patient id")
		return
	}

	arg := strconv.Itoa(patientID)
	if cached, ok := ctx.Cache.Get(cache.PatientPaymentList, arg); ok {
		w.WriteJSON(http.StatusOK, cached, nil, "")
		return
	}

	payments, err := ctx.DB.GetPaymentsByPatientID(patientID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting payments")
		return
	}

	ctx.Cache.Put(cache.PatientPaymentList, arg, payments)
	w.WriteJSON(http.StatusOK, payments, nil, "")
}

func GetUnpaidServices(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	vars := mux.Vars(r)
	patientID, err := strconv.Atoi(vars["patient_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing patient id")
		return
	}

	arg := strconv.Itoa(patientID)
	if cached, ok := ctx.Cache.Get(cache.UnpaidServiceByPatientID, arg); ok {
		w.WriteJSON(http.StatusOK, cached, nil, "")
		return
	}

	services, err := ctx.DB.GetUnpaidServicesByPatientID(patientID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting unpaid services")
		return
	}

	ctx.Cache.Put(cache.UnpaidServiceByPatientID, arg, services)
	w.WriteJSON(http.StatusOK, services, nil, "")
}

func GetTransactionHistory(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetTransactionHistoryRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetTransactionHistoryOpts
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.Decode(&opts, r.URL.Query())

	// The raw query scopes the cache entry, so two stations filtering
	// differently never see each other's pages.
	arg := r.URL.RawQuery
	if cached, ok := ctx.Cache.Get(cache.TransactionHistoryList, arg); ok {
		w.WriteJSON(http.StatusOK, cached, nil, "")
		return
	}

	transactions, err := ctx.DB.GetTransactionHistory(&opts)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting transaction history")
		return
	}

	ctx.Cache.Put(cache.TransactionHistoryList, arg, transactions)
	w.WriteJSON(http.StatusOK, transactions, nil, "")
}

func GetWaitingVaccinationPatients(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetWaitingVaccinationRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	if cached, ok := ctx.Cache.Get(cache.WaitingPatientVaccinationList, ""); ok {
		w.WriteJSON(http.StatusOK, cached, nil, "")
		return
	}

	patients, err := ctx.DB.GetWaitingVaccinationPatients()
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting waiting patients")
		return
	}

	ctx.Cache.Put(cache.WaitingPatientVaccinationList, "", patients)
	w.WriteJSON(http.StatusOK, patients, nil, "")
}

func GetPatientsForExamination(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	if cached, ok := ctx.Cache.Get(cache.PatientsForExamination, ""); ok {
		w.WriteJSON(http.StatusOK, cached, nil, "")
		return
	}

	patients, err := ctx.DB.GetPatientsForExamination()
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting patients for examination")
		return
	}

	ctx.Cache.Put(cache.PatientsForExamination, "", patients)
	w.WriteJSON(http.StatusOK, patients, nil, "")
}

func GetMedicineVaccination(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	vars := mux.Vars(r)
	receptionID, err := strconv.Atoi(vars["reception_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing reception id")
		return
	}

	arg := strconv.Itoa(receptionID)
	if cached, ok := ctx.Cache.Get(cache.MedicineVaccinationByReceptionID, arg); ok {
		w.WriteJSON(http.StatusOK, cached, nil, "")
		return
	}

	medicines, err := ctx.DB.GetMedicineVaccinationByReceptionID(receptionID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting medicine vaccination list")
		return
	}

	ctx.Cache.Put(cache.MedicineVaccinationByReceptionID, arg, medicines)
	w.WriteJSON(http.StatusOK, medicines, nil, "")
}

func GetExaminations(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	vars := mux.Vars(r)
	receptionID, err := strconv.Atoi(vars["reception_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing reception id")
		return
	}

	arg := strconv.Itoa(receptionID)
	if cached, ok := ctx.Cache.Get(cache.ExaminationOfReceptionByReception, arg); ok {
		w.WriteJSON(http.StatusOK, cached, nil, "")
		return
	}

	examinations, err := ctx.DB.GetExaminationsByReceptionID(receptionID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting examinations")
		return
	}

	ctx.Cache.Put(cache.ExaminationOfReceptionByReception, arg, examinations)
	w.WriteJSON(http.StatusOK, examinations, nil, "")
}
