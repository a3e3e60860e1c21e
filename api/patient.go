package api

import (
	"net/http"
	"strconv"

	"bitbucket.org/clinicops/backend/config"
	"bitbucket.org/clinicops/backend/middlewares"
	"bitbucket.org/clinicops/backend/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/thedevsaddam/govalidator"
)

func InsertPatient(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsCashier && !userInfo.IsNurse {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	var opts models.InsertPatientOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertPatientRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	patientID, err := ctx.DB.InsertPatient(&opts)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed inserting patient")
		return
	}

	patient := models.Patient{
		ID:        patientID,
		Firstname: opts.Firstname,
		Lastname:  opts.Lastname,
		DNI:       opts.DNI,
		Email:     opts.Email,
		Phone:     opts.Phone,
		BirthDate: opts.BirthDate,
		Active:    true,
	}

	w.WriteJSON(http.StatusOK, patient, nil, "")
}

func GetPatients(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetPatientsRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetPatientsOpts
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.Decode(&opts, r.URL.Query())

	patients, err := ctx.DB.GetPatients(&opts)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting patients")
		return
	}

	if patients == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.PatientNotFound)
		return
	}

	w.WriteJSON(http.StatusOK, patients, nil, "")
}

func GetPatient(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	vars := mux.Vars(r)
	patientID, err := strconv.Atoi(vars["patient_id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing patient id")
		return
	}

	patient, err := ctx.DB.GetPatientByID(patientID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting patient")
		return
	}

	if patient == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.PatientNotFound)
		return
	}

	w.WriteJSON(http.StatusOK, patient, nil, "")
}
