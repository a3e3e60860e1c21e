package api

import (
	"net/http"
	"strconv"

	"bitbucket.org/clinicops/backend/config"
	"bitbucket.org/clinicops/backend/helpers"
	"bitbucket.org/clinicops/backend/middlewares"
	"bitbucket.org/clinicops/backend/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/thedevsaddam/govalidator"
)

func InsertAdminUser(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	var opts models.InsertAdminUserOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertAdminUserRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	emailCounter, dniCounter, err := ctx.DB.ValidateUserEmailAndDNI(opts.Email, opts.DNI)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed validating email and dni")
		return
	}

	if emailCounter > 0 {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "email exists")
		return
	}

	if dniCounter > 0 {
		w.WriteJSON(http.StatusBadRequest, nil, nil, "dni exists")
		return
	}

	newPassword, err := helpers.HashPassword(opts.Password)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed hashing password")
		return
	}
	opts.Password = newPassword

	userID, err := ctx.DB.InsertUser(&opts)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed inserting user")
		return
	}

	var roles []models.Role
	for _, roleID := range opts.Roles {
		roles = append(roles, models.Role{
			ID: roleID,
		})
	}

	user := models.User{
		ID:        userID,
		Firstname: opts.Firstname,
		Lastname:  opts.Lastname,
		Email:     opts.Email,
		Active:    true,
		Additional: &models.UserAdditional{
			DNI:   opts.DNI,
			Phone: opts.Phone,
		},
		Roles: roles,
	}

	w.WriteJSON(http.StatusOK, user, nil, "")
}

func GetUsers(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetUsersRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetUsersOpts
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.Decode(&opts, r.URL.Query())

	users, err := ctx.DB.GetUsers(&opts)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting users")
		return
	}

	if users == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.UserNotFound)
		return
	}

	w.WriteJSON(http.StatusOK, users, nil, "")
}

func GetUser(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.GetRequestLanguage(r)

	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	vars := mux.Vars(r)
	userID, err := strconv.Atoi(vars["id"])
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed parsing user id")
		return
	}

	if !userInfo.IsAdmin && userInfo.ID != userID {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	user, err := ctx.DB.GetUserByID(userID)
	if err != nil {
		w.WriteJSON(http.StatusInternalServerError, nil, err, "failed getting user")
		return
	}

	if user == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.UserNotFound)
		return
	}

	w.WriteJSON(http.StatusOK, user, nil, "")
}
