package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/clinicops/backend/config"
	"bitbucket.org/clinicops/backend/db"
	"bitbucket.org/clinicops/backend/helpers"
	"bitbucket.org/clinicops/backend/middlewares"
	"bitbucket.org/clinicops/backend/models"
	"github.com/stretchr/testify/require"
)

func (s *stubStorage) GetUserLoginByEmail(string) (*models.User, error) {
	return s.user, nil
}

func TestLogin(t *testing.T) {
	hash, err := helpers.HashPassword("s3cret")
	require.NoError(t, err)

	storage := newStubStorage()
	storage.user = &models.User{
		ID:        3,
		Firstname: "Mai",
		Lastname:  "Pham",
		Email:     "mai.pham@clinic.example",
		Password:  hash,
		Active:    true,
		Roles:     []models.Role{{ID: db.ConstRoles.Cashier, Name: "cashier"}},
	}

	ctx := newTestContext(storage)
	ctx.Config = config.Configuration{JWTSecret: "test-secret"}

	t.Run("role flags in response", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"mai.pham@clinic.example","password":"s3cret"}`))
		r.Header.Set("Content-Type", "application/json")

		Login(ctx, middlewares.NewResponseWriter(rec), r)

		require.Equal(t, http.StatusOK, rec.Code)
		data, ok := decodeEnvelope(t, rec)["Data"].(map[string]interface{})
		require.True(t, ok)
		require.NotEmpty(t, data["token"])
		require.Equal(t, true, data["is_cashier"])
		require.Equal(t, false, data["is_admin"])
		require.Equal(t, false, data["is_doctor"])
		require.Equal(t, false, data["is_nurse"])

		// the password hash never leaves the service
		require.NotContains(t, rec.Body.String(), hash)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"mai.pham@clinic.example","password":"wrong"}`))
		r.Header.Set("Content-Type", "application/json")

		Login(ctx, middlewares.NewResponseWriter(rec), r)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		empty := newStubStorage()
		emptyCtx := newTestContext(empty)

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"nobody@clinic.example","password":"s3cret"}`))
		r.Header.Set("Content-Type", "application/json")

		Login(emptyCtx, middlewares.NewResponseWriter(rec), r)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
