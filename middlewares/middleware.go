package middlewares

import (
	"context"
	"net/http"
	"strings"

	"bitbucket.org/clinicops/backend/config"
	"bitbucket.org/clinicops/backend/helpers"
	"bitbucket.org/clinicops/backend/models"
	"github.com/dgrijalva/jwt-go"
	jwtmiddleware "github.com/mfuentesg/go-jwtmiddleware"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"

	"github.com/urfave/negroni"
)

func jwtErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	r := &ResponseWriter{Writer: w}
	if err != nil && err.Error() == "Token is expired" {
		r.Error(http.StatusUnauthorized, "token expired")
		return
	}
	if err != nil {
		r.Error(http.StatusUnauthorized, "unauthorized")
	}
}

func NewJWTMiddleware(secret []byte) *jwtmiddleware.Middleware {
	return jwtmiddleware.New(
		jwtmiddleware.WithErrorHandler(jwtErrorHandler),
		jwtmiddleware.WithSigningMethod(jwt.SigningMethodHS256),
		jwtmiddleware.WithSignKey(secret),
		jwtmiddleware.WithUserProperty("_jwt-token"),
	)
}

func LoggerRequest(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	requestLogger := log.WithFields(log.Fields{
		"request_id": r.Header.Get("X-Request-ID"),
		"query":      r.URL.Query(),
		"host":       r.Host,
		"url":        r.URL.Path,
	})
	requestLogger.Info("logger_request")
	config.SetLogger(requestLogger)
	next(rw, r)
}

// UserMiddleware decodes the claims of the bearer token into the role flags
// the handlers gate on, and stores them in the request context under "user".
func UserMiddleware() negroni.HandlerFunc {
	return negroni.HandlerFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		authorization := r.Header.Get("Authorization")
		if len(authorization) == 0 {
			authorization = r.URL.Query().Get("token")
			r.Header.Set("Authorization", authorization)
		}
		token := strings.Split(authorization, " ")
		if len(token) == 2 {
			tokenString := token[1]
			claims, _ := helpers.ParserTokenUnverified(tokenString)
			tokenParse, ok := claims["u"].(map[string]interface{})
			if ok {
				dataInfo := models.InfoUser{}
				mapstructure.Decode(map[string]interface{}{
					"ID":    tokenParse["i"],
					"Roles": tokenParse["r"],
				}, &dataInfo)

				isAdmin := helpers.Contains(dataInfo.Roles, 1)
				isCashier := helpers.Contains(dataInfo.Roles, 2)
				isDoctor := helpers.Contains(dataInfo.Roles, 3)
				isNurse := helpers.Contains(dataInfo.Roles, 4)

				if !isAdmin && !isCashier && !isDoctor && !isNurse {
					a := &ResponseWriter{Writer: rw}
					a.Error(http.StatusUnauthorized, "unauthorized")
					return
				}

				data := map[string]interface{}{
					"Email":     tokenParse["email"],
					"ID":        tokenParse["i"],
					"IsAdmin":   isAdmin,
					"IsCashier": isCashier,
					"IsDoctor":  isDoctor,
					"IsNurse":   isNurse,
					"Roles":     tokenParse["r"],
				}

				ctx := context.WithValue(r.Context(), string("user"), data)
				next(rw, r.WithContext(ctx))
				return
			}
		}
		next(rw, r)
	})
}
