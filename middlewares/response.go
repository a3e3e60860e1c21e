package middlewares

import (
	"encoding/json"
	"fmt"
	"net/http"

	"bitbucket.org/clinicops/backend/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ResponseWriter struct {
	Writer   http.ResponseWriter
	language string
	logger   *log.Entry
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		Writer: w,
	}
}

// generalResponse is the envelope every handler answers with. Field names are
// part of the wire contract consumed by the cashier stations.
type generalResponse struct {
	StatusCode int         `json:"StatusCode"`
	Data       interface{} `json:"Data"`
	Errors     interface{} `json:"Errors,omitempty"`
}

// GetRequestLanguage picks the response language from the Accept-Language
// header, defaulting to English.
func (r *ResponseWriter) GetRequestLanguage(req *http.Request) {
	language := req.Header.Get("Accept-Language")
	if _, ok := LanguageMap[language]; !ok {
		language = Language.English
	}
	r.language = language
}

func (r *ResponseWriter) writeResponse(statusCode int, data interface{}, errs interface{}) {
	response := &generalResponse{
		StatusCode: statusCode,
		Data:       data,
		Errors:     errs,
	}

	b, err := json.Marshal(response)
	if err != nil {
		r.Writer.WriteHeader(http.StatusInternalServerError)
		r.Writer.Write([]byte(fmt.Sprintf("unexpected error: %v", err)))
		return
	}

	r.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	r.Writer.WriteHeader(statusCode)

	if _, err := r.Writer.Write(b); err != nil {
		log.WithFields(log.Fields{"error": err}).Error("could not write response")
	}
}

// WriteJSON answers with the response envelope and logs the outcome through
// the request-scoped logger.
func (r *ResponseWriter) WriteJSON(statusCode int, data interface{}, err error, message string) {
	logger := config.GetLogger()
	fields := make(log.Fields)
	fields["status_code"] = statusCode

	if statusCode >= 200 && statusCode <= 299 {
		if logger != nil {
			logger.WithFields(fields).Info("success")
		}
		r.writeResponse(statusCode, data, nil)
		return
	}

	if err == nil {
		err = errors.Errorf(message)
	}
	if logger != nil {
		fields["errors"] = data
		logger.WithFields(fields).Error(err)
	}

	errs := data
	if errs == nil {
		errs = map[string]interface{}{
			"error": message,
		}
	}
	r.writeResponse(statusCode, nil, errs)
}

// Write is WriteJSON with a translated message from the response catalog.
func (r *ResponseWriter) Write(statusCode int, data interface{}, err error, rm *NewRM) {
	message := ""
	if rm != nil {
		language := r.language
		if language == "" {
			language = Language.English
		}
		message = (*rm)[language]
	}
	r.WriteJSON(statusCode, data, err, message)
}

func (r *ResponseWriter) String(code int, msg string) {
	r.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	r.Writer.WriteHeader(code)
	if _, err := r.Writer.Write([]byte(msg)); err != nil {
		log.WithFields(log.Fields{"error": err}).Error("could not write response")
	}
}

func (r *ResponseWriter) Error(code int, msg string) {
	r.writeResponse(code, nil, map[string]interface{}{
		"error": msg,
	})
}

// StartLogger attaches a named logger for handlers that do their own
// fine-grained logging (webhook-style flows without a single response).
func (r *ResponseWriter) StartLogger(name string) {
	r.logger = log.WithFields(log.Fields{"handler": name})
}

func (r *ResponseWriter) LogError(err error, message string) {
	logger := r.logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	logger.WithFields(log.Fields{"error": err}).Error(message)
}

func (r *ResponseWriter) LogInfo(data interface{}, message string) {
	logger := r.logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	logger.WithFields(log.Fields{"data": data}).Info(message)
}
