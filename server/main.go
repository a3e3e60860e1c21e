package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/clinicops/backend/cache"
	"bitbucket.org/clinicops/backend/config"
	"bitbucket.org/clinicops/backend/db"
	"bitbucket.org/clinicops/backend/middlewares"
	"bitbucket.org/clinicops/backend/models"
	"bitbucket.org/clinicops/backend/polling"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	joonix "github.com/joonix/log"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

func recoveryHandler(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	defer func() {
		if err := recover(); err != nil {
			log.Error(err)
			(&middlewares.ResponseWriter{Writer: w}).Error(http.StatusInternalServerError, "internal server error")
			return
		}
	}()
	next(w, r)
}

type AppHandlerFunc func(*config.AppContext, *middlewares.ResponseWriter, *http.Request)

type AppHandler struct {
	Context     *config.AppContext
	HandlerFunc AppHandlerFunc
}

func (a *AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.HandlerFunc(a.Context, &middlewares.ResponseWriter{Writer: w}, r)
}

type Route struct {
	Path        string
	Handler     AppHandlerFunc
	Methods     []string
	IsProtected bool
}

func NewRouter(ctx *config.AppContext, routes []*Route) *mux.Router {
	router := mux.NewRouter()
	for _, r := range routes {
		handler := &AppHandler{Context: ctx, HandlerFunc: r.Handler}
		if r.IsProtected {
			router.Handle(r.Path, negroni.New(
				negroni.HandlerFunc(middlewares.NewJWTMiddleware([]byte(ctx.Config.JWTSecret)).HandlerNext),
				negroni.Wrap(handler),
			)).Methods(r.Methods...)
			continue
		}
		router.Handle(r.Path, handler).Methods(r.Methods...)
	}
	return router
}

func GetAppContext() *ContextWrapper {
	log.SetFormatter(joonix.NewFormatter())
	var conf config.Configuration
	if err := envdecode.Decode(&conf); err != nil {
		fmt.Println(fmt.Errorf("could not load the app configuration: %v", err))
		log.Fatal(err)
	}
	context := &config.AppContext{
		Config: conf,
	}

	return &ContextWrapper{
		Context: context,
	}
}

type ContextWrapper struct {
	Context *config.AppContext
}

func (wrapper *ContextWrapper) CreateMySQLConnection() {
	conn, err := config.CreateConnectionSQL(wrapper.Context.Config.SQL)
	if err != nil {
		log.Fatal(err)
	}
	conn.SetConnMaxLifetime(time.Minute * 5)
	wrapper.Context.SQLConn = conn
	wrapper.Context.DB, err = db.New(conn)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("mysql: failed to connect")
	}
}

func (wrapper *ContextWrapper) CreateSMTPConnection() {
	conn := config.CreateNewConnectionSMTP(wrapper.Context.Config.AwsSMTP)
	if conn == nil {
		log.Fatal(errors.Errorf("failed connecting SMTP"))
	}
	wrapper.Context.AwsSMTP = conn
}

func (wrapper *ContextWrapper) CreatePayOSIntegration() {
	client := config.CreatePayOSIntegration(wrapper.Context.Config.PayOS)
	if client == nil {
		log.Fatal(errors.Errorf("failed to create payos integration"))
	}
	wrapper.Context.PayOS = client
}

func (wrapper *ContextWrapper) CreateNewSessionS3() {
	session, err := config.CreateNewSessionS3(wrapper.Context.Config.AwsS3)
	if err != nil {
		log.Fatal(errors.Errorf("failed to create new session s3 - %s", err.Error()))
	}
	if session == nil {
		log.Fatal(errors.Errorf("nil session s3"))
	}
	wrapper.Context.AwsS3 = session
}

func (wrapper *ContextWrapper) CreateQueryCache() {
	ttl := time.Duration(wrapper.Context.Config.Cache.TTLSeconds) * time.Second
	wrapper.Context.Cache = cache.New(ttl)
}

// CreatePaymentWatcher wires the status poller against the provider for QR
// payments and against local storage when only a payment id is known.
func (wrapper *ContextWrapper) CreatePaymentWatcher() {
	ctx := wrapper.Context

	check := func(paymentID, paymentContractID string) (models.PaymentStatus, error) {
		if paymentContractID != "" {
			return ctx.PayOS.GetPaymentStatus(paymentContractID)
		}

		id, err := strconv.Atoi(paymentID)
		if err != nil {
			return "", errors.Wrap(err, "invalid payment id")
		}

		payment, err := ctx.DB.GetPaymentByID(id)
		if err != nil {
			return "", err
		}
		if payment == nil {
			return "", errors.Errorf("payment %d not found", id)
		}

		return payment.Status, nil
	}

	ctx.Watcher = polling.NewWatcher(polling.WatcherOpts{
		Interval: time.Duration(ctx.Config.Polling.IntervalSeconds) * time.Second,
		Budget:   time.Duration(ctx.Config.Polling.BudgetSeconds) * time.Second,
		Check:    check,
	})
}

func UpServer(routes []*Route, wrapper *ContextWrapper) {
	server, err := createServer(wrapper.Context, routes)
	if err != nil {
		log.Fatal(err)
	}

	if wrapper.Context.SQLConn != nil {
		defer wrapper.Context.SQLConn.Close()
	}
	if wrapper.Context.Watcher != nil {
		defer wrapper.Context.Watcher.StopAll()
	}

	log.Info("Environment " + wrapper.Context.Config.Environment)
	log.Info("Listening on " + server.Addr)

	log.Fatal(server.ListenAndServe())
}

func createServer(context *config.AppContext, routes []*Route) (*http.Server, error) {
	n := negroni.New()
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "PUT", "PATCH", "HEAD"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization", "Accept-Language"},
	})
	n.Use(c)
	n.UseFunc(recoveryHandler)
	n.Use(negroni.HandlerFunc(middlewares.LoggerRequest))
	n.Use(middlewares.UserMiddleware())
	n.UseHandler(NewRouter(context, routes))

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", context.Config.Port),
		ReadTimeout:  time.Duration(context.Config.Timeout) * time.Second,
		WriteTimeout: time.Duration(context.Config.Timeout) * time.Second,
		Handler:      n,
	}, nil
}
