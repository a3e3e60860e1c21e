package config

import (
	"fmt"
	"strconv"

	"bitbucket.org/clinicops/backend/cache"
	db "bitbucket.org/clinicops/backend/db"
	payos "bitbucket.org/clinicops/backend/payos"
	"bitbucket.org/clinicops/backend/polling"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

type Configuration struct {
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT,default=3001"`
	Timeout     int    `env:"TIMEOUT,default=15"`
	DB          db.Storage
	SQL         database
	AwsSMTP     awsSMTP
	AwsS3       awsS3
	PayOS       payosConf
	Polling     pollingConf
	Cache       cacheConf
	Mail        mail
	Environment string `env:"ENVIRONMENT,default=development"`
	AppName     string `env:"APP_NAME,default=clinic-backend"`

	BackendBaseURL             string `env:"BACKEND_BASE_URL"`
	BackofficeBaseURL          string `env:"BACKOFFICE_BASE_URL"`
	BackofficePasswordNewPath  string `env:"BACKOFFICE_PASSWORD_NEW_PATH,default=/password/new"`
}

type database struct {
	URL            string `env:"DATA_BASE_URL,required"`
	Name           string `env:"DATA_BASE_NAME,required"`
	User           string `env:"DATA_BASE_USER,required"`
	Port           int    `env:"DATA_BASE_PORT,default=3306"`
	Password       string `env:"DATA_BASE_PASSWORD,required"`
	OpenConnection int    `env:"DATA_BASE_MAX_OPEN_CONNECTION,default=5"`
}

type awsSMTP struct {
	SMTPHost     string `env:"SMTP_HOST,required"`
	SMTPPort     int    `env:"SMTP_PORT,required"`
	SMTPUser     string `env:"SMTP_USER,required"`
	SMTPPassword string `env:"SMTP_PASSWORD,required"`
}

type payosConf struct {
	BaseURL             string `env:"PAYOS_BASEURL"`
	ClientID            string `env:"PAYOS_CLIENT_ID"`
	APIKey              string `env:"PAYOS_API_KEY"`
	PathPaymentRequests string `env:"PAYOS_PATH_PAYMENT_REQUESTS,default=/v2/payment-requests"`
	ReturnURL           string `env:"PAYOS_RETURN_URL"`
	CancelURL           string `env:"PAYOS_CANCEL_URL"`
}

// pollingConf carries the two timing knobs of the payment status poller. The
// defaults match the cashier workflow: one status check every 5 seconds, give
// up after 2 minutes without completion.
type pollingConf struct {
	IntervalSeconds int `env:"PAYMENT_POLL_INTERVAL_SECONDS,default=5"`
	BudgetSeconds   int `env:"PAYMENT_POLL_BUDGET_SECONDS,default=120"`
}

type cacheConf struct {
	TTLSeconds int `env:"QUERY_CACHE_TTL_SECONDS,default=300"`
}

type awsS3 struct {
	S3Region      string `env:"S3_REGION,required"`
	S3Bucket      string `env:"S3_BUCKET,required"`
	S3Url         string `env:"S3_URL,required"`
	S3PathInvoice string `env:"S3_PATH_INVOICE,default=invoice"`
}

type mail struct {
	PaymentSuccess  mailPaymentSuccess
	PasswordRecover mailPasswordRecover
	NameFrom        string `env:"MAIL_NAME_FROM"`
	EmailFrom       string `env:"MAIL_EMAIL_FROM"`
	Folder          string `env:"MAIL_FOLDER"`
	Path            string `env:"MAIL_PATH"`
	InvoiceTemplate string `env:"MAIL_INVOICE_TEMPLATE,default=templates/pdf/invoice.html"`
}

type mailPaymentSuccess struct {
	Subject  string `env:"MAIL_PAYMENT_SUCCESS_SUBJECT"`
	Template string `env:"MAIL_PAYMENT_SUCCESS_TEMPLATE"`
	FileName string `env:"MAIL_PAYMENT_SUCCESS_FILENAME"`
}

type mailPasswordRecover struct {
	Subject  string `env:"MAIL_PASSWORD_RECOVER_SUBJECT"`
	Template string `env:"MAIL_PASSWORD_RECOVER_TEMPLATE"`
}

type AppContext struct {
	Config  Configuration
	SQLConn *sqlx.DB
	DB      db.Storage
	AwsSMTP *gomail.Dialer
	AwsS3   *session.Session
	PayOS   *payos.Client
	Cache   *cache.Store
	Watcher *polling.Watcher
}

func CreateConnectionSQL(conf database) (*sqlx.DB, error) {
	conn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", conf.User, conf.Password, conf.URL, strconv.Itoa(conf.Port), conf.Name)
	connection, err := sqlx.Connect("mysql", conn)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func CreateNewConnectionSMTP(conf awsSMTP) *gomail.Dialer {
	return gomail.NewDialer(conf.SMTPHost, conf.SMTPPort, conf.SMTPUser, conf.SMTPPassword)
}

func CreatePayOSIntegration(conf payosConf) *payos.Client {
	return &payos.Client{
		BaseURL:             conf.BaseURL,
		ClientID:            conf.ClientID,
		APIKey:              conf.APIKey,
		PathPaymentRequests: conf.PathPaymentRequests,
		ReturnURL:           conf.ReturnURL,
		CancelURL:           conf.CancelURL,
	}
}

func CreateNewSessionS3(conf awsS3) (*session.Session, error) {
	return session.NewSession(&aws.Config{Region: aws.String(conf.S3Region)})
}

var logger *log.Entry

func SetLogger(newLogger *log.Entry) {
	logger = newLogger
}

func GetLogger() *log.Entry {
	return logger
}
