package models

import (
	"strings"
	"time"

	"github.com/thedevsaddam/govalidator"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Terminal reports whether no further status change can be observed for the
// payment. Terminal payments are never polled again.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

func ParsePaymentMethod(raw string) PaymentMethod {
	return PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
}

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCard || m == PaymentMethodTransfer
}

type Payment struct {
	ID                int           `json:"id,omitempty"`
	PatientID         int           `json:"patient_id,omitempty"`
	ReceptionID       int           `json:"reception_id,omitempty"`
	Amount            int           `json:"amount"`
	Method            PaymentMethod `json:"method,omitempty"`
	Status            PaymentStatus `json:"status,omitempty"`
	InvoiceNumber     string        `json:"invoice_number,omitempty"`
	PaymentContractID string        `json:"payment_contract_id,omitempty"`
	QRCode            string        `json:"qr_code,omitempty"`
	Note              string        `json:"note,omitempty"`
	Created           time.Time     `json:"created"`
	Updated           time.Time     `json:"updated"`
}

type InsertReceiptPaymentOpts struct {
	Amount     int    `json:"amount"`
	Method     string `json:"method"`
	ServiceIDs []int  `json:"service_ids"`
	Note       string `json:"note"`
}

var InsertReceiptPaymentRules = govalidator.MapData{
	"amount":      []string{"required", "numeric"},
	"method":      []string{"required"},
	"service_ids": []string{"required", "array_int"},
	"note":        []string{},
}

type InsertQRPaymentOpts struct {
	Amount     int    `json:"amount"`
	Method     string `json:"method"`
	ServiceIDs []int  `json:"service_ids"`
	Note       string `json:"note"`
}

var InsertQRPaymentRules = govalidator.MapData{
	"amount":      []string{"required", "numeric"},
	"method":      []string{},
	"service_ids": []string{"required", "array_int"},
	"note":        []string{},
}

type QRPaymentResponse struct {
	PaymentID         int    `json:"payment_id"`
	PaymentContractID string `json:"payment_contract_id"`
	QRCode            string `json:"qr_code"`
	CheckoutURL       string `json:"checkout_url,omitempty"`
	Amount            int    `json:"amount"`
	InvoiceNumber     string `json:"invoice_number"`
}

type GetPaymentStatusOpts struct {
	PaymentID         string `schema:"payment_id"`
	PaymentContractID string `schema:"payment_contract_id"`
}

var GetPaymentStatusRules = govalidator.MapData{
	"payment_id":          []string{"numeric"},
	"payment_contract_id": []string{},
}

type GetTransactionHistoryOpts struct {
	CreatedFrom string `schema:"created_from"`
	CreatedTo   string `schema:"created_to"`
	PatientIDs  []int  `schema:"patient_ids"`
	LimitFrom   int    `schema:"limit_from"`
	LimitTo     int    `schema:"limit_to"`
}

var GetTransactionHistoryRules = govalidator.MapData{
	"created_from": []string{"date_ISO8601"},
	"created_to":   []string{"date_ISO8601"},
	"patient_ids":  []string{"array_int"},
	"limit_from":   []string{"numeric"},
	"limit_to":     []string{"numeric"},
}

type TransactionHistoryStruct struct {
	Transactions []Payment `json:"transactions,omitempty"`
	Total        int       `json:"total"`
}

type InvoiceHTML struct {
	InvoiceNumber string
	Firstname     string
	Lastname      string
	Method        string
	Amount        string
	Date          string
	Image         string
	Services      []Service
}

type ReceiptMailHTML struct {
	InvoiceNumber string
	Firstname     string
	Lastname      string
	Method        string
	Amount        string
}
