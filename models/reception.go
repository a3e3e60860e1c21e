package models

import (
	"time"

	"github.com/thedevsaddam/govalidator"
)

type Reception struct {
	ID      int       `json:"id,omitempty"`
	Patient *Patient  `json:"patient,omitempty"`
	Doctor  *User     `json:"doctor,omitempty"`
	Status  string    `json:"status,omitempty"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

type ServiceType string

const (
	ServiceTypeVaccination ServiceType = "VACCINATION"
	ServiceTypeExamination ServiceType = "EXAMINATION"
)

type Service struct {
	ID          int         `json:"id,omitempty"`
	ReceptionID int         `json:"reception_id,omitempty"`
	Name        string      `json:"name,omitempty"`
	Type        ServiceType `json:"type,omitempty"`
	Price       int         `json:"price"`
	Paid        bool        `json:"paid"`
	PaymentID   int         `json:"payment_id,omitempty"`
}

type UnpaidServicesStruct struct {
	Services []Service `json:"services,omitempty"`
	Total    int       `json:"total"`
}

type PatientPaymentsStruct struct {
	Payments []Payment `json:"payments,omitempty"`
	Total    int       `json:"total"`
}

// WaitingPatient is a reception waiting for its paid vaccination services to
// be administered.
type WaitingPatient struct {
	ReceptionID int       `json:"reception_id"`
	Patient     *Patient  `json:"patient,omitempty"`
	Services    int       `json:"services"`
	Since       time.Time `json:"since"`
}

type MedicineVaccination struct {
	ServiceID    int    `json:"service_id"`
	MedicineID   int    `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	LotNumber    string `json:"lot_number,omitempty"`
	Dose         string `json:"dose,omitempty"`
	Administered bool   `json:"administered"`
}

type Examination struct {
	ServiceID int        `json:"service_id"`
	Name      string     `json:"name"`
	Doctor    *User      `json:"doctor,omitempty"`
	Started   *time.Time `json:"started,omitempty"`
	Finished  *time.Time `json:"finished,omitempty"`
}

type GetWaitingVaccinationOpts struct {
	CreatedFrom string `schema:"created_from"`
	CreatedTo   string `schema:"created_to"`
	LimitFrom   int    `schema:"limit_from"`
	LimitTo     int    `schema:"limit_to"`
}

var GetWaitingVaccinationRules = govalidator.MapData{
	"created_from": []string{"date_ISO8601"},
	"created_to":   []string{"date_ISO8601"},
	"limit_from":   []string{"numeric"},
	"limit_to":     []string{"numeric"},
}
