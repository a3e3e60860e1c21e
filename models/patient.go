package models

import (
	"time"

	"github.com/thedevsaddam/govalidator"
)

type Patient struct {
	ID        int       `json:"id,omitempty"`
	Firstname string    `json:"firstname,omitempty"`
	Lastname  string    `json:"lastname,omitempty"`
	DNI       string    `json:"dni,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	BirthDate string    `json:"birth_date,omitempty"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
	Active    bool      `json:"active"`
}

type InsertPatientOpts struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	DNI       string `json:"dni"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birth_date"`
}

var InsertPatientRules = govalidator.MapData{
	"firstname":  []string{"required"},
	"lastname":   []string{"required"},
	"dni":        []string{"required"},
	"email":      []string{"email"},
	"phone":      []string{"required"},
	"birth_date": []string{"required", "date_ISO8601"},
}

type GetPatientsOpts struct {
	CreatedFrom string   `schema:"created_from"`
	CreatedTo   string   `schema:"created_to"`
	PatientIDs  []int    `schema:"patient_ids"`
	DNIs        []string `schema:"dnis"`
	Phones      []string `schema:"phones"`
	LimitFrom   int      `schema:"limit_from"`
	LimitTo     int      `schema:"limit_to"`
}

var GetPatientsRules = govalidator.MapData{
	"created_from": []string{"date_ISO8601"},
	"created_to":   []string{"date_ISO8601"},
	"patient_ids":  []string{"array_int"},
	"dnis":         []string{"array_string"},
	"phones":       []string{"array_string"},
	"limit_from":   []string{"numeric"},
	"limit_to":     []string{"numeric"},
}

type PatientsStruct struct {
	Patients []Patient `json:"patients,omitempty"`
	Total    int       `json:"total"`
}
