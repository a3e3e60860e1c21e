package db

import (
	"database/sql"
	"strings"

	"bitbucket.org/clinicops/backend/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type PatientStorage interface {
	InsertPatient(*models.InsertPatientOpts) (int, error)
	GetPatientByID(patientID int) (*models.Patient, error)
	GetPatients(*models.GetPatientsOpts) (*models.PatientsStruct, error)
}

const (
	insertPatient = `
	INSERT
		patient
	SET
		firstname = :firstname,
		lastname = :lastname,
		dni = :dni,
		email = :email,
		phone = :phone,
		birth_date = :birth_date
	`

	getPatientByID = `
	SELECT
		patient.id,
		patient.firstname,
		patient.lastname,
		patient.dni,
		patient.email,
		patient.phone,
		patient.birth_date,
		patient.created,
		patient.updated,
		patient.active
	FROM
		patient
	WHERE
		patient.active = 1 AND
		patient.id = :patient_id
	`

	getPatients = `
	SELECT
		patient.id,
		patient.firstname,
		patient.lastname,
		patient.dni,
		patient.email,
		patient.phone,
		patient.birth_date,
		patient.created,
		patient.updated,
		patient.active
	FROM
		patient
	WHERE
		patient.active = 1
		#FILTERS#
	ORDER BY
		patient.id ASC
	LIMIT :limit_to OFFSET :limit_from
	`

	countPatients = `
	SELECT
		count(patient.id)
	FROM
		patient
	WHERE
		patient.active = 1
		#FILTERS#
	`
)

func (db *DB) InsertPatient(opts *models.InsertPatientOpts) (int, error) {
	stmt, err := db.PrepareNamed(insertPatient)
	if err != nil {
		return 0, err
	}

	args := map[string]interface{}{
		"firstname":  opts.Firstname,
		"lastname":   opts.Lastname,
		"dni":        opts.DNI,
		"email":      opts.Email,
		"phone":      opts.Phone,
		"birth_date": opts.BirthDate,
	}

	result, err := stmt.Exec(args)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if rowsAffected != 1 {
		return 0, errors.Errorf("expected %d and inserted %d rows", 1, rowsAffected)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	return int(id), nil
}

func (db *DB) GetPatientByID(patientID int) (*models.Patient, error) {
	stmt, err := db.PrepareNamed(getPatientByID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"patient_id": patientID,
	}

	var patient models.Patient
	var email, phone, birthDate sql.NullString

	row := stmt.QueryRow(args)
	if err := row.Scan(
		&patient.ID,
		&patient.Firstname,
		&patient.Lastname,
		&patient.DNI,
		&email,
		&phone,
		&birthDate,
		&patient.Created,
		&patient.Updated,
		&patient.Active,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	patient.Email = email.String
	patient.Phone = phone.String
	patient.BirthDate = birthDate.String

	return &patient, nil
}

func (db *DB) GetPatients(opts *models.GetPatientsOpts) (*models.PatientsStruct, error) {
	filters := ""
	args := map[string]interface{}{}

	if opts.CreatedFrom != "" {
		filters += " AND patient.created >= :created_from "
		args["created_from"] = opts.CreatedFrom
	}
	if opts.CreatedTo != "" {
		filters += " AND patient.created <= :created_to "
		args["created_to"] = opts.CreatedTo
	}
	if len(opts.PatientIDs) != 0 {
		filters += " AND patient.id IN (:patient_ids) "
		args["patient_ids"] = opts.PatientIDs
	}
	if len(opts.DNIs) != 0 {
		filters += " AND patient.dni IN (:dnis) "
		args["dnis"] = opts.DNIs
	}
	if len(opts.Phones) != 0 {
		filters += " AND patient.phone IN (:phones) "
		args["phones"] = opts.Phones
	}
	if opts.LimitTo == 0 {
		opts.LimitTo = 10
	}
	args["limit_to"] = opts.LimitTo
	args["limit_from"] = opts.LimitFrom

	total, err := db.countPatients(filters, args)
	if err != nil {
		return nil, err
	}

	query := strings.ReplaceAll(getPatients, "#FILTERS#", filters)

	query, nargs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, err
	}

	query, nargs, err = sqlx.In(query, nargs...)
	if err != nil {
		return nil, err
	}

	query = db.Rebind(query)

	rows, err := db.Query(query, nargs...)
	if err != nil {
		return nil, err
	}

	patients := models.PatientsStruct{
		Total: total,
	}
	for rows.Next() {
		var patient models.Patient
		var email, phone, birthDate sql.NullString
		if err := rows.Scan(
			&patient.ID,
			&patient.Firstname,
			&patient.Lastname,
			&patient.DNI,
			&email,
			&phone,
			&birthDate,
			&patient.Created,
			&patient.Updated,
			&patient.Active,
		); err != nil {
			return nil, err
		}

		patient.Email = email.String
		patient.Phone = phone.String
		patient.BirthDate = birthDate.String

		patients.Patients = append(patients.Patients, patient)
	}

	return &patients, nil
}

func (db *DB) countPatients(filters string, args map[string]interface{}) (int, error) {
	query := strings.ReplaceAll(countPatients, "#FILTERS#", filters)

	query, nargs, err := sqlx.Named(query, args)
	if err != nil {
		return 0, err
	}

	query, nargs, err = sqlx.In(query, nargs...)
	if err != nil {
		return 0, err
	}

	query = db.Rebind(query)

	row := db.QueryRow(query, nargs...)
	var total int
	if err := row.Scan(
		&total,
	); err != nil {
		return 0, err
	}

	return total, nil
}
