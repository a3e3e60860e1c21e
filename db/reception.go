package db

import (
	"database/sql"

	"bitbucket.org/clinicops/backend/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type ReceptionStorage interface {
	GetOpenReceptionByPatientID(patientID int) (*models.Reception, error)
	GetUnpaidServicesByPatientID(patientID int) (*models.UnpaidServicesStruct, error)
	GetServicesByIDs(serviceIDs []int) ([]models.Service, error)
	GetWaitingVaccinationPatients() ([]models.WaitingPatient, error)
	GetMedicineVaccinationByReceptionID(receptionID int) ([]models.MedicineVaccination, error)
	GetPatientsForExamination() ([]models.WaitingPatient, error)
	GetExaminationsByReceptionID(receptionID int) ([]models.Examination, error)
}

const (
	getOpenReceptionByPatientID = `
	SELECT
		reception.id,
		reception.status,
		reception.created,
		reception.updated
	FROM
		reception
	WHERE
		reception.patient_id = :patient_id AND
		reception.status = 'OPEN'
	ORDER BY
		reception.id DESC
	LIMIT 1
	`

	getUnpaidServicesByPatientID = `
	SELECT
		service.id,
		service.reception_id,
		service.name,
		service.type,
		service.price,
		service.paid
	FROM
		service
	INNER JOIN
		reception ON (reception.id = service.reception_id)
	WHERE
		reception.patient_id = :patient_id AND
		service.paid = 0
	ORDER BY
		service.id ASC
	`

	getServicesByIDs = `
	SELECT
		service.id,
		service.reception_id,
		service.name,
		service.type,
		service.price,
		service.paid
	FROM
		service
	WHERE
		service.id IN (:service_ids)
	`

	getWaitingVaccinationPatients = `
	SELECT
		reception.id,
		patient.id,
		patient.firstname,
		patient.lastname,
		patient.dni,
		COUNT(service.id),
		reception.created
	FROM
		reception
	INNER JOIN
		patient ON (patient.id = reception.patient_id)
	INNER JOIN
		service ON (service.reception_id = reception.id AND service.type = 'VACCINATION')
	WHERE
		reception.status = 'OPEN' AND
		service.paid = 1 AND
		service.administered = 0
	GROUP BY
		reception.id
	ORDER BY
		reception.created ASC
	`

	getMedicineVaccinationByReceptionID = `
	SELECT
		service.id,
		medicine.id,
		medicine.name,
		medicine.lot_number,
		service.dose,
		service.administered
	FROM
		service
	INNER JOIN
		medicine ON (medicine.id = service.medicine_id)
	WHERE
		service.reception_id = :reception_id AND
		service.type = 'VACCINATION' AND
		service.paid = 1
	ORDER BY
		service.id ASC
	`

	getPatientsForExamination = `
	SELECT
		reception.id,
		patient.id,
		patient.firstname,
		patient.lastname,
		patient.dni,
		COUNT(service.id),
		reception.created
	FROM
		reception
	INNER JOIN
		patient ON (patient.id = reception.patient_id)
	INNER JOIN
		service ON (service.reception_id = reception.id AND service.type = 'EXAMINATION')
	WHERE
		reception.status = 'OPEN' AND
		service.paid = 1 AND
		service.finished IS NULL
	GROUP BY
		reception.id
	ORDER BY
		reception.created ASC
	`

	getExaminationsByReceptionID = `
	SELECT
		service.id,
		service.name,
		user.id,
		user.firstname,
		user.lastname,
		service.started,
		service.finished
	FROM
		service
	LEFT JOIN
		user ON (user.id = service.doctor_id)
	WHERE
		service.reception_id = :reception_id AND
		service.type = 'EXAMINATION' AND
		service.paid = 1
	ORDER BY
		service.id ASC
	`
)

func (db *DB) GetOpenReceptionByPatientID(patientID int) (*models.Reception, error) {
	stmt, err := db.PrepareNamed(getOpenReceptionByPatientID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"patient_id": patientID,
	}

	var reception models.Reception

	row := stmt.QueryRow(args)
	if err := row.Scan(
		&reception.ID,
		&reception.Status,
		&reception.Created,
		&reception.Updated,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &reception, nil
}

func (db *DB) GetUnpaidServicesByPatientID(patientID int) (*models.UnpaidServicesStruct, error) {
	stmt, err := db.PrepareNamed(getUnpaidServicesByPatientID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"patient_id": patientID,
	}

	rows, err := stmt.Query(args)
	if err != nil {
		return nil, err
	}

	services := models.UnpaidServicesStruct{}
	for rows.Next() {
		var service models.Service
		if err := rows.Scan(
			&service.ID,
			&service.ReceptionID,
			&service.Name,
			&service.Type,
			&service.Price,
			&service.Paid,
		); err != nil {
			return nil, err
		}

		services.Services = append(services.Services, service)
	}
	services.Total = len(services.Services)

	return &services, nil
}

func (db *DB) GetServicesByIDs(serviceIDs []int) ([]models.Service, error) {
	args := map[string]interface{}{
		"service_ids": serviceIDs,
	}

	query, nargs, err := sqlx.Named(getServicesByIDs, args)
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

	var services []models.Service
	for rows.Next() {
		var service models.Service
		if err := rows.Scan(
			&service.ID,
			&service.ReceptionID,
			&service.Name,
			&service.Type,
			&service.Price,
			&service.Paid,
		); err != nil {
			return nil, err
		}

		services = append(services, service)
	}

	return services, nil
}

func (db *DB) GetWaitingVaccinationPatients() ([]models.WaitingPatient, error) {
	return db.getWaitingPatients(getWaitingVaccinationPatients)
}

func (db *DB) GetPatientsForExamination() ([]models.WaitingPatient, error) {
	return db.getWaitingPatients(getPatientsForExamination)
}

func (db *DB) getWaitingPatients(query string) ([]models.WaitingPatient, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed querying waiting patients")
	}

	var waiting []models.WaitingPatient
	for rows.Next() {
		var item models.WaitingPatient
		var patient models.Patient
		if err := rows.Scan(
			&item.ReceptionID,
			&patient.ID,
			&patient.Firstname,
			&patient.Lastname,
			&patient.DNI,
			&item.Services,
			&item.Since,
		); err != nil {
			return nil, err
		}

		item.Patient = &patient
		waiting = append(waiting, item)
	}

	return waiting, nil
}

func (db *DB) GetMedicineVaccinationByReceptionID(receptionID int) ([]models.MedicineVaccination, error) {
	stmt, err := db.PrepareNamed(getMedicineVaccinationByReceptionID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"reception_id": receptionID,
	}

	rows, err := stmt.Query(args)
	if err != nil {
		return nil, err
	}

	var vaccinations []models.MedicineVaccination
	for rows.Next() {
		var item models.MedicineVaccination
		var lotNumber, dose sql.NullString
		if err := rows.Scan(
			&item.ServiceID,
			&item.MedicineID,
			&item.MedicineName,
			&lotNumber,
			&dose,
			&item.Administered,
		); err != nil {
			return nil, err
		}

		item.LotNumber = lotNumber.String
		item.Dose = dose.String

		vaccinations = append(vaccinations, item)
	}

	return vaccinations, nil
}

func (db *DB) GetExaminationsByReceptionID(receptionID int) ([]models.Examination, error) {
	stmt, err := db.PrepareNamed(getExaminationsByReceptionID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"reception_id": receptionID,
	}

	rows, err := stmt.Query(args)
	if err != nil {
		return nil, err
	}

	var examinations []models.Examination
	for rows.Next() {
		var item models.Examination
		var doctorID sql.NullInt64
		var doctorFirstname, doctorLastname sql.NullString
		if err := rows.Scan(
			&item.ServiceID,
			&item.Name,
			&doctorID,
			&doctorFirstname,
			&doctorLastname,
			&item.Started,
			&item.Finished,
		); err != nil {
			return nil, err
		}

		if doctorID.Valid {
			item.Doctor = &models.User{
				ID:        int(doctorID.Int64),
				Firstname: doctorFirstname.String,
				Lastname:  doctorLastname.String,
			}
		}

		examinations = append(examinations, item)
	}

	return examinations, nil
}
