package db

import (
	"database/sql"
	"strings"

	"bitbucket.org/clinicops/backend/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type PaymentStorage interface {
	InsertPayment(*InsertPaymentOpts) (int, error)
	UpdatePaymentStatus(paymentID int, status models.PaymentStatus) error
	UpdatePaymentStatusByContractID(contractID string, status models.PaymentStatus) error
	GetPaymentByID(paymentID int) (*models.Payment, error)
	GetPaymentByContractID(contractID string) (*models.Payment, error)
	GetPaymentsByPatientID(patientID int) (*models.PatientPaymentsStruct, error)
	GetTransactionHistory(*models.GetTransactionHistoryOpts) (*models.TransactionHistoryStruct, error)
	MarkServicesPaid(paymentID int, serviceIDs []int) error
}

type InsertPaymentOpts struct {
	PatientID         int                  `json:"patient_id"`
	ReceptionID       int                  `json:"reception_id"`
	Amount            int                  `json:"amount"`
	Method            models.PaymentMethod `json:"method"`
	Status            models.PaymentStatus `json:"status"`
	InvoiceNumber     string               `json:"invoice_number"`
	PaymentContractID string               `json:"payment_contract_id"`
	QRCode            string               `json:"qr_code"`
	Note              string               `json:"note"`
	UserID            int                  `json:"user_id"`
}

const (
	insertPayment = `
	INSERT
		payment
	SET
		patient_id = :patient_id,
		reception_id = :reception_id,
		amount = :amount,
		method = :method,
		status = :status,
		invoice_number = :invoice_number,
		payment_contract_id = :payment_contract_id,
		qr_code = :qr_code,
		note = :note,
		user_id = :user_id
	`

	updatePaymentStatus = `
	UPDATE
		payment
	SET
		status = :status,
		updated = current_timestamp()
	WHERE
		id = :payment_id
	`

	updatePaymentStatusByContractID = `
	UPDATE
		payment
	SET
		status = :status,
		updated = current_timestamp()
	WHERE
		payment_contract_id = :payment_contract_id
	`

	getPayment = `
	SELECT
		payment.id,
		payment.patient_id,
		payment.reception_id,
		payment.amount,
		payment.method,
		payment.status,
		payment.invoice_number,
		payment.payment_contract_id,
		payment.qr_code,
		payment.created,
		payment.updated
	FROM
		payment
	`

	getPaymentsByPatientID = getPayment + `
	WHERE
		payment.patient_id = :patient_id
	ORDER BY
		payment.id DESC
	`

	getTransactionHistory = getPayment + `
	WHERE
		payment.method = 'TRANSFER'
		#FILTERS#
	ORDER BY
		payment.id DESC
	LIMIT :limit_to OFFSET :limit_from
	`

	countTransactionHistory = `
	SELECT
		count(payment.id)
	FROM
		payment
	WHERE
		payment.method = 'TRANSFER'
		#FILTERS#
	`

	markServicesPaid = `
	UPDATE
		service
	SET
		paid = 1,
		payment_id = :payment_id
	WHERE
		service.id IN (:service_ids) AND
		service.paid = 0
	`
)

func (db *DB) InsertPayment(opts *InsertPaymentOpts) (int, error) {
	tx, err := db.NewTx()
	if err != nil {
		return 0, errors.Wrap(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}

		tx.Commit()
	}()

	id, newErr := db.insertPaymentTx(tx, opts)
	if newErr != nil {
		err = newErr
		return 0, err
	}

	return id, nil
}

func (db *DB) insertPaymentTx(tx Tx, opts *InsertPaymentOpts) (int, error) {
	stmt, err := tx.PrepareNamed(insertPayment)
	if err != nil {
		return 0, err
	}

	args := map[string]interface{}{
		"patient_id":          opts.PatientID,
		"reception_id":        opts.ReceptionID,
		"amount":              opts.Amount,
		"method":              string(opts.Method),
		"status":              string(opts.Status),
		"invoice_number":      opts.InvoiceNumber,
		"payment_contract_id": opts.PaymentContractID,
		"qr_code":             opts.QRCode,
		"note":                opts.Note,
		"user_id":             opts.UserID,
	}

	result, err := stmt.Exec(args)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if int(rowsAffected) != 1 {
		return 0, errors.Errorf("expected %d and inserted %d", 1, rowsAffected)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	return int(id), nil
}

func (db *DB) UpdatePaymentStatus(paymentID int, status models.PaymentStatus) error {
	stmt, err := db.PrepareNamed(updatePaymentStatus)
	if err != nil {
		return err
	}

	args := map[string]interface{}{
		"payment_id": paymentID,
		"status":     string(status),
	}

	result, err := stmt.Exec(args)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if int(rowsAffected) != 1 {
		return errors.Errorf("expected %d and updated %d", 1, rowsAffected)
	}

	return nil
}

func (db *DB) UpdatePaymentStatusByContractID(contractID string, status models.PaymentStatus) error {
	stmt, err := db.PrepareNamed(updatePaymentStatusByContractID)
	if err != nil {
		return err
	}

	args := map[string]interface{}{
		"payment_contract_id": contractID,
		"status":              string(status),
	}

	result, err := stmt.Exec(args)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if int(rowsAffected) != 1 {
		return errors.Errorf("expected %d and updated %d", 1, rowsAffected)
	}

	return nil
}

func (db *DB) GetPaymentByID(paymentID int) (*models.Payment, error) {
	query := getPayment + ` WHERE payment.id = :payment_id`

	return db.getOnePayment(query, map[string]interface{}{
		"payment_id": paymentID,
	})
}

func (db *DB) GetPaymentByContractID(contractID string) (*models.Payment, error) {
	query := getPayment + ` WHERE payment.payment_contract_id = :payment_contract_id`

	return db.getOnePayment(query, map[string]interface{}{
		"payment_contract_id": contractID,
	})
}

func (db *DB) getOnePayment(query string, args map[string]interface{}) (*models.Payment, error) {
	stmt, err := db.PrepareNamed(query)
	if err != nil {
		return nil, err
	}

	var payment models.Payment
	var contractID, qrCode sql.NullString

	row := stmt.QueryRow(args)
	if err := row.Scan(
		&payment.ID,
		&payment.PatientID,
		&payment.ReceptionID,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&payment.InvoiceNumber,
		&contractID,
		&qrCode,
		&payment.Created,
		&payment.Updated,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	payment.PaymentContractID = contractID.String
	payment.QRCode = qrCode.String

	return &payment, nil
}

func (db *DB) GetPaymentsByPatientID(patientID int) (*models.PatientPaymentsStruct, error) {
	stmt, err := db.PrepareNamed(getPaymentsByPatientID)
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

	payments := models.PatientPaymentsStruct{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}

		payments.Payments = append(payments.Payments, *payment)
	}
	payments.Total = len(payments.Payments)

	return &payments, nil
}

func (db *DB) GetTransactionHistory(opts *models.GetTransactionHistoryOpts) (*models.TransactionHistoryStruct, error) {
	filters := ""
	args := map[string]interface{}{}

	if opts.CreatedFrom != "" {
		filters += " AND payment.created >= :created_from "
		args["created_from"] = opts.CreatedFrom
	}
	if opts.CreatedTo != "" {
		filters += " AND payment.created <= :created_to "
		args["created_to"] = opts.CreatedTo
	}
	if len(opts.PatientIDs) != 0 {
		filters += " AND payment.patient_id IN (:patient_ids) "
		args["patient_ids"] = opts.PatientIDs
	}
	if opts.LimitTo == 0 {
		opts.LimitTo = 10
	}
	args["limit_to"] = opts.LimitTo
	args["limit_from"] = opts.LimitFrom

	total, err := db.countTransactionHistory(filters, args)
	if err != nil {
		return nil, err
	}

	query := strings.ReplaceAll(getTransactionHistory, "#FILTERS#", filters)

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

	transactions := models.TransactionHistoryStruct{
		Total: total,
	}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}

		transactions.Transactions = append(transactions.Transactions, *payment)
	}

	return &transactions, nil
}

func (db *DB) countTransactionHistory(filters string, args map[string]interface{}) (int, error) {
	query := strings.ReplaceAll(countTransactionHistory, "#FILTERS#", filters)

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

func (db *DB) MarkServicesPaid(paymentID int, serviceIDs []int) error {
	args := map[string]interface{}{
		"payment_id":  paymentID,
		"service_ids": serviceIDs,
	}

	query, nargs, err := sqlx.Named(markServicesPaid, args)
	if err != nil {
		return err
	}

	query, nargs, err = sqlx.In(query, nargs...)
	if err != nil {
		return err
	}

	query = db.Rebind(query)

	result, err := db.Exec(query, nargs...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if int(rowsAffected) != len(serviceIDs) {
		return errors.Errorf("expected %d and updated %d", len(serviceIDs), rowsAffected)
	}

	return nil
}

func scanPayment(rows *sql.Rows) (*models.Payment, error) {
	var payment models.Payment
	var contractID, qrCode sql.NullString

	if err := rows.Scan(
		&payment.ID,
		&payment.PatientID,
		&payment.ReceptionID,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&payment.InvoiceNumber,
		&contractID,
		&qrCode,
		&payment.Created,
		&payment.Updated,
	); err != nil {
		return nil, err
	}

	payment.PaymentContractID = contractID.String
	payment.QRCode = qrCode.String

	return &payment, nil
}
