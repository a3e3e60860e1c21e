package helpers

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"strings"
	"text/template"

	"bitbucket.org/clinicops/backend/models"
	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

type RequestPdf struct {
	bodies []string
}

func (r *RequestPdf) ParseTemplate(templateFileName string, data interface{}) error {
	t, err := template.ParseFiles(templateFileName)
	if err != nil {
		return err
	}
	buf := new(bytes.Buffer)
	if err = t.Execute(buf, data); err != nil {
		return err
	}
	r.bodies = append(r.bodies, buf.String())
	return nil
}

const (
	ConstHTMLNewPage = `
	<div class="new-page"></div>
	`
)

func (r *RequestPdf) GeneratePDF() (*bytes.Buffer, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, errors.Wrap(err, "failed creating pdf generator")
	}

	pdfg.AddPage(wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(strings.Join(r.bodies, ConstHTMLNewPage)))))

	if err := pdfg.Create(); err != nil {
		return nil, err
	}

	return pdfg.Buffer(), nil
}

// GenerateInvoicePDF renders the invoice handed to the patient. The QR image
// encodes the invoice number so the front desk can look the payment up later.
func GenerateInvoicePDF(templatePath string, payment *models.Payment, patient *models.Patient, services []models.Service) (*bytes.Buffer, error) {
	r := RequestPdf{}

	img, err := qrcode.New(payment.InvoiceNumber, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	base64Image, err := EncodeImage(img.Image(256))
	if err != nil {
		return nil, err
	}

	if err := r.ParseTemplate(templatePath, models.InvoiceHTML{
		InvoiceNumber: payment.InvoiceNumber,
		Firstname:     RemoveAccents(patient.Firstname),
		Lastname:      RemoveAccents(patient.Lastname),
		Method:        string(payment.Method),
		Amount:        FormatAmount(payment.Amount),
		Date:          payment.Created.Format("02-01-2006"),
		Image:         base64Image,
		Services:      services,
	}); err != nil {
		return nil, err
	}

	mem, err := r.GeneratePDF()
	if err != nil {
		return nil, err
	}

	return mem, nil
}

func EncodeImage(m image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
