package helpers

import (
	"bytes"
	"html/template"
	"io"

	"gopkg.in/gomail.v2"
)

type EmailData struct {
	EmailTo      string
	NameTo       string
	EmailFrom    string
	NameFrom     string
	Subject      string
	TemplatePath string
	FileName     string
	FileContent  []byte
	AwsSMTP      *gomail.Dialer
}

func (ed *EmailData) SendEmail(data interface{}) error {
	t, err := template.ParseFiles(ed.TemplatePath)
	if err != nil {
		return err
	}

	var tpl bytes.Buffer
	if err := t.Execute(&tpl, data); err != nil {
		return err
	}

	m := gomail.NewMessage()

	if ed.FileContent != nil {
		m.Attach(ed.FileName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(ed.FileContent)
			return err
		}))
	}

	m.SetAddressHeader("From", ed.EmailFrom, ed.NameFrom)
	m.SetAddressHeader("To", ed.EmailTo, ed.NameTo)
	m.SetHeader("Subject", ed.Subject)
	m.SetBody("text/html", tpl.String())

	if err := ed.AwsSMTP.DialAndSend(m); err != nil {
		return err
	}

	return nil
}
