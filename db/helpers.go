package db

import (
	"fmt"
	"time"
)

// GenerateInvoiceNumber builds the invoice number handed back to the cashier
// once a payment record exists.
func GenerateInvoiceNumber(receptionID int) string {
	return fmt.Sprintf("INV-%s-%d-%d", time.Now().Format("20060102"), receptionID, time.Now().UnixNano()%1000000)
}

// GenerateOrderCode builds the numeric order code the QR provider requires to
// be unique per payment request.
func GenerateOrderCode() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}
