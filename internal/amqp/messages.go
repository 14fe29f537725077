package amqp

import (
	"encoding/json"
	"time"
)

// PaymentRecordedMessage announces a freshly recorded payment to the ledger
// worker. It carries only identifiers; the worker fetches the full payment
// with its invoice and client context from the database.
type PaymentRecordedMessage struct {
	PaymentID int64     `json:"payment_id"`
	InvoiceID int64     `json:"invoice_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPaymentRecordedMessage(paymentID, invoiceID int64) *PaymentRecordedMessage {
	return &PaymentRecordedMessage{
		PaymentID: paymentID,
		InvoiceID: invoiceID,
		Timestamp: time.Now(),
	}
}

func (m *PaymentRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PaymentRecordedMessageFromJSON(data []byte) (*PaymentRecordedMessage, error) {
	var msg PaymentRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
