// Package ledger defines the outbound port for the revenue ledger the
// worker appends recorded payments to.
package ledger

import (
	"context"

	"agencydesk/internal/core"
)

// Entry is one revenue row in the ledger.
type Entry struct {
	PaymentDate  core.Date
	ClientName   string
	InvoiceMonth string
	Amount       core.Money
	Mode         string
	Reference    string
}

// Appender writes entries to the ledger and returns a reference to the
// written row.
type Appender interface {
	Append(ctx context.Context, e Entry) (rowRef string, err error)
}
