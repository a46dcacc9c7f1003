package ledger

import (
	"time"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
)

// PaidSum is the total of all payments recorded against a due.
func PaidSum(payments []models.Payment) int64 {
	var sum int64
	for _, p := range payments {
		sum += p.Amount
	}
	return sum
}

// ComputeStatus applies the recorded payments against the due and returns the
// authoritative status as of asOf.
//
// paid and failed are terminal: once the stored status is one of them the
// resolver returns it unchanged. For paid this freezes the late fee at the
// moment sufficiency was reached; further date changes never reopen the due.
// failed is only ever set externally (gateway failure) and is never assigned
// or overridden here.
func ComputeStatus(d *models.Due, payments []models.Payment, asOf time.Time) models.DueStatus {
	switch d.Status {
	case models.DueStatusPaid, models.DueStatusFailed:
		return d.Status
	}
	if PaidSum(payments) >= TotalOwed(d, asOf) {
		return models.DueStatusPaid
	}
	if DateOnly(asOf).After(DateOnly(d.DueDate)) {
		return models.DueStatusOverdue
	}
	return models.DueStatusPending
}
