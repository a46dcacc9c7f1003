package ledger

import (
	"time"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
)

// Read-side projections over a due collection. Scoping (per student, per
// professor) is a filter applied by the store before these run; the
// projections themselves carry no hidden state.

// OutstandingTotal sums what is still owed, late fees included, across dues
// that are pending or overdue as of asOf.
func OutstandingTotal(dues []models.Due, asOf time.Time) int64 {
	var total int64
	for i := range dues {
		switch dues[i].Status {
		case models.DueStatusPending, models.DueStatusOverdue:
			total += TotalOwed(&dues[i], asOf)
		}
	}
	return total
}

// CollectedTotal sums the base amounts of settled dues. For fully paid dues
// this reconciles with the payment sum up to accepted overpayment.
func CollectedTotal(dues []models.Due) int64 {
	var total int64
	for i := range dues {
		if dues[i].Status == models.DueStatusPaid {
			total += dues[i].BaseAmount
		}
	}
	return total
}

// OverdueCount counts dues currently marked overdue.
func OverdueCount(dues []models.Due) int {
	n := 0
	for i := range dues {
		if dues[i].Status == models.DueStatusOverdue {
			n++
		}
	}
	return n
}

// DueWithinDays returns still-pending dues whose due date falls inside
// [asOf, asOf+n days], a simple upcoming-deadline window for dashboards.
func DueWithinDays(dues []models.Due, asOf time.Time, n int) []models.Due {
	from := DateOnly(asOf)
	to := from.AddDate(0, 0, n)
	var out []models.Due
	for i := range dues {
		if dues[i].Status != models.DueStatusPending {
			continue
		}
		d := DateOnly(dues[i].DueDate)
		if !d.Before(from) && !d.After(to) {
			out = append(out, dues[i])
		}
	}
	return out
}
