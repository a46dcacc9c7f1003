// Package ledger is the due/payment ledger core: late-fee arithmetic,
// status resolution and read-side aggregation. Money is always in integer
// minor units (paise) and percentages in basis points, so totals are exact
// and reproducible. No function reads the ambient clock; callers pass asOf
// explicitly, which keeps every computation deterministic under test.
package ledger

import (
	"time"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
)

// DateOnly truncates t to its calendar date in UTC. Due dates have no time
// component, so all deadline comparisons go through this.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LateFee returns the surcharge accrued on base once dueDate has passed.
// A payment date on the due date itself is still on time, so the fee is zero
// whenever asOf <= dueDate (by calendar date). Past the due date the fee is
// floor(base * feeBps / 10000); integer division is the floor for the
// non-negative inputs the invariants allow.
func LateFee(base int64, dueDate time.Time, feeBps int64, asOf time.Time) int64 {
	if base <= 0 || feeBps <= 0 {
		return 0
	}
	if !DateOnly(asOf).After(DateOnly(dueDate)) {
		return 0
	}
	return base * feeBps / 10000
}

// TotalOwed is the due's base amount plus any late fee accrued as of asOf.
func TotalOwed(d *models.Due, asOf time.Time) int64 {
	return d.BaseAmount + LateFee(d.BaseAmount, d.DueDate, d.LateFeeBps, asOf)
}
