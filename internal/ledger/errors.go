package ledger

import "errors"

// Ledger error kinds. All are recoverable by the caller; ErrConflict in
// particular means a status recomputation lost a race and should be retried.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrOwnershipMismatch = errors.New("payment student does not match due student")
	ErrConflict          = errors.New("concurrent update conflict")
)
