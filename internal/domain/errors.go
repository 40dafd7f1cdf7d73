package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Ledger validation errors. Returned before any mutation happens.
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrItemNotOwned        = errors.New("item not owned")
	ErrInvalidItem         = errors.New("item id required")

	// Shop errors
	ErrUnknownItem      = errors.New("unknown shop item")
	ErrItemAlreadyOwned = errors.New("permanent item already owned")
	ErrStreakIntact     = errors.New("streak does not need repair")

	// Task list errors
	ErrInvalidTask   = errors.New("invalid task")
	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskCompleted = errors.New("task already completed")

	// Session / record errors
	ErrUserRequired   = errors.New("user id required")
	ErrRecordNotFound = errors.New("remote record not found")
)

// PersistenceWarning reports a failed local or remote write. The in-memory
// mutation that triggered the write has already been committed; this error is
// surfaced to the user as a warning and never returned from a ledger operation.
type PersistenceWarning struct {
	Store  string // "local", "remote" or "audit"
	UserID string
	Err    error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("persist %s ledger for %q: %v", w.Store, w.UserID, w.Err)
}

func (w *PersistenceWarning) Unwrap() error { return w.Err }
