package models

import "errors"

// Validation and business-rule failures. Handlers map these to 4xx responses.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidStake       = errors.New("invalid stake")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrForbidden          = errors.New("forbidden")
	ErrUnknownGame        = errors.New("unknown game type")
	ErrAccountExists      = errors.New("account already exists")
	ErrRoleExists         = errors.New("user already has this role")
	ErrDuplicateReference = errors.New("external reference already submitted")
	ErrRunInProgress      = errors.New("a run is already in progress")
	ErrDuplicateInFlight  = errors.New("duplicate request in flight")
)

// ErrBusy is returned when the per-account serialization boundary could not
// be entered in time. Nothing was applied, so the caller may retry as is.
var ErrBusy = errors.New("account busy, retry later")

// ErrIntegrity reports a broken ledger invariant. It is never caused by user
// input and must surface as a generic internal failure.
var ErrIntegrity = errors.New("ledger integrity violation")
