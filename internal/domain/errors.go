package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes surfaced by the withdrawal
// saga and the custodial transfer client. Callers switch on the kind, never
// on error message text.
type ErrorKind string

const (
	ErrKindInsufficientBalance        ErrorKind = "insufficient_balance"
	ErrKindInsufficientCustodialFunds ErrorKind = "insufficient_custodial_funds"
	ErrKindInsufficientGasFunds       ErrorKind = "insufficient_gas_funds"
	ErrKindTransferFailed             ErrorKind = "transfer_failed"
	ErrKindAlreadyProcessed           ErrorKind = "already_processed"
	ErrKindDuplicateRequest           ErrorKind = "duplicate_request"
	ErrKindConfirmationTimeout        ErrorKind = "confirmation_timeout"
	ErrKindNotFound                   ErrorKind = "not_found"
)

// WithdrawalError carries a structured, actionable reason for a withdrawal
// failure. ShortfallCents is set only for insufficient-balance failures and
// TxHash only when a transaction was broadcast before the failure.
type WithdrawalError struct {
	Kind           ErrorKind
	Message        string
	ShortfallCents int64
	TxHash         string
	Err            error
}

func (e *WithdrawalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *WithdrawalError) Unwrap() error {
	return e.Err
}

func NewWithdrawalError(kind ErrorKind, message string) *WithdrawalError {
	return &WithdrawalError{Kind: kind, Message: message}
}

func WrapWithdrawalError(kind ErrorKind, message string, err error) *WithdrawalError {
	return &WithdrawalError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the error kind, or empty string for untyped errors.
func KindOf(err error) ErrorKind {
	var werr *WithdrawalError
	if errors.As(err, &werr) {
		return werr.Kind
	}
	return ""
}

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrRetryNotFound      = errors.New("retry record not found")
)
