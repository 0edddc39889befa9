// Package dErrors provides coded domain errors. Services create or wrap
// errors with a Code; transport layers translate codes into HTTP statuses and
// callers branch on HasCode without string matching.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Codes are part of the API surface: they are
// returned verbatim in error envelopes, so renaming one is a breaking change.
type Code string

const (
	// Generic codes.
	CodeValidation         Code = "validation_failed"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"

	// Ledger codes.
	CodeZeroRecipient         Code = "zero_recipient"
	CodeInsufficientBalance   Code = "insufficient_balance"
	CodeInsufficientAllowance Code = "insufficient_allowance"

	// Presigned execution codes.
	CodeSignatureMismatch Code = "signature_mismatch"
	CodeSignatureReplay   Code = "signature_replay"

	// Sale codes.
	CodeZeroPayment        Code = "zero_payment"
	CodeSaleNotOpen        Code = "sale_not_open"
	CodeCapExceeded        Code = "cap_exceeded"
	CodeSaleStillOpen      Code = "sale_still_open"
	CodeNothingRemaining   Code = "nothing_remaining"
	CodeInsufficientSupply Code = "insufficient_supply"
)

// Error is a domain error with a classification code. The wrapped cause, if
// any, is preserved for errors.Is/As chains.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a code and message, keeping err in the chain.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is re-exports errors.Is so callers using this package for error handling
// don't need a second import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in domain logic.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvalidInput,
		CodeZeroRecipient, CodeZeroPayment:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation, CodeSignatureReplay,
		CodeSaleNotOpen, CodeSaleStillOpen, CodeNothingRemaining:
		return http.StatusConflict
	case CodeInsufficientBalance, CodeInsufficientAllowance,
		CodeCapExceeded, CodeInsufficientSupply:
		return http.StatusUnprocessableEntity
	case CodeSignatureMismatch:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
