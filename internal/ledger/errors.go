package ledger

import (
	"errors"
	"fmt"
)

// Error is a typed failure of a ledger transaction.
//
// The Code doubles as the outcome case recorded in the failure receipt, so a
// replayed log can be compared against the original outcome by string.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Address is the account the error refers to, if any.
	Address string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes ledger errors.
type ErrorCode string

const (
	// ErrCodeAuthentication indicates a required signature is missing or invalid.
	ErrCodeAuthentication ErrorCode = "AuthenticationError"

	// ErrCodeAllocation indicates the address is in use or the payer cannot cover rent.
	ErrCodeAllocation ErrorCode = "AllocationError"

	// ErrCodeCapacity indicates data does not fit the account's fixed space.
	ErrCodeCapacity ErrorCode = "CapacityError"

	// ErrCodeNotFound indicates the account does not exist or does not hold
	// the expected record.
	ErrCodeNotFound ErrorCode = "NotFoundError"

	// ErrCodeInvalidInstruction indicates the instruction does not match the
	// program interface.
	ErrCodeInvalidInstruction ErrorCode = "InvalidInstruction"

	// ErrCodeDuplicateTransaction indicates the transaction ID is already logged.
	ErrCodeDuplicateTransaction ErrorCode = "DuplicateTransaction"

	// ErrCodeIllegalWrite indicates a program tried to write an account it
	// does not own or that the instruction did not mark writable.
	ErrCodeIllegalWrite ErrorCode = "IllegalWrite"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("%s: %s (address=%s)", e.Code, e.Message, e.Address)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the ledger error code carried by err.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) (ErrorCode, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le.Code, true
	}
	return "", false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsAuthenticationError reports whether err is an authentication failure.
func IsAuthenticationError(err error) bool { return hasCode(err, ErrCodeAuthentication) }

// IsAllocationError reports whether err is an allocation failure.
func IsAllocationError(err error) bool { return hasCode(err, ErrCodeAllocation) }

// IsCapacityError reports whether err is a capacity failure.
func IsCapacityError(err error) bool { return hasCode(err, ErrCodeCapacity) }

// IsNotFoundError reports whether err is a missing-account failure.
func IsNotFoundError(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsDuplicateTransaction reports whether err rejected an already-logged transaction.
func IsDuplicateTransaction(err error) bool { return hasCode(err, ErrCodeDuplicateTransaction) }

// NewAuthenticationError creates an Error for a missing or invalid signature.
func NewAuthenticationError(role, address, reason string) *Error {
	return &Error{
		Code:    ErrCodeAuthentication,
		Message: reason,
		Address: address,
		Details: map[string]string{"role": role},
	}
}

// NewAllocationError creates an Error for a failed allocation.
func NewAllocationError(address, reason string) *Error {
	return &Error{
		Code:    ErrCodeAllocation,
		Message: reason,
		Address: address,
	}
}

// NewCapacityError creates an Error for data exceeding capacity.
func NewCapacityError(address string, size, capacity int64) *Error {
	return &Error{
		Code:    ErrCodeCapacity,
		Message: fmt.Sprintf("content needs %d bytes, capacity is %d", size, capacity),
		Address: address,
		Details: map[string]string{
			"size":     fmt.Sprintf("%d", size),
			"capacity": fmt.Sprintf("%d", capacity),
		},
	}
}

// NewNotFoundError creates an Error for a missing account.
func NewNotFoundError(address, reason string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: reason,
		Address: address,
	}
}

// NewInvalidInstructionError creates an Error for an instruction that does
// not match its program interface.
func NewInvalidInstructionError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidInstruction,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewDuplicateTransactionError creates an Error for an already-logged transaction.
func NewDuplicateTransactionError(txID string) *Error {
	return &Error{
		Code:    ErrCodeDuplicateTransaction,
		Message: "transaction already processed",
		Details: map[string]string{"transaction_id": txID},
	}
}

func newIllegalWriteError(address, reason string) *Error {
	return &Error{
		Code:    ErrCodeIllegalWrite,
		Message: reason,
		Address: address,
	}
}
