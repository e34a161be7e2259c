package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrLoanNotFound      = errors.New("loan not found")
	ErrLoanAlreadyExists = errors.New("borrower already has an active loan")
	ErrInvalidTerms      = errors.New("invalid loan terms")
	ErrNoDuePayments     = errors.New("no installments are currently due")
	ErrIncorrectAmount   = errors.New("payment amount does not match the amount due")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound      = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyExists = "LOAN_ALREADY_EXISTS"
	ErrCodeInvalidTerms      = "INVALID_TERMS"
	ErrCodeNoDuePayments     = "NO_DUE_PAYMENTS"
	ErrCodeLoanFullyPaid     = "LOAN_FULLY_PAID"
	ErrCodeIncorrectAmount   = "INCORRECT_AMOUNT"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeCacheError        = "CACHE_ERROR"
)

// IncorrectAmountError rejects a payment whose amount differs from the sum
// of the due installments by more than the monetary tolerance. It carries
// the expected amount so the caller can present it.
type IncorrectAmountError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *IncorrectAmountError) Error() string {
	return fmt.Sprintf("payment of %s does not match amount due %s",
		e.Actual.StringFixed(2), e.Expected.StringFixed(2))
}

func (e *IncorrectAmountError) Unwrap() error {
	return ErrIncorrectAmount
}

// Wrap common errors with business context

func WrapLoanNotFound(borrowerID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("no loan found for borrower %s", borrowerID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyExists(borrowerID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyExists,
		fmt.Sprintf("borrower %s already has an active loan", borrowerID),
		ErrLoanAlreadyExists,
	)
}

func WrapInvalidTerms(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTerms,
		reason,
		ErrInvalidTerms,
	)
}

func WrapNoDuePayments(borrowerID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoDuePayments,
		fmt.Sprintf("borrower %s has no installments due yet", borrowerID),
		ErrNoDuePayments,
	)
}

func WrapLoanFullyPaid(borrowerID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanFullyPaid,
		fmt.Sprintf("loan for borrower %s is fully paid", borrowerID),
		ErrNoDuePayments,
	)
}

func WrapIncorrectAmount(err *IncorrectAmountError) *BusinessError {
	return NewBusinessError(
		ErrCodeIncorrectAmount,
		fmt.Sprintf("must pay the exact amount due: %s", err.Expected.StringFixed(2)),
		err,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
