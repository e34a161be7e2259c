package repository

import (
	"context"

	"github.com/danarta/loan-billing/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create persists a new loan together with its full installment
	// schedule in one transaction.
	Create(ctx context.Context, loan *domain.Loan, schedule []*domain.Installment) error

	// GetByBorrowerID retrieves the borrower's loan
	GetByBorrowerID(ctx context.Context, borrowerID string) (*domain.Loan, error)

	// GetInstallments retrieves the loan's schedule ordered by week number
	GetInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)

	// ApplyPayment persists one payment as a unit: marks the covered
	// installments paid, writes the loan's new outstanding balance and
	// status, and appends the payment record. All inside one transaction
	// so a reader never observes a torn intermediate state.
	ApplyPayment(ctx context.Context, loan *domain.Loan, coveredWeeks []int, payment *domain.Payment) error

	// UpdateDelinquent stores the delinquency flag on the loan
	UpdateDelinquent(ctx context.Context, loanID uuid.UUID, delinquent bool) error

	// ListActive retrieves every loan still in active status
	ListActive(ctx context.Context) ([]*domain.Loan, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// GetByLoanID retrieves all payments for a loan, oldest first
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// GetTotalPaid calculates total amount paid for a loan
	GetTotalPaid(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
}
