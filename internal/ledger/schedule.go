// Package ledger implements the loan schedule and payment ledger engine:
// generating a fixed weekly payment schedule from loan terms, allocating
// incoming payments against due installments, and evaluating delinquency.
// Everything in this package is pure computation over in-memory state; all
// I/O belongs to the service and repository layers.
package ledger

import (
	"fmt"
	"time"

	"github.com/danarta/loan-billing/internal/domain"
	customError "github.com/danarta/loan-billing/pkg/errors"
	"github.com/danarta/loan-billing/pkg/utils"

	"github.com/shopspring/decimal"
)

// GenerateSchedule derives the full installment schedule from loan terms.
// Every installment carries the same rounded weekly amount; week 1 is due
// on the start date itself and each following week 7 days later. The
// fractional-cent remainder left by rounding the weekly division is not
// redistributed across installments.
func GenerateSchedule(principal decimal.Decimal, weeks int, interestRate decimal.Decimal, startDate time.Time) ([]*domain.Installment, error) {
	if err := ValidateTerms(principal, weeks, interestRate, startDate); err != nil {
		return nil, err
	}

	weekly := utils.WeeklyAmount(principal, interestRate, weeks)

	installments := make([]*domain.Installment, 0, weeks)
	for week := 1; week <= weeks; week++ {
		installments = append(installments, &domain.Installment{
			WeekNumber: week,
			Amount:     weekly,
			DueDate:    utils.DueDate(startDate, week),
			Paid:       false,
		})
	}

	return installments, nil
}

// ValidateTerms checks the schedule preconditions. Violations surface as
// ErrInvalidTerms; terms are never silently coerced.
func ValidateTerms(principal decimal.Decimal, weeks int, interestRate decimal.Decimal, startDate time.Time) error {
	if principal.Sign() <= 0 {
		return fmt.Errorf("%w: principal must be positive, got %s", customError.ErrInvalidTerms, principal)
	}
	if weeks < 1 {
		return fmt.Errorf("%w: term must be at least 1 week, got %d", customError.ErrInvalidTerms, weeks)
	}
	if interestRate.Sign() < 0 {
		return fmt.Errorf("%w: interest rate must not be negative, got %s", customError.ErrInvalidTerms, interestRate)
	}
	if startDate.IsZero() {
		return fmt.Errorf("%w: start date is required", customError.ErrInvalidTerms)
	}
	return nil
}

// Outstanding recomputes the balance invariant from first principles:
// total payable minus the sum of all paid installment amounts.
func Outstanding(totalPayable decimal.Decimal, installments []*domain.Installment) decimal.Decimal {
	outstanding := totalPayable
	for _, inst := range installments {
		if inst.Paid {
			outstanding = outstanding.Sub(inst.Amount)
		}
	}
	return outstanding
}
