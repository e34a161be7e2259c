package ledger

import (
	"time"

	"github.com/danarta/loan-billing/internal/domain"
	customError "github.com/danarta/loan-billing/pkg/errors"
	"github.com/danarta/loan-billing/pkg/utils"

	"github.com/shopspring/decimal"
)

// Tolerance absorbs floating-point rounding in monetary comparisons.
// Amounts within one cent of each other are considered equal.
var Tolerance = decimal.New(1, -2)

// Allocation is the result of applying a payment: the full schedule with
// the covered installments marked paid, plus the data a payment record
// needs. The input schedule is never mutated; callers persist the returned
// installments and discard their stale copy.
type Allocation struct {
	Installments []*domain.Installment
	CoveredWeeks []int
	Amount       decimal.Decimal
	PaymentDate  time.Time
}

// Allocate applies a payment of amount against the installments due on or
// before evaluationDate, oldest first. Payment is strictly exact-match:
// the amount must equal the sum of every due unpaid installment within
// Tolerance, so a single payment always settles the whole due set and
// never part of an installment. Overpayment toward future installments is
// rejected the same way.
//
// Fails with ErrNoDuePayments when nothing is due (which is also the
// "already paid" signal for a repeated call), or *IncorrectAmountError
// carrying the expected amount when the amount does not match.
func Allocate(installments []*domain.Installment, amount decimal.Decimal, evaluationDate time.Time) (*Allocation, error) {
	today := utils.DateOnly(evaluationDate)

	due := DueSet(installments, today)
	if len(due) == 0 {
		return nil, customError.ErrNoDuePayments
	}

	expected := decimal.Zero
	for _, inst := range due {
		expected = expected.Add(inst.Amount)
	}

	if amount.Sub(expected).Abs().GreaterThan(Tolerance) {
		return nil, &customError.IncorrectAmountError{Expected: expected, Actual: amount}
	}

	// Work on a copy so a failed persist leaves the caller's snapshot intact.
	updated := make([]*domain.Installment, len(installments))
	for i, inst := range installments {
		clone := *inst
		updated[i] = &clone
	}

	covered := make([]int, 0, len(due))
	for _, inst := range updated {
		if !inst.Paid && !utils.DateOnly(inst.DueDate).After(today) {
			inst.Paid = true
			covered = append(covered, inst.WeekNumber)
		}
	}

	return &Allocation{
		Installments: updated,
		CoveredWeeks: covered,
		Amount:       amount,
		PaymentDate:  today,
	}, nil
}

// DueSet returns the unpaid installments whose due date is on or before
// evaluationDate, ordered by week number ascending. Note the boundary:
// an installment due today is payable but not yet missed (see Evaluate).
func DueSet(installments []*domain.Installment, evaluationDate time.Time) []*domain.Installment {
	today := utils.DateOnly(evaluationDate)

	var due []*domain.Installment
	for _, inst := range installments {
		if !inst.Paid && !utils.DateOnly(inst.DueDate).After(today) {
			due = append(due, inst)
		}
	}
	return due
}
