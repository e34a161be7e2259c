package ledger

import (
	"time"

	"github.com/danarta/loan-billing/internal/domain"
	"github.com/danarta/loan-billing/pkg/utils"
)

// DelinquencyThreshold is the number of missed installments that makes a
// borrower delinquent. A single late installment is tolerated (one cycle
// of grace); the second one trips the flag. Fixed business policy, not
// configuration.
const DelinquencyThreshold = 2

// Evaluate reports whether the loan is delinquent as of evaluationDate and
// returns the missed installments, ordered by week number ascending.
//
// An installment is missed when it is unpaid and its due date is strictly
// before the evaluation date: a payment on the due date itself is still
// timely, so the on-or-before rule used for payability (DueSet) and the
// strictly-before rule used here deliberately differ at that boundary.
func Evaluate(installments []*domain.Installment, evaluationDate time.Time) (bool, []*domain.Installment) {
	today := utils.DateOnly(evaluationDate)

	var missed []*domain.Installment
	for _, inst := range installments {
		if !inst.Paid && utils.DateOnly(inst.DueDate).Before(today) {
			missed = append(missed, inst)
		}
	}

	return len(missed) >= DelinquencyThreshold, missed
}
