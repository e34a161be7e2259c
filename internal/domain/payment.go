package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Payment records one successful payment against a loan. It is append-only:
// once written it is never mutated or deleted. CoveredWeeks lists the week
// numbers of the installments the payment discharged, in ascending order.
type Payment struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	LoanID       uuid.UUID       `json:"loan_id" db:"loan_id"`
	BorrowerID   string          `json:"borrower_id" db:"borrower_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate  time.Time       `json:"payment_date" db:"payment_date"`
	CoveredWeeks pq.Int64Array   `json:"covered_weeks" db:"covered_weeks"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

type PaymentHistoryResponse struct {
	BorrowerID string     `json:"borrower_id"`
	Payments   []*Payment `json:"payments"`
}
