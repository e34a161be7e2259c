package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment is one scheduled weekly obligation of a loan: a fixed amount
// due on a fixed date. Installments are created in a single batch at loan
// creation and are immutable except for the paid flag, which flips to true
// exactly once when a payment covers the installment.
type Installment struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	LoanID     uuid.UUID       `json:"loan_id" db:"loan_id"`
	WeekNumber int             `json:"week_number" db:"week_number"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	DueDate    time.Time       `json:"due_date" db:"due_date"`
	Paid       bool            `json:"paid" db:"paid"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type ScheduleResponse struct {
	BorrowerID string         `json:"borrower_id"`
	Schedule   []*Installment `json:"schedule"`
}
