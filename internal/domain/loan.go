package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive  = "active"
	LoanStatusSettled = "settled"
)

// Loan represents a borrower's installment loan. A borrower holds at most
// one active loan at a time; that uniqueness is enforced at creation.
type Loan struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	BorrowerID   string          `json:"borrower_id" db:"borrower_id"`
	Principal    decimal.Decimal `json:"principal" db:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	TermWeeks    int             `json:"term_weeks" db:"term_weeks"`
	WeeklyAmount decimal.Decimal `json:"weekly_amount" db:"weekly_amount"`
	Outstanding  decimal.Decimal `json:"outstanding" db:"outstanding"`
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	Status       string          `json:"status" db:"status"`
	Delinquent   bool            `json:"delinquent" db:"delinquent"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// TotalPayable is the flat-interest total owed over the life of the loan:
// principal * (1 + rate). Interest is applied once, not compounded.
func (l *Loan) TotalPayable() decimal.Decimal {
	return l.Principal.Add(l.Principal.Mul(l.InterestRate))
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	BorrowerID   string          `json:"borrower_id" validate:"required"`
	Principal    decimal.Decimal `json:"principal" validate:"required"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	TermWeeks    int             `json:"term_weeks" validate:"required,gt=0"`
	StartDate    string          `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

type MakePaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type CreateLoanResponse struct {
	Loan     *Loan          `json:"loan"`
	Schedule []*Installment `json:"schedule"`
}

type OutstandingResponse struct {
	BorrowerID  string          `json:"borrower_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type DelinquentResponse struct {
	BorrowerID   string `json:"borrower_id"`
	IsDelinquent bool   `json:"is_delinquent"`
	MissedWeeks  []int  `json:"missed_weeks"`
}

type MakePaymentResponse struct {
	Payment     *Payment        `json:"payment"`
	Outstanding decimal.Decimal `json:"outstanding"`
}
