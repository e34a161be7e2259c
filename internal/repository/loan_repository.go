package repository

import (
	"context"
	"time"

	"github.com/danarta/loan-billing/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan, schedule []*domain.Installment) error {
	loanQuery := `
		INSERT INTO loans (id, borrower_id, principal, interest_rate, term_weeks, weekly_amount, outstanding, start_date, status, delinquent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	scheduleQuery := `
		INSERT INTO installments (id, loan_id, week_number, amount, due_date, paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, loanQuery,
		loan.ID,
		loan.BorrowerID,
		loan.Principal,
		loan.InterestRate,
		loan.TermWeeks,
		loan.WeeklyAmount,
		loan.Outstanding,
		loan.StartDate,
		loan.Status,
		loan.Delinquent,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, inst := range schedule {
		_, err = tx.ExecContext(ctx, scheduleQuery,
			inst.ID,
			inst.LoanID,
			inst.WeekNumber,
			inst.Amount,
			inst.DueDate,
			inst.Paid,
			inst.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) GetByBorrowerID(ctx context.Context, borrowerID string) (*domain.Loan, error) {
	query := `
		SELECT id, borrower_id, principal, interest_rate, term_weeks, weekly_amount, outstanding, start_date, status, delinquent, created_at, updated_at
		FROM loans
		WHERE borrower_id = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, borrowerID); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	query := `
		SELECT id, loan_id, week_number, amount, due_date, paid, created_at
		FROM installments
		WHERE loan_id = $1
		ORDER BY week_number
	`

	var installments []*domain.Installment
	if err := r.db.SelectContext(ctx, &installments, query, loanID); err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *loanRepository) ApplyPayment(ctx context.Context, loan *domain.Loan, coveredWeeks []int, payment *domain.Payment) error {
	markPaidQuery := `
		UPDATE installments
		SET paid = TRUE
		WHERE loan_id = $1 AND week_number = ANY($2)
	`
	loanQuery := `
		UPDATE loans
		SET outstanding = $2, status = $3, updated_at = $4
		WHERE id = $1
	`
	paymentQuery := `
		INSERT INTO payments (id, loan_id, borrower_id, amount, payment_date, covered_weeks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	weeks := make([]int64, len(coveredWeeks))
	for i, w := range coveredWeeks {
		weeks[i] = int64(w)
	}

	if _, err = tx.ExecContext(ctx, markPaidQuery, loan.ID, pq.Array(weeks)); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, loanQuery, loan.ID, loan.Outstanding, loan.Status, time.Now()); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, paymentQuery,
		payment.ID,
		payment.LoanID,
		payment.BorrowerID,
		payment.Amount,
		payment.PaymentDate,
		payment.CoveredWeeks,
		payment.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) UpdateDelinquent(ctx context.Context, loanID uuid.UUID, delinquent bool) error {
	query := `
		UPDATE loans
		SET delinquent = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, loanID, delinquent, time.Now())
	return err
}

func (r *loanRepository) ListActive(ctx context.Context) ([]*domain.Loan, error) {
	query := `
		SELECT id, borrower_id, principal, interest_rate, term_weeks, weekly_amount, outstanding, start_date, status, delinquent, created_at, updated_at
		FROM loans
		WHERE status = $1
		ORDER BY created_at
	`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query, domain.LoanStatusActive); err != nil {
		return nil, err
	}

	return loans, nil
}
