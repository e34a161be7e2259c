package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danarta/loan-billing/internal/config"
	"github.com/danarta/loan-billing/internal/domain"
	"github.com/danarta/loan-billing/internal/ledger"
	"github.com/danarta/loan-billing/internal/repository"
	customError "github.com/danarta/loan-billing/pkg/errors"
	"github.com/danarta/loan-billing/pkg/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Billing is the service surface the HTTP handlers depend on.
type Billing interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, []*domain.Installment, error)
	GetOutstanding(ctx context.Context, borrowerID string) (decimal.Decimal, error)
	GetSchedule(ctx context.Context, borrowerID string) ([]*domain.Installment, error)
	IsDelinquent(ctx context.Context, borrowerID string) (bool, []int, error)
	MakePayment(ctx context.Context, borrowerID string, amount decimal.Decimal) (*domain.Payment, decimal.Decimal, error)
	GetPayments(ctx context.Context, borrowerID string) ([]*domain.Payment, error)
}

// BillingService orchestrates the ledger engine against storage: it loads a
// loan's state, invokes the pure schedule/allocation/delinquency operations,
// and persists whatever they produce. Payment application is serialized per
// loan by the repository transaction.
type BillingService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository

	redis *redis.Client
	cfg   *config.Config

	// Now supplies the evaluation date; overridable in tests.
	Now func() time.Time
}

func NewBillingService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	redisClient *redis.Client,
	cfg *config.Config,
) *BillingService {
	return &BillingService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		redis:       redisClient,
		cfg:         cfg,
		Now:         time.Now,
	}
}

// CreateLoan creates a new loan with its full installment schedule. A
// borrower can hold only one loan; a second create is rejected.
func (s *BillingService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, []*domain.Installment, error) {
	existing, err := s.LoanRepo.GetByBorrowerID(ctx, request.BorrowerID)
	if err == nil && existing != nil {
		return nil, nil, customError.WrapLoanAlreadyExists(request.BorrowerID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	startDate := utils.DateOnly(s.Now())
	if request.StartDate != "" {
		startDate, err = utils.ParseDate(request.StartDate)
		if err != nil {
			return nil, nil, customError.WrapInvalidTerms("start_date must be a valid date (YYYY-MM-DD)")
		}
	}

	schedule, err := ledger.GenerateSchedule(request.Principal, request.TermWeeks, request.InterestRate, startDate)
	if err != nil {
		return nil, nil, customError.NewBusinessError(customError.ErrCodeInvalidTerms, err.Error(), err)
	}

	now := s.Now()
	loan := &domain.Loan{
		ID:           uuid.New(),
		BorrowerID:   request.BorrowerID,
		Principal:    request.Principal,
		InterestRate: request.InterestRate,
		TermWeeks:    request.TermWeeks,
		WeeklyAmount: schedule[0].Amount,
		StartDate:    utils.DateOnly(startDate),
		Status:       domain.LoanStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	loan.Outstanding = loan.TotalPayable()

	for _, inst := range schedule {
		inst.ID = uuid.New()
		inst.LoanID = loan.ID
		inst.CreatedAt = now
	}

	if err = s.LoanRepo.Create(ctx, loan, schedule); err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	s.cacheOutstanding(ctx, loan.BorrowerID, loan.Outstanding)

	return loan, schedule, nil
}

// GetOutstanding returns the remaining amount owed on the borrower's loan,
// serving from cache when possible.
func (s *BillingService) GetOutstanding(ctx context.Context, borrowerID string) (decimal.Decimal, error) {
	if cached, ok := s.cachedOutstanding(ctx, borrowerID); ok {
		return cached, nil
	}

	loan, err := s.loadLoan(ctx, borrowerID)
	if err != nil {
		return decimal.Zero, err
	}

	s.cacheOutstanding(ctx, borrowerID, loan.Outstanding)

	return loan.Outstanding, nil
}

// GetSchedule returns the full installment schedule for the borrower's loan.
func (s *BillingService) GetSchedule(ctx context.Context, borrowerID string) ([]*domain.Installment, error) {
	loan, err := s.loadLoan(ctx, borrowerID)
	if err != nil {
		return nil, err
	}

	installments, err := s.LoanRepo.GetInstallments(ctx, loan.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return installments, nil
}

// IsDelinquent evaluates the borrower's loan as of today and returns the
// delinquency flag along with the week numbers of missed installments.
func (s *BillingService) IsDelinquent(ctx context.Context, borrowerID string) (bool, []int, error) {
	loan, err := s.loadLoan(ctx, borrowerID)
	if err != nil {
		return false, nil, err
	}

	installments, err := s.LoanRepo.GetInstallments(ctx, loan.ID)
	if err != nil {
		return false, nil, customError.WrapDatabaseError(err)
	}

	delinquent, missed := ledger.Evaluate(installments, s.Now())

	missedWeeks := make([]int, 0, len(missed))
	for _, inst := range missed {
		missedWeeks = append(missedWeeks, inst.WeekNumber)
	}

	return delinquent, missedWeeks, nil
}

// MakePayment applies a payment against the borrower's due installments.
// The amount must match the sum of every installment due today or earlier;
// anything else is rejected without touching state.
func (s *BillingService) MakePayment(ctx context.Context, borrowerID string, amount decimal.Decimal) (*domain.Payment, decimal.Decimal, error) {
	loan, err := s.loadLoan(ctx, borrowerID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	installments, err := s.LoanRepo.GetInstallments(ctx, loan.ID)
	if err != nil {
		return nil, decimal.Zero, customError.WrapDatabaseError(err)
	}

	alloc, err := ledger.Allocate(installments, amount, s.Now())
	if err != nil {
		var mismatch *customError.IncorrectAmountError
		switch {
		case errors.As(err, &mismatch):
			return nil, decimal.Zero, customError.WrapIncorrectAmount(mismatch)
		case errors.Is(err, customError.ErrNoDuePayments):
			// An empty due set covers two cases the core does not
			// distinguish: fully paid off, or the next installment
			// simply not due yet.
			if countUnpaid(installments) == 0 {
				return nil, decimal.Zero, customError.WrapLoanFullyPaid(borrowerID)
			}
			return nil, decimal.Zero, customError.WrapNoDuePayments(borrowerID)
		default:
			return nil, decimal.Zero, err
		}
	}

	loan.Outstanding = loan.Outstanding.Sub(alloc.Amount)
	if countUnpaid(alloc.Installments) == 0 {
		loan.Status = domain.LoanStatusSettled
	}

	coveredWeeks := make(pq.Int64Array, 0, len(alloc.CoveredWeeks))
	for _, week := range alloc.CoveredWeeks {
		coveredWeeks = append(coveredWeeks, int64(week))
	}

	payment := &domain.Payment{
		ID:           uuid.New(),
		LoanID:       loan.ID,
		BorrowerID:   borrowerID,
		Amount:       alloc.Amount,
		PaymentDate:  alloc.PaymentDate,
		CoveredWeeks: coveredWeeks,
		CreatedAt:    s.Now(),
	}

	if err = s.LoanRepo.ApplyPayment(ctx, loan, alloc.CoveredWeeks, payment); err != nil {
		return nil, decimal.Zero, customError.WrapDatabaseError(err)
	}

	s.invalidateOutstanding(ctx, borrowerID)

	return payment, loan.Outstanding, nil
}

// GetPayments returns the borrower's payment history, oldest first.
func (s *BillingService) GetPayments(ctx context.Context, borrowerID string) ([]*domain.Payment, error) {
	loan, err := s.loadLoan(ctx, borrowerID)
	if err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.GetByLoanID(ctx, loan.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return payments, nil
}

// MarkDelinquents sweeps every active loan, evaluates it as of today and
// persists the delinquency flag. Returns the number of loans whose flag
// changed. Run daily by the scheduler.
func (s *BillingService) MarkDelinquents(ctx context.Context) (int, error) {
	loans, err := s.LoanRepo.ListActive(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	changed := 0
	for _, loan := range loans {
		installments, err := s.LoanRepo.GetInstallments(ctx, loan.ID)
		if err != nil {
			return changed, customError.WrapDatabaseError(err)
		}

		delinquent, _ := ledger.Evaluate(installments, s.Now())
		if delinquent == loan.Delinquent {
			continue
		}

		if err = s.LoanRepo.UpdateDelinquent(ctx, loan.ID, delinquent); err != nil {
			return changed, customError.WrapDatabaseError(err)
		}
		changed++
	}

	return changed, nil
}

func (s *BillingService) loadLoan(ctx context.Context, borrowerID string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByBorrowerID(ctx, borrowerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(borrowerID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func countUnpaid(installments []*domain.Installment) int {
	unpaid := 0
	for _, inst := range installments {
		if !inst.Paid {
			unpaid++
		}
	}
	return unpaid
}

// Cache helpers. The cache is best-effort: misses and redis failures fall
// through to the database, and a nil client disables caching entirely.

func outstandingKey(borrowerID string) string {
	return fmt.Sprintf("loan:%s:outstanding", borrowerID)
}

func (s *BillingService) cachedOutstanding(ctx context.Context, borrowerID string) (decimal.Decimal, bool) {
	if s.redis == nil {
		return decimal.Zero, false
	}

	raw, err := s.redis.Get(ctx, outstandingKey(borrowerID)).Result()
	if err != nil {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}

	return value, true
}

func (s *BillingService) cacheOutstanding(ctx context.Context, borrowerID string, outstanding decimal.Decimal) {
	if s.redis == nil {
		return
	}
	s.redis.Set(ctx, outstandingKey(borrowerID), outstanding.StringFixed(2), s.cfg.Cache.TTL)
}

func (s *BillingService) invalidateOutstanding(ctx context.Context, borrowerID string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, outstandingKey(borrowerID))
}
