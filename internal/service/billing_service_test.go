package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/danarta/loan-billing/internal/domain"
	customError "github.com/danarta/loan-billing/pkg/errors"
	"github.com/danarta/loan-billing/tests/mocks"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testToday = time.Date(2025, 3, 16, 10, 30, 0, 0, time.UTC)
	testStart = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) // 6 days before testToday
)

func newTestService(loanRepo *mocks.MockLoanRepository, paymentRepo *mocks.MockPaymentRepository) *BillingService {
	return &BillingService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		Now:         func() time.Time { return testToday },
	}
}

func testLoan() *domain.Loan {
	return &domain.Loan{
		ID:           uuid.New(),
		BorrowerID:   "user123",
		Principal:    decimal.NewFromInt(500),
		InterestRate: decimal.NewFromFloat(0.1),
		TermWeeks:    50,
		WeeklyAmount: decimal.NewFromInt(11),
		Outstanding:  decimal.NewFromInt(550),
		StartDate:    testStart,
		Status:       domain.LoanStatusActive,
	}
}

func testInstallments(loan *domain.Loan, paidThrough int) []*domain.Installment {
	installments := make([]*domain.Installment, 0, loan.TermWeeks)
	for week := 1; week <= loan.TermWeeks; week++ {
		installments = append(installments, &domain.Installment{
			ID:         uuid.New(),
			LoanID:     loan.ID,
			WeekNumber: week,
			Amount:     loan.WeeklyAmount,
			DueDate:    loan.StartDate.AddDate(0, 0, 7*(week-1)),
			Paid:       week <= paidThrough,
		})
	}
	return installments
}

func TestCreateLoan_Success(t *testing.T) {
	// Arrange
	mockLoanRepo := &mocks.MockLoanRepository{}
	mockPaymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(mockLoanRepo, mockPaymentRepo)

	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(nil, sql.ErrNoRows)
	mockLoanRepo.On("Create", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
		return loan.BorrowerID == "user123" && loan.Outstanding.Equal(decimal.NewFromInt(550))
	}), mock.MatchedBy(func(schedule []*domain.Installment) bool {
		return len(schedule) == 50
	})).Return(nil)

	request := &domain.CreateLoanRequest{
		BorrowerID:   "user123",
		Principal:    decimal.NewFromInt(500),
		InterestRate: decimal.NewFromFloat(0.1),
		TermWeeks:    50,
		StartDate:    "2025-03-10",
	}

	// Act
	loan, schedule, err := svc.CreateLoan(context.Background(), request)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user123", loan.BorrowerID)
	assert.True(t, loan.WeeklyAmount.Equal(decimal.NewFromInt(11)))
	assert.True(t, loan.Outstanding.Equal(decimal.NewFromInt(550)))
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.True(t, loan.StartDate.Equal(testStart))
	require.Len(t, schedule, 50)

	for _, inst := range schedule {
		assert.Equal(t, loan.ID, inst.LoanID)
		assert.NotEqual(t, uuid.Nil, inst.ID)
	}

	mockLoanRepo.AssertExpectations(t)
}

func TestCreateLoan_DefaultsStartDateToToday(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(nil, sql.ErrNoRows)
	mockLoanRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	request := &domain.CreateLoanRequest{
		BorrowerID:   "user123",
		Principal:    decimal.NewFromInt(500),
		InterestRate: decimal.NewFromFloat(0.1),
		TermWeeks:    50,
	}

	loan, schedule, err := svc.CreateLoan(context.Background(), request)

	require.NoError(t, err)
	wantStart := time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)
	assert.True(t, loan.StartDate.Equal(wantStart))
	assert.True(t, schedule[0].DueDate.Equal(wantStart))
}

func TestCreateLoan_AlreadyExists(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(testLoan(), nil)

	request := &domain.CreateLoanRequest{
		BorrowerID:   "user123",
		Principal:    decimal.NewFromInt(500),
		InterestRate: decimal.NewFromFloat(0.1),
		TermWeeks:    50,
	}

	loan, schedule, err := svc.CreateLoan(context.Background(), request)

	assert.Nil(t, loan)
	assert.Nil(t, schedule)
	assertBusinessCode(t, err, customError.ErrCodeLoanAlreadyExists)
	mockLoanRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateLoan_InvalidTerms(t *testing.T) {
	tests := []struct {
		name    string
		request *domain.CreateLoanRequest
	}{
		{
			name: "negative principal",
			request: &domain.CreateLoanRequest{
				BorrowerID: "user123",
				Principal:  decimal.NewFromInt(-500),
				TermWeeks:  50,
			},
		},
		{
			name: "negative interest rate",
			request: &domain.CreateLoanRequest{
				BorrowerID:   "user123",
				Principal:    decimal.NewFromInt(500),
				InterestRate: decimal.NewFromFloat(-0.1),
				TermWeeks:    50,
			},
		},
		{
			name: "malformed start date",
			request: &domain.CreateLoanRequest{
				BorrowerID: "user123",
				Principal:  decimal.NewFromInt(500),
				TermWeeks:  50,
				StartDate:  "10/03/2025",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLoanRepo := &mocks.MockLoanRepository{}
			svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

			mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(nil, sql.ErrNoRows)

			loan, schedule, err := svc.CreateLoan(context.Background(), tt.request)

			assert.Nil(t, loan)
			assert.Nil(t, schedule)
			assertBusinessCode(t, err, customError.ErrCodeInvalidTerms)
			mockLoanRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetOutstanding_Success(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(testLoan(), nil)

	outstanding, err := svc.GetOutstanding(context.Background(), "user123")

	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.NewFromInt(550)))
}

func TestGetOutstanding_LoanNotFound(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "ghost").Return(nil, sql.ErrNoRows)

	_, err := svc.GetOutstanding(context.Background(), "ghost")

	assertBusinessCode(t, err, customError.ErrCodeLoanNotFound)
}

func TestIsDelinquent(t *testing.T) {
	tests := []struct {
		name        string
		daysAgo     int
		paidThrough int
		delinquent  bool
		missedWeeks []int
	}{
		{"new loan with one past-due week", 6, 0, false, []int{1}},
		{"two weeks behind", 8, 0, true, []int{1, 2}},
		{"caught up", 8, 2, false, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLoanRepo := &mocks.MockLoanRepository{}
			svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

			loan := testLoan()
			loan.StartDate = testToday.AddDate(0, 0, -tt.daysAgo)
			loan.StartDate = time.Date(loan.StartDate.Year(), loan.StartDate.Month(), loan.StartDate.Day(), 0, 0, 0, 0, time.UTC)

			mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(loan, nil)
			mockLoanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(testInstallments(loan, tt.paidThrough), nil)

			delinquent, missedWeeks, err := svc.IsDelinquent(context.Background(), "user123")

			require.NoError(t, err)
			assert.Equal(t, tt.delinquent, delinquent)
			assert.Equal(t, tt.missedWeeks, missedWeeks)
		})
	}
}

func TestMakePayment_Success(t *testing.T) {
	// Arrange: loan started 6 days ago, only week 1 due
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	loan := testLoan()
	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(loan, nil)
	mockLoanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(testInstallments(loan, 0), nil)
	mockLoanRepo.On("ApplyPayment", mock.Anything, mock.MatchedBy(func(l *domain.Loan) bool {
		return l.Outstanding.Equal(decimal.NewFromInt(539)) && l.Status == domain.LoanStatusActive
	}), []int{1}, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.BorrowerID == "user123" &&
			p.Amount.Equal(decimal.NewFromInt(11)) &&
			len(p.CoveredWeeks) == 1 && p.CoveredWeeks[0] == 1
	})).Return(nil)

	// Act
	payment, outstanding, err := svc.MakePayment(context.Background(), "user123", decimal.NewFromInt(11))

	// Assert
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.NewFromInt(539)))
	assert.Equal(t, pq.Int64Array{1}, payment.CoveredWeeks)
	assert.True(t, payment.PaymentDate.Equal(testStart.AddDate(0, 0, 6)))
	mockLoanRepo.AssertExpectations(t)
}

func TestMakePayment_IncorrectAmount(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	loan := testLoan()
	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(loan, nil)
	mockLoanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(testInstallments(loan, 0), nil)

	payment, _, err := svc.MakePayment(context.Background(), "user123", decimal.NewFromInt(20))

	assert.Nil(t, payment)
	assertBusinessCode(t, err, customError.ErrCodeIncorrectAmount)

	var mismatch *customError.IncorrectAmountError
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, mismatch.Expected.Equal(decimal.NewFromInt(11)))

	mockLoanRepo.AssertNotCalled(t, "ApplyPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMakePayment_NothingDueYet(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	loan := testLoan()
	loan.StartDate = testToday.AddDate(0, 0, 3) // starts in the future
	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(loan, nil)
	mockLoanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(testInstallments(loan, 0), nil)

	payment, _, err := svc.MakePayment(context.Background(), "user123", decimal.NewFromInt(11))

	assert.Nil(t, payment)
	assertBusinessCode(t, err, customError.ErrCodeNoDuePayments)
}

func TestMakePayment_LoanFullyPaid(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	loan := testLoan()
	loan.Outstanding = decimal.Zero
	loan.Status = domain.LoanStatusSettled
	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(loan, nil)
	mockLoanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(testInstallments(loan, 50), nil)

	payment, _, err := svc.MakePayment(context.Background(), "user123", decimal.NewFromInt(11))

	assert.Nil(t, payment)
	assertBusinessCode(t, err, customError.ErrCodeLoanFullyPaid)
}

func TestMakePayment_FinalPaymentSettlesLoan(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	loan := testLoan()
	loan.Outstanding = decimal.NewFromInt(11)
	loan.StartDate = testToday.AddDate(0, 0, -7*50) // term fully elapsed
	loan.StartDate = time.Date(loan.StartDate.Year(), loan.StartDate.Month(), loan.StartDate.Day(), 0, 0, 0, 0, time.UTC)

	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(loan, nil)
	mockLoanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(testInstallments(loan, 49), nil)
	mockLoanRepo.On("ApplyPayment", mock.Anything, mock.MatchedBy(func(l *domain.Loan) bool {
		return l.Status == domain.LoanStatusSettled && l.Outstanding.IsZero()
	}), []int{50}, mock.Anything).Return(nil)

	payment, outstanding, err := svc.MakePayment(context.Background(), "user123", decimal.NewFromInt(11))

	require.NoError(t, err)
	assert.True(t, outstanding.IsZero())
	assert.Equal(t, pq.Int64Array{50}, payment.CoveredWeeks)
	mockLoanRepo.AssertExpectations(t)
}

func TestGetPayments_Success(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	mockPaymentRepo := &mocks.MockPaymentRepository{}
	svc := newTestService(mockLoanRepo, mockPaymentRepo)

	loan := testLoan()
	history := []*domain.Payment{
		{
			ID:           uuid.New(),
			LoanID:       loan.ID,
			BorrowerID:   "user123",
			Amount:       decimal.NewFromInt(11),
			CoveredWeeks: pq.Int64Array{1},
		},
	}

	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(loan, nil)
	mockPaymentRepo.On("GetByLoanID", mock.Anything, loan.ID).Return(history, nil)

	payments, err := svc.GetPayments(context.Background(), "user123")

	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(11)))
}

func TestMarkDelinquents(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	// Loan A: two weeks behind, flag not yet set
	loanA := testLoan()
	loanA.StartDate = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// Loan B: current, flag already correct
	loanB := testLoan()
	loanB.ID = uuid.New()
	loanB.BorrowerID = "user456"
	loanB.StartDate = time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)

	mockLoanRepo.On("ListActive", mock.Anything).Return([]*domain.Loan{loanA, loanB}, nil)
	mockLoanRepo.On("GetInstallments", mock.Anything, loanA.ID).Return(testInstallments(loanA, 0), nil)
	mockLoanRepo.On("GetInstallments", mock.Anything, loanB.ID).Return(testInstallments(loanB, 0), nil)
	mockLoanRepo.On("UpdateDelinquent", mock.Anything, loanA.ID, true).Return(nil)

	changed, err := svc.MarkDelinquents(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	mockLoanRepo.AssertExpectations(t)
	mockLoanRepo.AssertNotCalled(t, "UpdateDelinquent", mock.Anything, loanB.ID, mock.Anything)
}

func TestMakePayment_DatabaseError(t *testing.T) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	svc := newTestService(mockLoanRepo, &mocks.MockPaymentRepository{})

	loan := testLoan()
	mockLoanRepo.On("GetByBorrowerID", mock.Anything, "user123").Return(loan, nil)
	mockLoanRepo.On("GetInstallments", mock.Anything, loan.ID).Return(testInstallments(loan, 0), nil)
	mockLoanRepo.On("ApplyPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	payment, _, err := svc.MakePayment(context.Background(), "user123", decimal.NewFromInt(11))

	assert.Nil(t, payment)
	assertBusinessCode(t, err, customError.ErrCodeDatabaseError)
}

func assertBusinessCode(t *testing.T, err error, code string) {
	t.Helper()
	var bizErr *customError.BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, code, bizErr.Code)
}
