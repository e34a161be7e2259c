package mocks

import (
	"context"

	"github.com/danarta/loan-billing/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, []*domain.Installment, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Loan), args.Get(1).([]*domain.Installment), args.Error(2)
}

func (m *MockBillingService) GetOutstanding(ctx context.Context, borrowerID string) (decimal.Decimal, error) {
	args := m.Called(ctx, borrowerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBillingService) GetSchedule(ctx context.Context, borrowerID string) ([]*domain.Installment, error) {
	args := m.Called(ctx, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockBillingService) IsDelinquent(ctx context.Context, borrowerID string) (bool, []int, error) {
	args := m.Called(ctx, borrowerID)
	var weeks []int
	if args.Get(1) != nil {
		weeks = args.Get(1).([]int)
	}
	return args.Bool(0), weeks, args.Error(2)
}

func (m *MockBillingService) MakePayment(ctx context.Context, borrowerID string, amount decimal.Decimal) (*domain.Payment, decimal.Decimal, error) {
	args := m.Called(ctx, borrowerID, amount)
	if args.Get(0) == nil {
		return nil, decimal.Zero, args.Error(2)
	}
	return args.Get(0).(*domain.Payment), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockBillingService) GetPayments(ctx context.Context, borrowerID string) ([]*domain.Payment, error) {
	args := m.Called(ctx, borrowerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}
