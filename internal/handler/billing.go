package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danarta/loan-billing/internal/domain"
	"github.com/danarta/loan-billing/internal/service"
	customError "github.com/danarta/loan-billing/pkg/errors"
	"github.com/danarta/loan-billing/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type BillingHandler struct {
	service   service.Billing
	validator *validator.Validate
}

func NewBillingHandler(service service.Billing) *BillingHandler {
	return &BillingHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateLoan handles POST /loans
func (h *BillingHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "request validation failed", err)
		return
	}

	loan, schedule, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, domain.CreateLoanResponse{Loan: loan, Schedule: schedule})
}

// GetOutstanding handles GET /loans/{borrowerId}/outstanding
func (h *BillingHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	borrowerID := mux.Vars(r)["borrowerId"]

	outstanding, err := h.service.GetOutstanding(r.Context(), borrowerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.OutstandingResponse{
		BorrowerID:  borrowerID,
		Outstanding: outstanding,
	})
}

// GetSchedule handles GET /loans/{borrowerId}/schedule
func (h *BillingHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	borrowerID := mux.Vars(r)["borrowerId"]

	schedule, err := h.service.GetSchedule(r.Context(), borrowerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.ScheduleResponse{
		BorrowerID: borrowerID,
		Schedule:   schedule,
	})
}

// IsDelinquent handles GET /loans/{borrowerId}/delinquent
func (h *BillingHandler) IsDelinquent(w http.ResponseWriter, r *http.Request) {
	borrowerID := mux.Vars(r)["borrowerId"]

	delinquent, missedWeeks, err := h.service.IsDelinquent(r.Context(), borrowerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.DelinquentResponse{
		BorrowerID:   borrowerID,
		IsDelinquent: delinquent,
		MissedWeeks:  missedWeeks,
	})
}

// MakePayment handles POST /loans/{borrowerId}/pay
func (h *BillingHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	borrowerID := mux.Vars(r)["borrowerId"]

	var request domain.MakePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "request validation failed", err)
		return
	}

	payment, outstanding, err := h.service.MakePayment(r.Context(), borrowerID, request.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.MakePaymentResponse{
		Payment:     payment,
		Outstanding: outstanding,
	})
}

// GetPayments handles GET /loans/{borrowerId}/payments
func (h *BillingHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	borrowerID := mux.Vars(r)["borrowerId"]

	payments, err := h.service.GetPayments(r.Context(), borrowerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.PaymentHistoryResponse{
		BorrowerID: borrowerID,
		Payments:   payments,
	})
}

// writeError maps business error codes onto HTTP statuses. Every business
// failure is terminal to the request but recoverable by the client.
func (h *BillingHandler) writeError(w http.ResponseWriter, err error) {
	var bizErr *customError.BusinessError
	if !errors.As(err, &bizErr) {
		response.InternalServerError(w, "unexpected error", err)
		return
	}

	status := http.StatusInternalServerError
	switch bizErr.Code {
	case customError.ErrCodeLoanNotFound:
		status = http.StatusNotFound
	case customError.ErrCodeLoanAlreadyExists:
		status = http.StatusConflict
	case customError.ErrCodeInvalidTerms,
		customError.ErrCodeNoDuePayments,
		customError.ErrCodeLoanFullyPaid,
		customError.ErrCodeIncorrectAmount:
		status = http.StatusBadRequest
	}

	response.ErrorWithCode(w, status, bizErr.Code, bizErr.Message, bizErr.Err)
}
