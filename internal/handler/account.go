package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
	"github.com/kwesi-damoah/atlas-ledger/internal/service"
)

type accountService interface {
	OpenAccount(ctx context.Context, req service.OpenAccountRequest) (*domain.Account, error)
	GetAccountSummary(ctx context.Context, accountID, userID uuid.UUID) (*service.AccountSummary, error)
	GetUserAccounts(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	DeactivateAccount(ctx context.Context, accountID, userID uuid.UUID) error
}

type AccountHandler struct {
	accounts accountService
}

func NewAccountHandler(accounts accountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type openAccountRequest struct {
	Type           string `json:"type"`
	Currency       string `json:"currency"`
	OverdraftLimit int64  `json:"overdraft_limit"`
}

func (r openAccountRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Type == "" {
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	} else if !domain.AccountType(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "must be checking, savings, business, or investment"})
	}

	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	} else if !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be a 3-letter currency code"})
	}

	if r.OverdraftLimit < 0 {
		errs = append(errs, FieldError{Field: "overdraft_limit", Message: "must not be negative"})
	}

	return errs
}

type accountDTO struct {
	ID             uuid.UUID       `json:"id"`
	Number         string          `json:"account_number"`
	Type           string          `json:"type"`
	Balance        int64           `json:"balance"`
	Currency       string          `json:"currency"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	OverdraftLimit int64           `json:"overdraft_limit"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:             a.ID,
		Number:         a.Number,
		Type:           string(a.Type),
		Balance:        a.Balance,
		Currency:       string(a.Currency),
		InterestRate:   a.InterestRate,
		OverdraftLimit: a.OverdraftLimit,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
	}
}

func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(r)
	if !ok {
		RespondAppError(w, ErrMissingUserID, nil)
		return
	}

	var req openAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.accounts.OpenAccount(r.Context(), service.OpenAccountRequest{
		UserID:         userID,
		Type:           domain.AccountType(req.Type),
		Currency:       domain.Currency(req.Currency),
		OverdraftLimit: req.OverdraftLimit,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toAccountDTO(account))
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(r)
	if !ok {
		RespondAppError(w, ErrMissingUserID, nil)
		return
	}

	accounts, err := h.accounts.GetUserAccounts(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]accountDTO, 0, len(accounts))
	for i := range accounts {
		dtos = append(dtos, toAccountDTO(&accounts[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

type accountSummaryDTO struct {
	Account            accountDTO       `json:"account"`
	RecentTransactions []transactionDTO `json:"recent_transactions"`
}

func (h *AccountHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(r)
	if !ok {
		RespondAppError(w, ErrMissingUserID, nil)
		return
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	summary, err := h.accounts.GetAccountSummary(r.Context(), accountID, userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dto := accountSummaryDTO{
		Account:            toAccountDTO(summary.Account),
		RecentTransactions: make([]transactionDTO, 0, len(summary.RecentTransactions)),
	}
	for i := range summary.RecentTransactions {
		dto.RecentTransactions = append(dto.RecentTransactions, toTransactionDTO(&summary.RecentTransactions[i]))
	}

	RespondSuccess(w, http.StatusOK, dto)
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(r)
	if !ok {
		RespondAppError(w, ErrMissingUserID, nil)
		return
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if err := h.accounts.DeactivateAccount(r.Context(), accountID, userID); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
