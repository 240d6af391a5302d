package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
	"github.com/kwesi-damoah/atlas-ledger/internal/service/ledger"
)

type ledgerService interface {
	Submit(ctx context.Context, req ledger.SubmitRequest) (*domain.Transaction, error)
	GetTransactionForUser(ctx context.Context, transactionID, userID uuid.UUID) (*domain.Transaction, error)
	Cancel(ctx context.Context, transactionID, userID uuid.UUID) (*domain.Transaction, error)
}

type TransactionHandler struct {
	ledger ledgerService
}

func NewTransactionHandler(ledgerSvc ledgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledgerSvc}
}

type recipientPayload struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	Country       string `json:"country"`
	Currency      string `json:"currency"`
}

type submitTransactionRequest struct {
	SourceAccountID string            `json:"source_account_id"`
	DestAccountID   string            `json:"dest_account_id,omitempty"`
	Type            string            `json:"type"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency,omitempty"`
	Description     string            `json:"description"`
	Category        string            `json:"category,omitempty"`
	Recipient       *recipientPayload `json:"recipient,omitempty"`
}

func (r submitTransactionRequest) Validate() []FieldError {
	var errs []FieldError

	if r.SourceAccountID == "" {
		errs = append(errs, FieldError{Field: "source_account_id", Message: "required"})
	} else if _, err := uuid.Parse(r.SourceAccountID); err != nil {
		errs = append(errs, FieldError{Field: "source_account_id", Message: "must be a UUID"})
	}

	if r.DestAccountID != "" {
		if _, err := uuid.Parse(r.DestAccountID); err != nil {
			errs = append(errs, FieldError{Field: "dest_account_id", Message: "must be a UUID"})
		}
	}

	if r.Type == "" {
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	} else if !domain.TransactionType(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "must be transfer, deposit, withdrawal, payment, or international"})
	}

	if r.Amount < domain.MinTransactionAmount {
		errs = append(errs, FieldError{Field: "amount", Message: "must be at least 1 minor unit"})
	}

	if r.Description == "" {
		errs = append(errs, FieldError{Field: "description", Message: "required"})
	}

	if r.Currency != "" && !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be a 3-letter currency code"})
	}

	if domain.TransactionType(r.Type) == domain.TransactionTypeInternational && r.Recipient == nil {
		errs = append(errs, FieldError{Field: "recipient", Message: "required for international transactions"})
	}

	return errs
}

type transactionDTO struct {
	ID              uuid.UUID         `json:"id"`
	SourceAccountID uuid.UUID         `json:"source_account_id"`
	DestAccountID   *uuid.UUID        `json:"dest_account_id,omitempty"`
	Type            string            `json:"type"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Description     string            `json:"description"`
	Category        string            `json:"category"`
	Fee             int64             `json:"fee"`
	ExchangeRate    decimal.Decimal   `json:"exchange_rate"`
	RateFallback    bool              `json:"rate_fallback"`
	Recipient       *recipientPayload `json:"recipient,omitempty"`
	Status          string            `json:"status"`
	FailureReason   *string           `json:"failure_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:              t.ID,
		SourceAccountID: t.SourceAccountID,
		DestAccountID:   t.DestAccountID,
		Type:            string(t.Type),
		Amount:          t.Amount,
		Currency:        string(t.Currency),
		Description:     t.Description,
		Category:        string(t.Category),
		Fee:             t.Fee,
		ExchangeRate:    t.ExchangeRate,
		RateFallback:    t.RateFallback,
		Status:          string(t.Status),
		FailureReason:   t.FailureReason,
		CreatedAt:       t.CreatedAt,
		CompletedAt:     t.CompletedAt,
	}
	if t.Recipient != nil {
		dto.Recipient = &recipientPayload{
			Name:          t.Recipient.Name,
			AccountNumber: t.Recipient.AccountNumber,
			BankName:      t.Recipient.BankName,
			Country:       t.Recipient.Country,
			Currency:      string(t.Recipient.Currency),
		}
	}
	return dto
}

// Submit creates one transaction attempt. Business-rule failures still
// produce a record, so the response is 201 with status "failed" rather
// than an error envelope; only pre-creation rejections map to error codes.
func (h *TransactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(r)
	if !ok {
		RespondAppError(w, ErrMissingUserID, nil)
		return
	}

	var req submitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	submit := ledger.SubmitRequest{
		UserID:          userID,
		SourceAccountID: uuid.MustParse(req.SourceAccountID),
		Type:            domain.TransactionType(req.Type),
		Amount:          req.Amount,
		Currency:        domain.Currency(req.Currency),
		Description:     req.Description,
		Category:        domain.Category(req.Category),
	}
	if req.DestAccountID != "" {
		dest := uuid.MustParse(req.DestAccountID)
		submit.DestAccountID = &dest
	}
	if req.Recipient != nil {
		submit.Recipient = &domain.Recipient{
			Name:          req.Recipient.Name,
			AccountNumber: req.Recipient.AccountNumber,
			BankName:      req.Recipient.BankName,
			Country:       req.Recipient.Country,
			Currency:      domain.Currency(req.Recipient.Currency),
		}
	}

	txn, err := h.ledger.Submit(r.Context(), submit)
	if txn != nil {
		RespondSuccess(w, http.StatusCreated, toTransactionDTO(txn))
		return
	}
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondAppError(w, ErrInternalError, nil)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(r)
	if !ok {
		RespondAppError(w, ErrMissingUserID, nil)
		return
	}

	transactionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	txn, err := h.ledger.GetTransactionForUser(r.Context(), transactionID, userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(txn))
}

func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(r)
	if !ok {
		RespondAppError(w, ErrMissingUserID, nil)
		return
	}

	transactionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	txn, err := h.ledger.Cancel(r.Context(), transactionID, userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(txn))
}
