package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
)

func validSubmitRequest() SubmitRequest {
	return SubmitRequest{
		UserID:          uuid.New(),
		SourceAccountID: uuid.New(),
		Type:            domain.TransactionTypeWithdrawal,
		Amount:          5000,
		Description:     "ATM withdrawal",
	}
}

func TestValidateRequest(t *testing.T) {
	svc := &Service{}

	dest := uuid.New()

	tests := []struct {
		name    string
		mutate  func(r *SubmitRequest)
		wantErr error
	}{
		{
			name:   "valid withdrawal",
			mutate: func(r *SubmitRequest) {},
		},
		{
			name: "valid transfer",
			mutate: func(r *SubmitRequest) {
				r.Type = domain.TransactionTypeTransfer
				r.DestAccountID = &dest
			},
		},
		{
			name: "valid international",
			mutate: func(r *SubmitRequest) {
				r.Type = domain.TransactionTypeInternational
				r.Recipient = &domain.Recipient{
					Name:          "Maria Santos",
					AccountNumber: "PH1234567890",
					BankName:      "BDO Unibank",
					Country:       "PH",
					Currency:      "PHP",
				}
			},
		},
		{
			name:    "unknown type",
			mutate:  func(r *SubmitRequest) { r.Type = "wire" },
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "zero amount",
			mutate:  func(r *SubmitRequest) { r.Amount = 0 },
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(r *SubmitRequest) { r.Amount = -100 },
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "blank description",
			mutate:  func(r *SubmitRequest) { r.Description = "   " },
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "malformed currency",
			mutate:  func(r *SubmitRequest) { r.Currency = "usd" },
			wantErr: domain.ErrInvalidCurrency,
		},
		{
			name:    "unknown category",
			mutate:  func(r *SubmitRequest) { r.Category = "gambling" },
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name: "transfer without destination",
			mutate: func(r *SubmitRequest) {
				r.Type = domain.TransactionTypeTransfer
			},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name: "transfer to self",
			mutate: func(r *SubmitRequest) {
				r.Type = domain.TransactionTypeTransfer
				r.DestAccountID = &r.SourceAccountID
			},
			wantErr: domain.ErrSelfTransfer,
		},
		{
			name: "withdrawal with destination",
			mutate: func(r *SubmitRequest) {
				r.DestAccountID = &dest
			},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name: "international with destination account",
			mutate: func(r *SubmitRequest) {
				r.Type = domain.TransactionTypeInternational
				r.DestAccountID = &dest
				r.Recipient = &domain.Recipient{
					Name:          "Maria Santos",
					AccountNumber: "PH1234567890",
					BankName:      "BDO Unibank",
					Country:       "PH",
					Currency:      "PHP",
				}
			},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name: "international without recipient",
			mutate: func(r *SubmitRequest) {
				r.Type = domain.TransactionTypeInternational
			},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name: "international recipient missing bank",
			mutate: func(r *SubmitRequest) {
				r.Type = domain.TransactionTypeInternational
				r.Recipient = &domain.Recipient{
					Name:          "Maria Santos",
					AccountNumber: "PH1234567890",
					Country:       "PH",
					Currency:      "PHP",
				}
			},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name: "international recipient bad currency",
			mutate: func(r *SubmitRequest) {
				r.Type = domain.TransactionTypeInternational
				r.Recipient = &domain.Recipient{
					Name:          "Maria Santos",
					AccountNumber: "PH1234567890",
					BankName:      "BDO Unibank",
					Country:       "PH",
					Currency:      "peso",
				}
			},
			wantErr: domain.ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSubmitRequest()
			tt.mutate(&req)

			err := svc.validateRequest(req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
