package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrAccountNotFound        = errors.New("account not found")
	ErrDestinationNotFound    = errors.New("destination account not found")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrSelfTransfer           = errors.New("cannot transfer to same account")
	ErrInvalidAmount          = errors.New("amount must be at least 0.01")
	ErrInvalidCurrency        = errors.New("invalid currency")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrCurrencyMismatch       = errors.New("currency mismatch")
	ErrConversionUnavailable  = errors.New("no exchange rate for currency pair")
	ErrContended              = errors.New("account busy, retry")
	ErrVersionConflict        = errors.New("optimistic lock conflict")
	ErrTransactionTerminal    = errors.New("transaction already in terminal state")
	ErrAccountNumberCollision = errors.New("account number already issued")
)

// FailureCode maps a business-rule error to the stable machine-readable
// cause recorded on a failed transaction and returned to callers. Unmapped
// errors yield the empty string.
func FailureCode(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrAccountInactive):
		return "ACCOUNT_INACTIVE"
	case errors.Is(err, ErrDestinationNotFound):
		return "DESTINATION_NOT_FOUND"
	case errors.Is(err, ErrCurrencyMismatch):
		return "CURRENCY_MISMATCH"
	case errors.Is(err, ErrConversionUnavailable):
		return "CONVERSION_UNAVAILABLE"
	}
	return ""
}
