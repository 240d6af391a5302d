package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingUserID    = &AppError{http.StatusUnauthorized, "MISSING_USER_ID", "X-User-ID header required"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInsufficientFunds      = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrAccountInactive        = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_INACTIVE", "Account is inactive"}
	ErrAccountNotFound        = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrDestinationNotFound    = &AppError{http.StatusUnprocessableEntity, "DESTINATION_NOT_FOUND", "Destination account not found"}
	ErrSelfTransfer           = &AppError{http.StatusUnprocessableEntity, "SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to the same account"}
	ErrCurrencyMismatch       = &AppError{http.StatusUnprocessableEntity, "CURRENCY_MISMATCH", "Currency mismatch"}
	ErrConversionUnavailable  = &AppError{http.StatusUnprocessableEntity, "CONVERSION_UNAVAILABLE", "No exchange rate for currency pair"}
	ErrInvalidCurrency        = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrInvalidAmount          = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be at least 0.01"}
	ErrContended              = &AppError{http.StatusConflict, "CONTENDED", "Account busy, retry the request"}
	ErrVersionConflict        = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrTransactionTerminal    = &AppError{http.StatusConflict, "TRANSACTION_TERMINAL", "Transaction already in a terminal state"}
)
