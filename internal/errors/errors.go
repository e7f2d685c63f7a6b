// Package errors provides custom error types for the AlgoSwarm API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Protocol errors.
var (
	ErrUnknownProtocol = &AppError{Code: "UNKNOWN_PROTOCOL", Message: "Unknown DeFi protocol", StatusCode: http.StatusNotFound}
)

// Transaction errors.
var (
	ErrValidationFailed = &AppError{Code: "VALIDATION_FAILED", Message: "Transaction validation failed", StatusCode: http.StatusBadRequest}
	ErrAmountTooSmall   = &AppError{Code: "AMOUNT_TOO_SMALL", Message: "Amount does not cover protocol fee and reserve", StatusCode: http.StatusBadRequest}
	ErrSubmissionFailed = &AppError{Code: "SUBMISSION_FAILED", Message: "The node rejected the transaction", StatusCode: http.StatusBadGateway}
	ErrRecordNotFound   = &AppError{Code: "RECORD_NOT_FOUND", Message: "Transaction record not found", StatusCode: http.StatusNotFound}
	ErrNodeUnavailable  = &AppError{Code: "NODE_UNAVAILABLE", Message: "Blockchain node is unreachable", StatusCode: http.StatusBadGateway}
)

// Investment and recovery errors.
var (
	ErrInvestmentNotFound  = &AppError{Code: "INVESTMENT_NOT_FOUND", Message: "Investment not found", StatusCode: http.StatusNotFound}
	ErrInvestmentWithdrawn = &AppError{Code: "INVESTMENT_WITHDRAWN", Message: "Investment has already been withdrawn", StatusCode: http.StatusConflict}
	ErrTimeLocked          = &AppError{Code: "TIME_LOCKED", Message: "Withdrawal is still time-locked", StatusCode: http.StatusForbidden}
)

// Price errors.
var (
	ErrPriceUnavailable = &AppError{Code: "PRICE_UNAVAILABLE", Message: "No price available for this asset", StatusCode: http.StatusNotFound}
)
