package apperrors

import (
	"net/http"
)

// Factories and predefined values for the helpdesk business domains.

// ErrNotFound converts a repository miss (gorm.ErrRecordNotFound and the
// repository sentinels built on it) into a 404 AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists converts a uniqueness violation into a 409.
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrInvalidOperation builds a 400 for an operation the current state does
// not permit.
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidStatus builds a 400 for an unrecognized status value.
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusBadRequest)
}

// --- Auth ---

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid credentials",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid token",
	http.StatusUnauthorized,
)

var ErrInvalidResetToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired reset token",
	http.StatusBadRequest,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email is already registered",
	http.StatusConflict,
)

var ErrWeakPassword = New(
	CodeValidationFailed,
	"auth",
	"Password must be at least 6 characters long",
	http.StatusBadRequest,
)

// --- Billing ---

// ErrCreditExhausted is the 402 business outcome returned when the guarded
// debit matched no row. Clients key off the code to start a purchase flow.
var ErrCreditExhausted = New(
	CodeCreditExhausted,
	"billing",
	"No credits remaining. Please subscribe to continue creating tickets.",
	http.StatusPaymentRequired,
)

// ErrInvalidSignature deliberately carries a generic message: the response
// must not reveal which part of the signature check failed.
var ErrInvalidSignature = New(
	CodeInvalidSignature,
	"billing",
	"Invalid payment signature",
	http.StatusBadRequest,
)

var ErrGatewayNotConfigured = New(
	CodeGatewayNotConfigured,
	"billing",
	"Payment gateway credentials are missing or invalid",
	http.StatusInternalServerError,
)

var ErrPaymentNotOwned = New(
	CodeForbidden,
	"billing",
	"Payment does not belong to current user",
	http.StatusForbidden,
)

// --- Tickets ---

var ErrTicketNotAssigned = New(
	CodeForbidden,
	"tickets",
	"You can only update your assigned tickets",
	http.StatusForbidden,
)
