package apperrors

// ErrorCode is a machine-readable error identifier returned to clients.
type ErrorCode string

const (
	// System level codes
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Generic business codes
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Authentication / authorization
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	// Billing
	CodeCreditExhausted      ErrorCode = "CREDIT_EXHAUSTED"
	CodeInvalidSignature     ErrorCode = "INVALID_SIGNATURE"
	CodeGatewayNotConfigured ErrorCode = "GATEWAY_NOT_CONFIGURED"
	CodeOrderCreateFailed    ErrorCode = "CREATE_ORDER_FAILED"
)
