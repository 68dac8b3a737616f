package shared

// DomainError is an error with a stable code. The HTTP layer maps codes to
// statuses, so codes never change once published; messages may.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on code, so errors.Is(err, ErrNotFound) also holds for a
// NOT_FOUND error that carries its own message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Cheque entry was modified by another request")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrValidation          = NewDomainError("VALIDATION_ERROR", "Validation failed")

	// ErrRemoteCall is wrapped by every failed call to the host ERP
	ErrRemoteCall = NewDomainError("REMOTE_CALL_FAILED", "Remote call to the host system failed")
	// ErrRateNotFound means no Currency Exchange exists in either direction
	ErrRateNotFound    = NewDomainError("RATE_NOT_FOUND", "Exchange rate not found")
	ErrStorageDisabled = NewDomainError("STORAGE_DISABLED", "Cheque picture storage is not configured")
)
