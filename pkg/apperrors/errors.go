package apperrors

import "errors"

var (
	ErrResourceNotAccessible = errors.New("resource not accessible")
	ErrFieldNotAccessible    = errors.New("field not accessible")
	ErrOperationNotAllowed   = errors.New("operation not allowed")
	ErrAggregateNotAllowed   = errors.New("aggregate function not allowed")
	ErrTenantContextMissing  = errors.New("tenant context missing")
	ErrQuotaExceeded         = errors.New("usage quota exceeded")
	ErrNotFound              = errors.New("not found")
)
