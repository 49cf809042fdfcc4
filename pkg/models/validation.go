package models

// ValidationStage identifies a stage of the validation pipeline.
// A ValidationResult's Stage records where the pipeline stopped.
type ValidationStage string

const (
	StageSchema            ValidationStage = "schema"
	StageResourceWhitelist ValidationStage = "resource_whitelist"
	StageColumnValidation  ValidationStage = "column_validation"
	StageTenantContext     ValidationStage = "tenant_context"
	StageInjectionScan     ValidationStage = "injection_scan"
	StagePassed            ValidationStage = "passed"
)

// ValidationErrorCode classifies a validation failure.
type ValidationErrorCode string

const (
	CodeSchemaValidation  ValidationErrorCode = "schema_validation_error"
	CodeResourceForbidden ValidationErrorCode = "resource_not_accessible"
	CodeColumnForbidden   ValidationErrorCode = "column_not_accessible"
	CodeAggregateDenied   ValidationErrorCode = "aggregate_not_allowed"
	CodeTenantMissing     ValidationErrorCode = "tenant_context_missing"
	CodeTenantMalformed   ValidationErrorCode = "tenant_context_malformed"
	CodeInjectionDetected ValidationErrorCode = "injection_pattern_detected"
)

// ValidationError is a single validation finding. Field is empty when the
// error applies to the intent as a whole.
type ValidationError struct {
	Code    ValidationErrorCode `json:"code"`
	Field   string              `json:"field,omitempty"`
	Message string              `json:"message"`
}

// ValidationContext carries the authenticated caller's identity into the
// pipeline. TenantID must be a valid UUID string; its absence is always a
// hard failure regardless of how well-formed the rest of the intent is.
type ValidationContext struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id,omitempty"`
	Role     string `json:"role,omitempty"`
}

// ValidationResult is the pipeline's outcome for one intent. Errors is empty
// iff Success; Data is the sanitized intent and is nil on failure. Stage is
// the first failing stage, or "passed".
type ValidationResult[T any] struct {
	Success  bool              `json:"success"`
	Data     *T                `json:"data,omitempty"`
	Stage    ValidationStage   `json:"stage"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings,omitempty"`
}

// ErrorMessages flattens the error list for human-readable reporting.
func (r *ValidationResult[T]) ErrorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}
