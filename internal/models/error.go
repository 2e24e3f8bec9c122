package models

// BaseError is the base type for API errors
type BaseError struct {
	Error string `json:"error" example:"something bad"`
}

// InternalServerError is returned in the body of an HTTP 500
type InternalServerError struct {
	BaseError
	TraceId string `json:"trace_id,omitempty"`
}

// ValidationError is returned in the body of an HTTP 400
type ValidationError struct {
	BaseError
	Field string `json:"field,omitempty"`
}

func NewBadPayloadError() ValidationError {
	return ValidationError{
		BaseError: BaseError{
			Error: "request json is invalid",
		},
	}
}

func NewBadPathParameterError(param string) ValidationError {
	return ValidationError{
		Field: param,
		BaseError: BaseError{
			Error: "path parameter invalid",
		},
	}
}

func NewFieldValidationError(field string, reason string) ValidationError {
	return ValidationError{
		Field: field,
		BaseError: BaseError{
			Error: reason,
		},
	}
}

// NotFoundError is returned in the body of an HTTP 404
type NotFoundError struct {
	BaseError
	Resource string `json:"resource,omitempty"`
}

func NewNotFoundError(resource string) NotFoundError {
	return NotFoundError{
		Resource: resource,
		BaseError: BaseError{
			Error: "not found",
		},
	}
}

// NotAllowedError is returned in the body of an HTTP 403
type NotAllowedError struct {
	BaseError
	Reason string `json:"reason,omitempty"`
}

func NewNotAllowedError(reason string) NotAllowedError {
	return NotAllowedError{
		Reason: reason,
		BaseError: BaseError{
			Error: "operation not allowed",
		},
	}
}

// ConflictsError is returned in the body of an HTTP 409
type ConflictsError struct {
	BaseError
	Reason string `json:"reason,omitempty"`
}

func NewConflictsError(reason string) ConflictsError {
	return ConflictsError{
		Reason: reason,
		BaseError: BaseError{
			Error: "conflict",
		},
	}
}

// PartialFailureError is returned in the body of an HTTP 502 when some
// reconciliation steps applied and others did not. The caller is expected
// to retry the same request; every step is idempotent.
type PartialFailureError struct {
	BaseError
	Steps []string `json:"steps" example:"profile,claim"`
}

func NewPartialFailureError(steps []string) PartialFailureError {
	return PartialFailureError{
		Steps: steps,
		BaseError: BaseError{
			Error: "partially applied",
		},
	}
}

// ServiceUnavailableError is returned in the body of an HTTP 503 when an
// upstream store is unreachable.
type ServiceUnavailableError struct {
	BaseError
	Upstream string `json:"upstream,omitempty" example:"identity-store"`
}

func NewServiceUnavailableError(upstream string) ServiceUnavailableError {
	return ServiceUnavailableError{
		Upstream: upstream,
		BaseError: BaseError{
			Error: "upstream unavailable",
		},
	}
}
