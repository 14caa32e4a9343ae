package errors

import "fmt"

// Error codes
const (
	CodeAppError   = "APP_ERROR"
	CodeGateway    = "GATEWAY_ERROR"
	CodeMalformed  = "MALFORMED_RESPONSE"
	CodeCache      = "CACHE_ERROR"
	CodeStore      = "STORE_ERROR"
	CodeCapability = "CAPABILITY_ERROR"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// GatewayError covers transport-level failures against the generative backend.
type GatewayError struct {
	*AppError
	Operation string
}

func NewGatewayError(message, operation string, cause error) *GatewayError {
	return &GatewayError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeGateway,
			StatusCode: 502,
			Context: map[string]any{
				"operation": operation,
			},
			Cause: cause,
		},
		Operation: operation,
	}
}

// MalformedResponseError covers payloads that are missing or do not parse
// into the expected shape.
type MalformedResponseError struct {
	*AppError
	Operation string
}

func NewMalformedResponseError(message, operation string, cause error) *MalformedResponseError {
	return &MalformedResponseError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeMalformed,
			StatusCode: 502,
			Context: map[string]any{
				"operation": operation,
			},
			Cause: cause,
		},
		Operation: operation,
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type StoreError struct {
	*AppError
	Collection string
	Operation  string
}

func NewStoreError(message, collection, operation string, cause error) *StoreError {
	return &StoreError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeStore,
			StatusCode: 500,
			Context: map[string]any{
				"collection": collection,
				"operation":  operation,
			},
			Cause: cause,
		},
		Collection: collection,
		Operation:  operation,
	}
}

// CapabilityError reports a speech capability that is not available on this
// deployment (no endpoint configured, or a session already in progress).
type CapabilityError struct {
	*AppError
	Capability string
}

func NewCapabilityError(message, capability string) *CapabilityError {
	return &CapabilityError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCapability,
			StatusCode: 501,
			Context: map[string]any{
				"capability": capability,
			},
		},
		Capability: capability,
	}
}

// Unwrap exposes the embedded AppError so errors.As can match on it.
func (e *GatewayError) Unwrap() error { return e.AppError }

func (e *MalformedResponseError) Unwrap() error { return e.AppError }

func (e *CacheError) Unwrap() error { return e.AppError }

func (e *StoreError) Unwrap() error { return e.AppError }

func (e *CapabilityError) Unwrap() error { return e.AppError }
