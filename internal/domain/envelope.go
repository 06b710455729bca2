package domain

// ErrorKind classifies a failed tool invocation. The set is fixed: transports
// and calling agents switch on these values, so new kinds are additive only.
type ErrorKind string

const (
	ErrKindAuth        ErrorKind = "auth_error"
	ErrKindRateLimit   ErrorKind = "rate_limit"
	ErrKindValidation  ErrorKind = "validation_error"
	ErrKindPermission  ErrorKind = "permission_error"
	ErrKindNotFound    ErrorKind = "not_found"
	ErrKindInternal    ErrorKind = "internal_error"
	ErrKindUnknownTool ErrorKind = "unknown_tool"
)

// EnvelopeError is the error half of an Envelope.
type EnvelopeError struct {
	Kind    ErrorKind      `json:"kind"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// Envelope is the uniform result shape every dispatch path produces.
// Exactly one of Payload or Error is set. The correlation id travels in
// logs and audit events, not in the envelope itself.
type Envelope struct {
	Success bool           `json:"success"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   *EnvelopeError `json:"error,omitempty"`
}

// OK builds a success envelope with the given payload.
func OK(payload map[string]any) *Envelope {
	return &Envelope{Success: true, Payload: payload}
}

// Fail builds an error envelope.
func Fail(kind ErrorKind, message string) *Envelope {
	return &Envelope{Success: false, Error: &EnvelopeError{Kind: kind, Message: message}}
}

// FailDetail builds an error envelope with structured detail
// (suggested values, retry hints, and the like).
func FailDetail(kind ErrorKind, message string, detail map[string]any) *Envelope {
	return &Envelope{Success: false, Error: &EnvelopeError{Kind: kind, Message: message, Detail: detail}}
}
