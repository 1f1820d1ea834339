package dto

// Error codes carried in the error envelope.
const (
	CodeNotFound                = "not_found"
	CodeValidationError         = "validation_error"
	CodeUnauthorized            = "unauthorized"
	CodeForbidden               = "forbidden"
	CodeRateLimited             = "rate_limited"
	CodeContentGenerationFailed = "content_generation_failed"
	CodeBrokerUnavailable       = "broker_unavailable"
	CodeInternal                = "internal"
)

// ErrorResponse is the envelope every non-2xx response carries.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	}
}
