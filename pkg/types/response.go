package types

// SuccessEnvelope wraps every successful facade response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a typed engine error.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
