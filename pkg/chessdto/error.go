package chessdto

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "match service error"
}

// ErrorResponse is the JSON envelope for failed requests.
type ErrorResponse struct {
	Error DomainError `json:"error"`
}
