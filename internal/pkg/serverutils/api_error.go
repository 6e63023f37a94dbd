package serverutils

// ApiError carries an HTTP status alongside a caller-safe message.
// Wrap internal errors before they reach the error middleware so
// provider response bodies never leak to clients.
type ApiError struct {
	StatusCode int
	Kind       string
	Message    string
	Err        error
}

func (e *ApiError) Error() string {
	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func NewApiError(statusCode int, kind, message string, err error) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Kind:       kind,
		Message:    message,
		Err:        err,
	}
}
