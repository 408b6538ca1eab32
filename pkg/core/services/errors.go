package services

// ValidationError is a client input problem. Message is safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrInvalidRole is returned when a role outside technician/leadership is requested
var ErrInvalidRole = &ValidationError{Message: "Invalid role specified."}

func invalid(message string) error {
	return &ValidationError{Message: message}
}
