package ball

import "fmt"

// DomainError reports an operation applied outside its mathematical domain,
// such as the logarithm of a ball that touches zero or division by a ball
// containing zero.
type DomainError struct {
	// Message is the human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ball: %s: %v", e.Message, e.Err)
	}
	return "ball: " + e.Message
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new domain error.
func NewDomainError(message string, err error) *DomainError {
	return &DomainError{Message: message, Err: err}
}
