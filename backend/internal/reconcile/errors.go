package reconcile

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"

	"uniportal/backend/internal/restclient"
)

// ErrCancelled is returned when the user declines a confirmation prompt
var ErrCancelled = errors.New("cancelled by user")

// ValidationError is a local validation failure; nothing was sent
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid returns a *ValidationError
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// CheckVar validates a single value against a validator tag
// ("gte=0,lte=100", "required") and reports message on failure
func CheckVar(field string, value interface{}, tag, message string) error {
	validateOnce.Do(func() { validate = validator.New() })

	if err := validate.Var(value, tag); err != nil {
		return Invalid(field, message)
	}
	return nil
}

// UserMessage turns err into the inline message shown to the user:
// the local validation text, the server's message, or fallback.
// Cancellation yields an empty message.
func UserMessage(err error, fallback string) string {
	if err == nil || errors.Is(err, ErrCancelled) {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}

	if msg, ok := restclient.ServerMessage(err); ok {
		return msg
	}
	return fallback
}
