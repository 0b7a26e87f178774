package tracker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMissingAPIKey is returned by New without an API key
	ErrMissingAPIKey = errors.New("api key is required")
	// ErrMissingQueue is returned by New without a request queue
	ErrMissingQueue = errors.New("request queue is required")
	// ErrInvalidParameters wraps every validation failure of a tracking call
	ErrInvalidParameters = errors.New("invalid tracking parameters")
)

// ValidationError lists the parameters a tracking call rejected
type ValidationError struct {
	Event  string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Event, ErrInvalidParameters, strings.Join(e.Fields, "; "))
}

// Unwrap lets errors.Is match ErrInvalidParameters
func (e *ValidationError) Unwrap() error {
	return ErrInvalidParameters
}

func invalid(event string, fields ...string) *ValidationError {
	return &ValidationError{Event: event, Fields: fields}
}

// fromValidator converts validator output into a ValidationError
func fromValidator(event string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid(event, err.Error())
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, describe(fe))
	}
	return invalid(event, fields...)
}

func describe(fe validator.FieldError) string {
	name := fe.Namespace()
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", name, fe.Param())
	case "url":
		return name + " must be a URL"
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}
