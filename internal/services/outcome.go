package services

import (
	"errors"
	"time"

	"github.com/finvelo/ledger-backend/internal/domain"
)

// Outcome is the uniform result every service operation returns. No
// operation leaks a raw error to its caller: failures are folded into
// the envelope with a stable code the transport layer can map.
type Outcome[T any] struct {
	Success   bool      `json:"success"`
	Data      T         `json:"data,omitempty"`
	Message   string    `json:"message"`
	Errors    []string  `json:"errors,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	code domain.ErrorCode
}

func (o Outcome[T]) Code() domain.ErrorCode {
	return o.code
}

func Ok[T any](data T, message string) Outcome[T] {
	return Outcome[T]{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func Fail[T any](code domain.ErrorCode, message string, errs ...string) Outcome[T] {
	return Outcome[T]{
		Message:   message,
		Errors:    errs,
		Timestamp: time.Now().UTC(),
		code:      code,
	}
}

// FromError folds a domain error into a failed outcome, hiding internal
// detail behind a generic message for unexpected errors.
func FromError[T any](err error) Outcome[T] {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return Fail[T](domainErr.Code, domainErr.Message, domainErr.Message)
	}
	return Fail[T](domain.CodeInternal, "an unexpected error occurred", err.Error())
}
