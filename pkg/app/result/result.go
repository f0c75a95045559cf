// Package result defines the uniform outcome returned by every gateway operation.
package result

import (
	"net/http"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
)

// Result is the tagged outcome of an operation. On success Data holds the
// payload; on failure Kind classifies the error and Error carries its detail.
type Result[T any] struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    T              `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Kind    apperrors.Kind `json:"kind,omitempty"`

	err error
}

// OK builds a successful result.
func OK[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Message: message, Data: data}
}

// Fail builds a failed result from err. Internal errors carry only their
// generic message.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = apperrors.GeneralError(nil)
	}
	res := Result[T]{
		Success: false,
		Message: apperrors.MessageOf(err),
		Error:   err.Error(),
		Kind:    apperrors.KindOf(err),
		err:     err,
	}
	// internal detail stays in Err for logging and never reaches a client
	if res.Kind == apperrors.KindInternal {
		res.Error = res.Message
	}
	return res
}

// From converts a (value, error) pair into a Result.
func From[T any](data T, err error, message string) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return OK(data, message)
}

// Err returns the error behind a failed result, or nil.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return &apperrors.ServiceError{Kind: r.Kind, Message: r.Message}
}

// StatusCode maps the result onto an HTTP status code.
func (r Result[T]) StatusCode() int {
	if r.Success {
		return http.StatusOK
	}
	return apperrors.StatusOf(r.Err())
}

// WithMessage sets the message of a successful result. Failed results keep
// the message of their error.
func (r Result[T]) WithMessage(msg string) Result[T] {
	if r.Success {
		r.Message = msg
	}
	return r
}
