// Package errors contains the error taxonomy shared by the gateway services.
//
// Every failure crossing a service boundary is a *ServiceError carrying two
// classifications: a Category that drives transport status codes and a Kind
// that callers use to decide how to react (fix input, retry later, etc.).
package errors

import (
	"errors"
	"net/http"
)

// Category defines error category
type Category int

const (
	// CategoryNoError is used when a call completed without error.
	CategoryNoError Category = iota
	// CategoryDataError The client sent invalid data in the request.
	CategoryDataError
	// CategoryUnauthorized The client is not authorized to access the requested resource
	CategoryUnauthorized
	// CategoryResourceNotFound The client is attempting to access a resource that does not exist
	CategoryResourceNotFound
	// CategoryDependencyFailure A dependent service is throwing errors
	CategoryDependencyFailure
	// CategoryGeneralError The service failed in an unexpected way
	CategoryGeneralError
	// CategoryRecovering The service is failing but is expected to recover
	CategoryRecovering
	// CategoryConnectionTimeout Connection to a dependent service timing out
	CategoryConnectionTimeout
)

func (c Category) String() string {
	switch c {
	case CategoryNoError:
		return "CategoryNoError"
	case CategoryDataError:
		return "CategoryDataError"
	case CategoryUnauthorized:
		return "CategoryUnauthorized"
	case CategoryResourceNotFound:
		return "CategoryResourceNotFound"
	case CategoryDependencyFailure:
		return "CategoryDependencyFailure"
	case CategoryRecovering:
		return "CategoryRecovering"
	case CategoryConnectionTimeout:
		return "CategoryConnectionTimeout"
	default:
		return "CategoryGeneralError"
	}
}

// Kind is the failure classification reported to gateway clients.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindIdentityNotFound
	KindConnection
	KindLedger
	KindSerialization
	KindConfig
	KindUnauthorized
	KindInternal
)

var kindNames = map[Kind]string{
	KindValidation:       "ValidationError",
	KindIdentityNotFound: "IdentityNotFoundError",
	KindConnection:       "ConnectionError",
	KindLedger:           "LedgerError",
	KindSerialization:    "SerializationError",
	KindConfig:           "ConfigError",
	KindUnauthorized:     "UnauthorizedError",
	KindInternal:         "InternalError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return ""
}

// MarshalText renders the kind by name so JSON bodies carry "LedgerError" rather than a number.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	*k = KindNone
	return nil
}

// ServiceError represents service specific type that
// is used all over the services.
type ServiceError struct {
	Category Category
	Kind     Kind
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err ServiceError) Unwrap() error {
	return err.Err
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Category == cat
}

// IsKind checks that provided error is a ServiceError with desired Kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of err. Errors that are not service errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return "Internal Server Error"
}

// StatusOf returns the HTTP status code for err.
func StatusOf(err error) int {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode()
	}
	return http.StatusInternalServerError
}

func newError(cat Category, kind Kind, err error, message string) error {
	if err == nil {
		err = errors.New(message)
	}
	return &ServiceError{
		Category: cat,
		Kind:     kind,
		Message:  message,
		Err:      err,
	}
}

// GeneralError returns a general service error
// this error mesage sent to the user is "Internal Server Error"
// the error passed is logged in the logger
func GeneralError(err error) error {
	if err == nil {
		err = errors.New("internal server error")
	}
	return &ServiceError{
		Category: CategoryGeneralError,
		Kind:     KindInternal,
		Message:  "Internal Server Error",
		Err:      err,
	}
}

// ValidationError is returned when request arguments fail local checks.
// No ledger session is opened for such requests.
func ValidationError(err error, message string) error {
	return newError(CategoryDataError, KindValidation, err, message)
}

// BadRequestError returns an error for malformed transport payloads.
func BadRequestError(err error, message string) error {
	return newError(CategoryDataError, KindValidation, err, message)
}

// IdentityNotFoundError is returned when the identity store has no entry for a name.
func IdentityNotFoundError(err error, message string) error {
	return newError(CategoryResourceNotFound, KindIdentityNotFound, err, message)
}

// ResourceNotFoundError returns an error with category ResourceNotFound
func ResourceNotFoundError(err error, message string) error {
	return newError(CategoryResourceNotFound, KindInternal, err, message)
}

// ConnectionError is returned when a ledger session cannot be established or was lost.
func ConnectionError(err error, message string) error {
	return newError(CategoryRecovering, KindConnection, err, message)
}

// ConnectionTimeoutError is a ConnectionError caused by a deadline.
func ConnectionTimeoutError(err error, message string) error {
	return newError(CategoryConnectionTimeout, KindConnection, err, message)
}

// LedgerError is returned when the ledger rejected an invocation. err should carry
// the ledger's own message since Error() reports it to the caller unchanged.
func LedgerError(err error, message string) error {
	return newError(CategoryDependencyFailure, KindLedger, err, message)
}

// SerializationError is returned when a ledger payload cannot be decoded.
func SerializationError(err error, message string) error {
	return newError(CategoryGeneralError, KindSerialization, err, message)
}

// ConfigError is returned for invalid network topology or gateway configuration.
func ConfigError(err error, message string) error {
	return newError(CategoryGeneralError, KindConfig, err, message)
}

// UnAuthorizedError returns an error with category CategoryUnauthorized
func UnAuthorizedError(err error, message string) error {
	return newError(CategoryUnauthorized, KindUnauthorized, err, message)
}

// StatusCode returns the HTTP status code for the error category
func (err ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryDataError:
		return http.StatusBadRequest
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryResourceNotFound:
		return http.StatusNotFound
	case CategoryDependencyFailure:
		return http.StatusBadGateway
	case CategoryRecovering:
		return http.StatusServiceUnavailable
	case CategoryConnectionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
