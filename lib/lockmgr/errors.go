package lockmgr

import (
	"fmt"
)

// ErrCode classifies the errors returned by locks
type ErrCode uint8

const (
	ErrCodeConfiguration ErrCode = iota + 1 // invalid lock options, detected before the store is contacted
	ErrCodeIntegrity                        // state machine misuse (double acquire, release without acquire)
	ErrCodeMissing                          // release found a record that does not belong to the lock
	ErrCodeTimeout                          // the lock could not be acquired in time
	ErrCodeBackend                          // the store failed
)

func (c ErrCode) String() string {
	switch c {
	case ErrCodeConfiguration:
		return "ConfigurationError"
	case ErrCodeIntegrity:
		return "IntegrityError"
	case ErrCodeMissing:
		return "MissingError"
	case ErrCodeTimeout:
		return "TimeoutError"
	case ErrCodeBackend:
		return "BackendError"
	default:
		return "UnknownError"
	}
}

// Sentinel errors to be used with errors.Is.
// A missing error is an integrity error as well: errors.Is(err, ErrIntegrity) holds for both.
var (
	ErrConfiguration = &Error{Code: ErrCodeConfiguration}
	ErrIntegrity     = &Error{Code: ErrCodeIntegrity}
	ErrMissing       = &Error{Code: ErrCodeMissing}
	ErrTimeout       = &Error{Code: ErrCodeTimeout}
	ErrBackend       = &Error{Code: ErrCodeBackend}
)

// Error is the error type of all lock operations.
type Error struct {
	Code ErrCode // The error class
	Msg  string  // The error message
	Err  error   // The cause (set for backend errors)
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return e.Code.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
}

// Unwrap returns the cause of the error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code, so any lock error matches the sentinel of its class.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == ErrCodeIntegrity && e.Code == ErrCodeMissing
}

func newError(code ErrCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func backendError(msg string, err error) *Error {
	return &Error{Code: ErrCodeBackend, Msg: msg, Err: err}
}
