package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the capability a lock needs from the shared key-value store: run an atomic
// script against one key and read the store's clock.
// Scripts return a single integer. Arguments are always passed as strings, the same way
// they arrive in a Lua script's ARGV table.
type IStore interface {
	// EvalSha runs a script that was cached on the store before, identified by the hex
	// encoded SHA1 of its source. A cache miss is reported as an *Error with code RetCNoScript.
	EvalSha(ctx context.Context, sha1 string, keys []string, args ...string) (result int64, err error)
	// Eval runs the full script source. The store may cache the script for later EvalSha calls.
	Eval(ctx context.Context, source string, keys []string, args ...string) (result int64, err error)
	// Time returns the current time of the store's server.
	Time(ctx context.Context) (now time.Time, err error)
	// Exists returns whether a (not yet expired) record exists for the key.
	Exists(ctx context.Context, key string) (ok bool, err error)
	// Delete removes the record of a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) (err error)
	// Close releases the resources held by the store client.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The underlying client error, may be nil.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying client error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new StoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new StoreError that keeps err as its cause.
func WrapError(code RetCode, err error) *Error {
	return &Error{
		Code: code,
		Msg:  err.Error(),
		Err:  err,
	}
}

// IsNoScript reports whether err is a script cache miss.
func IsNoScript(err error) bool {
	var storeErr *Error
	return errors.As(err, &storeErr) && storeErr.Code == RetCNoScript
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation (or script) is not supported by the store.
	RetCInvalidOperation                    // 3: Invalid operation, e.g. wrong record type or bad argument.
	RetCNoScript                            // 4: The script is not in the store's script cache.
	RetCConnection                          // 5: The store could not be reached.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNoScript:
		return "NoScript"
	case RetCConnection:
		return "Connection"
	default:
		return "Unknown"
	}
}
