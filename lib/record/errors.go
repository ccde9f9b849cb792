package record

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ValentinKolb/recstore/lib/store"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint8

const (
	RetCSuccess      RetCode = iota // 0: Operation succeeded.
	RetCInvalidInput                // 1: A structural precondition is violated, nothing was written.
	RetCNotFound                    // 2: The referenced record does not exist.
	RetCDuplicate                   // 3: A uniqueness rule would be violated.
	RetCNoData                      // 4: The query needs at least one record.
	RetCInternal                    // 5: The storage layer failed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInvalidInput:
		return "InvalidInput"
	case RetCNotFound:
		return "NotFound"
	case RetCDuplicate:
		return "DuplicateConstraint"
	case RetCNoData:
		return "NoData"
	case RetCInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is returned by every record store and domain operation.
// Two errors are equal for errors.Is when their codes match, so callers can test
// against the sentinels below no matter what the message says.
type Error struct {
	Code RetCode
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is reports whether target is a *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is
var (
	ErrInvalidInput = &Error{Code: RetCInvalidInput}
	ErrNotFound     = &Error{Code: RetCNotFound}
	ErrDuplicate    = &Error{Code: RetCDuplicate}
	ErrNoData       = &Error{Code: RetCNoData}
	ErrInternal     = &Error{Code: RetCInternal}
)

// Errorf creates a new *Error with a formatted message.
func Errorf(code RetCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of err. Errors that are not a *Error count as internal.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var recErr *Error
	if errors.As(err, &recErr) {
		return recErr.Code
	}
	return RetCInternal
}

// storageErr wraps an error of the storage layer
func storageErr(op string, err error) *Error {
	return Errorf(RetCInternal, "%s: %v", op, err)
}

// applyErr passes a conflict of the store through unchanged, so the write can be
// retried, and wraps every other error of the store
func applyErr(op string, err error) error {
	if store.IsConflict(err) {
		return err
	}
	return storageErr(op, err)
}

func encodeID(id uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), id)
}
