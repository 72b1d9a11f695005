package pass2

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a fatal pass error.
type ErrorCode int

const (
	// ErrDirCorrupted means a mandatory length repair was declined and the
	// block cannot be walked safely.
	ErrDirCorrupted ErrorCode = iota + 1

	// ErrInternalFailure means the scan state is inconsistent, for example
	// a directory without a parent record.
	ErrInternalFailure

	// ErrInodeRead means an inode needed to classify an entry's type could
	// not be read.
	ErrInodeRead

	// ErrOracle means a bitmap query or update failed.
	ErrOracle
)

func (c ErrorCode) String() string {
	switch c {
	case ErrDirCorrupted:
		return "directory corrupted"
	case ErrInternalFailure:
		return "internal failure"
	case ErrInodeRead:
		return "inode read failure"
	case ErrOracle:
		return "bitmap failure"
	default:
		return fmt.Sprintf("error(%d)", int(c))
	}
}

// FatalError aborts the pass. Repairs made to earlier blocks stand.
type FatalError struct {
	Code ErrorCode

	// Message describes what the pass was doing.
	Message string

	// Inode is the directory or inode involved, 0 if none.
	Inode uint64

	// Err is the underlying cause, if any.
	Err error
}

func (e *FatalError) Error() string {
	msg := fmt.Sprintf("pass2: %s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a FatalError and returns its code.
func IsFatal(err error) (ErrorCode, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return 0, false
}

func fatalf(code ErrorCode, ino uint64, cause error, format string, args ...any) *FatalError {
	return &FatalError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Inode:   ino,
		Err:     cause,
	}
}
