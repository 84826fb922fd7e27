package mman

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Error represents an mman error with an error code
type Error struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mman: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("mman: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, ErrInvalidArgumentError) matches any EINVAL.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrorCode is a negated errno value, the form in which mmap and munmap
// report failures.
type ErrorCode int

// Error codes
const (
	// Success indicates the operation completed successfully
	Success ErrorCode = 0

	// ErrBadDescriptor indicates the descriptor is out of range and the
	// request is not anonymous
	ErrBadDescriptor = -ErrorCode(unix.EBADF)

	// ErrAccessDenied indicates the file's access mode conflicts with the
	// requested protection or sharing mode, or the descriptor is not open
	ErrAccessDenied = -ErrorCode(unix.EACCES)

	// ErrNoDevice indicates the file's type does not support mapping
	ErrNoDevice = -ErrorCode(unix.ENODEV)

	// ErrInvalidArgument indicates an alignment, sign, length, flag or
	// range violation
	ErrInvalidArgument = -ErrorCode(unix.EINVAL)

	// ErrNoMemory indicates there is no room for the mapping, or the range
	// is not mapped
	ErrNoMemory = -ErrorCode(unix.ENOMEM)

	// ErrTooManyFiles indicates the descriptor table is full
	ErrTooManyFiles = -ErrorCode(unix.EMFILE)

	// ErrIO indicates an unexpected failure of a collaborator
	ErrIO = -ErrorCode(unix.EIO)
)

// Error descriptions
var errorMessages = map[ErrorCode]string{
	Success:            "success",
	ErrBadDescriptor:   "bad file descriptor",
	ErrAccessDenied:    "permission denied",
	ErrNoDevice:        "file does not support mapping",
	ErrInvalidArgument: "invalid argument",
	ErrNoMemory:        "cannot allocate memory",
	ErrTooManyFiles:    "too many open files",
	ErrIO:              "input/output error",
}

// Errno returns the positive errno for c.
func (c ErrorCode) Errno() unix.Errno {
	return unix.Errno(-c)
}

// Name returns the symbolic errno name, e.g. "EINVAL", or "OK" for Success.
func (c ErrorCode) Name() string {
	if c == Success {
		return "OK"
	}
	if name := unix.ErrnoName(c.Errno()); name != "" {
		return name
	}
	return fmt.Sprintf("E%d", int(-c))
}

func (c ErrorCode) String() string {
	return c.Name()
}

// NewError creates a new Error with the given code
func NewError(code ErrorCode) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = fmt.Sprintf("unknown error code %d", code)
	}
	return &Error{Code: code, Message: msg}
}

// Errorf creates a new Error with the given code and a formatted message
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a new Error wrapping another error
func WrapError(code ErrorCode, err error) *Error {
	e := NewError(code)
	e.Err = err
	return e
}

// Common error variables for convenience
var (
	ErrBadDescriptorError   = NewError(ErrBadDescriptor)
	ErrAccessDeniedError    = NewError(ErrAccessDenied)
	ErrNoDeviceError        = NewError(ErrNoDevice)
	ErrInvalidArgumentError = NewError(ErrInvalidArgument)
	ErrNoMemoryError        = NewError(ErrNoMemory)
	ErrTooManyFilesError    = NewError(ErrTooManyFiles)
)

// IsInvalidArgument returns true if the error is ErrInvalidArgument
func IsInvalidArgument(err error) bool {
	return Code(err) == ErrInvalidArgument
}

// IsAccessDenied returns true if the error is ErrAccessDenied
func IsAccessDenied(err error) bool {
	return Code(err) == ErrAccessDenied
}

// Code returns the error code from an error, or ErrIO if not an mman error
func Code(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return -ErrorCode(errno)
	}
	return ErrIO
}
