// Package hostmap maps host files into this process's memory.
//
// The simulated file system uses it to back regular files that come from
// the host: the host mapping is the memory object such a file's areas refer
// to.
package hostmap

// Map is a host mapping of a whole file.
type Map struct {
	data     []byte // mapped memory
	path     string
	closer   func() error // closes the file the mapping was made from
	size     int64
	writable bool
}

// Data returns the mapped bytes.
func (m *Map) Data() []byte {
	return m.data
}

// Size returns the mapped size.
func (m *Map) Size() int64 {
	return m.size
}

// Path returns the host path of the mapped file.
func (m *Map) Path() string {
	return m.path
}

// Writable returns true if the mapping is writable.
func (m *Map) Writable() bool {
	return m.writable
}

// Mapped reports whether the mapping is still established.
func (m *Map) Mapped() bool {
	return m.data != nil
}

// Error represents a hostmap error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "hostmap: " + e.Op + ": " + e.Err.Error()
	}
	return "hostmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidSize = &Error{Op: "invalid size"}
	ErrNotMapped   = &Error{Op: "not mapped"}
	ErrEmptyFile   = &Error{Op: "empty file"}
)
