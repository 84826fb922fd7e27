//go:build unix

package hostmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// New maps length bytes of fd starting at offset, which must be page
// aligned. The caller keeps ownership of fd.
func New(fd int, offset int64, length int, writable bool) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}

	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}

	data, err := unix.Mmap(fd, offset, length, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, &Error{Op: "mmap", Err: err}
	}

	return &Map{
		data:     data,
		size:     int64(length),
		writable: writable,
	}, nil
}

// MapFile opens path and maps all of it. The file stays open until Close.
func MapFile(path string, writable bool) (*Map, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &Error{Op: "stat", Err: err}
	}
	if fi.Size() == 0 {
		f.Close()
		return nil, ErrEmptyFile
	}

	m, err := New(int(f.Fd()), 0, int(fi.Size()), writable)
	if err != nil {
		f.Close()
		return nil, err
	}
	m.path = path
	m.closer = f.Close
	return m, nil
}

// Sync flushes changes to the file synchronously.
func (m *Map) Sync() error {
	if m.data == nil {
		return ErrNotMapped
	}
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return &Error{Op: "msync", Err: err}
	}
	return nil
}

// Close removes the mapping and closes the file MapFile opened. Closing an
// already closed Map is a no-op.
func (m *Map) Close() error {
	if m.data == nil {
		return nil
	}

	err := unix.Munmap(m.data)
	m.data = nil
	m.size = 0
	if m.closer != nil {
		if cerr := m.closer(); err == nil {
			err = cerr
		}
		m.closer = nil
	}
	if err != nil {
		return &Error{Op: "munmap", Err: err}
	}
	return nil
}
