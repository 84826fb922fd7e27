package mman

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Request is one mmap call. It lives only for the duration of DoMmap.
type Request struct {
	Addr   Addr
	Length uint64
	Prot   Prot
	Flags  MapFlags
	FD     int
	Offset int64
}

func (r Request) String() string {
	return fmt.Sprintf("mmap(%s, %d, %s, %s, %d, %d)", r.Addr, r.Length, r.Prot, r.Flags, r.FD, r.Offset)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (r Request) MarshalZerologObject(e *zerolog.Event) {
	e.Stringer("addr", r.Addr).
		Uint64("length", r.Length).
		Stringer("prot", r.Prot).
		Stringer("flags", r.Flags).
		Int("fd", r.FD).
		Int64("offset", r.Offset)
}
