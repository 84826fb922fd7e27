package mman

// validateMap checks a mapping request against the file it resolved to (nil
// for anonymous requests) and the layout. Checks run in a fixed order and the
// first failing one decides the error.
func validateMap(l Layout, req Request, obj BackingObject) error {
	if obj != nil {
		mode := obj.Mode()
		if !obj.Mappable() {
			return ErrNoDeviceError
		}
		if req.Prot.Writable() && mode.AppendOnly() {
			return Errorf(ErrAccessDenied, "writable mapping of append-only file")
		}
		if req.Prot.Writable() && req.Flags.Shared() && !(mode.CanRead() && mode.CanWrite()) {
			return Errorf(ErrAccessDenied, "shared writable mapping needs a file open read/write, have %s", mode)
		}
		// Page contents are always read from the file, so even a
		// write-only mapping needs read access.
		if !mode.CanRead() {
			return Errorf(ErrAccessDenied, "file not open for reading")
		}
	}

	if req.Flags.Fixed() && (req.Addr == 0 || !req.Addr.IsPageAligned()) {
		return Errorf(ErrInvalidArgument, "fixed address %s is null or not page aligned", req.Addr)
	}
	if !IsOffsetAligned(req.Offset) {
		return Errorf(ErrInvalidArgument, "offset %d is not page aligned", req.Offset)
	}
	if int64(req.Length) <= 0 || req.Offset < 0 {
		return Errorf(ErrInvalidArgument, "length %d or offset %d out of range", int64(req.Length), req.Offset)
	}
	if req.Flags.Shared() == req.Flags.Private() {
		return Errorf(ErrInvalidArgument, "exactly one of MAP_SHARED and MAP_PRIVATE required, have %s", req.Flags)
	}
	if req.Flags.Fixed() && !l.Contains(req.Addr, req.Length) {
		return Errorf(ErrInvalidArgument, "fixed range %s+%d outside user region", req.Addr, req.Length)
	}
	return nil
}

// validateUnmap checks an unmapping request.
func validateUnmap(l Layout, addr Addr, length uint64) error {
	if length == 0 {
		return Errorf(ErrInvalidArgument, "zero length")
	}
	if !addr.IsPageAligned() {
		return Errorf(ErrInvalidArgument, "address %s is not page aligned", addr)
	}
	if !l.Contains(addr, length) {
		return Errorf(ErrInvalidArgument, "range %s+%d outside user region", addr, length)
	}
	return nil
}
