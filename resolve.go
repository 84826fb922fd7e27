package mman

// backing holds the single reference DoMmap takes on the file being mapped.
// release is deferred right after a successful resolve, so the reference
// is dropped exactly once on every return path.
type backing struct {
	files FileTable
	obj   BackingObject
}

func (b *backing) release() {
	if b.obj == nil {
		return
	}
	b.files.Put(b.obj)
	b.obj = nil
}

// resolveBacking turns the descriptor of a request into a backing object.
// Anonymous requests have none and ignore fd.
func resolveBacking(files FileTable, fd int, flags MapFlags) (backing, error) {
	b := backing{files: files}
	if flags.Anon() {
		return b, nil
	}
	if fd < 0 || fd >= files.Size() {
		return b, ErrBadDescriptorError
	}
	obj, ok := files.Get(fd)
	if !ok {
		return b, Errorf(ErrAccessDenied, "descriptor %d is not open", fd)
	}
	b.obj = obj
	return b, nil
}
