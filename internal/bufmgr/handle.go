package bufmgr

// Handle is a short-lived, owning reference to exactly one Page. It is
// the only way callers touch page bytes. Unlike the reference-counted
// C++ handle this is ported from, Go has no destructors, so callers must
// call Close explicitly (typically via defer) when done with a handle —
// additional handles to the same identity are obtained only through the
// Manager, which increments the refcount correctly.
type Handle struct {
	mgr      *Manager
	page     *Page
	released bool
}

// GetBytes returns a pointer to the page's frame, loading it from disk
// first if necessary. It fails with ErrNoFreeFrame if the pool is full
// and every resident page is pinned.
func (h *Handle) GetBytes() ([]byte, error) {
	if h.released {
		return nil, ErrHandleReleased
	}
	return h.mgr.getBytes(h.page)
}

// WroteBytes marks the underlying page dirty. Callers must call this
// after mutating the buffer returned by GetBytes — without it the
// manager is not required to persist the change.
func (h *Handle) WroteBytes() {
	if h.released {
		return
	}
	h.mgr.wroteBytes(h.page)
}

// Close releases this handle's share of the page's reference count. It
// is idempotent: closing an already-closed handle is a no-op.
func (h *Handle) Close() error {
	if h.released {
		return nil
	}
	h.released = true
	h.mgr.release(h.page)
	return nil
}
