package bufmgr

import "errors"

var (
	// ErrNoFreeFrame is returned when a page needs a frame, the pool is
	// full, and every resident page is pinned — there is no eviction
	// candidate left.
	ErrNoFreeFrame = errors.New("bufmgr: no free frame available (all resident pages pinned)")

	// ErrManagerClosed is returned by any operation on a Manager after
	// Close has run.
	ErrManagerClosed = errors.New("bufmgr: manager is closed")

	// ErrHandleReleased is returned when a Handle is used after Close.
	ErrHandleReleased = errors.New("bufmgr: handle already released")
)
