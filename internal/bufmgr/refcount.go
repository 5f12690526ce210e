package bufmgr

import "sync/atomic"

// refcount tracks the number of live handles referring to a Page. All
// mutation happens under the owning Manager's lock, same as every other
// Page field, but it uses atomic storage anyway so a reader that does
// not hold the lock can observe it without racing.
type refcount struct {
	n int32
}

func (r *refcount) inc() {
	atomic.AddInt32(&r.n, 1)
}

// dec decrements the count and reports whether it reached zero. It is a
// caller error to call dec on an already-zero refcount.
func (r *refcount) dec() bool {
	n := atomic.AddInt32(&r.n, -1)
	if n < 0 {
		panic("bufmgr: refcount dropped below zero")
	}
	return n == 0
}

func (r *refcount) get() int32 {
	return atomic.LoadInt32(&r.n)
}
