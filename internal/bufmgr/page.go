package bufmgr

// Page is the unit of caching: per-identity state tracking frame
// binding, pin/dirty flags, LRU timestamp, and the number of live
// handles referring to it. All mutation happens under the owning
// Manager's lock — Page itself holds no lock.
//
// States, per the spec this implements: Unbound-Clean (buf == nil),
// Bound-Clean (buf != nil, !dirty), Bound-Dirty (buf != nil, dirty).
// Eviction and Dropped are transitions the Manager drives, not states
// stored on the Page.
type Page struct {
	identity Identity

	buf       []byte // nil when unbound
	pinned    bool
	dirty     bool
	timestamp int64
	rc        refcount
}

func newPage(identity Identity, pinned bool) *Page {
	return &Page{identity: identity, pinned: pinned}
}

func (p *Page) isBuffered() bool { return p.buf != nil }

// markDirty sets the dirty flag. A page with no bound frame has nothing
// to be dirty about (invariant: dirty implies frame bound), so this is a
// no-op until GetBytes has loaded it.
func (p *Page) markDirty() {
	if p.buf != nil {
		p.dirty = true
	}
}
