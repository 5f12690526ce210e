// Package bufmgr implements the page buffer manager: the frame<->page
// binding policy, reference-counted page handles, pin/unpin semantics,
// LRU eviction under pin constraints, dirty write-back, and anonymous
// temp-page lifecycle described by the specification this module
// implements.
package bufmgr

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/corewright/pagepool/internal/diskio"
)

const logPrefix = "bufmgr: "

// Manager coordinates the frame pool, the page directory, and disk I/O.
// It targets the single-threaded access model described in the spec:
// exactly one goroutine drives a Manager's operations at a time. The
// internal mutex below makes that safe to state as a requirement rather
// than a trust exercise — every exported method takes it.
type Manager struct {
	mu sync.Mutex

	pageSize int
	tempFile string
	fs       afero.Fs
	disk     *diskio.Manager

	frames *framePool
	dir    pageDirectory

	nextTimestamp atomic.Int64
	nextSerial    atomic.Int64

	closed bool
	log    *slog.Logger
}

// New constructs a buffer manager with numFrames frames of pageSize
// bytes each, backing anonymous pages with tempFile. The frame pool is
// allocated eagerly; the temp file is created lazily on first use.
func New(fs afero.Fs, pageSize, numFrames int, tempFile string) (*Manager, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("bufmgr: pageSize must be positive, got %d", pageSize)
	}
	if numFrames <= 0 {
		return nil, fmt.Errorf("bufmgr: numFrames must be positive, got %d", numFrames)
	}

	m := &Manager{
		pageSize: pageSize,
		tempFile: tempFile,
		fs:       fs,
		disk:     diskio.New(fs, pageSize),
		frames:   newFramePool(numFrames, pageSize),
		dir:      newPageDirectory(),
		log:      slog.Default(),
	}
	m.log.Info(logPrefix+"opened", "pageSize", pageSize, "numFrames", numFrames, "tempFile", tempFile)
	return m, nil
}

// GetPage returns a handle to the index-th page of table, creating it
// (unbound, unpinned) if this is the first request for that identity.
func (m *Manager) GetPage(table Table, index int64) (*Handle, error) {
	return m.get(TableIdentity(table, index), false)
}

// GetAnonymousPage allocates a fresh temp-file-backed page and returns a
// handle to it.
func (m *Manager) GetAnonymousPage() (*Handle, error) {
	serial := m.nextSerial.Add(1) - 1
	return m.get(AnonymousIdentity(serial), false)
}

// GetPinnedPage is GetPage, additionally marking the page pinned so it
// cannot be chosen for eviction. An identity that was already cached
// unpinned becomes pinned as a side effect.
func (m *Manager) GetPinnedPage(table Table, index int64) (*Handle, error) {
	return m.get(TableIdentity(table, index), true)
}

// GetPinnedAnonymousPage is the anonymous counterpart of GetPinnedPage.
func (m *Manager) GetPinnedAnonymousPage() (*Handle, error) {
	serial := m.nextSerial.Add(1) - 1
	return m.get(AnonymousIdentity(serial), true)
}

func (m *Manager) get(id Identity, pin bool) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	p, ok := m.dir[id]
	if !ok {
		p = newPage(id, pin)
		m.dir[id] = p
		m.log.Debug(logPrefix+"created page", "identity", id.String(), "pinned", pin)
	} else if pin {
		p.pinned = true
	}
	p.timestamp = m.stamp()
	p.rc.inc()

	return &Handle{mgr: m, page: p}, nil
}

// Unpin clears the pinned flag on the page a handle refers to. It is a
// no-op if the page is already unpinned. Pinning is a property of the
// Page, not of any one handle: unpinning through any handle affects
// every holder of that identity, matching the source this is ported
// from.
func (m *Manager) Unpin(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h == nil || h.page == nil {
		return
	}
	h.page.pinned = false
}

// stamp returns the next strictly increasing timestamp. Must be called
// with mu held.
func (m *Manager) stamp() int64 {
	return m.nextTimestamp.Add(1) - 1
}

// getBytes implements the page byte access path: return the bound
// frame if there is one, otherwise acquire a frame (evicting an LRU
// victim if the pool is full) and load from disk. The timestamp is
// stamped last so a page just loaded is the most-recently-used.
func (m *Manager) getBytes(p *Page) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	if p.buf != nil {
		p.timestamp = m.stamp()
		return p.buf, nil
	}

	buf, ok := m.frames.allocate()
	if !ok {
		victim, found := findVictim(m.dir)
		if !found {
			return nil, ErrNoFreeFrame
		}
		if err := m.evict(victim); err != nil {
			return nil, err
		}
		buf, ok = m.frames.allocate()
		if !ok {
			// Unreachable under correct bookkeeping: evict() always
			// frees exactly the buffer we just failed to get.
			return nil, ErrNoFreeFrame
		}
	}

	p.buf = buf
	if err := m.load(p); err != nil {
		m.frames.deallocate(buf)
		p.buf = nil
		return nil, err
	}
	p.timestamp = m.stamp()
	m.log.Debug(logPrefix+"loaded page", "identity", p.identity.String())
	return p.buf, nil
}

// wroteBytes marks p dirty. Exposed via Handle.WroteBytes.
func (m *Manager) wroteBytes(p *Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.markDirty()
}

func (m *Manager) backingPath(id Identity) string {
	if id.IsAnonymous() {
		return m.tempFile
	}
	return id.Table().StorageLocation()
}

func (m *Manager) load(p *Page) error {
	return m.disk.ReadPage(m.backingPath(p.identity), p.identity.Index(), p.buf)
}

func (m *Manager) flush(p *Page) error {
	if err := m.disk.WritePage(m.backingPath(p.identity), p.identity.Index(), p.buf); err != nil {
		return err
	}
	p.dirty = false
	return nil
}

// evict writes back victim if dirty, frees its frame, and unbinds it.
// The page record itself stays in the directory; a subsequent access
// reloads it from disk. Must be called with mu held.
func (m *Manager) evict(victim *Page) error {
	if victim.dirty {
		if err := m.flush(victim); err != nil {
			return fmt.Errorf("bufmgr: evict %s: %w", victim.identity.String(), err)
		}
	}
	m.frames.deallocate(victim.buf)
	victim.buf = nil
	m.log.Debug(logPrefix+"evicted page", "identity", victim.identity.String())
	return nil
}

// release is called when a Handle is closed: it drops the handle's
// share of the page's refcount and, on the last handle, either drops an
// anonymous page entirely or clears the pinned flag on a persistent one.
func (m *Manager) release(p *Page) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.rc.get() <= 0 {
		return
	}
	if !p.rc.dec() {
		return
	}

	if p.identity.IsAnonymous() {
		// Nothing will read these bytes again once the last handle is
		// gone, so write-back on the way out would be wasted I/O — skip
		// it even if dirty (see design notes on anonymous finalization).
		if p.buf != nil {
			m.frames.deallocate(p.buf)
			p.buf = nil
		}
		delete(m.dir, p.identity)
		m.log.Debug(logPrefix+"dropped anonymous page", "identity", p.identity.String())
		return
	}

	if p.pinned {
		p.pinned = false
	}
}

// Stats is a point-in-time snapshot of manager occupancy, safe to call
// concurrently with any other Manager operation.
type Stats struct {
	FramesTotal   int
	FramesInUse   int
	ResidentPages int
	NextTimestamp int64
}

// Stats returns a snapshot of current frame occupancy and directory size.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	inUse := 0
	for _, taken := range m.frames.taken {
		if taken {
			inUse++
		}
	}
	return Stats{
		FramesTotal:   m.frames.size(),
		FramesInUse:   inUse,
		ResidentPages: len(m.dir),
		NextTimestamp: m.nextTimestamp.Load(),
	}
}

// Close flushes every dirty resident page, releases all frame memory,
// and deletes the temp file. Dirty pages are flushed concurrently since
// teardown assumes no other caller is still touching the manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}

	var wg conc.WaitGroup
	var errsMu sync.Mutex
	var errs error

	for _, p := range m.dir {
		p := p
		if p.buf == nil || !p.dirty {
			continue
		}
		wg.Go(func() {
			if err := m.flush(p); err != nil {
				errsMu.Lock()
				errs = multierr.Append(errs, err)
				errsMu.Unlock()
			}
		})
	}
	wg.Wait()

	for _, p := range m.dir {
		if p.buf != nil {
			m.frames.deallocate(p.buf)
			p.buf = nil
		}
	}
	m.dir = nil

	if err := m.disk.Remove(m.tempFile); err != nil {
		errs = multierr.Append(errs, err)
	}

	m.closed = true
	m.log.Info(logPrefix + "closed")
	return errs
}
