package bufmgr

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type testTable struct {
	name string
}

func (t testTable) StorageLocation() string { return "/data/" + t.name }

func newTestManager(t *testing.T, numFrames int) (*Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	m, err := New(fs, 1024, numFrames, "/tmp/pagepool.tmp")
	require.NoError(t, err)
	return m, fs
}

func fillPattern(b byte, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

// Scenario 1: basic round-trip.
func TestBasicRoundTrip(t *testing.T) {
	m, _ := newTestManager(t, 4)
	tbl := testTable{"t"}

	h, err := m.GetPage(tbl, 0)
	require.NoError(t, err)
	buf, err := h.GetBytes()
	require.NoError(t, err)
	copy(buf, fillPattern(0xAB, 1024))
	h.WroteBytes()
	require.NoError(t, h.Close())

	h2, err := m.GetPage(tbl, 0)
	require.NoError(t, err)
	defer h2.Close()
	buf2, err := h2.GetBytes()
	require.NoError(t, err)
	require.Equal(t, fillPattern(0xAB, 1024), buf2)
}

// Scenario 2: eviction under pressure.
func TestEvictionUnderPressure(t *testing.T) {
	m, _ := newTestManager(t, 2)
	tbl := testTable{"t"}

	h0, err := m.GetPage(tbl, 0)
	require.NoError(t, err)
	_, err = h0.GetBytes()
	require.NoError(t, err)

	h1, err := m.GetPage(tbl, 1)
	require.NoError(t, err)
	_, err = h1.GetBytes()
	require.NoError(t, err)

	h2, err := m.GetPage(tbl, 2)
	require.NoError(t, err)
	_, err = h2.GetBytes()
	require.NoError(t, err)

	// Page 0 was the LRU victim: it should now be unbound.
	p0 := m.dir[TableIdentity(tbl, 0)]
	require.False(t, p0.isBuffered())

	// Re-acquiring it reloads from disk without error.
	h0b, err := m.GetPage(tbl, 0)
	require.NoError(t, err)
	_, err = h0b.GetBytes()
	require.NoError(t, err)

	require.NoError(t, h0.Close())
	require.NoError(t, h1.Close())
	require.NoError(t, h2.Close())
	require.NoError(t, h0b.Close())
}

// Scenario 3: pin blocks eviction.
func TestPinBlocksEviction(t *testing.T) {
	m, _ := newTestManager(t, 2)
	tbl := testTable{"t"}

	h0, err := m.GetPinnedPage(tbl, 0)
	require.NoError(t, err)
	_, err = h0.GetBytes()
	require.NoError(t, err)

	h1, err := m.GetPage(tbl, 1)
	require.NoError(t, err)
	_, err = h1.GetBytes()
	require.NoError(t, err)

	h2, err := m.GetPage(tbl, 2)
	require.NoError(t, err)
	_, err = h2.GetBytes()
	require.NoError(t, err)

	p0 := m.dir[TableIdentity(tbl, 0)]
	require.True(t, p0.isBuffered(), "pinned page must never be evicted")

	p1 := m.dir[TableIdentity(tbl, 1)]
	require.False(t, p1.isBuffered(), "unpinned page 1 should have been the victim")

	require.NoError(t, h0.Close())
	require.NoError(t, h1.Close())
	require.NoError(t, h2.Close())
}

// Scenario 4: all pinned.
func TestAllPinnedFails(t *testing.T) {
	m, _ := newTestManager(t, 2)
	tbl := testTable{"t"}

	h0, err := m.GetPinnedPage(tbl, 0)
	require.NoError(t, err)
	_, err = h0.GetBytes()
	require.NoError(t, err)

	h1, err := m.GetPinnedPage(tbl, 1)
	require.NoError(t, err)
	_, err = h1.GetBytes()
	require.NoError(t, err)

	h2, err := m.GetPage(tbl, 2)
	require.NoError(t, err)
	_, err = h2.GetBytes()
	require.ErrorIs(t, err, ErrNoFreeFrame)

	require.NoError(t, h0.Close())
	require.NoError(t, h1.Close())
	require.NoError(t, h2.Close())
}

// Scenario 5: anonymous page disappears when its last handle releases.
func TestAnonymousPageDisappearsOnRelease(t *testing.T) {
	m, _ := newTestManager(t, 4)

	h, err := m.GetAnonymousPage()
	require.NoError(t, err)
	buf, err := h.GetBytes()
	require.NoError(t, err)
	copy(buf, fillPattern(0x11, 1024))
	h.WroteBytes()

	var id Identity
	for k := range m.dir {
		id = k
	}
	require.True(t, id.IsAnonymous())

	require.NoError(t, h.Close())

	_, stillThere := m.dir[id]
	require.False(t, stillThere)
	require.True(t, m.frames.hasFree())
}

// Scenario 6: teardown flush.
func TestTeardownFlushesDirtyPages(t *testing.T) {
	fs := afero.NewMemMapFs()
	tbl := testTable{"t"}

	m, err := New(fs, 1024, 4, "/tmp/pagepool.tmp")
	require.NoError(t, err)

	h, err := m.GetPage(tbl, 0)
	require.NoError(t, err)
	buf, err := h.GetBytes()
	require.NoError(t, err)
	copy(buf, fillPattern(0xCD, 1024))
	h.WroteBytes()
	// Deliberately do not Close h before Close(): teardown must still
	// flush regardless of outstanding handles.

	require.NoError(t, m.Close())

	m2, err := New(fs, 1024, 4, "/tmp/pagepool2.tmp")
	require.NoError(t, err)
	h2, err := m2.GetPage(tbl, 0)
	require.NoError(t, err)
	defer h2.Close()
	buf2, err := h2.GetBytes()
	require.NoError(t, err)
	require.Equal(t, fillPattern(0xCD, 1024), buf2)
}

// Invariant: unpin is idempotent.
func TestUnpinIdempotent(t *testing.T) {
	m, _ := newTestManager(t, 2)
	tbl := testTable{"t"}

	h, err := m.GetPinnedPage(tbl, 0)
	require.NoError(t, err)
	defer h.Close()

	m.Unpin(h)
	require.False(t, h.page.pinned)
	m.Unpin(h)
	require.False(t, h.page.pinned)
}

// Invariant: timestamps strictly increase across GetBytes and acquisition.
func TestTimestampsStrictlyIncrease(t *testing.T) {
	m, _ := newTestManager(t, 4)
	tbl := testTable{"t"}

	h0, err := m.GetPage(tbl, 0)
	require.NoError(t, err)
	defer h0.Close()
	ts0 := h0.page.timestamp

	_, err = h0.GetBytes()
	require.NoError(t, err)
	ts1 := h0.page.timestamp
	require.Greater(t, ts1, ts0)

	h1, err := m.GetPage(tbl, 1)
	require.NoError(t, err)
	defer h1.Close()
	require.Greater(t, h1.page.timestamp, ts1)
}

// Invariant: no two pages are ever bound to the same frame buffer.
func TestNoTwoPagesShareAFrame(t *testing.T) {
	m, _ := newTestManager(t, 3)
	tbl := testTable{"t"}

	var handles []*Handle
	for i := int64(0); i < 3; i++ {
		h, err := m.GetPage(tbl, i)
		require.NoError(t, err)
		_, err = h.GetBytes()
		require.NoError(t, err)
		handles = append(handles, h)
	}
	defer func() {
		for _, h := range handles {
			_ = h.Close()
		}
	}()

	seen := map[*byte]bool{}
	for _, p := range m.dir {
		if !p.isBuffered() {
			continue
		}
		ptr := &p.buf[0]
		require.False(t, seen[ptr], "two pages bound to the same frame")
		seen[ptr] = true
	}
}

// Pinning an already-cached identity preserves shared pin state across
// handles (spec's pin-is-a-page-property open question, preserved).
func TestPinIsSharedAcrossHandles(t *testing.T) {
	m, _ := newTestManager(t, 2)
	tbl := testTable{"t"}

	h1, err := m.GetPage(tbl, 0)
	require.NoError(t, err)
	defer h1.Close()

	h2, err := m.GetPinnedPage(tbl, 0)
	require.NoError(t, err)
	defer h2.Close()

	require.True(t, h1.page.pinned)
	require.Same(t, h1.page, h2.page)
}
