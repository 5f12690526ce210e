package bufmgr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkDirty_NoopWhenUnbound(t *testing.T) {
	p := newPage(AnonymousIdentity(0), false)
	p.markDirty()
	require.False(t, p.dirty, "a page with no bound frame cannot be dirty")
}

func TestMarkDirty_SetsWhenBound(t *testing.T) {
	p := newPage(AnonymousIdentity(0), false)
	p.buf = make([]byte, 8)
	p.markDirty()
	require.True(t, p.dirty)
}
