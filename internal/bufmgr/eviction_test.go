package bufmgr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindVictim_SkipsUnbufferedAndPinned(t *testing.T) {
	dir := newPageDirectory()

	unbuffered := newPage(AnonymousIdentity(0), false)
	unbuffered.timestamp = 1

	pinned := newPage(AnonymousIdentity(1), true)
	pinned.buf = make([]byte, 8)
	pinned.timestamp = 2

	oldest := newPage(AnonymousIdentity(2), false)
	oldest.buf = make([]byte, 8)
	oldest.timestamp = 3

	newer := newPage(AnonymousIdentity(3), false)
	newer.buf = make([]byte, 8)
	newer.timestamp = 4

	dir[unbuffered.identity] = unbuffered
	dir[pinned.identity] = pinned
	dir[oldest.identity] = oldest
	dir[newer.identity] = newer

	victim, ok := findVictim(dir)
	require.True(t, ok)
	require.Same(t, oldest, victim)
}

func TestFindVictim_NoneWhenAllPinnedOrUnbuffered(t *testing.T) {
	dir := newPageDirectory()

	pinned := newPage(AnonymousIdentity(0), true)
	pinned.buf = make([]byte, 8)
	unbuffered := newPage(AnonymousIdentity(1), false)

	dir[pinned.identity] = pinned
	dir[unbuffered.identity] = unbuffered

	_, ok := findVictim(dir)
	require.False(t, ok)
}
