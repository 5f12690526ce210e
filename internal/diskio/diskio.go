// Package diskio reads and writes fixed-size pages to backing files.
//
// Access goes through an afero.Fs rather than raw os calls, so the same
// code path runs against the real filesystem in production and against
// an in-memory filesystem in tests.
package diskio

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

const osORdWrCreate = os.O_RDWR | os.O_CREATE

// Manager reads and writes pageSize-sized chunks of arbitrary backing
// files, addressed by (path, pageID). It has no notion of which page
// identity or table a path belongs to; that linkage lives one layer up.
type Manager struct {
	fs       afero.Fs
	pageSize int
}

func New(fs afero.Fs, pageSize int) *Manager {
	return &Manager{fs: fs, pageSize: pageSize}
}

// ReadPage fills dst (which must be pageSize bytes) with the contents of
// path at offset pageID*pageSize. If path is shorter than the requested
// range, the missing tail is zero-filled rather than treated as an error.
// The file is created if it does not exist yet.
func (m *Manager) ReadPage(path string, pageID int64, dst []byte) error {
	if len(dst) != m.pageSize {
		return fmt.Errorf("diskio: dst must be %d bytes, got %d", m.pageSize, len(dst))
	}

	f, err := m.fs.OpenFile(path, osORdWrCreate, 0o644)
	if err != nil {
		return fmt.Errorf("diskio: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	offset := pageID * int64(m.pageSize)
	n, err := f.ReadAt(dst, offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("diskio: read %s at %d: %w", path, offset, err)
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// WritePage writes src (which must be pageSize bytes) to path at offset
// pageID*pageSize, creating the file if absent, and syncs before
// returning so the write is durable.
func (m *Manager) WritePage(path string, pageID int64, src []byte) error {
	if len(src) != m.pageSize {
		return fmt.Errorf("diskio: src must be %d bytes, got %d", m.pageSize, len(src))
	}

	f, err := m.fs.OpenFile(path, osORdWrCreate, 0o644)
	if err != nil {
		return fmt.Errorf("diskio: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	offset := pageID * int64(m.pageSize)
	n, err := f.WriteAt(src, offset)
	if err != nil {
		return fmt.Errorf("diskio: write %s at %d: %w", path, offset, err)
	}
	if n != len(src) {
		return fmt.Errorf("diskio: short write to %s: wrote %d of %d bytes", path, n, len(src))
	}
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("diskio: sync %s: %w", path, err)
		}
	}
	return nil
}

// Remove deletes path. A missing file is not an error.
func (m *Manager) Remove(path string) error {
	if err := m.fs.Remove(path); err != nil {
		if removeIsNotExist(err) {
			return nil
		}
		return fmt.Errorf("diskio: remove %s: %w", path, err)
	}
	return nil
}

func removeIsNotExist(err error) bool {
	return afero.IsNotExist(err)
}
