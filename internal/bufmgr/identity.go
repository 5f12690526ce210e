package bufmgr

import "fmt"

// Table is the external collaborator a caller passes to GetPage /
// GetPinnedPage for a persistent page. Implementations (see
// internal/catalog.Table) must be comparable so an Identity built from
// one can be used as a map key.
type Table interface {
	StorageLocation() string
}

// Identity uniquely names a page within one Manager instance. It is
// either (table, index) for a persistent page or a standalone anonymous
// serial for a temporary one; the two spaces never collide because
// anon is part of the key.
type Identity struct {
	table Table
	index int64
	anon  bool
}

// TableIdentity names the index-th page of table.
func TableIdentity(table Table, index int64) Identity {
	return Identity{table: table, index: index}
}

// AnonymousIdentity names the serial-th anonymous (temp-file-backed) page.
func AnonymousIdentity(serial int64) Identity {
	return Identity{index: serial, anon: true}
}

func (id Identity) IsAnonymous() bool { return id.anon }

// Index returns the table page index, or the anonymous serial.
func (id Identity) Index() int64 { return id.index }

// Table returns the backing table for a persistent identity; it is nil
// for an anonymous one.
func (id Identity) Table() Table { return id.table }

func (id Identity) String() string {
	if id.anon {
		return fmt.Sprintf("anon:%d", id.index)
	}
	return fmt.Sprintf("%s:%d", id.table.StorageLocation(), id.index)
}
