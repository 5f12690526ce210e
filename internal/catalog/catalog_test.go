package catalog

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestCreateTable_IsIdempotentAndEquatable(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/data")

	t1, err := c.CreateTable("accounts")
	require.NoError(t, err)
	require.Equal(t, "/data/tables/accounts.tbl", t1.StorageLocation())

	t2, err := c.CreateTable("accounts")
	require.NoError(t, err)
	require.Equal(t, t1, t2)
}

func TestOpenTable_ReloadsFromDiskInFreshCatalog(t *testing.T) {
	fs := afero.NewMemMapFs()

	c1 := New(fs, "/data")
	created, err := c1.CreateTable("orders")
	require.NoError(t, err)

	c2 := New(fs, "/data")
	opened, err := c2.OpenTable("orders")
	require.NoError(t, err)
	require.Equal(t, created, opened)
}

func TestOpenTable_UnknownNameErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/data")

	_, err := c.OpenTable("missing")
	require.Error(t, err)
}
