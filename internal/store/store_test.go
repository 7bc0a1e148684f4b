package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mholden/brewdeck/internal/domain"
	"github.com/mholden/brewdeck/internal/store"
)

func TestInfoStoreRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s, err := store.NewInfoStore(t.TempDir())
	require.NoError(err)
	defer s.Close()

	pkg := domain.NewPackage("jq", domain.KindFormula)
	pkg.Version = "1.7.1"
	pkg.Description = "Lightweight JSON processor"
	require.NoError(s.Put(pkg))

	got, ok := s.Get(pkg.Ref)
	require.True(ok)
	assert.Equal(pkg, got)

	_, ok = s.Get(domain.PackageRef{Name: "missing", Kind: domain.KindFormula})
	assert.False(ok)
}

func TestInfoStoreKeysByNameAndKind(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s, err := store.NewInfoStore(t.TempDir())
	require.NoError(err)
	defer s.Close()

	// The same name can exist as both formula and cask
	f := domain.NewPackage("wireshark", domain.KindFormula)
	f.Description = "CLI network analyzer"
	c := domain.NewPackage("wireshark", domain.KindCask)
	c.Description = "GUI network analyzer"
	require.NoError(s.Put(f))
	require.NoError(s.Put(c))

	gotF, ok := s.Get(f.Ref)
	require.True(ok)
	assert.Equal("CLI network analyzer", gotF.Description)

	gotC, ok := s.Get(c.Ref)
	require.True(ok)
	assert.Equal("GUI network analyzer", gotC.Description)
}

func TestInfoStorePersistsAcrossReopen(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := t.TempDir()

	s, err := store.NewInfoStore(dir)
	require.NoError(err)
	pkg := domain.NewPackage("fd", domain.KindFormula)
	pkg.Version = "10.1.0"
	require.NoError(s.Put(pkg))
	require.NoError(s.Close())

	reopened, err := store.NewInfoStore(dir)
	require.NoError(err)
	defer reopened.Close()

	got, ok := reopened.Get(pkg.Ref)
	require.True(ok)
	assert.Equal("10.1.0", got.Version)
}

func TestInfoStoreMemoryOnlyMode(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s, err := store.NewInfoStore("")
	require.NoError(err)
	defer s.Close()

	pkg := domain.NewPackage("bat", domain.KindFormula)
	require.NoError(s.Put(pkg))

	_, ok := s.Get(pkg.Ref)
	assert.True(ok)
}
