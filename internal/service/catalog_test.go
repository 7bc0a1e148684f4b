package service_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mholden/brewdeck/internal/domain"
	"github.com/mholden/brewdeck/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func formula(name, version string) domain.Package {
	pkg := domain.NewPackage(name, domain.KindFormula)
	pkg.Installed = true
	pkg.Version = version
	return pkg
}

func cask(name, version string) domain.Package {
	pkg := domain.NewPackage(name, domain.KindCask)
	pkg.Installed = true
	pkg.Version = version
	return pkg
}

func names(pkgs []domain.Package) []string {
	out := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		out[i] = pkg.Ref.Name
	}
	return out
}

func TestCatalogInstalledMergesKindsSorted(t *testing.T) {
	assert := assert.New(t)

	c := service.NewCatalog(0, testLogger())
	c.ReplaceInstalled(domain.KindFormula, []domain.Package{
		formula("wget", "1.24"),
		formula("bat", "0.24"),
	})
	c.ReplaceInstalled(domain.KindCask, []domain.Package{
		cask("iterm2", "3.5"),
		cask("docker", "4.30"),
	})

	// Formulae first, each kind alphabetical
	assert.Equal([]string{"bat", "wget", "docker", "iterm2"}, names(c.Installed()))
}

func TestCatalogInstalledCarriesOutdatedMarkers(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c := service.NewCatalog(0, testLogger())
	c.ReplaceInstalled(domain.KindFormula, []domain.Package{
		formula("jq", "1.6"),
		formula("fd", "9.0"),
	})

	outdated := formula("jq", "1.6")
	outdated.Outdated = true
	outdated.AvailableVersion = "1.7"
	c.ReplaceOutdated(domain.KindFormula, []domain.Package{outdated})

	installed := c.Installed()
	require.Len(installed, 2)
	assert.True(installed[1].Outdated) // jq sorts after fd
	assert.Equal("1.7", installed[1].AvailableVersion)
	assert.False(installed[0].Outdated)
	assert.Equal(1, c.OutdatedCount())
}

func TestCatalogMarkUpdatedPromotesVersion(t *testing.T) {
	assert := assert.New(t)

	c := service.NewCatalog(0, testLogger())
	c.ReplaceInstalled(domain.KindFormula, []domain.Package{formula("jq", "1.6")})

	outdated := formula("jq", "1.6")
	outdated.Outdated = true
	outdated.AvailableVersion = "1.7"
	c.ReplaceOutdated(domain.KindFormula, []domain.Package{outdated})

	c.MarkUpdated(domain.PackageRef{Name: "jq", Kind: domain.KindFormula})

	assert.Equal(0, c.OutdatedCount())
	installed := c.Installed()
	assert.Equal("1.7", installed[0].Version)
	assert.False(installed[0].Outdated)
	assert.Empty(installed[0].AvailableVersion)
}

func TestCatalogMarkUninstalledRemovesEverywhere(t *testing.T) {
	assert := assert.New(t)

	c := service.NewCatalog(0, testLogger())
	c.ReplaceInstalled(domain.KindFormula, []domain.Package{formula("jq", "1.6"), formula("fd", "9.0")})
	c.ReplaceOutdated(domain.KindFormula, []domain.Package{formula("jq", "1.6")})

	searchHit := domain.NewPackage("jq", domain.KindFormula)
	searchHit.Installed = true
	c.ReplaceSearch(domain.KindFormula, []domain.Package{searchHit})

	c.MarkUninstalled(domain.PackageRef{Name: "jq", Kind: domain.KindFormula})

	assert.Equal([]string{"fd"}, names(c.Installed()))
	assert.Equal(0, c.OutdatedCount())
	assert.False(c.Search()[0].Installed)
}

func TestCatalogMarkInstalledReusesSearchRecord(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c := service.NewCatalog(0, testLogger())
	hit := domain.NewPackage("ripgrep", domain.KindFormula)
	hit.Description = "Fast grep"
	c.ReplaceSearch(domain.KindFormula, []domain.Package{hit})

	c.MarkInstalled(domain.PackageRef{Name: "ripgrep", Kind: domain.KindFormula})

	assert.True(c.Search()[0].Installed)
	installed := c.Installed()
	require.Len(installed, 1)
	assert.Equal("Fast grep", installed[0].Description)
	assert.True(installed[0].Installed)
}

func TestCatalogSearchMergesFormulaeAndCasks(t *testing.T) {
	assert := assert.New(t)

	c := service.NewCatalog(0, testLogger())
	c.ReplaceSearch(domain.KindFormula, []domain.Package{
		domain.NewPackage("wireshark", domain.KindFormula),
	})
	c.ReplaceSearch(domain.KindCask, []domain.Package{
		domain.NewPackage("wireshark", domain.KindCask),
		domain.NewPackage("firefox", domain.KindCask),
	})

	// Formulae first, each kind alphabetical; the two result sets land
	// independently and both survive
	assert.Equal([]string{"wireshark", "firefox", "wireshark"}, names(c.Search()))
	assert.Equal(domain.KindFormula, c.Search()[0].Ref.Kind)
	assert.Equal(domain.KindCask, c.Search()[2].Ref.Kind)

	c.ClearSearch()
	assert.Empty(c.Search())
}

func TestCatalogMergeInfoUpdatesSearchAndInstalled(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c := service.NewCatalog(0, testLogger())
	c.ReplaceInstalled(domain.KindFormula, []domain.Package{formula("jq", "1.6")})

	hit := domain.NewPackage("jq", domain.KindFormula)
	c.ReplaceSearch(domain.KindFormula, []domain.Package{hit})

	info := domain.NewPackage("jq", domain.KindFormula)
	info.Description = "JSON processor"
	info.Version = "1.7"
	c.MergeInfo(info)

	// Search rows take both fields; the installed version stays the
	// locally recorded one.
	assert.Equal("JSON processor", c.Search()[0].Description)
	assert.Equal("1.7", c.Search()[0].Version)
	installed := c.Installed()
	require.Len(installed, 1)
	assert.Equal("JSON processor", installed[0].Description)
	assert.Equal("1.6", installed[0].Version)
}

func TestCatalogMergeInfoRecordsFailedLoads(t *testing.T) {
	assert := assert.New(t)

	c := service.NewCatalog(0, testLogger())
	c.ReplaceInstalled(domain.KindFormula, []domain.Package{formula("jq", "1.6")})

	c.MergeInfo(domain.Package{
		Ref:            domain.PackageRef{Name: "jq", Kind: domain.KindFormula},
		InfoLoadFailed: true,
	})

	assert.True(c.Installed()[0].InfoLoadFailed)
}

func TestCatalogInfoLoadQueueHonorsCap(t *testing.T) {
	assert := assert.New(t)

	c := service.NewCatalog(2, testLogger())
	for _, name := range []string{"a", "b", "c", "d"} {
		c.QueueInfoLoad(domain.PackageRef{Name: name, Kind: domain.KindFormula})
	}
	// Duplicate request is dropped
	c.QueueInfoLoad(domain.PackageRef{Name: "a", Kind: domain.KindFormula})

	first := c.NextInfoLoads()
	assert.Len(first, 2)
	assert.True(c.InfoLoading(first[0]))

	// Cap reached: nothing more until a slot frees
	assert.Empty(c.NextInfoLoads())

	c.InfoLoadDone(first[0])
	second := c.NextInfoLoads()
	assert.Len(second, 1)
	assert.Equal("c", second[0].Name)
}

func TestFilterRanksByFuzzyMatch(t *testing.T) {
	assert := assert.New(t)

	pkgs := []domain.Package{
		formula("postgresql", "16"),
		formula("ripgrep", "14.1"),
		formula("grep", "3.11"),
	}

	filtered := service.Filter(pkgs, "grep")
	assert.Equal([]string{"grep", "ripgrep"}, names(filtered))

	// Empty query passes through untouched
	assert.Len(service.Filter(pkgs, ""), 3)
}
