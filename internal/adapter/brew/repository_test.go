package brew

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mholden/brewdeck/internal/domain"
)

// scriptedRepo builds a repository whose runner replies per brew subcommand
func scriptedRepo(replies map[string]CommandResult) (*Repository, *fakeRunner) {
	runner := &fakeRunner{script: func(name string, args []string, stdin string) (CommandResult, error) {
		key := name + " " + strings.Join(args, " ")
		for prefix, res := range replies {
			if strings.HasPrefix(key, prefix) {
				return res, nil
			}
		}
		return CommandResult{}, nil
	}}
	gw := NewGateway(runner, time.Minute, testLogger())
	return NewRepository(gw, nil, testLogger()), runner
}

func TestRepositoryInstalledPackagesParsesListOutput(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, _ := scriptedRepo(map[string]CommandResult{
		"brew list --versions": {Stdout: "jq 1.7.1\nfd 10.1.0\nbroken-line\n"},
		"brew list --pinned":   {Stdout: "fd\n"},
	})

	pkgs, err := repo.InstalledPackages(context.Background(), domain.KindFormula)
	require.NoError(err)
	require.Len(pkgs, 2)

	assert.Equal("jq", pkgs[0].Ref.Name)
	assert.Equal("1.7.1", pkgs[0].Version)
	assert.True(pkgs[0].Installed)
	assert.False(pkgs[0].Pinned)

	assert.Equal("fd", pkgs[1].Ref.Name)
	assert.True(pkgs[1].Pinned)
}

func TestRepositoryOutdatedPackagesParsesJSON(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	payload := `{
		"formulae": [
			{"name": "jq", "installed_versions": ["1.6"], "current_version": "1.7.1", "pinned": false}
		],
		"casks": [
			{"name": "docker", "installed_versions": ["4.29"], "current_version": "4.30", "pinned": false}
		]
	}`
	repo, _ := scriptedRepo(map[string]CommandResult{
		"brew outdated": {Stdout: payload},
	})

	formulae, err := repo.OutdatedPackages(context.Background(), domain.KindFormula)
	require.NoError(err)
	require.Len(formulae, 1)
	assert.Equal("jq", formulae[0].Ref.Name)
	assert.Equal("1.6", formulae[0].Version)
	assert.Equal("1.7.1", formulae[0].AvailableVersion)
	assert.True(formulae[0].Outdated)

	casks, err := repo.OutdatedPackages(context.Background(), domain.KindCask)
	require.NoError(err)
	require.Len(casks, 1)
	assert.Equal("docker", casks[0].Ref.Name)
	assert.Equal(domain.KindCask, casks[0].Ref.Kind)
}

func TestRepositorySearchSkipsHeadings(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, _ := scriptedRepo(map[string]CommandResult{
		"brew search": {Stdout: "==> Formulae\nripgrep\ngrep\n\n"},
	})

	pkgs, err := repo.SearchPackages(context.Background(), "grep", domain.KindFormula)
	require.NoError(err)
	require.Len(pkgs, 2)
	assert.Equal("ripgrep", pkgs[0].Ref.Name)
	assert.Equal("grep", pkgs[1].Ref.Name)
}

func TestRepositoryPackageInfoReadsFormulaDetail(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	payload := `{
		"formulae": [
			{"name": "jq", "desc": "Lightweight JSON processor", "versions": {"stable": "1.7.1"}}
		],
		"casks": []
	}`
	repo, _ := scriptedRepo(map[string]CommandResult{
		"brew info": {Stdout: payload},
	})

	pkg, err := repo.PackageInfo(context.Background(), domain.PackageRef{Name: "jq", Kind: domain.KindFormula})
	require.NoError(err)
	assert.Equal("Lightweight JSON processor", pkg.Description)
	assert.Equal("1.7.1", pkg.Version)
}

func TestRepositoryPackageInfoPrefersCache(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cached := domain.NewPackage("jq", domain.KindFormula)
	cached.Description = "from cache"

	runner := &fakeRunner{}
	gw := NewGateway(runner, time.Minute, testLogger())
	repo := NewRepository(gw, staticCache{pkg: cached}, testLogger())

	pkg, err := repo.PackageInfo(context.Background(), cached.Ref)
	require.NoError(err)
	assert.Equal("from cache", pkg.Description)
	assert.Empty(runner.recorded())
}

// staticCache always hits with one package
type staticCache struct{ pkg domain.Package }

func (c staticCache) Get(ref domain.PackageRef) (domain.Package, bool) {
	return c.pkg, ref == c.pkg.Ref
}
func (staticCache) Put(domain.Package) error { return nil }
func (staticCache) Close() error             { return nil }

func TestRepositoryMutateAttachesCredential(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, runner := scriptedRepo(nil)
	ref := domain.PackageRef{Name: "docker", Kind: domain.KindCask}

	require.NoError(repo.Install(context.Background(), ref, ""))
	require.NoError(repo.Install(context.Background(), ref, "s3cret"))

	calls := runner.recorded()
	require.Len(calls, 3) // plain brew, then sudo -v + brew
	assert.Equal("brew", calls[0].Name)
	assert.Equal("sudo", calls[1].Name)
	assert.Equal("s3cret\n", calls[1].Stdin)
	assert.Equal("brew", calls[2].Name)
	assert.Equal([]string{"install", "--cask", "docker"}, calls[2].Args)
}

func TestParseCleanupPreview(t *testing.T) {
	assert := assert.New(t)

	out := strings.Join([]string{
		"Would remove: /opt/homebrew/Cellar/jq/1.6 (2 files, 1.2MB)",
		"Would remove: /opt/homebrew/Caskroom/docker/4.29",
		"this line is noise",
		"==> Caveats",
	}, "\n")

	preview := parseCleanupPreview(out)
	assert.Len(preview.Items, 2)
	assert.Equal("/opt/homebrew/Cellar/jq/1.6", preview.Items[0].Path)
	assert.Equal("/opt/homebrew/Caskroom/docker/4.29", preview.Items[1].Path)
	// Paths don't exist locally so sizes are best-effort zero
	assert.Equal(int64(0), preview.TotalSize)
}

func TestRepositoryPinUnpinTargetFormulaByName(t *testing.T) {
	require := require.New(t)

	repo, runner := scriptedRepo(nil)
	ref := domain.PackageRef{Name: "jq", Kind: domain.KindFormula}

	require.NoError(repo.Pin(context.Background(), ref))
	require.NoError(repo.Unpin(context.Background(), ref))

	calls := runner.recorded()
	require.Len(calls, 2)
	require.Equal([]string{"pin", "jq"}, calls[0].Args)
	require.Equal([]string{"unpin", "jq"}, calls[1].Args)
}
