package brew

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholden/brewdeck/internal/domain"
)

// Repository implements domain.PackageRepository on top of the Gateway.
// It owns brew argument construction and output parsing; an optional info
// cache keeps detail lookups warm across runs.
type Repository struct {
	gw     *Gateway
	cache  domain.InfoCache // may be nil
	logger *slog.Logger
}

// NewRepository creates a brew-backed package repository
func NewRepository(gw *Gateway, cache domain.InfoCache, logger *slog.Logger) *Repository {
	return &Repository{gw: gw, cache: cache, logger: logger}
}

// brewOutdatedPayload mirrors `brew outdated --json=v2`
type brewOutdatedPayload struct {
	Formulae []brewOutdatedItem `json:"formulae"`
	Casks    []brewOutdatedItem `json:"casks"`
}

type brewOutdatedItem struct {
	Name              string   `json:"name"`
	InstalledVersions []string `json:"installed_versions"`
	CurrentVersion    string   `json:"current_version"`
	Pinned            bool     `json:"pinned"`
}

// brewInfoPayload mirrors `brew info --json=v2`
type brewInfoPayload struct {
	Formulae []brewInfoItem `json:"formulae"`
	Casks    []brewInfoItem `json:"casks"`
}

type brewInfoItem struct {
	Name     string `json:"name"`
	Token    string `json:"token"` // casks use token instead of name
	Desc     string `json:"desc"`
	Version  string `json:"version"` // casks
	Versions struct {
		Stable string `json:"stable"` // formulae
	} `json:"versions"`
}

// InstalledPackages lists installed packages of one kind with versions
func (r *Repository) InstalledPackages(ctx context.Context, kind domain.PackageKind) ([]domain.Package, error) {
	out, err := r.gw.Run(ctx, "list", "--versions", kind.Flag())
	if err != nil {
		return nil, err
	}

	pinned := r.pinnedSet(ctx, kind)
	var pkgs []domain.Package
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pkg := domain.NewPackage(fields[0], kind)
		pkg.Installed = true
		pkg.Version = fields[1]
		pkg.Pinned = pinned[fields[0]]
		pkgs = append(pkgs, pkg)
	}
	r.logger.Debug("parsed installed packages", "kind", kind.String(), "count", len(pkgs))
	return pkgs, nil
}

// pinnedSet returns the pinned formula names. Pinning doesn't apply to
// casks and a failure here only loses the pin markers, so errors degrade
// to an empty set.
func (r *Repository) pinnedSet(ctx context.Context, kind domain.PackageKind) map[string]bool {
	if kind != domain.KindFormula {
		return nil
	}
	out, err := r.gw.Run(ctx, "list", "--pinned")
	if err != nil {
		r.logger.Debug("pinned list unavailable", "error", err)
		return nil
	}
	set := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			set[name] = true
		}
	}
	return set
}

// OutdatedPackages lists installed packages with a newer version available
func (r *Repository) OutdatedPackages(ctx context.Context, kind domain.PackageKind) ([]domain.Package, error) {
	out, err := r.gw.Run(ctx, "outdated", kind.Flag(), "--json=v2")
	if err != nil {
		return nil, err
	}

	var payload brewOutdatedPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		return nil, fmt.Errorf("parsing brew outdated output: %w", err)
	}
	items := payload.Formulae
	if kind == domain.KindCask {
		items = payload.Casks
	}

	pkgs := make([]domain.Package, 0, len(items))
	for _, item := range items {
		pkg := domain.NewPackage(item.Name, kind)
		pkg.Installed = true
		pkg.Outdated = true
		pkg.Pinned = item.Pinned
		if len(item.InstalledVersions) > 0 {
			pkg.Version = item.InstalledVersions[0]
		}
		pkg.AvailableVersion = item.CurrentVersion
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

// SearchPackages returns name-only records matching the query; detail is
// filled in lazily by PackageInfo
func (r *Repository) SearchPackages(ctx context.Context, query string, kind domain.PackageKind) ([]domain.Package, error) {
	out, err := r.gw.Run(ctx, "search", kind.Flag(), query)
	if err != nil {
		return nil, err
	}

	var pkgs []domain.Package
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || strings.HasPrefix(name, "==>") {
			continue
		}
		pkgs = append(pkgs, domain.NewPackage(name, kind))
	}
	return pkgs, nil
}

// PackageInfo returns full detail for one package, consulting the cache
// before shelling out
func (r *Repository) PackageInfo(ctx context.Context, ref domain.PackageRef) (domain.Package, error) {
	if r.cache != nil {
		if pkg, ok := r.cache.Get(ref); ok {
			return pkg, nil
		}
	}

	out, err := r.gw.Run(ctx, "info", "--json=v2", ref.Kind.Flag(), ref.Name)
	if err != nil {
		return domain.Package{}, err
	}

	var payload brewInfoPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		return domain.Package{}, fmt.Errorf("parsing brew info output for %s: %w", ref.Name, err)
	}
	items := payload.Formulae
	if ref.Kind == domain.KindCask {
		items = payload.Casks
	}
	if len(items) == 0 {
		return domain.Package{}, domain.NewFailure(domain.FailNotFound, "no info for %s", ref.Name)
	}

	item := items[0]
	pkg := domain.NewPackage(ref.Name, ref.Kind)
	pkg.Description = item.Desc
	pkg.Version = item.Version
	if pkg.Version == "" {
		pkg.Version = item.Versions.Stable
	}

	if r.cache != nil {
		if err := r.cache.Put(pkg); err != nil {
			r.logger.Debug("info cache write failed", "package", ref.Name, "error", err)
		}
	}
	return pkg, nil
}

// Install installs a package, pre-authorizing sudo when a credential is given
func (r *Repository) Install(ctx context.Context, ref domain.PackageRef, credential string) error {
	return r.mutate(ctx, credential, "install", ref.Kind.Flag(), ref.Name)
}

// Uninstall removes a package
func (r *Repository) Uninstall(ctx context.Context, ref domain.PackageRef, credential string) error {
	return r.mutate(ctx, credential, "uninstall", ref.Kind.Flag(), ref.Name)
}

// Update upgrades one package
func (r *Repository) Update(ctx context.Context, ref domain.PackageRef, credential string) error {
	return r.mutate(ctx, credential, "upgrade", ref.Kind.Flag(), ref.Name)
}

// UpdateAll upgrades everything that is outdated
func (r *Repository) UpdateAll(ctx context.Context, credential string) error {
	return r.mutate(ctx, credential, "upgrade")
}

// mutate runs a state-changing brew command, logging its output
func (r *Repository) mutate(ctx context.Context, credential string, args ...string) error {
	var out string
	var err error
	if credential != "" {
		out, err = r.gw.RunWithCredential(ctx, credential, args...)
	} else {
		out, err = r.gw.Run(ctx, args...)
	}
	if err != nil {
		return err
	}
	if out != "" {
		r.logger.Info("brew output", "command", args[0], "output", firstLine(out))
	}
	return nil
}

// CleanupPreview returns what `brew cleanup -s` would remove
func (r *Repository) CleanupPreview(ctx context.Context) (domain.CleanupPreview, error) {
	out, err := r.gw.Run(ctx, "cleanup", "-s", "--dry-run")
	if err != nil {
		return domain.CleanupPreview{}, err
	}
	return parseCleanupPreview(out), nil
}

// CleanCache removes cached downloads
func (r *Repository) CleanCache(ctx context.Context) error {
	_, err := r.gw.Run(ctx, "cleanup", "-s")
	return err
}

// OldVersionsPreview returns what `brew cleanup --prune=all` would prune
func (r *Repository) OldVersionsPreview(ctx context.Context) (domain.CleanupPreview, error) {
	out, err := r.gw.Run(ctx, "cleanup", "--prune=all", "--dry-run")
	if err != nil {
		return domain.CleanupPreview{}, err
	}
	return parseCleanupPreview(out), nil
}

// CleanupOldVersions prunes superseded package versions
func (r *Repository) CleanupOldVersions(ctx context.Context) error {
	_, err := r.gw.Run(ctx, "cleanup", "--prune=all")
	return err
}

// Pin prevents a formula from being upgraded
func (r *Repository) Pin(ctx context.Context, ref domain.PackageRef) error {
	_, err := r.gw.Run(ctx, "pin", ref.Name)
	return err
}

// Unpin re-enables upgrades for a pinned formula
func (r *Repository) Unpin(ctx context.Context, ref domain.PackageRef) error {
	_, err := r.gw.Run(ctx, "unpin", ref.Name)
	return err
}

// parseCleanupPreview extracts "Would remove: <path>" lines, sizing each
// path best-effort from the filesystem
func parseCleanupPreview(out string) domain.CleanupPreview {
	var preview domain.CleanupPreview
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		path, ok := strings.CutPrefix(trimmed, "Would remove: ")
		if !ok {
			continue
		}
		// Strip trailing annotations like "(1.2MB)"
		if i := strings.Index(path, " ("); i > 0 {
			path = path[:i]
		}
		size := pathSize(path)
		preview.Items = append(preview.Items, domain.CleanupItem{Path: path, Size: size})
		preview.TotalSize += size
	}
	return preview
}

// pathSize returns the size of a file or the recursive size of a directory;
// 0 when the path is gone already
func pathSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	if !info.IsDir() {
		return info.Size()
	}
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total
}
