package domain

import "context"

// PackageRepository provides typed access to the brew CLI. Implementations
// own argument construction and output parsing; callers only see entities
// and classified failures.
type PackageRepository interface {
	// InstalledPackages returns every installed package of the given kind
	InstalledPackages(ctx context.Context, kind PackageKind) ([]Package, error)

	// OutdatedPackages returns installed packages with a newer version available
	OutdatedPackages(ctx context.Context, kind PackageKind) ([]Package, error)

	// SearchPackages returns packages matching the query
	SearchPackages(ctx context.Context, query string, kind PackageKind) ([]Package, error)

	// PackageInfo returns full detail for one package
	PackageInfo(ctx context.Context, ref PackageRef) (Package, error)

	// Install installs a package. A non-empty credential is attached to the
	// invocation and is never retained.
	Install(ctx context.Context, ref PackageRef, credential string) error

	// Uninstall removes a package
	Uninstall(ctx context.Context, ref PackageRef, credential string) error

	// Update upgrades a single package
	Update(ctx context.Context, ref PackageRef, credential string) error

	// UpdateAll upgrades everything that is outdated
	UpdateAll(ctx context.Context, credential string) error

	// CleanupPreview returns what CleanCache would remove, without removing it
	CleanupPreview(ctx context.Context) (CleanupPreview, error)

	// CleanCache removes cached downloads
	CleanCache(ctx context.Context) error

	// OldVersionsPreview returns what CleanupOldVersions would prune
	OldVersionsPreview(ctx context.Context) (CleanupPreview, error)

	// CleanupOldVersions prunes superseded package versions
	CleanupOldVersions(ctx context.Context) error

	// Pin prevents a formula from being upgraded
	Pin(ctx context.Context, ref PackageRef) error

	// Unpin re-enables upgrades for a pinned formula
	Unpin(ctx context.Context, ref PackageRef) error
}

// InfoCache persists package detail lookups across runs
type InfoCache interface {
	// Get returns the cached package and whether it was present
	Get(ref PackageRef) (Package, bool)

	// Put stores a package detail record
	Put(pkg Package) error

	// Close releases the underlying storage
	Close() error
}
