package service

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mholden/brewdeck/internal/domain"
)

// DefaultMaxInfoLoads caps concurrent detail lookups when the config doesn't
const DefaultMaxInfoLoads = 15

// Catalog is the in-memory view of what brew knows: installed and outdated
// packages plus the latest search results. The orchestration layer mutates
// it as operations complete; the UI reads immutable snapshots. Successful
// per-item operations update it locally ahead of the next full listing
// refresh, and the next refresh reconciles.
type Catalog struct {
	mu sync.RWMutex

	installed map[domain.PackageKind][]domain.Package
	outdated  map[domain.PackageKind][]domain.Package
	search    map[domain.PackageKind][]domain.Package

	// Lazy detail loading for search results: bounded in-flight set plus a
	// FIFO of refs waiting for a free slot.
	loadingInfo  map[domain.PackageRef]bool
	pendingInfo  []domain.PackageRef
	maxInfoLoads int

	logger *slog.Logger
}

// NewCatalog creates an empty catalog
func NewCatalog(maxInfoLoads int, logger *slog.Logger) *Catalog {
	if maxInfoLoads <= 0 {
		maxInfoLoads = DefaultMaxInfoLoads
	}
	return &Catalog{
		installed:    make(map[domain.PackageKind][]domain.Package),
		outdated:     make(map[domain.PackageKind][]domain.Package),
		search:       make(map[domain.PackageKind][]domain.Package),
		loadingInfo:  make(map[domain.PackageRef]bool),
		maxInfoLoads: maxInfoLoads,
		logger:       logger,
	}
}

// ReplaceInstalled swaps the installed listing for one kind
func (c *Catalog) ReplaceInstalled(kind domain.PackageKind, pkgs []domain.Package) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.installed[kind] = append([]domain.Package(nil), pkgs...)
}

// ReplaceOutdated swaps the outdated listing for one kind
func (c *Catalog) ReplaceOutdated(kind domain.PackageKind, pkgs []domain.Package) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outdated[kind] = append([]domain.Package(nil), pkgs...)
}

// ReplaceSearch swaps the search results for one kind. Formulae and
// casks are searched as separate operations and land here independently.
func (c *Catalog) ReplaceSearch(kind domain.PackageKind, pkgs []domain.Package) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search[kind] = append([]domain.Package(nil), pkgs...)
	c.pendingInfo = nil
}

// ClearSearch empties both result sets, ahead of a fresh query
func (c *Catalog) ClearSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = make(map[domain.PackageKind][]domain.Package)
	c.pendingInfo = nil
}

// Installed returns all installed packages, formulae before casks, each
// kind sorted by name, annotated with outdated markers from the last
// outdated listing
func (c *Catalog) Installed() []domain.Package {
	c.mu.RLock()
	defer c.mu.RUnlock()

	newer := make(map[domain.PackageRef]string)
	for _, kind := range []domain.PackageKind{domain.KindFormula, domain.KindCask} {
		for _, pkg := range c.outdated[kind] {
			newer[pkg.Ref] = pkg.AvailableVersion
		}
	}

	out := mergeSorted(c.installed[domain.KindFormula], c.installed[domain.KindCask])
	for i, pkg := range out {
		if available, ok := newer[pkg.Ref]; ok {
			out[i].Outdated = true
			out[i].AvailableVersion = available
		}
	}
	return out
}

// Outdated returns all outdated packages
func (c *Catalog) Outdated() []domain.Package {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return mergeSorted(c.outdated[domain.KindFormula], c.outdated[domain.KindCask])
}

// Search returns the current search results, formulae before casks
func (c *Catalog) Search() []domain.Package {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return mergeSorted(c.search[domain.KindFormula], c.search[domain.KindCask])
}

// OutdatedCount returns the number of outdated packages
func (c *Catalog) OutdatedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.outdated[domain.KindFormula]) + len(c.outdated[domain.KindCask])
}

// MarkUpdated drops ref from the outdated set and bumps its installed
// version, without waiting for a full reload
func (c *Catalog) MarkUpdated(ref domain.PackageRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var available string
	kept := c.outdated[ref.Kind][:0]
	for _, pkg := range c.outdated[ref.Kind] {
		if pkg.Ref == ref {
			available = pkg.AvailableVersion
			continue
		}
		kept = append(kept, pkg)
	}
	c.outdated[ref.Kind] = kept

	for i, pkg := range c.installed[ref.Kind] {
		if pkg.Ref == ref {
			c.installed[ref.Kind][i].Outdated = false
			if available != "" {
				c.installed[ref.Kind][i].Version = available
				c.installed[ref.Kind][i].AvailableVersion = ""
			}
			break
		}
	}
}

// MarkUninstalled drops ref from the installed and outdated sets
func (c *Catalog) MarkUninstalled(ref domain.PackageRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.installed[ref.Kind] = removeRef(c.installed[ref.Kind], ref)
	c.outdated[ref.Kind] = removeRef(c.outdated[ref.Kind], ref)
	for i, pkg := range c.search[ref.Kind] {
		if pkg.Ref == ref {
			c.search[ref.Kind][i].Installed = false
			break
		}
	}
}

// MarkInstalled records a fresh install locally until the next reload
func (c *Catalog) MarkInstalled(ref domain.PackageRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, pkg := range c.search[ref.Kind] {
		if pkg.Ref == ref {
			c.search[ref.Kind][i].Installed = true
			pkg.Installed = true
			c.installed[ref.Kind] = append(c.installed[ref.Kind], pkg)
			return
		}
	}
	pkg := domain.NewPackage(ref.Name, ref.Kind)
	pkg.Installed = true
	c.installed[ref.Kind] = append(c.installed[ref.Kind], pkg)
}

// SetPinned flips the pin marker on an installed formula
func (c *Catalog) SetPinned(ref domain.PackageRef, pinned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, pkg := range c.installed[ref.Kind] {
		if pkg.Ref == ref {
			c.installed[ref.Kind][i].Pinned = pinned
			break
		}
	}
}

// MergeInfo folds a completed detail lookup into the search results and
// the installed listing. Installed versions come from brew list and are
// authoritative; only the description is merged there.
func (c *Catalog) MergeInfo(pkg domain.Package) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kind := pkg.Ref.Kind
	for i, p := range c.search[kind] {
		if p.Ref == pkg.Ref {
			c.search[kind][i].Description = pkg.Description
			if pkg.Version != "" {
				c.search[kind][i].Version = pkg.Version
			}
			c.search[kind][i].InfoLoadFailed = pkg.InfoLoadFailed
			break
		}
	}
	for i, p := range c.installed[pkg.Ref.Kind] {
		if p.Ref == pkg.Ref {
			c.installed[pkg.Ref.Kind][i].Description = pkg.Description
			c.installed[pkg.Ref.Kind][i].InfoLoadFailed = pkg.InfoLoadFailed
			break
		}
	}
}

// QueueInfoLoad requests a lazy detail lookup for ref. Duplicate requests
// are dropped while one is loading or queued.
func (c *Catalog) QueueInfoLoad(ref domain.PackageRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loadingInfo[ref] {
		return
	}
	for _, queued := range c.pendingInfo {
		if queued == ref {
			return
		}
	}
	c.pendingInfo = append(c.pendingInfo, ref)
}

// NextInfoLoads drains queued lookups up to the concurrency cap, marking
// them in flight. The caller submits one task per returned ref.
func (c *Catalog) NextInfoLoads() []domain.PackageRef {
	c.mu.Lock()
	defer c.mu.Unlock()

	free := c.maxInfoLoads - len(c.loadingInfo)
	if free <= 0 || len(c.pendingInfo) == 0 {
		return nil
	}
	if free > len(c.pendingInfo) {
		free = len(c.pendingInfo)
	}
	batch := c.pendingInfo[:free]
	c.pendingInfo = append([]domain.PackageRef(nil), c.pendingInfo[free:]...)
	out := make([]domain.PackageRef, len(batch))
	copy(out, batch)
	for _, ref := range out {
		c.loadingInfo[ref] = true
	}
	return out
}

// InfoLoadDone releases the in-flight slot for ref
func (c *Catalog) InfoLoadDone(ref domain.PackageRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.loadingInfo, ref)
}

// InfoLoading reports whether a detail lookup for ref is in flight
func (c *Catalog) InfoLoading(ref domain.PackageRef) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadingInfo[ref]
}

// Filter ranks pkgs against query with fuzzy matching, best first. An
// empty query returns pkgs unchanged.
func Filter(pkgs []domain.Package, query string) []domain.Package {
	if query == "" {
		return pkgs
	}
	names := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		names[i] = pkg.Ref.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Sort(ranks)

	out := make([]domain.Package, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, pkgs[rank.OriginalIndex])
	}
	return out
}

// removeRef drops the package with ref from pkgs, preserving order
func removeRef(pkgs []domain.Package, ref domain.PackageRef) []domain.Package {
	kept := pkgs[:0]
	for _, pkg := range pkgs {
		if pkg.Ref != ref {
			kept = append(kept, pkg)
		}
	}
	return kept
}

// mergeSorted concatenates two listings sorted by name within each kind
func mergeSorted(formulae, casks []domain.Package) []domain.Package {
	out := make([]domain.Package, 0, len(formulae)+len(casks))
	out = append(out, formulae...)
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.Name < out[j].Ref.Name })
	tail := append([]domain.Package(nil), casks...)
	sort.Slice(tail, func(i, j int) bool { return tail[i].Ref.Name < tail[j].Ref.Name })
	return append(out, tail...)
}
