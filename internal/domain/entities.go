package domain

import "fmt"

// PackageKind distinguishes Homebrew formulae from casks
type PackageKind int

const (
	KindFormula PackageKind = iota
	KindCask
)

// String returns the human-readable kind name
func (k PackageKind) String() string {
	if k == KindCask {
		return "Cask"
	}
	return "Formula"
}

// Flag returns the brew CLI flag for this kind ("--formula" or "--cask")
func (k PackageKind) Flag() string {
	if k == KindCask {
		return "--cask"
	}
	return "--formula"
}

// PackageRef identifies a package by name and kind. Refs compare by value.
type PackageRef struct {
	Name string
	Kind PackageKind
}

// String returns "name (Kind)" for status lines and logs
func (r PackageRef) String() string {
	return fmt.Sprintf("%s (%s)", r.Name, r.Kind)
}

// Package is an immutable snapshot of what brew knows about one package
type Package struct {
	Ref              PackageRef
	Version          string // Installed version, empty when not installed
	AvailableVersion string // Newer version when outdated
	Description      string
	Installed        bool
	Outdated         bool
	Pinned           bool
	InfoLoadFailed   bool // Detail lookup failed or timed out
}

// NewPackage creates a bare package record for the given ref
func NewPackage(name string, kind PackageKind) Package {
	return Package{Ref: PackageRef{Name: name, Kind: kind}}
}

// CleanupItem is one path brew would remove during cleanup
type CleanupItem struct {
	Path string
	Size int64
}

// CleanupPreview is the dry-run result of a cleanup operation
type CleanupPreview struct {
	Items     []CleanupItem
	TotalSize int64
}

// CacheInfo describes the download cache brew maintains on disk
type CacheInfo struct {
	Path         string
	TotalSize    int64
	PackageCount int
}
