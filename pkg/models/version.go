package models

import (
	"fmt"
	"strings"

	"github.com/blang/semver"
)

// PackageVersion identifies one released version of a package
type PackageVersion struct {
	PackageID string
	Version   semver.Version
}

// NewPackageVersion parses version and pairs it with packageID
func NewPackageVersion(packageID, version string) (PackageVersion, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return PackageVersion{}, fmt.Errorf("package id is required")
	}

	v, err := ParseVersion(version)
	if err != nil {
		return PackageVersion{}, err
	}

	return PackageVersion{PackageID: packageID, Version: v}, nil
}

// ParsePackageVersion parses the "PackageId 1.2.3" text form
func ParsePackageVersion(s string) (PackageVersion, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return PackageVersion{}, fmt.Errorf("invalid package version %q: expected \"<package-id> <version>\"", s)
	}
	return NewPackageVersion(fields[0], fields[1])
}

// ParseVersion parses a semantic version, accepting a leading "v"
func ParseVersion(s string) (semver.Version, error) {
	v, err := semver.Parse(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if err != nil {
		return semver.Version{}, fmt.Errorf("invalid semantic version %q: %w", s, err)
	}
	return v, nil
}

// SamePackage reports whether both versions belong to the same package id
func (p PackageVersion) SamePackage(packageID string) bool {
	return strings.EqualFold(p.PackageID, packageID)
}

// Compare orders two versions of the same package. ok is false when the
// package ids differ, in which case the versions are incomparable.
func (p PackageVersion) Compare(other PackageVersion) (cmp int, ok bool) {
	if !p.SamePackage(other.PackageID) {
		return 0, false
	}
	return p.Version.Compare(other.Version), true
}

// IsPrerelease reports whether the version carries prerelease identifiers
func (p PackageVersion) IsPrerelease() bool {
	return IsPrerelease(p.Version)
}

// NormalizedVersion returns the version without build metadata
func (p PackageVersion) NormalizedVersion() string {
	return NormalizeVersion(p.Version)
}

// Key is the set identity of the version: case-folded package id plus
// normalized version.
func (p PackageVersion) Key() string {
	return strings.ToLower(p.PackageID) + " " + p.NormalizedVersion()
}

func (p PackageVersion) String() string {
	return p.PackageID + " " + p.NormalizedVersion()
}

// IsPrerelease reports whether v has prerelease identifiers
func IsPrerelease(v semver.Version) bool {
	return len(v.Pre) > 0
}

// NormalizeVersion formats v as major.minor.patch[-prerelease]
func NormalizeVersion(v semver.Version) string {
	normalized := semver.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch, Pre: v.Pre}
	return normalized.String()
}

// DeployedVersion is what a target reports it is currently running
type DeployedVersion struct {
	TargetID  string
	PackageID string
	Version   *semver.Version
}

// Known reports whether the deployed version can be used for an upgrade decision
func (d *DeployedVersion) Known() bool {
	return d != nil && strings.TrimSpace(d.PackageID) != "" && d.Version != nil
}
