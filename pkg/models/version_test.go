package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePackageVersion(t *testing.T) {
	pv, err := ParsePackageVersion("MilouDeployerWebTest 1.2.4")
	require.NoError(t, err)

	assert.Equal(t, "MilouDeployerWebTest", pv.PackageID)
	assert.Equal(t, "1.2.4", pv.NormalizedVersion())
	assert.False(t, pv.IsPrerelease())
	assert.Equal(t, "MilouDeployerWebTest 1.2.4", pv.String())
}

func TestParsePackageVersion_Invalid(t *testing.T) {
	tests := []string{"", "OnlyId", "Id 1.2.3 extra", "Id not-a-version"}
	for _, tc := range tests {
		_, err := ParsePackageVersion(tc)
		assert.Error(t, err, "input %q", tc)
	}
}

func TestNewPackageVersion_AcceptsLeadingV(t *testing.T) {
	pv, err := NewPackageVersion("App", "v2.0.0-beta.1")
	require.NoError(t, err)
	assert.True(t, pv.IsPrerelease())
	assert.Equal(t, "2.0.0-beta.1", pv.NormalizedVersion())
}

func TestPackageVersion_Compare(t *testing.T) {
	a, _ := NewPackageVersion("App", "1.0.0")
	b, _ := NewPackageVersion("app", "1.2.0")
	beta, _ := NewPackageVersion("APP", "2.0.0-beta")
	other, _ := NewPackageVersion("Other", "9.9.9")

	cmp, ok := a.Compare(b)
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)

	cmp, ok = beta.Compare(b)
	assert.True(t, ok)
	assert.Equal(t, 1, cmp, "prerelease of a higher version compares greater")

	_, ok = a.Compare(other)
	assert.False(t, ok, "different package ids are incomparable")
}

func TestPackageVersion_KeyIgnoresCaseAndBuildMetadata(t *testing.T) {
	a, _ := NewPackageVersion("App", "1.0.0+build.5")
	b, _ := NewPackageVersion("APP", "1.0.0")

	assert.Equal(t, a.Key(), b.Key())
}

func TestDeployedVersion_Known(t *testing.T) {
	v, _ := ParseVersion("1.0.0")

	assert.False(t, (*DeployedVersion)(nil).Known())
	assert.False(t, (&DeployedVersion{TargetID: "t", PackageID: "App"}).Known())
	assert.False(t, (&DeployedVersion{TargetID: "t", PackageID: " ", Version: &v}).Known())
	assert.True(t, (&DeployedVersion{TargetID: "t", PackageID: "App", Version: &v}).Known())
}
