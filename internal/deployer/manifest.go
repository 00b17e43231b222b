package deployer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// Manifest is the document handed to the external deployer
type Manifest struct {
	Definitions []ManifestDefinition `json:"definitions"`
}

// ManifestDefinition describes a single package installation
type ManifestDefinition struct {
	PackageID           string              `json:"packageId"`
	TargetDirectoryPath string              `json:"targetDirectoryPath"`
	IsPreRelease        bool                `json:"isPreRelease"`
	EnvironmentConfig   string              `json:"environmentConfig,omitempty"`
	PublishSettingsFile string              `json:"publishSettingsFile,omitempty"`
	Parameters          map[string][]string `json:"parameters"`
	NuGetConfigFile     string              `json:"nugetConfigFile,omitempty"`
	NuGetPackageSource  string              `json:"nugetPackageSource,omitempty"`
	SemanticVersion     string              `json:"semanticVersion"`
	IISSiteName         string              `json:"iisSiteName,omitempty"`
}

// NewManifest builds the single-definition manifest for a job
func NewManifest(target *models.DeploymentTarget, pv models.PackageVersion, targetDir, publishSettingsFile string, params map[string][]string) *Manifest {
	if params == nil {
		params = map[string][]string{}
	}

	return &Manifest{
		Definitions: []ManifestDefinition{{
			PackageID:           pv.PackageID,
			TargetDirectoryPath: targetDir,
			IsPreRelease:        pv.IsPrerelease(),
			EnvironmentConfig:   target.EnvironmentConfig,
			PublishSettingsFile: publishSettingsFile,
			Parameters:          params,
			NuGetConfigFile:     target.NuGetConfigFile,
			NuGetPackageSource:  target.NuGetPackageSource,
			SemanticVersion:     pv.NormalizedVersion(),
			IISSiteName:         target.IISSiteName,
		}},
	}
}

// writeManifest writes the manifest to a fresh temp file and registers it with the job
func writeManifest(dir string, job *models.DeploymentJob, manifest *Manifest) (string, error) {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}

	return writeTempFile(dir, job.ID.String()+"-*.manifest", data, job.TempResources)
}

// writeTempFile creates a temp file, registers it for cleanup and writes data to it.
// The file is registered before the write so a failed write still gets removed.
func writeTempFile(dir, pattern string, data []byte, resources *models.TempResources) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	resources.AddFile(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write temp file %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file %s: %w", f.Name(), err)
	}

	return f.Name(), nil
}
