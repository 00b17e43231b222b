package models

import "strings"

// DeploymentTarget is a read-only snapshot of a deployable destination
type DeploymentTarget struct {
	ID                  string              `json:"id" yaml:"id"`
	Name                string              `json:"name" yaml:"name"`
	PackageID           string              `json:"package_id" yaml:"package_id"`
	Enabled             bool                `json:"enabled" yaml:"enabled"`
	AutoDeployEnabled   bool                `json:"auto_deploy_enabled" yaml:"auto_deploy_enabled"`
	AllowPrerelease     bool                `json:"allow_prerelease" yaml:"allow_prerelease"`
	URL                 string              `json:"url,omitempty" yaml:"url"`
	TargetDirectory     string              `json:"target_directory,omitempty" yaml:"target_directory"`
	PublishSettingsFile string              `json:"publish_settings_file,omitempty" yaml:"publish_settings_file"`
	PublishSettingsXML  string              `json:"-" yaml:"publish_settings_xml"`
	ParameterFile       string              `json:"parameter_file,omitempty" yaml:"parameter_file"`
	Parameters          map[string][]string `json:"parameters,omitempty" yaml:"parameters"`
	NuGetConfigFile     string              `json:"nuget_config_file,omitempty" yaml:"nuget_config_file"`
	NuGetPackageSource  string              `json:"nuget_package_source,omitempty" yaml:"nuget_package_source"`
	EnvironmentConfig   string              `json:"environment_config,omitempty" yaml:"environment_config"`
	IISSiteName         string              `json:"iis_site_name,omitempty" yaml:"iis_site_name"`
}

// AutoDeployEligible reports whether the poller should consider the target
func (t DeploymentTarget) AutoDeployEligible() bool {
	return t.Enabled && t.AutoDeployEnabled
}

// HasURL reports whether the target exposes a metadata endpoint
func (t DeploymentTarget) HasURL() bool {
	return strings.TrimSpace(t.URL) != ""
}

func (t DeploymentTarget) String() string {
	if t.Name == "" {
		return t.ID
	}
	return t.Name + " (" + t.ID + ")"
}
