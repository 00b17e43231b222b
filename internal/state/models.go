package state

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alvesdmateus/auto-deployer/pkg/database"
	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// Target database model
type Target struct {
	ID                  string `gorm:"primaryKey"`
	Name                string `gorm:"not null"`
	PackageID           string `gorm:"not null;index"`
	Enabled             bool   `gorm:"not null"`
	AutoDeployEnabled   bool   `gorm:"not null"`
	AllowPrerelease     bool   `gorm:"not null"`
	URL                 string
	TargetDirectory     string
	PublishSettingsFile string
	PublishSettingsXML  string
	ParameterFile       string
	Parameters          map[string][]string `gorm:"serializer:json"`
	NuGetConfigFile     string              `gorm:"column:nuget_config_file"`
	NuGetPackageSource  string              `gorm:"column:nuget_package_source"`
	EnvironmentConfig   string
	IISSiteName         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ToDomain converts the record into a deployment target snapshot
func (t *Target) ToDomain() models.DeploymentTarget {
	return models.DeploymentTarget{
		ID:                  t.ID,
		Name:                t.Name,
		PackageID:           t.PackageID,
		Enabled:             t.Enabled,
		AutoDeployEnabled:   t.AutoDeployEnabled,
		AllowPrerelease:     t.AllowPrerelease,
		URL:                 t.URL,
		TargetDirectory:     t.TargetDirectory,
		PublishSettingsFile: t.PublishSettingsFile,
		PublishSettingsXML:  t.PublishSettingsXML,
		ParameterFile:       t.ParameterFile,
		Parameters:          t.Parameters,
		NuGetConfigFile:     t.NuGetConfigFile,
		NuGetPackageSource:  t.NuGetPackageSource,
		EnvironmentConfig:   t.EnvironmentConfig,
		IISSiteName:         t.IISSiteName,
	}
}

// TargetFromDomain converts a deployment target into its record
func TargetFromDomain(t models.DeploymentTarget) *Target {
	return &Target{
		ID:                  t.ID,
		Name:                t.Name,
		PackageID:           t.PackageID,
		Enabled:             t.Enabled,
		AutoDeployEnabled:   t.AutoDeployEnabled,
		AllowPrerelease:     t.AllowPrerelease,
		URL:                 t.URL,
		TargetDirectory:     t.TargetDirectory,
		PublishSettingsFile: t.PublishSettingsFile,
		PublishSettingsXML:  t.PublishSettingsXML,
		ParameterFile:       t.ParameterFile,
		Parameters:          t.Parameters,
		NuGetConfigFile:     t.NuGetConfigFile,
		NuGetPackageSource:  t.NuGetPackageSource,
		EnvironmentConfig:   t.EnvironmentConfig,
		IISSiteName:         t.IISSiteName,
	}
}

// TaskLog is the persisted record of one deployment job
type TaskLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobID      uuid.UUID `gorm:"type:uuid;not null;index"`
	TargetID   string    `gorm:"not null;index"`
	PackageID  string    `gorm:"not null"`
	Version    string    `gorm:"not null"`
	ExitCode   string    `gorm:"not null"`
	Output     string    `gorm:"type:text"`
	Error      string    `gorm:"type:text"`
	StartedAt  time.Time
	FinishedAt time.Time
	CreatedAt  time.Time
}

// AllModels returns every model managed by this package
func AllModels() []interface{} {
	return []interface{}{
		&Target{},
		&TaskLog{},
	}
}

// AutoMigrate runs database migrations
func AutoMigrate(db *gorm.DB) error {
	return database.Migrate(db, AllModels()...)
}
