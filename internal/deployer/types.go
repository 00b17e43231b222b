package deployer

import (
	"context"
	"os"

	"github.com/blang/semver"

	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// Fixed arguments appended after the manifest path
const (
	ArgAllowPrerelease = "--allow-prerelease"
	ArgPlainOutput     = "--plain-output"
)

// Environment variables read by the external deployer
const (
	EnvAllowPrerelease = "DEPLOYER_ALLOW_PRERELEASE"
	EnvLogLevel        = "DEPLOYER_LOG_LEVEL"
	EnvNuGetExePath    = "DEPLOYER_NUGET_EXE_PATH"
)

// Secret keys resolved per target when no publish settings file is available
const (
	secretKeyPrefix       = "publish-settings"
	SecretKeyUsername     = secretKeyPrefix + ":username"
	SecretKeyPassword     = secretKeyPrefix + ":password"
	SecretKeyPublishURL   = secretKeyPrefix + ":publish-url"
	SecretKeyMSDeploySite = secretKeyPrefix + ":msdeploySite"
)

// TargetReader loads the current snapshot of a deployment target
type TargetReader interface {
	GetTarget(ctx context.Context, id string) (*models.DeploymentTarget, error)
}

// SecretStore resolves per-target secrets. ok is false when the secret is absent.
type SecretStore interface {
	GetSecret(ctx context.Context, targetID, key string) (value string, ok bool, err error)
}

// Invoker runs the external deployer
type Invoker interface {
	Invoke(ctx context.Context, inv *Invocation) (*InvokeResult, error)
}

// Invocation describes one run of the external deployer
type Invocation struct {
	ExecutablePath string
	Args           []string
	Env            []string
	Dir            string
}

// InvokeResult is what the external deployer reports back. A missing
// package directory or version means the deployment did not happen.
type InvokeResult struct {
	PackageDirectory string
	Version          *semver.Version
	Output           string
}

// Installed reports whether the deployer resolved both a package directory and a version
func (r *InvokeResult) Installed() bool {
	return r != nil && r.PackageDirectory != "" && r.Version != nil
}

// Config holds executor configuration
type Config struct {
	// ExecutablePath is the external deployer executable
	ExecutablePath string
	// TempRoot is where job directories and temp files are created (defaults to os.TempDir())
	TempRoot string
	// LogLevel is propagated to the deployer when set
	LogLevel string
	// NuGetExePath is propagated to the deployer when set
	NuGetExePath string
}

func (c Config) tempRoot() string {
	if c.TempRoot == "" {
		return os.TempDir()
	}
	return c.TempRoot
}
