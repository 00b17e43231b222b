package deployer

import "errors"

var (
	// ErrExecutableNotFound means the configured deployer executable does not exist
	ErrExecutableNotFound = errors.New("deployer executable not found")

	// ErrRelativeParameterFile means a target's parameter file is not an absolute path
	ErrRelativeParameterFile = errors.New("parameter file path is not absolute")

	// ErrTargetNotFound means the job's target could not be loaded
	ErrTargetNotFound = errors.New("deployment target not found")

	// ErrMissingInstallResult means the deployer reported no package directory or version
	ErrMissingInstallResult = errors.New("deployer did not resolve a package directory and version")
)
