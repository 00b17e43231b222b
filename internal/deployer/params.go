package deployer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// resolveParameters returns the deployment parameters for a target. A parameter
// file takes precedence over inline parameters when it exists.
func resolveParameters(target *models.DeploymentTarget, logger zerolog.Logger) (map[string][]string, error) {
	if target.ParameterFile == "" {
		return target.Parameters, nil
	}

	if !filepath.IsAbs(target.ParameterFile) {
		return nil, fmt.Errorf("%w: %s", ErrRelativeParameterFile, target.ParameterFile)
	}

	data, err := os.ReadFile(target.ParameterFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn().
				Str("path", target.ParameterFile).
				Msg("Parameter file does not exist, using inline parameters")
			return target.Parameters, nil
		}
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}

	var params map[string][]string
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse parameter file %s: %w", target.ParameterFile, err)
	}
	return params, nil
}
