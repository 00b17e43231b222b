package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// DefaultSeedTimeout bounds a seeding run when no timeout is configured
const DefaultSeedTimeout = 10 * time.Second

// SeedFile is the YAML document used to seed targets
type SeedFile struct {
	Targets []models.DeploymentTarget `yaml:"targets"`
}

// LoadSeedFile reads and validates a seed file
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(file.Targets))
	for i, target := range file.Targets {
		id := strings.ToLower(strings.TrimSpace(target.ID))
		if id == "" {
			return nil, fmt.Errorf("seed file %s: target %d has no id", path, i)
		}
		if strings.TrimSpace(target.PackageID) == "" {
			return nil, fmt.Errorf("seed file %s: target %s has no package_id", path, target.ID)
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("seed file %s: duplicate target id %s", path, target.ID)
		}
		seen[id] = struct{}{}
	}

	return &file, nil
}

// Seed upserts the targets of a seed file. A missing file is not an error.
// It returns the number of targets written.
func Seed(ctx context.Context, repo *Repository, path string, timeout time.Duration) (int, error) {
	if path == "" {
		return 0, nil
	}

	file, err := LoadSeedFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("path", path).Msg("Seed file not found, skipping")
			return 0, nil
		}
		return 0, err
	}

	if timeout <= 0 {
		timeout = DefaultSeedTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for i, target := range file.Targets {
		if err := repo.UpsertTarget(ctx, target); err != nil {
			return i, fmt.Errorf("failed to seed target %s: %w", target.ID, err)
		}
	}

	log.Info().
		Str("path", path).
		Int("targets", len(file.Targets)).
		Msg("Seeded deployment targets")

	return len(file.Targets), nil
}
