package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open database")

	require.NoError(t, AutoMigrate(db), "failed to run migrations")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

func testTarget(id string) models.DeploymentTarget {
	return models.DeploymentTarget{
		ID:                id,
		Name:              "Site " + id,
		PackageID:         "Milou.Site",
		Enabled:           true,
		AutoDeployEnabled: true,
		URL:               "http://" + id + ".local",
		Parameters: map[string][]string{
			"ConnectionString": {"Server=db"},
		},
		NuGetConfigFile: `C:\nuget\nuget.config`,
	}
}

func TestUpsertAndGetTarget(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertTarget(ctx, testTarget("site-a")))

	target, err := repo.GetTarget(ctx, "SITE-A")
	require.NoError(t, err)
	assert.Equal(t, "site-a", target.ID)
	assert.Equal(t, "Milou.Site", target.PackageID)
	assert.Equal(t, []string{"Server=db"}, target.Parameters["ConnectionString"])
	assert.Equal(t, `C:\nuget\nuget.config`, target.NuGetConfigFile)
}

func TestUpsertTarget_UpdatesExisting(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	target := testTarget("site-a")
	require.NoError(t, repo.UpsertTarget(ctx, target))

	target.Name = "Renamed"
	target.AutoDeployEnabled = false
	require.NoError(t, repo.UpsertTarget(ctx, target))

	all, err := repo.ListTargets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Renamed", all[0].Name)
	assert.False(t, all[0].AutoDeployEnabled)
}

func TestUpsertTarget_RequiresID(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	err := repo.UpsertTarget(context.Background(), models.DeploymentTarget{PackageID: "x"})
	assert.Error(t, err)
}

func TestGetTarget_NotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	_, err := repo.GetTarget(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEligibleTargets(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	eligible := testTarget("a")
	disabled := testTarget("b")
	disabled.Enabled = false
	manual := testTarget("c")
	manual.AutoDeployEnabled = false

	for _, target := range []models.DeploymentTarget{eligible, disabled, manual} {
		require.NoError(t, repo.UpsertTarget(ctx, target))
	}

	targets, err := repo.ListEligibleTargets(ctx)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "a", targets[0].ID)

	all, err := repo.ListTargets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteTarget(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertTarget(ctx, testTarget("a")))
	require.NoError(t, repo.DeleteTarget(ctx, "a"))

	assert.ErrorIs(t, repo.DeleteTarget(ctx, "a"), ErrNotFound)
}

func TestTaskLogs_NewestFirst(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		log := &TaskLog{
			JobID:      uuid.New(),
			TargetID:   "site-a",
			PackageID:  "Milou.Site",
			Version:    fmt.Sprintf("1.0.%d", i),
			ExitCode:   string(models.ExitCodeSuccess),
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		}
		require.NoError(t, repo.CreateTaskLog(ctx, log))
		assert.NotEqual(t, uuid.Nil, log.ID, "ID should be generated")
	}
	require.NoError(t, repo.CreateTaskLog(ctx, &TaskLog{
		JobID:      uuid.New(),
		TargetID:   "site-b",
		PackageID:  "Other",
		Version:    "2.0.0",
		ExitCode:   string(models.ExitCodeFailure),
		FinishedAt: base,
	}))

	logs, err := repo.ListTaskLogs(ctx, "Site-A", 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "1.0.2", logs[0].Version)
	assert.Equal(t, "1.0.1", logs[1].Version)

	logs, err = repo.ListTaskLogs(ctx, "site-a", 0)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestSeed(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "targets.yaml")
	content := `targets:
  - id: site-a
    name: Site A
    package_id: Milou.Site
    enabled: true
    auto_deploy_enabled: true
    allow_prerelease: true
    url: http://site-a.local
    parameters:
      Env: [Production]
  - id: site-b
    name: Site B
    package_id: Milou.Api
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	n, err := Seed(ctx, repo, path, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	target, err := repo.GetTarget(ctx, "site-a")
	require.NoError(t, err)
	assert.True(t, target.AllowPrerelease)
	assert.Equal(t, []string{"Production"}, target.Parameters["Env"])

	eligible, err := repo.ListEligibleTargets(ctx)
	require.NoError(t, err)
	assert.Len(t, eligible, 1)
}

func TestSeed_MissingFileIsNoop(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	n, err := Seed(context.Background(), repo, filepath.Join(t.TempDir(), "nope.yaml"), 0)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadSeedFile_RejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	content := `targets:
  - id: site-a
    package_id: A
  - id: SITE-A
    package_id: A
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadSeedFile(path)
	assert.Error(t, err)
}
