package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	for _, name := range []string{"serve", "worker", "deploy", "targets", "versions", "tasks", "secrets"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	setLogLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setLogLevel("bogus")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestTargetsSeedAndList(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yaml", `
database:
  driver: sqlite
  sqlite_path: `+filepath.Join(dir, "targets.db")+`
redis:
  url: ""
`)
	seedPath := writeFile(t, dir, "targets.yaml", `
targets:
  - id: site-a
    name: Site A
    package_id: Acme.Web
    enabled: true
    auto_deploy_enabled: true
    url: http://site-a.example
  - id: site-b
    package_id: Acme.Api
    enabled: false
`)

	out, err := runRoot(t, "targets", "seed", seedPath, "--config", configPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "seeded 2 targets")

	out, err = runRoot(t, "targets", "list", "--all", "--config", configPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "site-a")
	assert.Contains(t, out, "site-b")

	out, err = runRoot(t, "tasks", "site-a", "--config", configPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "JOB")
}

func TestTargetsSeed_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yaml", `
database:
  driver: sqlite
  sqlite_path: `+filepath.Join(dir, "targets.db")+`
`)

	_, err := runRoot(t, "targets", "seed", filepath.Join(dir, "missing.yaml"), "--config", configPath)
	assert.Error(t, err)
}

func TestSecrets_RequireStore(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yaml", `
database:
  driver: sqlite
  sqlite_path: `+filepath.Join(dir, "targets.db")+`
redis:
  url: ""
`)

	_, err := runRoot(t, "secrets", "list", "site-a", "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.url is not configured")
}
