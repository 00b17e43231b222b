package deployer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstallResult(t *testing.T) {
	output := []byte("Resolving package Milou.Site\r\n" +
		"package-directory=C:\\packages\\Milou.Site.1.2.0\r\n" +
		"semantic-version=1.2.0\r\n" +
		"done\r\n")

	result := ParseInstallResult(output)
	assert.True(t, result.Installed())
	assert.Equal(t, `C:\packages\Milou.Site.1.2.0`, result.PackageDirectory)
	assert.Equal(t, "1.2.0", result.Version.String())
	assert.Equal(t, string(output), result.Output)
}

func TestParseInstallResult_Incomplete(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"empty", ""},
		{"no version", "package-directory=/pkg\n"},
		{"no directory", "semantic-version=1.0.0\n"},
		{"bad version", "package-directory=/pkg\nsemantic-version=latest\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, ParseInstallResult([]byte(tt.output)).Installed())
		})
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}

	path := filepath.Join(t.TempDir(), "deployer.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestExecInvoker_ParsesOutputAndPassesEnvironment(t *testing.T) {
	script := writeScript(t, `echo "manifest=$1 flags=$2 $3"
echo "level=$DEPLOYER_LOG_LEVEL"
echo "package-directory=/opt/packages/app"
echo "semantic-version=2.1.0-rc.1"
`)

	invoker := NewExecInvoker(zerolog.Nop())
	result, err := invoker.Invoke(context.Background(), &Invocation{
		ExecutablePath: script,
		Args:           []string{"/tmp/job.manifest", ArgAllowPrerelease, ArgPlainOutput},
		Env:            []string{EnvLogLevel + "=debug"},
		Dir:            filepath.Dir(script),
	})
	require.NoError(t, err)

	assert.True(t, result.Installed())
	assert.Equal(t, "/opt/packages/app", result.PackageDirectory)
	assert.Equal(t, "2.1.0-rc.1", result.Version.String())
	assert.Contains(t, result.Output, "manifest=/tmp/job.manifest flags=--allow-prerelease --plain-output")
	assert.Contains(t, result.Output, "level=debug")
}

func TestExecInvoker_NonZeroExit(t *testing.T) {
	script := writeScript(t, "echo 'package not found'\nexit 3\n")

	invoker := NewExecInvoker(zerolog.Nop())
	result, err := invoker.Invoke(context.Background(), &Invocation{ExecutablePath: script})
	assert.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Installed())
	assert.Contains(t, result.Output, "package not found")
}

func TestExecInvoker_Cancellation(t *testing.T) {
	script := writeScript(t, "exec sleep 30\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	invoker := NewExecInvoker(zerolog.Nop())
	_, err := invoker.Invoke(ctx, &Invocation{ExecutablePath: script})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}
