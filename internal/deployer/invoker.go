package deployer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/auto-deployer/pkg/models"
)

// Output keys printed by the deployer in plain output mode
const (
	outputPackageDirectory = "package-directory="
	outputSemanticVersion  = "semantic-version="
)

// waitDelay bounds how long we wait for output pipes after the process is killed
const waitDelay = 10 * time.Second

// ExecInvoker runs the deployer as a child process
type ExecInvoker struct {
	logger zerolog.Logger
}

// NewExecInvoker creates a new process invoker
func NewExecInvoker(logger zerolog.Logger) *ExecInvoker {
	return &ExecInvoker{
		logger: logger.With().Str("component", "invoker").Logger(),
	}
}

// Invoke runs the deployer and parses its plain output. The process is killed
// when ctx is cancelled.
func (i *ExecInvoker) Invoke(ctx context.Context, inv *Invocation) (*InvokeResult, error) {
	cmd := exec.CommandContext(ctx, inv.ExecutablePath, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = append(os.Environ(), inv.Env...)
	cmd.WaitDelay = waitDelay

	i.logger.Debug().
		Str("executable", inv.ExecutablePath).
		Strs("args", inv.Args).
		Str("dir", inv.Dir).
		Msg("Starting deployer process")

	output, err := cmd.CombinedOutput()
	result := ParseInstallResult(output)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("deployer cancelled: %w", ctxErr)
		}
		return result, fmt.Errorf("deployer exited with error: %w", err)
	}

	return result, nil
}

// ParseInstallResult extracts the package directory and installed version from
// deployer output. Unknown lines are ignored; an unparseable version is treated
// as missing.
func ParseInstallResult(output []byte) *InvokeResult {
	result := &InvokeResult{Output: string(output)}

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, outputPackageDirectory):
			result.PackageDirectory = strings.TrimSpace(strings.TrimPrefix(line, outputPackageDirectory))
		case strings.HasPrefix(line, outputSemanticVersion):
			v, err := models.ParseVersion(strings.TrimSpace(strings.TrimPrefix(line, outputSemanticVersion)))
			if err == nil {
				result.Version = &v
			}
		}
	}

	return result
}
