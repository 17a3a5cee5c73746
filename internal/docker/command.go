// Package docker manages the local dev-service containers through the docker
// CLI. It deliberately shells out rather than speaking the API socket: the
// CLI is what users have installed and debugged against, and the operations
// here are coarse lifecycle commands, not streaming workloads.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	loomerrors "github.com/loomctl/loom/internal/errors"
)

// RunCommand executes a docker command and returns its trimmed stdout.
// All errors are wrapped with ErrDockerOperation and include stderr.
func RunCommand(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...) //#nosec G204 -- args are constructed internally, not user input

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("docker %s failed: %s: %w",
				args[0], strings.TrimSpace(stderr.String()), loomerrors.ErrDockerOperation)
		}
		return "", fmt.Errorf("docker %s failed: %w", args[0], loomerrors.ErrDockerOperation)
	}
	return strings.TrimSpace(stdout.String()), nil
}
