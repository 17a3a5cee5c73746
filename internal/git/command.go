// Package git provides the git worktree operations behind loom's worktree
// effects. All commands shell out to the git CLI; errors are wrapped with
// ErrGitOperation and include stderr for debugging.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	loomerrors "github.com/loomctl/loom/internal/errors"
)

// RunCommand executes a git command in the specified directory and returns
// its trimmed stdout.
func RunCommand(ctx context.Context, workDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...) //#nosec G204 -- args are constructed internally, not user input
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("git %s failed: %s: %w",
				args[0], strings.TrimSpace(stderr.String()), loomerrors.ErrGitOperation)
		}
		return "", fmt.Errorf("git %s failed: %w", args[0], loomerrors.ErrGitOperation)
	}
	return strings.TrimSpace(stdout.String()), nil
}
