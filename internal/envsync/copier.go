// Package envsync copies untracked environment files (.env and friends)
// between a project's worktrees. Git deliberately ignores these files, so a
// fresh worktree starts without them; the copier carries them over based on
// the project's tracked glob patterns.
package envsync

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/loomctl/loom/internal/ctxutil"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// Copier copies pattern-matched files from one worktree to another.
type Copier struct {
	logger zerolog.Logger
}

// NewCopier builds a copier.
func NewCopier(logger zerolog.Logger) *Copier {
	return &Copier{logger: logger.With().Str("component", "envsync").Logger()}
}

// Copy walks fromPath, copies every file matching one of the glob patterns
// into the same relative location under toPath, and reports per-file
// outcomes. Patterns match against the path relative to the worktree root
// and against the bare file name, so ".env*" finds nested env files too.
// A failed file never aborts the run; it lands in FailedFiles instead.
func (c *Copier) Copy(ctx context.Context, fromPath, toPath string, patterns []string) (domain.CopyResult, error) {
	result := domain.CopyResult{}
	if err := ctxutil.Canceled(ctx); err != nil {
		return result, err
	}
	if _, err := os.Stat(fromPath); err != nil {
		return result, loomerrors.Wrapf(err, "source worktree %s is unreadable", fromPath)
	}

	matches, err := c.collect(fromPath, patterns)
	if err != nil {
		return result, err
	}

	for _, rel := range matches {
		if err := ctxutil.Canceled(ctx); err != nil {
			return result, err
		}
		if err := copyFile(filepath.Join(fromPath, rel), filepath.Join(toPath, rel)); err != nil {
			c.logger.Warn().Str("file", rel).Err(err).Msg("env file copy failed")
			result.FailedFiles = append(result.FailedFiles, domain.FailedFile{
				File:  rel,
				Error: err.Error(),
			})
			continue
		}
		result.CopiedFiles = append(result.CopiedFiles, rel)
	}

	c.logger.Info().
		Str("from", fromPath).
		Str("to", toPath).
		Int("copied", len(result.CopiedFiles)).
		Int("failed", len(result.FailedFiles)).
		Msg("env files copied")
	return result, nil
}

// collect walks the source worktree and returns the sorted relative paths of
// regular files matching any pattern. The .git directory is never entered.
func (c *Copier) collect(root string, patterns []string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matchesAny(rel, patterns) {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, loomerrors.Wrapf(err, "failed to scan %s", root)
	}
	sort.Strings(matches)
	return matches, nil
}

func matchesAny(rel string, patterns []string) bool {
	base := filepath.Base(rel)
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// copyFile copies src to dst, creating parent directories and preserving the
// source file mode. Existing destination files are overwritten.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src) //#nosec G304 -- paths come from the worktree walk
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()) //#nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
