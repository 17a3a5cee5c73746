package domain

// EnvSyncConfig is the per-project configuration for copying untracked env
// files between worktrees.
type EnvSyncConfig struct {
	// TrackedPatterns is the ordered set of glob patterns to copy. Order is
	// display order; uniqueness is enforced (adding a duplicate is a no-op).
	TrackedPatterns []string `json:"tracked_patterns" yaml:"tracked_patterns"`

	// AutoCopyEnabled copies tracked files into every newly created worktree.
	AutoCopyEnabled bool `json:"auto_copy_enabled" yaml:"auto_copy_enabled"`

	// SourceWorktree is the worktree path files are copied from, empty for
	// the project's main worktree.
	SourceWorktree string `json:"source_worktree,omitempty" yaml:"source_worktree,omitempty"`

	// LastCopyResult is the outcome of the most recent copy. A new result
	// always fully replaces the previous one, never merges.
	LastCopyResult *CopyResult `json:"last_copy_result,omitempty" yaml:"last_copy_result,omitempty"`
}

func (c EnvSyncConfig) clone() EnvSyncConfig {
	c.TrackedPatterns = append([]string(nil), c.TrackedPatterns...)
	if c.LastCopyResult != nil {
		r := c.LastCopyResult.clone()
		c.LastCopyResult = &r
	}
	return c
}

// HasPattern reports whether the pattern is already tracked.
func (c *EnvSyncConfig) HasPattern(pattern string) bool {
	for _, p := range c.TrackedPatterns {
		if p == pattern {
			return true
		}
	}
	return false
}

// CopyResult is the outcome of one env-file copy operation.
type CopyResult struct {
	// CopiedFiles lists the relative paths copied successfully.
	CopiedFiles []string `json:"copied_files" yaml:"copied_files"`

	// FailedFiles lists the files that could not be copied, with reasons.
	FailedFiles []FailedFile `json:"failed_files" yaml:"failed_files"`
}

func (r CopyResult) clone() CopyResult {
	r.CopiedFiles = append([]string(nil), r.CopiedFiles...)
	r.FailedFiles = append([]FailedFile(nil), r.FailedFiles...)
	return r
}

// FailedFile is one file that failed to copy.
type FailedFile struct {
	// File is the relative path that failed.
	File string `json:"file" yaml:"file"`

	// Error is the failure reason.
	Error string `json:"error" yaml:"error"`
}
