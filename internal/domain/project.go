package domain

import "time"

// Project is one open repository tab. Created on OpenProject, removed on
// CloseProject. Owned exclusively by the StateTree; no external aliasing.
//
// Example JSON representation:
//
//	{
//	    "id": "prj-9f2c1a",
//	    "path": "/home/dev/acme",
//	    "name": "acme",
//	    "worktrees": [...]
//	}
type Project struct {
	// ID is the unique identifier for the project.
	ID string `json:"id" yaml:"id"`

	// Path is the absolute path of the main repository. Unique across Projects.
	Path string `json:"path" yaml:"path"`

	// Name is the display name, derived from the path basename.
	Name string `json:"name" yaml:"name"`

	// Worktrees is the ordered set of worktrees, unique by path. Exactly one
	// has IsMain set.
	Worktrees []Worktree `json:"worktrees" yaml:"worktrees"`
}

func (p Project) clone() Project {
	p.Worktrees = append([]Worktree(nil), p.Worktrees...)
	return p
}

// WorktreeIndexByID returns the index of the worktree with the given id, or -1.
func (p *Project) WorktreeIndexByID(id string) int {
	for i := range p.Worktrees {
		if p.Worktrees[i].ID == id {
			return i
		}
	}
	return -1
}

// WorktreeIndexByPath returns the index of the worktree with the given path, or -1.
func (p *Project) WorktreeIndexByPath(path string) int {
	for i := range p.Worktrees {
		if p.Worktrees[i].Path == path {
			return i
		}
	}
	return -1
}

// HasBranch reports whether any worktree of the project uses the branch name.
func (p *Project) HasBranch(branch string) bool {
	for i := range p.Worktrees {
		if p.Worktrees[i].Branch == branch {
			return true
		}
	}
	return false
}

// Worktree is one git worktree of a project.
// Invariant: exactly one worktree per project has IsMain = true; branch names
// are unique within a project's worktree set.
type Worktree struct {
	// ID is the unique identifier for the worktree.
	ID string `json:"id" yaml:"id"`

	// Path is the absolute path of the worktree directory. Unique within the
	// project.
	Path string `json:"path" yaml:"path"`

	// Branch is the checked-out branch name.
	Branch string `json:"branch" yaml:"branch"`

	// IsMain marks the main repository checkout.
	IsMain bool `json:"is_main" yaml:"is_main"`

	// IsModified reflects whether the worktree has uncommitted changes.
	IsModified bool `json:"is_modified" yaml:"is_modified"`
}

// RecentProject is one remembered project path with its last-opened time.
type RecentProject struct {
	// Path is the absolute project path.
	Path string `json:"path" yaml:"path"`

	// OpenedAt is when the project was last opened.
	OpenedAt time.Time `json:"opened_at" yaml:"opened_at"`
}
