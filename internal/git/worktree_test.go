package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiblingPath(t *testing.T) {
	assert.Equal(t, "/repos/app-feature", SiblingPath("/repos/app", "feature"))
	assert.Equal(t, "/app-fix", SiblingPath("/app", "fix"))
}

func TestParseWorktreeList(t *testing.T) {
	out := `worktree /repos/app
HEAD 1111111111111111111111111111111111111111
branch refs/heads/main

worktree /repos/app-feature
HEAD 2222222222222222222222222222222222222222
branch refs/heads/feature

worktree /repos/app-detached
HEAD 3333333333333333333333333333333333333333
detached`

	infos := parseWorktreeList(out)

	require.Len(t, infos, 3)
	assert.True(t, infos[0].IsMain)
	assert.Equal(t, "main", infos[0].Branch)
	assert.Equal(t, "/repos/app", infos[0].Path)

	assert.False(t, infos[1].IsMain)
	assert.Equal(t, "feature", infos[1].Branch)
	assert.Equal(t, "2222222222222222222222222222222222222222", infos[1].HeadCommit)

	assert.Empty(t, infos[2].Branch, "detached HEAD has no branch")
}

func TestParseWorktreeListEmpty(t *testing.T) {
	assert.Empty(t, parseWorktreeList(""))
}
