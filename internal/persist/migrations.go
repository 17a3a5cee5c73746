package persist

import (
	"fmt"
	"time"

	loomerrors "github.com/loomctl/loom/internal/errors"
)

// CurrentSchemaVersion is the schema version this binary writes.
//
// History:
//
//	v1: state.recent was a bare list of project paths.
//	v2: state.recent_projects is a list of {path, opened_at} entries.
const CurrentSchemaVersion = 2

// migration upgrades a raw document from exactly one version to the next.
type migration func(doc map[string]any) (map[string]any, error)

// migrations[v] upgrades from schema v to v+1.
//
//nolint:gochecknoglobals // Read-only lookup table
var migrations = map[int]migration{
	1: migrateV1RecentList,
}

// migrate runs the chain from the document's version up to current.
func migrate(doc map[string]any, from int) (map[string]any, error) {
	for v := from; v < CurrentSchemaVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return nil, fmt.Errorf("%w: no migration from schema v%d",
				loomerrors.ErrSnapshotCorrupted, v)
		}
		next, err := step(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: migrating v%d: %s",
				loomerrors.ErrSnapshotCorrupted, v, err)
		}
		doc = next
	}
	return doc, nil
}

// migrateV1RecentList converts the v1 `recent` bare-path list into v2
// `recent_projects` entries. The original open time is gone, so entries get
// the zero time; ordering (most recent first) is preserved.
func migrateV1RecentList(doc map[string]any) (map[string]any, error) {
	state, ok := doc["state"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("state is not a mapping")
	}

	raw, exists := state["recent"]
	if exists {
		paths, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("recent is not a list")
		}
		entries := make([]any, 0, len(paths))
		for _, p := range paths {
			path, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("recent entry is not a path")
			}
			entries = append(entries, map[string]any{
				"path":      path,
				"opened_at": time.Time{},
			})
		}
		state["recent_projects"] = entries
		delete(state, "recent")
	}

	doc["schema_version"] = 2
	return doc, nil
}
