// Package persist saves and loads the StateTree as a human-diffable YAML
// snapshot. Every snapshot carries a schema version; older snapshots are
// migrated forward on load, newer ones are rejected so an old binary never
// silently mangles a newer file.
package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/ctxutil"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
	"github.com/loomctl/loom/internal/flock"
)

const (
	filePerm = 0o600
	dirPerm  = 0o750
)

// envelope is the on-disk document: a schema version wrapping the state.
type envelope struct {
	SchemaVersion int               `yaml:"schema_version"`
	State         *domain.StateTree `yaml:"state"`
}

// Store reads and writes state snapshots at a fixed path, serialized across
// processes by an exclusive lock file next to the snapshot.
type Store struct {
	path   string
	logger zerolog.Logger
}

// NewStore builds a store writing to path.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With().Str("component", "persist").Logger(),
	}
}

// DefaultPath returns the standard snapshot location, ~/.loom/state.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", loomerrors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, constants.LoomHome, constants.StateFileName), nil
}

// Path returns the snapshot path.
func (s *Store) Path() string { return s.path }

// Save writes the state atomically: marshal, write to a temp file, fsync,
// rename over the snapshot. A crash mid-save leaves the previous snapshot
// intact.
func (s *Store) Save(ctx context.Context, state *domain.StateTree) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return loomerrors.Wrapf(err, "failed to create %s", filepath.Dir(s.path))
	}

	lock, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	raw, err := yaml.Marshal(envelope{
		SchemaVersion: CurrentSchemaVersion,
		State:         state,
	})
	if err != nil {
		return loomerrors.Wrap(err, "failed to encode state snapshot")
	}
	if err := atomicWrite(s.path, raw); err != nil {
		return err
	}

	s.logger.Debug().
		Str("path", s.path).
		Int("schema_version", CurrentSchemaVersion).
		Msg("state snapshot saved")
	return nil
}

// Load reads the snapshot, migrating older schemas forward. A missing file
// is not an error: it returns a fresh empty state, which is what a first run
// looks like.
func (s *Store) Load(ctx context.Context) (*domain.StateTree, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path) //#nosec G304 -- snapshot path comes from config
	if os.IsNotExist(err) {
		s.logger.Debug().Str("path", s.path).Msg("no snapshot, starting fresh")
		return domain.NewStateTree(), nil
	}
	if err != nil {
		return nil, loomerrors.Wrapf(err, "failed to read %s", s.path)
	}
	return Decode(raw)
}

// Decode parses a snapshot document, running the migration chain when the
// schema version is older than current.
func Decode(raw []byte) (*domain.StateTree, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", loomerrors.ErrSnapshotCorrupted, err)
	}

	version, ok := schemaVersion(doc)
	if !ok {
		return nil, fmt.Errorf("%w: missing schema_version", loomerrors.ErrSnapshotCorrupted)
	}
	if version > CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: snapshot is v%d, engine supports up to v%d",
			loomerrors.ErrSchemaTooNew, version, CurrentSchemaVersion)
	}

	doc, err := migrate(doc, version)
	if err != nil {
		return nil, err
	}

	// Re-encode the migrated state subtree and decode it strictly, so typos
	// and stale fields surface as corruption instead of silent zero values.
	stateRaw, err := yaml.Marshal(doc["state"])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", loomerrors.ErrSnapshotCorrupted, err)
	}
	state := domain.NewStateTree()
	dec := yaml.NewDecoder(bytes.NewReader(stateRaw))
	dec.KnownFields(true)
	if err := dec.Decode(state); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s", loomerrors.ErrSnapshotCorrupted, err)
	}
	normalize(state)
	return state, nil
}

// normalize restores the invariants YAML cannot express: allocated maps and
// slices, and in-range cursors.
func normalize(state *domain.StateTree) {
	if state.Projects == nil {
		state.Projects = []domain.Project{}
	}
	if state.Notifications == nil {
		state.Notifications = []domain.Notification{}
	}
	if state.RecentProjects == nil {
		state.RecentProjects = []domain.RecentProject{}
	}
	if state.DockerServices == nil {
		state.DockerServices = map[string]domain.DockerServiceRecord{}
	}
	if state.EnvConfigs == nil {
		state.EnvConfigs = map[string]domain.EnvSyncConfig{}
	}
	if state.AgentProfiles == nil {
		state.AgentProfiles = map[string]domain.AgentRulesConfig{}
	}
	if state.ActiveProjectIndex >= len(state.Projects) {
		state.ActiveProjectIndex = len(state.Projects) - 1
	}
	if state.ActiveProjectIndex < 0 {
		state.ActiveProjectIndex = -1
		state.ActiveWorktreeIndex = -1
		return
	}
	worktrees := len(state.Projects[state.ActiveProjectIndex].Worktrees)
	if state.ActiveWorktreeIndex >= worktrees {
		state.ActiveWorktreeIndex = worktrees - 1
	}
	if state.ActiveWorktreeIndex < 0 {
		state.ActiveWorktreeIndex = -1
	}
}

func schemaVersion(doc map[string]any) (int, bool) {
	switch v := doc["schema_version"].(type) {
	case int:
		return v, true
	default:
		return 0, false
	}
}

// acquireLock opens the sibling .lock file and polls for an exclusive lock
// until the timeout.
func (s *Store) acquireLock(ctx context.Context) (*os.File, error) {
	lockPath := s.path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, filePerm) //#nosec G304 -- sibling of the snapshot path
	if err != nil {
		return nil, loomerrors.Wrap(err, "failed to open lock file")
	}

	deadline := time.Now().Add(constants.StateLockTimeout)
	for {
		if err := ctxutil.Canceled(ctx); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := flock.Exclusive(f.Fd()); err == nil {
			return f, nil
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s", loomerrors.ErrLockTimeout, lockPath)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *Store) releaseLock(f *os.File) {
	if f == nil {
		return
	}
	if err := flock.Unlock(f.Fd()); err != nil {
		s.logger.Warn().Err(err).Msg("failed to release state lock")
	}
	_ = f.Close()
}

// atomicWrite writes data to a temp file, syncs it, and renames it over path.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- sibling of the snapshot path
	if err != nil {
		return loomerrors.Wrap(err, "failed to create temp snapshot")
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return loomerrors.Wrap(err, "failed to write snapshot")
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return loomerrors.Wrap(err, "failed to sync snapshot")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return loomerrors.Wrap(err, "failed to close snapshot")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return loomerrors.Wrap(err, "failed to replace snapshot")
	}
	return nil
}
