package engine

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// Journal is an append-only JSONL record of committed actions, one per line.
// Because reducers are deterministic and actions carry their own ids and
// timestamps, replaying a journal against the same initial state reproduces
// the exact final state.
type Journal struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
	path string
}

// OpenJournal opens (or creates) the journal at path for appending.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, loomerrors.Wrapf(err, "failed to create journal directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // Path comes from local config
	if err != nil {
		return nil, loomerrors.Wrapf(err, "failed to open journal %s", path)
	}
	return &Journal{file: f, w: bufio.NewWriter(f), path: path}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one action as a single JSON line and flushes it.
func (j *Journal) Append(action domain.Action) error {
	raw, err := json.Marshal(action)
	if err != nil {
		return loomerrors.Wrapf(err, "failed to encode action %s", action.ID)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(raw); err != nil {
		return loomerrors.Wrap(err, "failed to append to journal")
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return loomerrors.Wrap(err, "failed to append to journal")
	}
	return loomerrors.Wrap(j.w.Flush(), "failed to flush journal")
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		_ = j.file.Close()
		return loomerrors.Wrap(err, "failed to flush journal")
	}
	return loomerrors.Wrap(j.file.Close(), "failed to close journal")
}

// ReadJournal streams every action recorded at path, in order. Blank lines
// are skipped; a malformed line aborts with its line number.
func ReadJournal(path string, fn func(domain.Action) error) error {
	f, err := os.Open(path) //nolint:gosec // Path comes from local config
	if err != nil {
		return loomerrors.Wrapf(err, "failed to open journal %s", path)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var action domain.Action
		if err := json.Unmarshal(raw, &action); err != nil {
			return loomerrors.Wrapf(err, "journal line %d is malformed", line)
		}
		if err := fn(action); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		return loomerrors.Wrapf(err, "failed to read journal %s", path)
	}
	return nil
}
