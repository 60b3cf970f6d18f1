// Package ledger is the durable, resumable record of a run in progress: the
// done-manifest of finished scene artifacts, the per-scene invocation records,
// and the run identity. Files are pretty-printed structured text, overwritten
// each pass with a backup of the previous version retained alongside.
package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/five82/taper/internal/errors"
)

const (
	doneFile     = "done.json"
	chunksFile   = "chunks.json"
	runFile      = "run.json"
	encodeDir    = "encode"
	doneBackup   = "done_backup.json"
	chunksBackup = "chunks_backup.json"
	encodeBackup = "encode_backup"
	lockFile     = ".taper.lock"
)

// Ledger anchors all run state under one work directory and holds the
// single-instance lock for it.
type Ledger struct {
	workDir string
	lock    *flock.Flock
}

// Open locks the work directory and returns a ledger rooted there. A second
// concurrent run against the same directory fails instead of corrupting state.
func Open(workDir string) (*Ledger, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("failed to create work directory %s", workDir), err)
	}

	lock := flock.New(filepath.Join(workDir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.NewIOError("failed to acquire work directory lock", err)
	}
	if !locked {
		return nil, errors.NewStateError(
			fmt.Sprintf("work directory %s is locked by another run", workDir))
	}

	return &Ledger{workDir: workDir, lock: lock}, nil
}

// Close releases the work directory lock.
func (l *Ledger) Close() error {
	if l.lock != nil {
		return l.lock.Unlock()
	}
	return nil
}

// WorkDir returns the locked work directory.
func (l *Ledger) WorkDir() string { return l.workDir }

// DonePath returns the done-manifest file path.
func (l *Ledger) DonePath() string { return filepath.Join(l.workDir, doneFile) }

// ChunksPath returns the invocation-records file path.
func (l *Ledger) ChunksPath() string { return filepath.Join(l.workDir, chunksFile) }

// RunPath returns the run-identity file path.
func (l *Ledger) RunPath() string { return filepath.Join(l.workDir, runFile) }

// EncodeDir returns the per-scene artifact directory.
func (l *Ledger) EncodeDir() string { return filepath.Join(l.workDir, encodeDir) }

// Backup takes verbatim copies of the ledger files and the artifact directory
// before the first mutation of a run, so pre-run state can be restored by hand.
// Missing sources are skipped; a file that exists but cannot be copied fails.
func (l *Ledger) Backup() error {
	copies := []struct{ src, dst string }{
		{l.DonePath(), filepath.Join(l.workDir, doneBackup)},
		{l.ChunksPath(), filepath.Join(l.workDir, chunksBackup)},
	}
	for _, c := range copies {
		if _, err := os.Stat(c.src); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.NewIOError(fmt.Sprintf("failed to stat %s", c.src), err)
		}
		if err := copyFile(c.src, c.dst); err != nil {
			return errors.NewIOError(fmt.Sprintf("failed to back up %s", c.src), err)
		}
	}

	src := l.EncodeDir()
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		dst := filepath.Join(l.workDir, encodeBackup)
		if err := copyDir(src, dst); err != nil {
			return errors.NewIOError("failed to back up artifact directory", err)
		}
	}
	return nil
}

// SceneKey formats a scene index as the fixed-width artifact/manifest key.
// Ledger keys are strings, so width must be stable for lexical ordering.
func SceneKey(index int) string {
	return fmt.Sprintf("%05d", index)
}

// FrameInfo records one finished unit in the done-manifest.
type FrameInfo struct {
	Frames    int    `json:"frames"`
	SizeBytes uint64 `json:"size_bytes"`
}

// Done is the manifest of finished per-scene artifacts.
type Done struct {
	Frames    int                  `json:"frames"`
	Done      map[string]FrameInfo `json:"done"`
	AudioDone bool                 `json:"audio_done"`
}

// LoadDone parses the done-manifest.
func (l *Ledger) LoadDone() (*Done, error) {
	data, err := os.ReadFile(l.DonePath())
	if err != nil {
		return nil, errors.NewIOError("failed to read done manifest", err)
	}
	var d Done
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.NewStateError(fmt.Sprintf("malformed done manifest: %v", err))
	}
	if d.Done == nil {
		d.Done = make(map[string]FrameInfo)
	}
	return &d, nil
}

// SaveDone writes the done-manifest pretty-printed.
func (l *Ledger) SaveDone(d *Done) error {
	return writePretty(l.DonePath(), d)
}

// Prune drops manifest entries for scenes that are not retired: the external
// encoder re-encodes exactly the units missing from the manifest.
func (d *Done) Prune(retired map[int]bool) {
	for key := range d.Done {
		var index int
		if _, err := fmt.Sscanf(key, "%d", &index); err != nil || !retired[index] {
			delete(d.Done, key)
		}
	}
}

// Record marks a scene finished with its frame count and artifact size.
func (d *Done) Record(index, frames int, sizeBytes uint64) {
	if d.Done == nil {
		d.Done = make(map[string]FrameInfo)
	}
	d.Done[SceneKey(index)] = FrameInfo{Frames: frames, SizeBytes: sizeBytes}
}

// Has reports whether the scene's artifact is recorded as finished.
func (d *Done) Has(index int) bool {
	_, ok := d.Done[SceneKey(index)]
	return ok
}

func writePretty(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.NewStateError(fmt.Sprintf("failed to serialize %s: %v", filepath.Base(path), err))
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewIOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
