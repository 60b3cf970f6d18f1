package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/five82/taper/internal/errors"
)

// Artifact is one per-scene encoded file found in the encode directory.
type Artifact struct {
	Index     int
	Path      string
	SizeBytes uint64
}

// ScanArtifacts reads per-scene artifact files from the encode directory and
// maps each to its scene index by filename stem. An artifact whose stem is not
// a decimal scene index aborts the scan: convergence depends on every artifact
// being attributable to exactly one scene.
func (l *Ledger) ScanArtifacts() ([]Artifact, error) {
	dir := l.EncodeDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("failed to read artifact directory %s", dir), err)
	}

	var artifacts []Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".ivf" {
			continue
		}
		stem := strings.TrimSuffix(name, ".ivf")
		index, err := strconv.Atoi(stem)
		if err != nil {
			return nil, errors.NewStateError(
				fmt.Sprintf("artifact %s cannot be attributed to a scene index", filepath.Join(dir, name)))
		}
		info, err := entry.Info()
		if err != nil {
			return nil, errors.NewIOError(fmt.Sprintf("failed to stat artifact %s", name), err)
		}
		artifacts = append(artifacts, Artifact{
			Index:     index,
			Path:      filepath.Join(dir, name),
			SizeBytes: uint64(info.Size()),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Index < artifacts[j].Index })
	return artifacts, nil
}

// ArtifactSizes returns the scanned artifact sizes keyed by scene index.
func (l *Ledger) ArtifactSizes() (map[int]uint64, error) {
	artifacts, err := l.ScanArtifacts()
	if err != nil {
		return nil, err
	}
	sizes := make(map[int]uint64, len(artifacts))
	for _, a := range artifacts {
		sizes[a.Index] = a.SizeBytes
	}
	return sizes, nil
}
