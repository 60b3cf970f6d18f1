package scene

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/five82/taper/internal/errors"
)

// Load reads a partition from its JSON file and validates it. Transient
// fields (index, parameter, scores, converged) are left at their zero
// values; callers recover parameters from the override blocks when needed.
func Load(path string) (*Partition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("failed to read scene file %s", path), err)
	}

	var p Partition
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.NewSceneError(fmt.Sprintf("failed to parse scene file %s", path), err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes the partition pretty-printed for human inspection. Only the
// durable fields (frame ranges, override blocks, frame count) round-trip;
// probe scores are transient by design.
func (p *Partition) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.NewSceneError("failed to serialize partition", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewIOError(fmt.Sprintf("failed to write scene file %s", path), err)
	}
	return nil
}
