package ledger

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/five82/taper/internal/errors"
)

// RunMeta identifies a run so resumed invocations are attributable in logs.
type RunMeta struct {
	RunID     string    `json:"run_id"`
	Workflow  string    `json:"workflow"`
	StartedAt time.Time `json:"started_at"`
	Passes    int       `json:"passes"`
}

// LoadOrCreateRun returns the existing run identity for this work directory,
// or mints one. A resumed run keeps its original ID only when the workflow
// matches; a workflow switch on the same directory is a state error.
func (l *Ledger) LoadOrCreateRun(workflow string) (*RunMeta, error) {
	data, err := os.ReadFile(l.RunPath())
	if err == nil {
		var meta RunMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, errors.NewStateError("malformed run record: " + err.Error())
		}
		if meta.Workflow != workflow {
			return nil, errors.NewStateError(
				"work directory holds a " + meta.Workflow + " run, refusing to resume as " + workflow)
		}
		return &meta, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.NewIOError("failed to read run record", err)
	}

	meta := &RunMeta{
		RunID:     uuid.NewString(),
		Workflow:  workflow,
		StartedAt: time.Now().UTC(),
	}
	if err := l.SaveRun(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// SaveRun writes the run identity record.
func (l *Ledger) SaveRun(meta *RunMeta) error {
	return writePretty(l.RunPath(), meta)
}
