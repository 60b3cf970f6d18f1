package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/five82/taper/internal/errors"
	"github.com/five82/taper/internal/scene"
)

// Chunk is one scene's invocation record: the typed parameters the external
// encoder is asked to use for that scene. Parameters live in named fields,
// never in a flag string to be re-spliced.
type Chunk struct {
	Index      int     `json:"index"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	Encoder    string  `json:"encoder"`
	Passes     int     `json:"passes"`
	Parameter  float64 `json:"parameter"`
	Effort     int     `json:"effort"`
	OutputExt  string  `json:"output_ext"`
}

// ChunkList is the per-scene invocation record set persisted as chunks.json.
type ChunkList struct {
	Chunks []Chunk
}

// ChunksFromPartition derives invocation records from a partition's scenes and
// their override blocks.
func ChunksFromPartition(p *scene.Partition) (*ChunkList, error) {
	list := &ChunkList{Chunks: make([]Chunk, 0, len(p.Scenes))}
	for i := range p.Scenes {
		s := &p.Scenes[i]
		if s.Overrides == nil {
			return nil, errors.NewStateError(
				fmt.Sprintf("scene %d has no override block to derive an invocation record from", s.Index))
		}
		list.Chunks = append(list.Chunks, Chunk{
			Index:      s.Index,
			StartFrame: s.StartFrame,
			EndFrame:   s.EndFrame,
			Encoder:    s.Overrides.Encoder,
			Passes:     s.Overrides.Passes,
			Parameter:  s.Overrides.Parameter,
			Effort:     s.Overrides.Effort,
			OutputExt:  "ivf",
		})
	}
	return list, nil
}

// LoadChunks parses the invocation records.
func (l *Ledger) LoadChunks() (*ChunkList, error) {
	data, err := os.ReadFile(l.ChunksPath())
	if err != nil {
		return nil, errors.NewIOError("failed to read chunk records", err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, errors.NewStateError(fmt.Sprintf("malformed chunk records: %v", err))
	}
	return &ChunkList{Chunks: chunks}, nil
}

// SaveChunks writes the invocation records pretty-printed.
func (l *Ledger) SaveChunks(c *ChunkList) error {
	return writePretty(l.ChunksPath(), c.Chunks)
}

// SetParameter updates the record for one scene, skipping retired scenes the
// caller did not name.
func (c *ChunkList) SetParameter(index int, v float64) {
	for i := range c.Chunks {
		if c.Chunks[i].Index == index {
			c.Chunks[i].Parameter = v
			return
		}
	}
}

// SetEffort updates the effort preset for one scene.
func (c *ChunkList) SetEffort(index, effort int) {
	for i := range c.Chunks {
		if c.Chunks[i].Index == index {
			c.Chunks[i].Effort = effort
			return
		}
	}
}

// Find returns the record for the scene index, or nil.
func (c *ChunkList) Find(index int) *Chunk {
	for i := range c.Chunks {
		if c.Chunks[i].Index == index {
			return &c.Chunks[i]
		}
	}
	return nil
}
