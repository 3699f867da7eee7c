// Package lineage records the genealogy of chromosomes produced during a run:
// who descends from whom, in which generation and species, and how fit and
// how large each one was.
package lineage

import (
	"context"
	"fmt"
	"slices"

	"github.com/baldhumanity/neat-chromosome/neat"
)

// Record is one chromosome as seen by the genealogy store.
type Record struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`

	RunID      string        `json:"run_id"`
	Generation int           `json:"generation"`
	Hidden     int           `json:"hidden"`
	Enabled    int           `json:"enabled"`
	Snapshot   neat.Snapshot `json:"chromosome"`
}

// ChromosomeID returns the id of the recorded chromosome.
func (r Record) ChromosomeID() int { return r.Snapshot.ID }

// Store persists lineage records of one or more runs.
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, records ...Record) error
	Get(ctx context.Context, runID string, chromosomeID int) (Record, bool, error)
	Close() error
}

// FromChromosome snapshots c for the given run and generation.
func FromChromosome(runID string, generation int, c *neat.Chromosome) Record {
	hidden, enabled := c.Size()
	return Record{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
		RunID:         runID,
		Generation:    generation,
		Hidden:        hidden,
		Enabled:       enabled,
		Snapshot:      c.Snapshot(),
	}
}

// Restore rebuilds the recorded chromosome inside env.
func (r Record) Restore(env *neat.Environment) (*neat.Chromosome, error) {
	c, err := neat.Restore(env, r.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("restore chromosome %d of run %s: %w", r.Snapshot.ID, r.RunID, err)
	}
	return c, nil
}

// Ancestors walks parent links from chromosomeID and returns every recorded
// ancestor, youngest first (descending id). Founders and parents missing
// from the store end the walk along their branch.
func Ancestors(ctx context.Context, store Store, runID string, chromosomeID int) ([]Record, error) {
	start, ok, err := store.Get(ctx, runID, chromosomeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("chromosome %d not recorded for run %s", chromosomeID, runID)
	}

	seen := map[int]bool{chromosomeID: true}
	queue := []Record{start}
	var ancestors []Record
	for len(queue) > 0 {
		rec := queue[0]
		queue = queue[1:]
		for _, pid := range []int{rec.Snapshot.Parent1ID, rec.Snapshot.Parent2ID} {
			if pid == 0 || seen[pid] {
				continue
			}
			seen[pid] = true
			parent, ok, err := store.Get(ctx, runID, pid)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			ancestors = append(ancestors, parent)
			queue = append(queue, parent)
		}
	}
	slices.SortFunc(ancestors, func(a, b Record) int { return b.Snapshot.ID - a.Snapshot.ID })
	return ancestors, nil
}
