package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"slices"
)

// checkpointVersion is bumped whenever Snapshot changes shape.
const checkpointVersion = 1

// Snapshot holds the parts of a Chromosome needed to rebuild it. Genes are
// stored as their plain records; the Environment's GeneFactory turns them
// back into genes on Restore.
type Snapshot struct {
	ID          int              `json:"id"`
	Parent1ID   int              `json:"parent1_id,omitempty"`
	Parent2ID   int              `json:"parent2_id,omitempty"`
	NumInputs   int              `json:"num_inputs"`
	NumOutputs  int              `json:"num_outputs"`
	Nodes       []NodeSpec       `json:"nodes"`
	Connections []ConnectionSpec `json:"connections"`
	Fitness     float64          `json:"fitness"`
	Evaluated   bool             `json:"evaluated"`
	SpeciesID   int              `json:"species_id,omitempty"`
	FeedForward bool             `json:"feed_forward"`
	HiddenOrder []int            `json:"hidden_order,omitempty"`
}

type checkpointData struct {
	Version     int
	Chromosomes []Snapshot
}

// Snapshot captures the chromosome's identity, genes and evaluation state.
func (c *Chromosome) Snapshot() Snapshot {
	return Snapshot{
		ID:          c.id,
		Parent1ID:   c.parent1ID,
		Parent2ID:   c.parent2ID,
		NumInputs:   c.numInputs,
		NumOutputs:  c.numOutputs,
		Nodes:       c.Nodes(),
		Connections: c.Connections(),
		Fitness:     c.fitness,
		Evaluated:   c.evaluated,
		SpeciesID:   c.SpeciesID,
		FeedForward: c.ff != nil,
		HiddenOrder: c.HiddenOrder(),
	}
}

// SaveChromosomes writes a gzip-compressed snapshot of chromosomes to filePath.
func SaveChromosomes(filePath string, chromosomes []*Chromosome) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	if err := EncodeChromosomes(gzWriter, chromosomes); err != nil {
		gzWriter.Close()
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint '%s': %w", filePath, err)
	}
	return file.Close()
}

// EncodeChromosomes writes an uncompressed gob snapshot of chromosomes to w.
func EncodeChromosomes(w io.Writer, chromosomes []*Chromosome) error {
	data := checkpointData{Version: checkpointVersion, Chromosomes: make([]Snapshot, len(chromosomes))}
	for i, c := range chromosomes {
		data.Chromosomes[i] = c.Snapshot()
	}
	if err := gob.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode chromosomes: %w", err)
	}
	return nil
}

// LoadChromosomes reads a snapshot written by SaveChromosomes. The restored
// chromosomes belong to env, whose registry is advanced past every id and
// innovation number found in the file.
func LoadChromosomes(filePath string, env *Environment) ([]*Chromosome, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()
	return DecodeChromosomes(gzReader, env)
}

// DecodeChromosomes reads a snapshot written by EncodeChromosomes.
func DecodeChromosomes(r io.Reader, env *Environment) ([]*Chromosome, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil environment", ErrInvalidArgument)
	}
	var data checkpointData
	if err := gob.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode chromosomes: %w", err)
	}
	if data.Version != checkpointVersion {
		return nil, fmt.Errorf("checkpoint version %d, want %d", data.Version, checkpointVersion)
	}
	chromosomes := make([]*Chromosome, 0, len(data.Chromosomes))
	for _, rec := range data.Chromosomes {
		c, err := Restore(env, rec)
		if err != nil {
			return nil, err
		}
		chromosomes = append(chromosomes, c)
	}
	return chromosomes, nil
}

// Restore rebuilds a chromosome from a snapshot, keeping its id. The
// snapshot must match env's input and output counts and pass Verify. env's
// registry is advanced past the snapshot's id and innovation numbers.
func Restore(env *Environment, rec Snapshot) (*Chromosome, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil environment", ErrInvalidArgument)
	}
	if rec.NumInputs != env.Config.NumInputs || rec.NumOutputs != env.Config.NumOutputs {
		return nil, fmt.Errorf("%w: chromosome %d has %d inputs and %d outputs, config has %d and %d",
			ErrInvalidArgument, rec.ID, rec.NumInputs, rec.NumOutputs, env.Config.NumInputs, env.Config.NumOutputs)
	}
	if rec.ID <= 0 {
		return nil, fmt.Errorf("%w: chromosome id %d is not positive", ErrInvalidArgument, rec.ID)
	}
	c := &Chromosome{
		env:        env,
		id:         rec.ID,
		parent1ID:  rec.Parent1ID,
		parent2ID:  rec.Parent2ID,
		numInputs:  rec.NumInputs,
		numOutputs: rec.NumOutputs,
		nodes:      make([]NodeGene, 0, len(rec.Nodes)),
		conns:      make(map[ConnKey]ConnectionGene, len(rec.Connections)),
		fitness:    rec.Fitness,
		evaluated:  rec.Evaluated,
		SpeciesID:  rec.SpeciesID,
	}
	for _, spec := range rec.Nodes {
		c.nodes = append(c.nodes, env.Genes.NewNodeGene(spec))
	}
	for _, spec := range rec.Connections {
		key := spec.Key()
		if _, dup := c.conns[key]; dup {
			return nil, fmt.Errorf("chromosome %d: duplicate connection %s", rec.ID, key)
		}
		c.conns[key] = env.Genes.NewConnectionGene(spec)
	}
	if rec.FeedForward {
		c.ff = &FeedforwardConstraint{hiddenOrder: slices.Clone(rec.HiddenOrder)}
	}
	if err := c.Verify(); err != nil {
		return nil, fmt.Errorf("chromosome %d: %w", rec.ID, err)
	}

	env.Registry.observeChromosome(rec.ID)
	for _, spec := range rec.Connections {
		env.Registry.observeInnovation(spec.Key(), spec.Innovation)
	}
	return c, nil
}
