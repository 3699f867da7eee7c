package neat

import "fmt"

// Crossover builds a child from the receiver and other. Both parents must
// belong to the same species and both must carry a fitness (see SetFitness);
// otherwise the error wraps ErrInvalidArgument. The fitter parent supplies the
// topology: each of its connection genes is blended with the homologous gene
// of the other parent when one exists and copied otherwise, and node genes
// are blended position by position. Genes only the less fit parent carries
// are dropped. Equal fitness is settled by crossover_tie_break.
//
// The child gets a fresh id, Parent1ID = receiver, Parent2ID = other, and the
// fitter parent's species. Neither parent is modified.
func (c *Chromosome) Crossover(other *Chromosome) (*Chromosome, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: crossover with nil chromosome", ErrInvalidArgument)
	}
	if c.SpeciesID != other.SpeciesID {
		return nil, fmt.Errorf("%w: parents %d and %d belong to different species (%d, %d)",
			ErrInvalidArgument, c.id, other.id, c.SpeciesID, other.SpeciesID)
	}
	if c.numInputs != other.numInputs || c.numOutputs != other.numOutputs {
		return nil, fmt.Errorf("%w: parents %d and %d have different input/output counts",
			ErrInvalidArgument, c.id, other.id)
	}
	if c.IsFeedforward() != other.IsFeedforward() {
		return nil, fmt.Errorf("%w: parents %d and %d mix feedforward and recurrent variants",
			ErrInvalidArgument, c.id, other.id)
	}
	if _, ok := c.Fitness(); !ok {
		return nil, fmt.Errorf("%w: parent %d has not been evaluated", ErrInvalidArgument, c.id)
	}
	if _, ok := other.Fitness(); !ok {
		return nil, fmt.Errorf("%w: parent %d has not been evaluated", ErrInvalidArgument, other.id)
	}

	fitter, weaker := c.rankParents(other)
	child := newChromosome(c.env, c.id, other.id)
	child.SpeciesID = fitter.SpeciesID
	child.inheritGenes(fitter, weaker)
	child.ff = nil
	if fitter.ff != nil {
		child.ff = &FeedforwardConstraint{}
		child.ff.inherit(fitter.ff)
	}
	c.env.Logger.Debug("crossover", "child", child.id, "parent1", c.id, "parent2", other.id, "fitter", fitter.id)
	child.assertInvariants("crossover")
	return child, nil
}

// rankParents orders the receiver and other by fitness. On a tie the
// receiver wins, unless the tie-break is "shorter": then the parent with
// fewer connection genes, then fewer node genes, wins.
func (c *Chromosome) rankParents(other *Chromosome) (fitter, weaker *Chromosome) {
	switch {
	case c.fitness > other.fitness:
		return c, other
	case other.fitness > c.fitness:
		return other, c
	}
	if c.env.Config.CrossoverTieBreak == TieBreakShorter {
		if len(other.conns) < len(c.conns) ||
			(len(other.conns) == len(c.conns) && len(other.nodes) < len(c.nodes)) {
			return other, c
		}
	}
	return c, other
}

func (c *Chromosome) inheritGenes(fitter, weaker *Chromosome) {
	rng := c.env.Rand
	for _, key := range fitter.sortedKeys() {
		cg := fitter.conns[key]
		if homolog, ok := weaker.conns[key]; ok {
			c.conns[key] = cg.Child(homolog, rng)
		} else {
			c.conns[key] = cg.Copy()
		}
	}
	c.nodes = make([]NodeGene, len(fitter.nodes))
	for i, ng := range fitter.nodes {
		if i < len(weaker.nodes) {
			c.nodes[i] = ng.Child(weaker.nodes[i], rng)
		} else {
			c.nodes[i] = ng.Copy()
		}
	}
}
