package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluated(c *Chromosome, fitness float64, species int) *Chromosome {
	c.SetFitness(fitness)
	c.SpeciesID = species
	return c
}

func TestCrossoverRejectsInvalidParents(t *testing.T) {
	env := newTestEnv(t, nil)
	a := evaluated(build(t, env, 0, []ConnectionSpec{conn(1, 3, 1)}, nil), 1, 1)
	b := evaluated(build(t, env, 0, []ConnectionSpec{conn(2, 3, 1)}, nil), 1, 2)
	fresh := build(t, env, 0, nil, nil)
	fresh.SpeciesID = 1

	recurrentEnv := newTestEnv(t, func(c *GenomeConfig) { c.FeedForward = false })
	recurrent := evaluated(build(t, recurrentEnv, 0, nil, nil), 1, 1)

	tests := []struct {
		name  string
		other *Chromosome
	}{
		{"nil partner", nil},
		{"different species", b},
		{"unevaluated partner", fresh},
		{"mixed variants", recurrent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Crossover(tt.other)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	_, err := fresh.Crossover(a)
	assert.ErrorIs(t, err, ErrInvalidArgument, "unevaluated receiver")
}

func TestCrossoverInheritsFitterTopology(t *testing.T) {
	env := newTestEnv(t, nil)
	weak := evaluated(build(t, env, 0, []ConnectionSpec{conn(1, 3, 5), conn(2, 3, 5)}, nil), 1, 3)
	strong := evaluated(build(t, env, 1, []ConnectionSpec{conn(1, 3, -5), conn(1, 4, 2), conn(4, 3, 2)}, nil), 2, 3)
	weakBefore, strongBefore := weak.String(), strong.String()

	for _, pair := range [][2]*Chromosome{{weak, strong}, {strong, weak}} {
		child, err := pair[0].Crossover(pair[1])
		require.NoError(t, err)
		require.NoError(t, child.Verify())

		assert.Equal(t, connKeys(strong), connKeys(child))
		assert.Len(t, child.Nodes(), 4)
		assert.Equal(t, []int{4}, child.HiddenOrder())
		assert.Equal(t, pair[0].ID(), child.Parent1ID())
		assert.Equal(t, pair[1].ID(), child.Parent2ID())
		assert.Equal(t, 3, child.SpeciesID)
		assert.Greater(t, child.ID(), strong.ID())

		_, ok := child.Fitness()
		assert.False(t, ok)

		w, _ := child.Connection(MakeConnKey(1, 3))
		assert.Contains(t, []float64{5, -5}, w.Weight, "matching genes come from either parent")
		w, _ = child.Connection(MakeConnKey(1, 4))
		assert.Equal(t, 2.0, w.Weight, "unmatched genes come from the fitter parent")
	}
	assert.Equal(t, weakBefore, weak.String())
	assert.Equal(t, strongBefore, strong.String())
}

func TestCrossoverTieBreak(t *testing.T) {
	for _, tieBreak := range []string{TieBreakFirst, TieBreakShorter} {
		t.Run(tieBreak, func(t *testing.T) {
			env := newTestEnv(t, func(c *GenomeConfig) { c.CrossoverTieBreak = tieBreak })
			long := evaluated(build(t, env, 0, []ConnectionSpec{conn(1, 3, 1), conn(2, 3, 1)}, nil), 1, 1)
			short := evaluated(build(t, env, 0, []ConnectionSpec{conn(1, 3, 1)}, nil), 1, 1)

			child, err := long.Crossover(short)
			require.NoError(t, err)
			if tieBreak == TieBreakFirst {
				assert.Equal(t, connKeys(long), connKeys(child))
			} else {
				assert.Equal(t, connKeys(short), connKeys(child))
			}

			child, err = short.Crossover(long)
			require.NoError(t, err)
			assert.Equal(t, connKeys(short), connKeys(child), "receiver and shorter agree")
		})
	}
}

func TestCrossoverShorterFallsBackToNodeCount(t *testing.T) {
	env := newTestEnv(t, func(c *GenomeConfig) {
		c.CrossoverTieBreak = TieBreakShorter
		c.FeedForward = false
	})
	big := evaluated(build(t, env, 2, []ConnectionSpec{conn(1, 3, 1)}, nil), 0, 1)
	small := evaluated(build(t, env, 0, []ConnectionSpec{conn(2, 3, 1)}, nil), 0, 1)

	child, err := big.Crossover(small)
	require.NoError(t, err)
	assert.Len(t, child.Nodes(), 3)
	assert.Equal(t, connKeys(small), connKeys(child))
	assert.False(t, child.IsFeedforward())
}

func TestCrossoverIsDeterministicPerSeed(t *testing.T) {
	run := func() string {
		env := newTestEnv(t, func(c *GenomeConfig) { c.NodeAddProb = 0.3 }, WithSeed(42))
		a, err := NewChromosome(env)
		require.NoError(t, err)
		b, err := NewChromosome(env)
		require.NoError(t, err)
		for range 20 {
			a.Mutate()
			b.Mutate()
		}
		evaluated(a, 1, 1)
		evaluated(b, 1, 1)
		child, err := a.Crossover(b)
		require.NoError(t, err)
		return child.String()
	}
	assert.Equal(t, run(), run())
}

func TestCrossoverCopiesHiddenOrder(t *testing.T) {
	env := newTestEnv(t, nil)
	strong := evaluated(build(t, env, 2, []ConnectionSpec{conn(5, 4, 1), conn(1, 5, 1)}, []int{5, 4}), 2, 1)
	weak := evaluated(build(t, env, 2, []ConnectionSpec{conn(4, 5, 1)}, []int{4, 5}), 1, 1)

	child, err := weak.Crossover(strong)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 4}, child.HiddenOrder())
	requireAcyclic(t, child)

	child.Mutate()
	assert.Equal(t, []int{5, 4}, strong.HiddenOrder(), "child order is a copy")
}
