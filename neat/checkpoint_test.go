package neat

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mutatedPopulation(t *testing.T, env *Environment, n int) []*Chromosome {
	t.Helper()
	pop := make([]*Chromosome, n)
	for i := range pop {
		c, err := NewChromosome(env)
		require.NoError(t, err)
		for range 30 {
			c.Mutate()
		}
		c.SetFitness(float64(i))
		c.SpeciesID = i%2 + 1
		pop[i] = c
	}
	return pop
}

func TestSaveLoadChromosomes(t *testing.T) {
	edit := func(c *GenomeConfig) { c.NodeAddProb, c.ConnAddProb = 0.2, 0.5 }
	env := newTestEnv(t, edit)
	pop := mutatedPopulation(t, env, 5)
	pop[2].ClearFitness()

	path := filepath.Join(t.TempDir(), "pop.gob.gz")
	require.NoError(t, SaveChromosomes(path, pop))

	fresh := newTestEnv(t, edit)
	loaded, err := LoadChromosomes(path, fresh)
	require.NoError(t, err)
	require.Len(t, loaded, len(pop))
	for i, c := range loaded {
		assert.Equal(t, pop[i].String(), c.String())
		assert.Equal(t, pop[i].Snapshot(), c.Snapshot())
		assert.Same(t, fresh, c.Environment())
	}
	_, ok := loaded[2].Fitness()
	assert.False(t, ok)

	next, err := NewChromosome(fresh)
	require.NoError(t, err)
	assert.Greater(t, next.ID(), pop[4].ID(), "ids continue after the restored ones")

	for _, cs := range loaded[4].Connections() {
		assert.Equal(t, cs.Innovation, fresh.Registry.Innovation(cs.Key()))
	}
}

func TestLoadChromosomesErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := LoadChromosomes(filepath.Join(t.TempDir(), "missing"), env)
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeChromosomes(&buf, mutatedPopulation(t, env, 1)))
	wider := newTestEnv(t, func(c *GenomeConfig) { c.NumInputs = 3 })
	_, err = DecodeChromosomes(bytes.NewReader(buf.Bytes()), wider)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = DecodeChromosomes(&buf, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = DecodeChromosomes(bytes.NewBufferString("not gob"), env)
	assert.Error(t, err)
}

func TestSnapshotJSONKeepsVariant(t *testing.T) {
	env := newTestEnv(t, nil)
	c, err := CreateFullyConnected(env)
	require.NoError(t, err)

	data, err := json.Marshal(c.Snapshot())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	restored, err := Restore(newTestEnv(t, nil), snap)
	require.NoError(t, err)
	assert.True(t, restored.IsFeedforward(), "an empty hidden order is still feedforward")
	assert.Equal(t, c.String(), restored.String())
}
