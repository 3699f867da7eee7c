package lineage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neat-chromosome/neat"
)

// family builds two founders, their child and a grandchild crossed with a
// third founder, and returns them oldest first.
func family(t *testing.T) (*neat.Environment, []*neat.Chromosome) {
	t.Helper()
	env, err := neat.NewEnvironment(neat.DefaultGenomeConfig(), neat.WithSeed(11))
	require.NoError(t, err)

	founder := func(fitness float64) *neat.Chromosome {
		c, err := neat.NewChromosome(env)
		require.NoError(t, err)
		c.SetFitness(fitness)
		c.SpeciesID = 1
		return c
	}
	a, b, d := founder(1), founder(2), founder(3)
	child, err := a.Crossover(b)
	require.NoError(t, err)
	child.SetFitness(4)
	grandchild, err := child.Crossover(d)
	require.NoError(t, err)
	return env, []*neat.Chromosome{a, b, d, child, grandchild}
}

func records(runID string, chromosomes []*neat.Chromosome) []Record {
	out := make([]Record, len(chromosomes))
	for i, c := range chromosomes {
		out[i] = FromChromosome(runID, i/3+1, c)
	}
	return out
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "lineage.db")),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	env, chain := family(t)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Init(ctx))
			defer store.Close()

			recs := records("run-a", chain)
			require.NoError(t, store.Save(ctx, recs...))

			got, ok, err := store.Get(ctx, "run-a", chain[3].ID())
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, chain[3].ID(), got.ChromosomeID())
			assert.Equal(t, recs[3].Generation, got.Generation)
			assert.Equal(t, chain[3].Connections(), got.Snapshot.Connections)
			assert.Equal(t, chain[3].Nodes(), got.Snapshot.Nodes)

			_, ok, err = store.Get(ctx, "run-b", chain[3].ID())
			require.NoError(t, err)
			assert.False(t, ok, "runs are kept apart")

			restored, err := got.Restore(env)
			require.NoError(t, err)
			assert.Equal(t, chain[3].String(), restored.String())

			// Saving again overwrites.
			chain[3].SetFitness(9)
			require.NoError(t, store.Save(ctx, FromChromosome("run-a", 7, chain[3])))
			got, _, err = store.Get(ctx, "run-a", chain[3].ID())
			require.NoError(t, err)
			assert.Equal(t, 7, got.Generation)
			assert.Equal(t, 9.0, got.Snapshot.Fitness)
			chain[3].SetFitness(4)
		})
	}
}

func TestStoreRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	_, chain := family(t)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Init(ctx))
			defer store.Close()

			rec := FromChromosome("run", 1, chain[0])
			rec.SchemaVersion = CurrentSchemaVersion + 1
			assert.ErrorIs(t, store.Save(ctx, rec), ErrVersionMismatch)
		})
	}
}

func TestStoreRequiresInit(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := store.Get(ctx, "run", 1)
			assert.Error(t, err)
			assert.Error(t, store.Save(ctx))
		})
	}
	assert.Error(t, NewSQLiteStore("").Init(ctx))
}

func TestAncestors(t *testing.T) {
	ctx := context.Background()
	_, chain := family(t)
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.Save(ctx, records("run", chain)...))

	ancestors, err := Ancestors(ctx, store, "run", chain[4].ID())
	require.NoError(t, err)
	var ids []int
	for _, r := range ancestors {
		ids = append(ids, r.ChromosomeID())
	}
	assert.Equal(t, []int{chain[3].ID(), chain[2].ID(), chain[1].ID(), chain[0].ID()}, ids)

	ancestors, err = Ancestors(ctx, store, "run", chain[0].ID())
	require.NoError(t, err)
	assert.Empty(t, ancestors, "founders have no ancestors")

	_, err = Ancestors(ctx, store, "run", 999)
	assert.Error(t, err)
}

func TestAncestorsSkipsMissingParents(t *testing.T) {
	ctx := context.Background()
	_, chain := family(t)
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))
	// Leave out the direct parent; the walk stops on that branch.
	require.NoError(t, store.Save(ctx, records("run", []*neat.Chromosome{chain[0], chain[2], chain[4]})...))

	ancestors, err := Ancestors(ctx, store, "run", chain[4].ID())
	require.NoError(t, err)
	require.Len(t, ancestors, 1)
	assert.Equal(t, chain[2].ID(), ancestors[0].ChromosomeID())
}

func TestDecodeRecord(t *testing.T) {
	_, chain := family(t)
	rec := FromChromosome("run", 3, chain[4])
	data, err := EncodeRecord(rec)
	require.NoError(t, err)

	got, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec.Snapshot.Parent1ID, got.Snapshot.Parent1ID)
	assert.Equal(t, rec.Hidden, got.Hidden)
	assert.Equal(t, rec.Enabled, got.Enabled)
	assert.True(t, got.Snapshot.FeedForward)

	_, err = DecodeRecord([]byte(`{"schema_version":2,"codec_version":1}`))
	assert.ErrorIs(t, err, ErrVersionMismatch)
	_, err = DecodeRecord([]byte(`{`))
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore("", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	s, err = NewStore("sqlite", "x.db")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	_, err = NewStore("postgres", "")
	assert.Error(t, err)
}
