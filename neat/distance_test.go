package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceWeightTerm(t *testing.T) {
	env := newTestEnv(t, nil)
	a := build(t, env, 0, []ConnectionSpec{conn(1, 3, 0.5), conn(2, 3, 0.5)}, nil)
	b := build(t, env, 0, []ConnectionSpec{conn(1, 3, 0.5), conn(2, 3, 0.7)}, nil)

	// Two matching genes, mean weight difference 0.1.
	assert.InDelta(t, 0.4*0.1, a.Distance(b), 1e-12)
	assert.InDelta(t, 0.4*0.1, b.Distance(a), 1e-12)
	assert.Zero(t, a.Distance(a))
}

func TestDistanceEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	empty := build(t, env, 0, nil, nil)
	other := build(t, env, 0, nil, nil)
	full := build(t, env, 0, []ConnectionSpec{conn(1, 3, 1), conn(2, 3, 1)}, nil)

	assert.Zero(t, empty.Distance(other))
	assert.Equal(t, 2.0, full.Distance(empty), "every gene is excess against an empty chromosome")
	assert.Equal(t, 2.0, empty.Distance(full))
}

func TestDistanceClassifiesByInnovation(t *testing.T) {
	env := newTestEnv(t, func(c *GenomeConfig) { c.ExcessOrdering = OrderingInnovation })
	// Fix innovation numbers 1..4 for the keys used below.
	build(t, env, 1, []ConnectionSpec{conn(1, 3, 0), conn(2, 3, 0), conn(1, 4, 0), conn(4, 3, 0)}, nil)

	t.Run("excess", func(t *testing.T) {
		b := build(t, env, 0, []ConnectionSpec{conn(1, 3, 1), conn(2, 3, 1)}, nil)
		a := build(t, env, 1, []ConnectionSpec{conn(1, 3, 1), conn(1, 4, 1), conn(4, 3, 1)}, nil)
		// (1,4) and (4,3) follow B's newest gene; (2,3) is B's disjoint gene.
		assert.Equal(t, 3.0, a.Distance(b))
		assert.Equal(t, 3.0, b.Distance(a))
	})

	t.Run("disjoint", func(t *testing.T) {
		b := build(t, env, 1, []ConnectionSpec{conn(1, 3, 1), conn(4, 3, 1)}, nil)
		a := build(t, env, 1, []ConnectionSpec{conn(1, 3, 2), conn(2, 3, 1), conn(1, 4, 1)}, nil)
		assert.InDelta(t, 3.0+0.4*1, a.Distance(b), 1e-12)
	})
}

func TestDistanceClassifiesByWeight(t *testing.T) {
	env := newTestEnv(t, func(c *GenomeConfig) { c.ExcessCoefficient = 3 })
	b := build(t, env, 0, []ConnectionSpec{conn(1, 3, 1)}, nil)
	a := build(t, env, 1, []ConnectionSpec{conn(1, 3, 1), conn(2, 3, 2), conn(1, 4, 0.5)}, nil)
	// Weight 2 sorts after B's heaviest gene and is excess; weight 0.5 is disjoint.
	assert.Equal(t, 3.0+1.0, a.Distance(b))
}

func TestDistanceEqualCountsDependOnOrder(t *testing.T) {
	env := newTestEnv(t, func(c *GenomeConfig) {
		c.ExcessOrdering = OrderingInnovation
		c.ExcessCoefficient = 2
	})
	x := build(t, env, 0, []ConnectionSpec{conn(1, 3, 1)}, nil)
	y := build(t, env, 0, []ConnectionSpec{conn(2, 3, 1)}, nil)

	// x.Distance(y): A = y, whose gene is newer than x's, so one excess and one disjoint.
	assert.Equal(t, 3.0, x.Distance(y))
	// y.Distance(x): A = x, whose gene is older than y's, so two disjoint.
	assert.Equal(t, 2.0, y.Distance(x))
}

func TestDistanceCache(t *testing.T) {
	env := newTestEnv(t, nil)
	a := build(t, env, 0, []ConnectionSpec{conn(1, 3, 1)}, nil)
	b := build(t, env, 0, []ConnectionSpec{conn(1, 3, 2)}, nil)
	c := build(t, env, 0, []ConnectionSpec{conn(2, 3, 2)}, nil)

	cache := NewDistanceCache()
	mean, stdev := cache.Stats()
	assert.Zero(t, mean)
	assert.Zero(t, stdev)

	d := cache.Distance(b, a)
	assert.Equal(t, a.Distance(b), d)
	assert.Equal(t, d, cache.Distance(a, b))
	assert.Equal(t, 1, cache.Misses)
	assert.Equal(t, 1, cache.Hits)

	cache.Distance(a, c)
	require.Equal(t, 2, cache.Len())
	mean, stdev = cache.Stats()
	assert.InDelta(t, (0.4+2.0)/2, mean, 1e-12)
	assert.Positive(t, stdev)
}

func TestDistanceSymmetryOverMutatedPairs(t *testing.T) {
	for _, coeffs := range [][2]float64{{1, 1}, {2, 0.5}} {
		env := newTestEnv(t, func(c *GenomeConfig) {
			c.ExcessOrdering = OrderingInnovation
			c.ExcessCoefficient, c.DisjointCoefficient = coeffs[0], coeffs[1]
			c.NodeAddProb, c.ConnAddProb, c.NodeDeleteProb, c.ConnDeleteProb = 0.2, 0.5, 0, 0.6
		}, WithSeed(17))

		unequal := 0
		for range 200 {
			a, err := NewChromosome(env)
			require.NoError(t, err)
			b, err := NewChromosome(env)
			require.NoError(t, err)
			for range env.Rand.Intn(15) {
				a.Mutate()
			}
			for range env.Rand.Intn(15) {
				b.Mutate()
			}

			ab, ba := a.Distance(b), b.Distance(a)
			if len(a.Connections()) != len(b.Connections()) {
				unequal++
				require.Equal(t, ab, ba, "counts %d and %d", len(a.Connections()), len(b.Connections()))
			} else if coeffs[0] == coeffs[1] {
				require.Equal(t, ab, ba, "equal coefficients make equal counts symmetric")
			}
		}
		assert.Positive(t, unequal)
	}
}
