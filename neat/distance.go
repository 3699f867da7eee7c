package neat

import "math"

// Distance returns the compatibility distance between the receiver and other:
//
//	excess_coefficient*E + disjoint_coefficient*D + weight_coefficient*W̄
//
// Connection genes are matched by key. The chromosome with more connection
// genes is A (other wins ties) and the other is B. A gene of A without a
// homolog in B is excess when it sorts after B's greatest gene under the
// natural ordering and disjoint otherwise; every unmatched gene of B is
// disjoint. W̄ is the mean absolute weight difference over matching genes,
// omitted when nothing matches. An empty B makes all of A excess.
//
// The result is symmetric when the gene counts differ. With equal counts the
// roles depend on argument order, so it is symmetric only when the excess
// and disjoint coefficients are equal.
func (c *Chromosome) Distance(other *Chromosome) float64 {
	a, b := other, c
	if len(c.conns) > len(other.conns) {
		a, b = c, other
	}
	order := c.env.Ordering

	var (
		maxB    ConnectionSpec
		hasMaxB bool
	)
	for _, cg := range b.conns {
		if s := cg.Spec(); !hasMaxB || order(s, maxB) > 0 {
			maxB, hasMaxB = s, true
		}
	}

	var (
		excess, disjoint, matching int
		weightDiff                 float64
	)
	for _, key := range a.sortedKeys() {
		sa := a.conns[key].Spec()
		if cb, ok := b.conns[key]; ok {
			weightDiff += math.Abs(sa.Weight - cb.Spec().Weight)
			matching++
			continue
		}
		if !hasMaxB || order(sa, maxB) > 0 {
			excess++
		} else {
			disjoint++
		}
	}
	disjoint += len(b.conns) - matching

	cfg := c.env.Config
	d := cfg.ExcessCoefficient*float64(excess) + cfg.DisjointCoefficient*float64(disjoint)
	if matching > 0 {
		d += cfg.WeightCoefficient * weightDiff / float64(matching)
	}
	return d
}

// --------------------------- DistanceCache ---------------------------

type chromosomePair struct {
	lo, hi int
}

// DistanceCache memoises distances between chromosome pairs, keyed by id.
// The chromosome with the smaller id is always the receiver, so a pair gets
// the same answer whichever way round it is asked. It is not safe for
// concurrent use.
type DistanceCache struct {
	distances map[chromosomePair]float64
	Hits      int
	Misses    int
}

// NewDistanceCache creates an empty cache.
func NewDistanceCache() *DistanceCache {
	return &DistanceCache{distances: make(map[chromosomePair]float64)}
}

// Distance calculates or retrieves the distance between two chromosomes.
func (dc *DistanceCache) Distance(c1, c2 *Chromosome) float64 {
	if c1.id > c2.id {
		c1, c2 = c2, c1
	}
	key := chromosomePair{lo: c1.id, hi: c2.id}
	if d, ok := dc.distances[key]; ok {
		dc.Hits++
		return d
	}
	dc.Misses++
	d := c1.Distance(c2)
	dc.distances[key] = d
	return d
}

// Len returns the number of cached pairs.
func (dc *DistanceCache) Len() int { return len(dc.distances) }

// Stats returns the mean and sample standard deviation of the cached distances.
func (dc *DistanceCache) Stats() (mean, stdev float64) {
	if len(dc.distances) == 0 {
		return 0, 0
	}
	all := make([]float64, 0, len(dc.distances))
	for _, d := range dc.distances {
		all = append(all, d)
	}
	return Mean(all), Stdev(all)
}
