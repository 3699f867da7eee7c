package main

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"math/rand"
	"slices"

	"github.com/baldhumanity/neat-chromosome/internal/lineage"
	"github.com/baldhumanity/neat-chromosome/neat"
)

// FitnessFunc evaluates every chromosome and records its fitness.
type FitnessFunc func(chromosomes []*neat.Chromosome) error

// evolver drives a plain generational loop over the chromosome core:
// threshold speciation, fitness-proportional spawn per species, one elite
// per species, and same-species crossover followed by one mutation.
type evolver struct {
	env     *neat.Environment
	config  *neat.Config
	logger  *slog.Logger
	metrics *metrics
	store   lineage.Store
	runID   string

	population      []*neat.Chromosome
	representatives map[int]*neat.Chromosome // species id -> representative
	stagnation      *stagnation
	nextSpeciesID   int
	generation      int
	best            *neat.Chromosome
}

func newEvolver(env *neat.Environment, config *neat.Config, store lineage.Store, runID string, m *metrics) (*evolver, error) {
	e := &evolver{
		env:             env,
		config:          config,
		logger:          env.Logger,
		metrics:         m,
		store:           store,
		runID:           runID,
		representatives: make(map[int]*neat.Chromosome),
		nextSpeciesID:   1,
		stagnation:      newStagnation(config.Neat.MaxStagnation, config.Neat.SpeciesElitism),
	}
	for range config.Neat.PopSize {
		c, err := neat.NewChromosome(env)
		if err != nil {
			return nil, fmt.Errorf("failed to create founder: %w", err)
		}
		e.population = append(e.population, c)
	}
	e.logger.Info("population created", "size", len(e.population), "run", runID)
	return e, nil
}

// RunGeneration evaluates, records and speciates the current population,
// then replaces it with the next generation. It returns the best chromosome
// once fitness_threshold is reached.
func (e *evolver) RunGeneration(ctx context.Context, fitnessFunc FitnessFunc) (*neat.Chromosome, error) {
	e.generation++
	if err := fitnessFunc(e.population); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed: %w", err)
	}

	currentBest := e.population[0]
	for _, c := range e.population[1:] {
		if fitnessOf(c) > fitnessOf(currentBest) {
			currentBest = c
		}
	}
	if e.best == nil || fitnessOf(currentBest) > fitnessOf(e.best) {
		e.best = currentBest
	}
	e.metrics.bestFitness.Set(fitnessOf(e.best))

	e.speciate()

	records := make([]lineage.Record, len(e.population))
	for i, c := range e.population {
		records[i] = lineage.FromChromosome(e.runID, e.generation, c)
	}
	if err := e.store.Save(ctx, records...); err != nil {
		return nil, fmt.Errorf("failed to save lineage of generation %d: %w", e.generation, err)
	}

	hidden, enabled := currentBest.Size()
	e.logger.Info("generation complete",
		"generation", e.generation,
		"best", currentBest.ID(),
		"fitness", fitnessOf(currentBest),
		"hidden", hidden,
		"enabled", enabled,
		"species", len(e.representatives))

	if fitnessOf(e.best) >= e.config.Neat.FitnessThreshold {
		return e.best, nil
	}

	next, err := e.reproduce()
	if err != nil {
		return nil, err
	}
	e.population = next
	e.metrics.generations.Inc()
	return nil, nil
}

// speciate partitions the population. Each existing species first takes the
// unassigned chromosome closest to its old representative as its new
// representative; the rest join the closest representative within
// compatibility_threshold or found a new species.
func (e *evolver) speciate() {
	threshold := e.config.Neat.CompatibilityThreshold
	cache := neat.NewDistanceCache()

	unspeciated := slices.Clone(e.population)
	newReps := make(map[int]*neat.Chromosome)
	for _, sid := range slices.Sorted(maps.Keys(e.representatives)) {
		if len(unspeciated) == 0 {
			break
		}
		rep := e.representatives[sid]
		closest := slices.MinFunc(unspeciated, func(a, b *neat.Chromosome) int {
			return cmp.Compare(cache.Distance(rep, a), cache.Distance(rep, b))
		})
		newReps[sid] = closest
		closest.SpeciesID = sid
		unspeciated = slices.DeleteFunc(unspeciated, func(c *neat.Chromosome) bool { return c == closest })
	}

	slices.SortFunc(unspeciated, func(a, b *neat.Chromosome) int { return cmp.Compare(a.ID(), b.ID()) })
	for _, c := range unspeciated {
		bestSpecies, minDist := 0, math.Inf(1)
		for _, sid := range slices.Sorted(maps.Keys(newReps)) {
			if d := cache.Distance(newReps[sid], c); d < threshold && d < minDist {
				bestSpecies, minDist = sid, d
			}
		}
		if bestSpecies == 0 {
			bestSpecies = e.nextSpeciesID
			e.nextSpeciesID++
			newReps[bestSpecies] = c
			e.logger.Debug("species created", "species", bestSpecies, "representative", c.ID())
		}
		c.SpeciesID = bestSpecies
	}
	e.representatives = newReps
	e.metrics.species.Set(float64(len(newReps)))

	mean, stdev := cache.Stats()
	e.metrics.distance.Observe(mean)
	e.logger.Debug("population speciated",
		"species", len(newReps),
		"mean_distance", mean,
		"stdev_distance", stdev,
		"cache_hits", cache.Hits,
		"cache_misses", cache.Misses)
}

// reproduce builds the next generation from the speciated population.
func (e *evolver) reproduce() ([]*neat.Chromosome, error) {
	members := make(map[int][]*neat.Chromosome)
	for _, c := range e.population {
		members[c.SpeciesID] = append(members[c.SpeciesID], c)
	}
	speciesFitness := make(map[int]float64, len(members))
	for sid, old := range members {
		fits := make([]float64, len(old))
		for j, c := range old {
			fits[j] = fitnessOf(c)
		}
		speciesFitness[sid] = neat.Mean(fits)
	}
	for _, sid := range e.stagnation.update(speciesFitness, e.generation) {
		e.logger.Info("species removed due to stagnation", "species", sid, "fitness", speciesFitness[sid])
		delete(members, sid)
		delete(e.representatives, sid)
	}
	speciesIDs := slices.Sorted(maps.Keys(members))

	var all []float64
	for _, sid := range speciesIDs {
		for _, c := range members[sid] {
			all = append(all, fitnessOf(c))
		}
	}
	minFitness := slices.Min(all)
	fitnessRange := math.Max(1.0, slices.Max(all)-minFitness)

	adjusted := make([]float64, len(speciesIDs))
	previousSizes := make([]int, len(speciesIDs))
	adjustedSum := 0.0
	for i, sid := range speciesIDs {
		adjusted[i] = (speciesFitness[sid] - minFitness) / fitnessRange
		adjustedSum += adjusted[i]
		previousSizes[i] = len(members[sid])
	}
	spawnAmounts := computeSpawnAmounts(e.env.Rand, adjusted, adjustedSum, previousSizes, e.config.Neat.PopSize, 2)

	next := make([]*neat.Chromosome, 0, e.config.Neat.PopSize)
	for i, sid := range speciesIDs {
		old := members[sid]
		slices.SortStableFunc(old, func(a, b *neat.Chromosome) int {
			return cmp.Compare(fitnessOf(b), fitnessOf(a))
		})
		next = append(next, old[0])
		spawn := spawnAmounts[i] - 1

		cutoff := int(math.Ceil(e.config.Neat.SurvivalThreshold * float64(len(old))))
		cutoff = min(max(cutoff, 2), len(old))
		parents := old[:cutoff]

		for range spawn {
			p1 := parents[e.env.Rand.Intn(len(parents))]
			p2 := parents[e.env.Rand.Intn(len(parents))]
			child, err := p1.Crossover(p2)
			if err != nil {
				return nil, fmt.Errorf("crossover in species %d: %w", sid, err)
			}
			kind, applied := child.ApplyMutation()
			e.metrics.mutations.WithLabelValues(kind.String(), fmt.Sprint(applied)).Inc()
			next = append(next, child)
		}
	}
	if len(next) != e.config.Neat.PopSize {
		e.logger.Warn("population size differs from target", "size", len(next), "target", e.config.Neat.PopSize)
	}
	return next, nil
}

// computeSpawnAmounts calculates the number of offspring each species should
// produce: proportional to adjusted fitness, damped towards the previous
// size, then normalised to popSize.
func computeSpawnAmounts(rng *rand.Rand, adjustedFitnesses []float64, adjustedFitnessSum float64, previousSizes []int, popSize int, minSpeciesSize int) []int {
	spawnAmounts := make([]int, len(adjustedFitnesses))
	for i, af := range adjustedFitnesses {
		ps := previousSizes[i]
		s := float64(minSpeciesSize)
		if adjustedFitnessSum > 0 {
			s = af / adjustedFitnessSum * float64(popSize)
		}
		s = math.Max(float64(minSpeciesSize), s)

		d := (s - float64(ps)) * 0.5
		c := int(math.Round(d))
		spawn := ps
		switch {
		case c != 0:
			spawn += c
		case d > 0:
			spawn++
		case d < 0:
			spawn--
		}
		spawnAmounts[i] = max(minSpeciesSize, spawn)
	}

	totalSpawn := 0
	for _, sa := range spawnAmounts {
		totalSpawn += sa
	}
	if totalSpawn == 0 {
		return spawnAmounts
	}

	norm := float64(popSize) / float64(totalSpawn)
	currentTotal := 0
	for i, sa := range spawnAmounts {
		spawnAmounts[i] = max(minSpeciesSize, int(math.Round(float64(sa)*norm)))
		currentTotal += spawnAmounts[i]
	}

	diff := popSize - currentTotal
	for _, idx := range rng.Perm(len(spawnAmounts)) {
		if diff == 0 {
			break
		}
		if diff > 0 {
			spawnAmounts[idx]++
			diff--
		} else if spawnAmounts[idx] > minSpeciesSize {
			spawnAmounts[idx]--
			diff++
		}
	}
	return spawnAmounts
}

func fitnessOf(c *neat.Chromosome) float64 {
	f, _ := c.Fitness()
	return f
}
