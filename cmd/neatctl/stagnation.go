package main

import (
	"cmp"
	"math"
	"slices"
)

type speciesHistory struct {
	bestFitness  float64
	lastImproved int
}

// stagnation tracks when each species last improved its mean fitness.
type stagnation struct {
	maxStagnation  int
	speciesElitism int
	history        map[int]*speciesHistory
}

func newStagnation(maxStagnation, speciesElitism int) *stagnation {
	return &stagnation{
		maxStagnation:  maxStagnation,
		speciesElitism: speciesElitism,
		history:        make(map[int]*speciesHistory),
	}
}

// update records this generation's species fitness and returns the ids of
// the species that stagnated. The speciesElitism fittest species are never
// returned, and neither is the last surviving species.
func (s *stagnation) update(speciesFitness map[int]float64, generation int) []int {
	for sid := range s.history {
		if _, alive := speciesFitness[sid]; !alive {
			delete(s.history, sid)
		}
	}

	ids := make([]int, 0, len(speciesFitness))
	for sid, fitness := range speciesFitness {
		h, ok := s.history[sid]
		if !ok {
			h = &speciesHistory{bestFitness: math.Inf(-1), lastImproved: generation}
			s.history[sid] = h
		}
		if fitness > h.bestFitness {
			h.bestFitness = fitness
			h.lastImproved = generation
		}
		ids = append(ids, sid)
	}

	// Least fit first; ties broken by id so the result is reproducible.
	slices.SortFunc(ids, func(a, b int) int {
		if c := cmp.Compare(speciesFitness[a], speciesFitness[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	var stagnant []int
	remaining := len(ids)
	for i, sid := range ids {
		if len(ids)-i <= s.speciesElitism || remaining <= 1 {
			break
		}
		if generation-s.history[sid].lastImproved >= s.maxStagnation {
			stagnant = append(stagnant, sid)
			delete(s.history, sid)
			remaining--
		}
	}
	return stagnant
}
