package neat

import (
	"sync"
	"sync/atomic"
)

// Registry hands out chromosome identities and connection innovation numbers.
// Every chromosome built through the same Environment shares one Registry, so
// populations that must not see each other's numbering get separate registries.
// It is safe for concurrent use.
type Registry struct {
	lastChromosomeID atomic.Int64

	mu             sync.Mutex
	lastInnovation int
	innovations    map[ConnKey]int
}

// NewRegistry returns a registry whose first chromosome id and first innovation number are 1.
func NewRegistry() *Registry {
	return &Registry{innovations: make(map[ConnKey]int)}
}

// NextChromosomeID returns a fresh id, strictly greater than every id returned before.
func (r *Registry) NextChromosomeID() int {
	return int(r.lastChromosomeID.Add(1))
}

// Innovation returns the innovation number of the structural connection key.
// The first request for a key allocates the next number; later requests, from
// any lineage, get the same one.
func (r *Registry) Innovation(key ConnKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.innovations[key]; ok {
		return n
	}
	r.lastInnovation++
	r.innovations[key] = r.lastInnovation
	return r.lastInnovation
}

// observeChromosome advances the id counter past an id loaded from a
// checkpoint so new ids never collide with restored ones.
func (r *Registry) observeChromosome(id int) {
	for {
		cur := r.lastChromosomeID.Load()
		if int64(id) <= cur || r.lastChromosomeID.CompareAndSwap(cur, int64(id)) {
			return
		}
	}
}

// observeInnovation records a key/innovation pair loaded from a checkpoint.
func (r *Registry) observeInnovation(key ConnKey, innovation int) {
	if innovation <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.innovations[key]; !ok {
		r.innovations[key] = innovation
	}
	if innovation > r.lastInnovation {
		r.lastInnovation = innovation
	}
}
