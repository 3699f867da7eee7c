package neat

import (
	"fmt"
	"slices"
)

// FeedforwardConstraint keeps a chromosome acyclic. It holds a total order
// over the hidden nodes, and only admits a connection src->dst when src is an
// input, dst is an output, or src comes strictly before dst in that order.
// Every directed path then visits hidden nodes in increasing order position,
// so no cycle can form and the order doubles as an evaluation schedule.
type FeedforwardConstraint struct {
	hiddenOrder []int
}

// ranks maps node id to hidden-order position, -1 for inputs and outputs.
func (f *FeedforwardConstraint) ranks(numNodes int) []int {
	r := make([]int, numNodes+1)
	for i := range r {
		r[i] = -1
	}
	for pos, id := range f.hiddenOrder {
		if id >= 1 && id <= numNodes {
			r[id] = pos
		}
	}
	return r
}

func (f *FeedforwardConstraint) allows(c *Chromosome, ranks []int, src, dst int) bool {
	if c.nodeType(src) == InputNode || c.nodeType(dst) == OutputNode {
		return true
	}
	rs, rd := ranks[src], ranks[dst]
	return rs >= 0 && rd >= 0 && rs < rd
}

// placeSplitNode inserts a node created by splitting conn at a random
// position strictly after the source (when hidden) and strictly before the
// target (when hidden).
func (f *FeedforwardConstraint) placeSplitNode(c *Chromosome, id int, split ConnectionSpec) {
	lo, hi := 0, len(f.hiddenOrder)
	if c.nodeType(split.Source) == HiddenNode {
		lo = slices.Index(f.hiddenOrder, split.Source) + 1
	}
	if c.nodeType(split.Target) == HiddenNode {
		hi = slices.Index(f.hiddenOrder, split.Target)
	}
	invariant(lo >= 0 && hi >= 0 && lo <= hi,
		"chromosome %d: split %s has no slot in hidden order %v", c.id, split.Key(), f.hiddenOrder)
	pos := lo + c.env.Rand.Intn(hi-lo+1)
	f.hiddenOrder = slices.Insert(f.hiddenOrder, pos, id)
}

// inherit copies the order of the parent whose genes the child inherited.
func (f *FeedforwardConstraint) inherit(parent *FeedforwardConstraint) {
	f.hiddenOrder = slices.Clone(parent.hiddenOrder)
}

func (f *FeedforwardConstraint) appendHidden(id int) {
	f.hiddenOrder = append(f.hiddenOrder, id)
}

// removeHidden drops id from the order and shifts larger ids down by one,
// mirroring the renumbering done by node deletion.
func (f *FeedforwardConstraint) removeHidden(id int) {
	f.hiddenOrder = slices.DeleteFunc(f.hiddenOrder, func(h int) bool { return h == id })
	for i, h := range f.hiddenOrder {
		if h > id {
			f.hiddenOrder[i] = h - 1
		}
	}
}

func (f *FeedforwardConstraint) verify(c *Chromosome) error {
	if len(f.hiddenOrder) != c.numHidden() {
		return fmt.Errorf("hidden order has %d entries for %d hidden nodes", len(f.hiddenOrder), c.numHidden())
	}
	seen := make(map[int]bool, len(f.hiddenOrder))
	for _, id := range f.hiddenOrder {
		if id < 1 || id > len(c.nodes) || c.nodeType(id) != HiddenNode {
			return fmt.Errorf("hidden order lists non-hidden node %d", id)
		}
		if seen[id] {
			return fmt.Errorf("hidden order lists node %d twice", id)
		}
		seen[id] = true
	}
	ranks := f.ranks(len(c.nodes))
	for key := range c.conns {
		if !f.allows(c, ranks, key.Source(), key.Target()) {
			return fmt.Errorf("connection %s violates hidden order %v", key, f.hiddenOrder)
		}
	}
	return nil
}
