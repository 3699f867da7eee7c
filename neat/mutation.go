package neat

import "fmt"

// MutationKind names the operator a call to ApplyMutation selected.
type MutationKind int

const (
	MutationPerturb MutationKind = iota
	MutationAddNode
	MutationAddConnection
	MutationDeleteNode
	MutationDeleteConnection
)

func (k MutationKind) String() string {
	switch k {
	case MutationPerturb:
		return "perturb"
	case MutationAddNode:
		return "add-node"
	case MutationAddConnection:
		return "add-connection"
	case MutationDeleteNode:
		return "delete-node"
	case MutationDeleteConnection:
		return "delete-connection"
	default:
		return fmt.Sprintf("MutationKind(%d)", int(k))
	}
}

// Mutate applies one mutation in place and returns the receiver so calls can be chained.
func (c *Chromosome) Mutate() *Chromosome {
	c.ApplyMutation()
	return c
}

// ApplyMutation draws one uniform number and compares it, in order, against
// node_add_prob, conn_add_prob, node_delete_prob and conn_delete_prob. The
// first threshold above the draw selects its structural operator; when none
// is, every gene is perturbed instead. The boolean reports whether the
// chromosome changed structurally (always true for perturbation). See
// GenomeConfig.EffectiveMutationRates for the resulting probabilities.
func (c *Chromosome) ApplyMutation() (MutationKind, bool) {
	cfg := c.env.Config
	r := c.env.Rand.Float64()
	var (
		kind    MutationKind
		applied bool
	)
	switch {
	case r < cfg.NodeAddProb:
		kind, applied = MutationAddNode, c.mutateAddNode()
	case r < cfg.ConnAddProb:
		kind, applied = MutationAddConnection, c.mutateAddConnection()
	case r < cfg.NodeDeleteProb:
		kind, applied = MutationDeleteNode, c.mutateDeleteNode()
	case r < cfg.ConnDeleteProb:
		kind, applied = MutationDeleteConnection, c.mutateDeleteConnection()
	default:
		c.mutatePerturb()
		kind, applied = MutationPerturb, true
	}
	if !applied {
		c.env.Logger.Debug("mutation skipped", "chromosome", c.id, "kind", kind)
	}
	return kind, applied
}

// mutatePerturb lets every connection gene and every non-input node gene
// mutate its own parameters.
func (c *Chromosome) mutatePerturb() {
	cfg, rng := c.env.Config, c.env.Rand
	for _, key := range c.sortedKeys() {
		c.conns[key].Mutate(cfg, rng)
	}
	for _, ng := range c.nodes[c.numInputs:] {
		ng.Mutate(cfg, rng)
	}
}

// mutateAddNode splits a random connection: the old gene is disabled and
// replaced by source->new (weight 1) and new->target (the old weight).
// Disabled connections can be split too.
func (c *Chromosome) mutateAddNode() bool {
	if len(c.conns) == 0 {
		return false
	}
	keys := c.sortedKeys()
	split := c.conns[keys[c.env.Rand.Intn(len(keys))]]
	s := split.Spec()
	split.SetEnabled(false)

	id := c.appendNode(HiddenNode)
	c.addConnection(s.Source, id, 1.0, true, s.Key())
	c.addConnection(id, s.Target, s.Weight, true, s.Key())
	if c.ff != nil {
		c.ff.placeSplitNode(c, id, s)
	}
	c.env.Logger.Debug("node added", "chromosome", c.id, "node", id, "split", s.Key())
	c.assertInvariants("add-node")
	return true
}

// possibleConnections counts the (source, target) pairs the variant allows.
// General: any source, any non-input target. Feedforward: input or hidden
// sources, output or hidden targets, minus the H(H+1)/2 hidden pairs that
// would point backwards (or at themselves) in the hidden order.
func (c *Chromosome) possibleConnections() int {
	n, i := len(c.nodes), c.numInputs
	if c.ff == nil {
		return (n - i) * n
	}
	h, o := c.numHidden(), c.numOutputs
	return (h+o)*(i+h) - h*(h+1)/2
}

// mutateAddConnection adds one connection chosen uniformly among the pairs
// that are allowed and not yet present. It walks the candidate pairs in id
// order and stops at a random index into the free ones.
func (c *Chromosome) mutateAddConnection() bool {
	free := c.possibleConnections() - len(c.conns)
	if free <= 0 {
		return false
	}
	pick := c.env.Rand.Intn(free)

	var ranks []int
	if c.ff != nil {
		ranks = c.ff.ranks(len(c.nodes))
	}
	n := len(c.nodes)
	seen := 0
	for src := 1; src <= n; src++ {
		if c.ff != nil && c.nodeType(src) == OutputNode {
			continue
		}
		for dst := c.numInputs + 1; dst <= n; dst++ {
			key := MakeConnKey(src, dst)
			if _, exists := c.conns[key]; exists {
				continue
			}
			if c.ff != nil && !c.ff.allows(c, ranks, src, dst) {
				continue
			}
			if seen == pick {
				c.addConnection(src, dst, gauss(c.env.Rand, 0, c.env.Config.WeightStdev), true, 0)
				c.env.Logger.Debug("connection added", "chromosome", c.id, "key", key)
				c.assertInvariants("add-connection")
				return true
			}
			seen++
		}
	}
	invariant(false, "chromosome %d: free connection %d of %d not found", c.id, pick, free)
	return false
}

// mutateDeleteConnection removes a random connection gene. The last one is never removed.
func (c *Chromosome) mutateDeleteConnection() bool {
	if len(c.conns) <= 1 {
		return false
	}
	keys := c.sortedKeys()
	key := keys[c.env.Rand.Intn(len(keys))]
	delete(c.conns, key)
	c.env.Logger.Debug("connection deleted", "chromosome", c.id, "key", key)
	c.assertInvariants("delete-connection")
	return true
}

// mutateDeleteNode removes a random hidden node and every connection touching
// it. Later nodes shift down by one id so ids stay dense; their connections
// are re-keyed and take the innovation numbers of their new keys. SplitFrom
// keys are renumbered the same way, and cleared when they name the victim.
func (c *Chromosome) mutateDeleteNode() bool {
	if c.numHidden() == 0 {
		return false
	}
	firstHidden := c.numInputs + c.numOutputs
	victim := firstHidden + c.env.Rand.Intn(c.numHidden()) + 1

	shift := func(id int) int {
		if id > victim {
			return id - 1
		}
		return id
	}
	shiftKey := func(k ConnKey) ConnKey {
		if k == 0 || k.Source() == victim || k.Target() == victim {
			return 0
		}
		return MakeConnKey(shift(k.Source()), shift(k.Target()))
	}

	kept := make([]NodeGene, 0, len(c.nodes)-1)
	for _, ng := range c.nodes {
		s := ng.Spec()
		switch {
		case s.ID < victim:
			kept = append(kept, ng)
		case s.ID > victim:
			s.ID--
			kept = append(kept, c.env.Genes.NewNodeGene(s))
		}
	}
	c.nodes = kept

	conns := make(map[ConnKey]ConnectionGene, len(c.conns))
	for _, key := range c.sortedKeys() {
		cg := c.conns[key]
		s := cg.Spec()
		if s.Source == victim || s.Target == victim {
			continue
		}
		renumbered := s.Source > victim || s.Target > victim
		if renumbered {
			s.Source, s.Target = shift(s.Source), shift(s.Target)
			s.Innovation = c.env.Registry.Innovation(s.Key())
		}
		if split := shiftKey(s.SplitFrom); renumbered || split != s.SplitFrom {
			s.SplitFrom = split
			cg = c.env.Genes.NewConnectionGene(s)
		}
		conns[s.Key()] = cg
	}
	c.conns = conns

	if c.ff != nil {
		c.ff.removeHidden(victim)
	}
	c.env.Logger.Debug("node deleted", "chromosome", c.id, "node", victim)
	c.assertInvariants("delete-node")
	return true
}

// AddHiddenNodes grows the chromosome by n hidden nodes, wiring each one
// densely. In the general variant a new node receives a connection from every
// node (itself included) and feeds every non-input node. In the feedforward
// variant it receives from every input and every earlier hidden node, feeds
// every output, and goes to the end of the hidden order.
func (c *Chromosome) AddHiddenNodes(n int) {
	cfg, rng := c.env.Config, c.env.Rand
	connect := func(src, dst int) {
		if _, exists := c.conns[MakeConnKey(src, dst)]; !exists {
			c.addConnection(src, dst, gauss(rng, 0, cfg.WeightStdev), true, 0)
		}
	}
	for range n {
		id := c.appendNode(HiddenNode)
		if c.ff == nil {
			for src := 1; src <= id; src++ {
				connect(src, id)
			}
			for dst := c.numInputs + 1; dst <= id; dst++ {
				connect(id, dst)
			}
			continue
		}
		for src := 1; src <= c.numInputs; src++ {
			connect(src, id)
		}
		for _, src := range c.ff.hiddenOrder {
			connect(src, id)
		}
		for dst := c.numInputs + 1; dst <= c.numInputs+c.numOutputs; dst++ {
			connect(id, dst)
		}
		c.ff.appendHidden(id)
	}
	c.assertInvariants("add-hidden-nodes")
}
