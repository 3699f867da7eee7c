package neat

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

func newTestEnv(t *testing.T, edit func(*GenomeConfig), opts ...Option) *Environment {
	t.Helper()
	cfg := DefaultGenomeConfig()
	if edit != nil {
		edit(cfg)
	}
	env, err := NewEnvironment(cfg, append([]Option{WithSeed(1)}, opts...)...)
	require.NoError(t, err)
	return env
}

// build makes a chromosome with the given hidden node count and connections
// under a fresh id. For the feedforward variant a nil order means hidden
// nodes in id order.
func build(t *testing.T, env *Environment, hidden int, conns []ConnectionSpec, order []int) *Chromosome {
	t.Helper()
	cfg := env.Config
	snap := Snapshot{
		ID:          env.Registry.NextChromosomeID(),
		NumInputs:   cfg.NumInputs,
		NumOutputs:  cfg.NumOutputs,
		FeedForward: cfg.FeedForward,
	}
	total := cfg.NumInputs + cfg.NumOutputs + hidden
	for id := 1; id <= total; id++ {
		spec := NodeSpec{ID: id, Type: HiddenNode, Activation: cfg.Activation, Response: 1}
		switch {
		case id <= cfg.NumInputs:
			spec.Type, spec.Activation = InputNode, ""
		case id <= cfg.NumInputs+cfg.NumOutputs:
			spec.Type = OutputNode
		default:
			if cfg.FeedForward && order == nil {
				snap.HiddenOrder = append(snap.HiddenOrder, id)
			}
		}
		snap.Nodes = append(snap.Nodes, spec)
	}
	if order != nil {
		snap.HiddenOrder = order
	}
	for _, cs := range conns {
		cs.Innovation = env.Registry.Innovation(cs.Key())
		snap.Connections = append(snap.Connections, cs)
	}
	c, err := Restore(env, snap)
	require.NoError(t, err)
	return c
}

func conn(src, dst int, weight float64) ConnectionSpec {
	return ConnectionSpec{Source: src, Target: dst, Weight: weight, Enabled: true}
}

func connKeys(c *Chromosome) []ConnKey {
	var keys []ConnKey
	for _, cs := range c.Connections() {
		keys = append(keys, cs.Key())
	}
	return keys
}

// requireAcyclic checks the feedforward property independently of the
// hidden order by topologically sorting every connection, enabled or not.
func requireAcyclic(t *testing.T, c *Chromosome) {
	t.Helper()
	g := simple.NewDirectedGraph()
	for _, n := range c.Nodes() {
		g.AddNode(simple.Node(n.ID))
	}
	for _, cs := range c.Connections() {
		require.NotEqual(t, cs.Source, cs.Target, "self loop in feedforward chromosome %d", c.ID())
		g.SetEdge(g.NewEdge(simple.Node(cs.Source), simple.Node(cs.Target)))
	}
	_, err := topo.Sort(g)
	require.NoError(t, err, "chromosome %d is cyclic:\n%s", c.ID(), c)
}
