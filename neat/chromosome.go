package neat

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand"
	"slices"
	"strings"
	"time"
)

// ErrInvalidArgument reports a precondition violated by the caller, such as
// crossing over parents from different species.
var ErrInvalidArgument = errors.New("invalid argument")

// Environment bundles the collaborators every chromosome needs. Chromosomes
// keep a reference to the Environment they were built with, and their
// children share it. The random source is not safe for concurrent use: give
// each goroutine that mutates chromosomes its own Environment (they may share
// a Registry).
type Environment struct {
	Config   *GenomeConfig
	Registry *Registry
	Rand     *rand.Rand
	Genes    GeneFactory
	Ordering GeneOrdering
	Logger   *slog.Logger
}

// Option customises an Environment.
type Option func(*Environment)

// WithRand sets the random source used for every random decision.
func WithRand(rng *rand.Rand) Option {
	return func(e *Environment) { e.Rand = rng }
}

// WithSeed seeds a private random source.
func WithSeed(seed int64) Option {
	return func(e *Environment) { e.Rand = rand.New(rand.NewSource(seed)) }
}

// WithRegistry shares an identity registry between environments.
func WithRegistry(r *Registry) Option {
	return func(e *Environment) { e.Registry = r }
}

// WithGeneFactory plugs in alternate gene implementations.
func WithGeneFactory(f GeneFactory) Option {
	return func(e *Environment) { e.Genes = f }
}

// WithOrdering overrides the natural gene ordering chosen by excess_ordering.
func WithOrdering(o GeneOrdering) Option {
	return func(e *Environment) { e.Ordering = o }
}

// WithLogger sets the logger used for debug traces of mutation and crossover.
func WithLogger(l *slog.Logger) Option {
	return func(e *Environment) { e.Logger = l }
}

// NewEnvironment validates config and fills every collaborator not set by an option.
func NewEnvironment(config *GenomeConfig, opts ...Option) (*Environment, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: nil genome config", ErrInvalidArgument)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	env := &Environment{Config: config}
	for _, opt := range opts {
		opt(env)
	}
	if env.Registry == nil {
		env.Registry = NewRegistry()
	}
	if env.Rand == nil {
		env.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if env.Genes == nil {
		env.Genes = DefaultGenes{}
	}
	if env.Ordering == nil {
		env.Ordering, _ = orderingFor(config.ExcessOrdering) // validated above
	}
	if env.Logger == nil {
		env.Logger = slog.New(slog.DiscardHandler)
	}
	return env, nil
}

// Chromosome is the genetic encoding of one network: a dense sequence of node
// genes (node id i lives at index i-1) and a set of connection genes keyed by
// their endpoints. Inputs occupy ids 1..NumInputs, outputs the next
// NumOutputs ids, and hidden nodes follow in creation order.
//
// A Chromosome is not safe for concurrent use. Crossover and Distance read
// their argument without modifying it.
type Chromosome struct {
	env *Environment

	id        int
	parent1ID int
	parent2ID int

	numInputs  int
	numOutputs int

	nodes []NodeGene
	conns map[ConnKey]ConnectionGene

	fitness   float64
	evaluated bool

	// SpeciesID is owned by the external species manager; 0 means unassigned.
	SpeciesID int

	ff *FeedforwardConstraint // nil for the general (recurrent) variant
}

func newChromosome(env *Environment, parent1ID, parent2ID int) *Chromosome {
	c := &Chromosome{
		env:        env,
		id:         env.Registry.NextChromosomeID(),
		parent1ID:  parent1ID,
		parent2ID:  parent2ID,
		numInputs:  env.Config.NumInputs,
		numOutputs: env.Config.NumOutputs,
		conns:      make(map[ConnKey]ConnectionGene),
	}
	if env.Config.FeedForward {
		c.ff = &FeedforwardConstraint{}
	}
	return c
}

// NewChromosome builds a founder according to the initial_connection
// setting, then grows num_hidden densely wired hidden nodes.
func NewChromosome(env *Environment) (*Chromosome, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil environment", ErrInvalidArgument)
	}
	var (
		c   *Chromosome
		err error
	)
	switch env.Config.InitialConnection {
	case ConnectMinimal:
		c, err = CreateMinimallyConnected(env)
	case ConnectFull:
		c, err = CreateFullyConnected(env)
	default:
		c, err = CreateUnconnected(env)
	}
	if err != nil {
		return nil, err
	}
	if env.Config.NumHidden > 0 {
		c.AddHiddenNodes(env.Config.NumHidden)
	}
	return c, nil
}

// CreateUnconnected builds a founder with input and output nodes and no connections.
func CreateUnconnected(env *Environment) (*Chromosome, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil environment", ErrInvalidArgument)
	}
	if env.Config.NumInputs < 1 || env.Config.NumOutputs < 1 {
		return nil, fmt.Errorf("%w: chromosome needs at least one input and one output, got %d/%d",
			ErrInvalidArgument, env.Config.NumInputs, env.Config.NumOutputs)
	}
	c := newChromosome(env, 0, 0)
	for i := 0; i < c.numInputs; i++ {
		c.appendNode(InputNode)
	}
	for i := 0; i < c.numOutputs; i++ {
		c.appendNode(OutputNode)
	}
	return c, nil
}

// CreateMinimallyConnected gives every output exactly one connection from a
// uniformly chosen input.
func CreateMinimallyConnected(env *Environment) (*Chromosome, error) {
	c, err := CreateUnconnected(env)
	if err != nil {
		return nil, err
	}
	for out := c.numInputs + 1; out <= c.numInputs+c.numOutputs; out++ {
		in := env.Rand.Intn(c.numInputs) + 1
		c.addConnection(in, out, gauss(env.Rand, 0, env.Config.WeightStdev), true, 0)
	}
	return c, nil
}

// CreateFullyConnected connects every input to every output.
func CreateFullyConnected(env *Environment) (*Chromosome, error) {
	c, err := CreateUnconnected(env)
	if err != nil {
		return nil, err
	}
	for out := c.numInputs + 1; out <= c.numInputs+c.numOutputs; out++ {
		for in := 1; in <= c.numInputs; in++ {
			c.addConnection(in, out, gauss(env.Rand, 0, env.Config.WeightStdev), true, 0)
		}
	}
	return c, nil
}

// appendNode adds a node gene with the next dense id and returns that id.
func (c *Chromosome) appendNode(typ NodeType) int {
	cfg := c.env.Config
	spec := NodeSpec{ID: len(c.nodes) + 1, Type: typ, Response: 1.0}
	if typ != InputNode {
		spec.Activation = cfg.Activation
		spec.Bias = clamp(gauss(c.env.Rand, cfg.BiasInitMean, cfg.BiasInitStdev), cfg.BiasMinValue, cfg.BiasMaxValue)
		spec.Response = clamp(gauss(c.env.Rand, cfg.ResponseInitMean, cfg.ResponseInitStdev), cfg.ResponseMinValue, cfg.ResponseMaxValue)
	}
	c.nodes = append(c.nodes, c.env.Genes.NewNodeGene(spec))
	return spec.ID
}

// addConnection inserts a fresh gene; callers guarantee the key is absent.
func (c *Chromosome) addConnection(source, target int, weight float64, enabled bool, splitFrom ConnKey) {
	key := MakeConnKey(source, target)
	c.conns[key] = c.env.Genes.NewConnectionGene(ConnectionSpec{
		Source:     source,
		Target:     target,
		Weight:     weight,
		Enabled:    enabled,
		Innovation: c.env.Registry.Innovation(key),
		SplitFrom:  splitFrom,
	})
}

func (c *Chromosome) nodeType(id int) NodeType {
	return c.nodes[id-1].Spec().Type
}

func (c *Chromosome) numHidden() int {
	return len(c.nodes) - c.numInputs - c.numOutputs
}

// sortedKeys returns the connection keys in ascending order, so that every
// random choice over connections is reproducible for a seeded source.
func (c *Chromosome) sortedKeys() []ConnKey {
	return slices.Sorted(maps.Keys(c.conns))
}

// ID returns the chromosome's globally unique identity. Lower ids are older.
func (c *Chromosome) ID() int { return c.id }

// Parent1ID returns the id of the receiver of the crossover that produced this chromosome (0 for founders).
func (c *Chromosome) Parent1ID() int { return c.parent1ID }

// Parent2ID returns the id of the argument of the crossover that produced this chromosome (0 for founders).
func (c *Chromosome) Parent2ID() int { return c.parent2ID }

func (c *Chromosome) NumInputs() int  { return c.numInputs }
func (c *Chromosome) NumOutputs() int { return c.numOutputs }

// Environment returns the environment the chromosome was built with.
func (c *Chromosome) Environment() *Environment { return c.env }

// Fitness returns the fitness and whether it has been set.
func (c *Chromosome) Fitness() (float64, bool) { return c.fitness, c.evaluated }

// SetFitness records the result of an evaluation.
func (c *Chromosome) SetFitness(f float64) {
	c.fitness = f
	c.evaluated = true
}

// ClearFitness marks the chromosome as not evaluated.
func (c *Chromosome) ClearFitness() {
	c.fitness = 0
	c.evaluated = false
}

// Nodes returns the node gene records in id order.
func (c *Chromosome) Nodes() []NodeSpec {
	specs := make([]NodeSpec, len(c.nodes))
	for i, ng := range c.nodes {
		specs[i] = ng.Spec()
	}
	return specs
}

// Connections returns the connection gene records sorted by key.
func (c *Chromosome) Connections() []ConnectionSpec {
	specs := make([]ConnectionSpec, 0, len(c.conns))
	for _, key := range c.sortedKeys() {
		specs = append(specs, c.conns[key].Spec())
	}
	return specs
}

// Connection looks up a connection gene by key.
func (c *Chromosome) Connection(key ConnKey) (ConnectionSpec, bool) {
	cg, ok := c.conns[key]
	if !ok {
		return ConnectionSpec{}, false
	}
	return cg.Spec(), true
}

// IsFeedforward reports whether the chromosome maintains a hidden-node order.
func (c *Chromosome) IsFeedforward() bool { return c.ff != nil }

// HiddenOrder returns a copy of the hidden-node evaluation order, or nil for
// the general variant.
func (c *Chromosome) HiddenOrder() []int {
	if c.ff == nil {
		return nil
	}
	return append([]int{}, c.ff.hiddenOrder...)
}

// Size defines chromosome complexity: the number of hidden nodes and the
// number of enabled connections.
func (c *Chromosome) Size() (hidden, enabledConns int) {
	for _, cg := range c.conns {
		if cg.Spec().Enabled {
			enabledConns++
		}
	}
	return c.numHidden(), enabledConns
}

// String dumps nodes in id order and connections in natural gene order.
func (c *Chromosome) String() string {
	var sb strings.Builder
	sb.WriteString("Nodes:")
	for _, ng := range c.nodes {
		sb.WriteString("\n\t")
		sb.WriteString(ng.String())
	}
	sb.WriteString("\nConnections:")
	conns := slices.Collect(maps.Values(c.conns))
	slices.SortFunc(conns, func(a, b ConnectionGene) int {
		return c.env.Ordering(a.Spec(), b.Spec())
	})
	for _, cg := range conns {
		sb.WriteString("\n\t")
		sb.WriteString(cg.String())
	}
	if c.ff != nil {
		fmt.Fprintf(&sb, "\nNode order: %v", c.ff.hiddenOrder)
	}
	return sb.String()
}

// Verify checks the structural invariants: dense node ids laid out as inputs,
// outputs, hidden; connection keys matching their genes and never entering an
// input; and, for the feedforward variant, a complete hidden order that every
// connection respects.
func (c *Chromosome) Verify() error {
	for i, ng := range c.nodes {
		s := ng.Spec()
		if s.ID != i+1 {
			return fmt.Errorf("node at index %d has id %d", i, s.ID)
		}
		want := HiddenNode
		switch {
		case i < c.numInputs:
			want = InputNode
		case i < c.numInputs+c.numOutputs:
			want = OutputNode
		}
		if s.Type != want {
			return fmt.Errorf("node %d is %s, want %s", s.ID, s.Type, want)
		}
	}
	n := len(c.nodes)
	for key, cg := range c.conns {
		if cg.Key() != key {
			return fmt.Errorf("connection stored under %s carries key %s", key, cg.Key())
		}
		src, dst := key.Source(), key.Target()
		if src < 1 || src > n || dst < 1 || dst > n {
			return fmt.Errorf("connection %s references a missing node", key)
		}
		if c.nodeType(dst) == InputNode {
			return fmt.Errorf("connection %s enters an input node", key)
		}
	}
	if c.ff != nil {
		return c.ff.verify(c)
	}
	return nil
}

// assertInvariants panics when a structural edit left the chromosome
// inconsistent. That can only be a bug in this package.
func (c *Chromosome) assertInvariants(op string) {
	if err := c.Verify(); err != nil {
		invariant(false, "after %s on chromosome %d: %v", op, c.id, err)
	}
}

func invariant(ok bool, format string, args ...any) {
	if !ok {
		panic(fmt.Sprintf("neat: invariant violated: "+format, args...))
	}
}
