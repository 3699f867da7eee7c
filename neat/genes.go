package neat

import (
	"cmp"
	"fmt"
	"math/rand"
)

// NodeType is the role of a node inside the network.
type NodeType int

const (
	InputNode NodeType = iota
	OutputNode
	HiddenNode
)

func (t NodeType) String() string {
	switch t {
	case InputNode:
		return "INPUT"
	case OutputNode:
		return "OUTPUT"
	case HiddenNode:
		return "HIDDEN"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// ConnKey identifies a connection gene by its ordered pair of endpoint node ids,
// packed into one integer: source in the high 32 bits, target in the low 32.
type ConnKey uint64

// MakeConnKey packs a (source, target) pair. Node ids are positive and fit in 32 bits.
func MakeConnKey(source, target int) ConnKey {
	return ConnKey(uint64(uint32(source))<<32 | uint64(uint32(target)))
}

// Source returns the id of the node the connection leaves.
func (k ConnKey) Source() int { return int(uint32(k >> 32)) }

// Target returns the id of the node the connection enters.
func (k ConnKey) Target() int { return int(uint32(k)) }

func (k ConnKey) String() string {
	return fmt.Sprintf("(%d,%d)", k.Source(), k.Target())
}

// --------------------------- Gene records ---------------------------

// NodeSpec is the plain data carried by a node gene.
type NodeSpec struct {
	ID         int      `json:"id"` // 1-based, dense within a chromosome
	Type       NodeType `json:"type"`
	Activation string   `json:"activation,omitempty"` // Empty for input nodes
	Bias       float64  `json:"bias"`
	Response   float64  `json:"response"`
}

// ConnectionSpec is the plain data carried by a connection gene.
type ConnectionSpec struct {
	Source     int     `json:"source"`
	Target     int     `json:"target"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
	Innovation int     `json:"innovation"`           // 0 when the gene was built without a registry
	SplitFrom  ConnKey `json:"split_from,omitempty"` // Key of the connection split to create this one, 0 otherwise
}

// Key returns the connection key of the spec.
func (s ConnectionSpec) Key() ConnKey {
	return MakeConnKey(s.Source, s.Target)
}

// NodeGene is the capability set the chromosome needs from a node gene.
type NodeGene interface {
	Spec() NodeSpec
	// Mutate perturbs the gene's parameters in place.
	Mutate(config *GenomeConfig, rng *rand.Rand)
	Copy() NodeGene
	// Child blends the receiver with a homologous gene. The child keeps the receiver's identity.
	Child(other NodeGene, rng *rand.Rand) NodeGene
	String() string
}

// ConnectionGene is the capability set the chromosome needs from a connection gene.
type ConnectionGene interface {
	Spec() ConnectionSpec
	Key() ConnKey
	SetEnabled(enabled bool)
	// Mutate perturbs the gene's weight and enabled flag in place.
	Mutate(config *GenomeConfig, rng *rand.Rand)
	Copy() ConnectionGene
	// Child blends the receiver with a homologous gene. The child keeps the receiver's key.
	Child(other ConnectionGene, rng *rand.Rand) ConnectionGene
	String() string
}

// GeneFactory builds the concrete genes a chromosome carries.
type GeneFactory interface {
	NewNodeGene(spec NodeSpec) NodeGene
	NewConnectionGene(spec ConnectionSpec) ConnectionGene
}

// DefaultGenes builds DefaultNodeGene and DefaultConnectionGene values.
type DefaultGenes struct{}

func (DefaultGenes) NewNodeGene(spec NodeSpec) NodeGene {
	return &DefaultNodeGene{spec: spec}
}

func (DefaultGenes) NewConnectionGene(spec ConnectionSpec) ConnectionGene {
	return &DefaultConnectionGene{spec: spec}
}

// --------------------------- NodeGene ---------------------------

// DefaultNodeGene represents a neuron with a bias and a response multiplier.
type DefaultNodeGene struct {
	spec NodeSpec
}

func (ng *DefaultNodeGene) Spec() NodeSpec { return ng.spec }

func (ng *DefaultNodeGene) String() string {
	s := ng.spec
	return fmt.Sprintf("Node(ID: %d, Type: %s, Activation: %s, Bias: %.3f, Response: %.3f)",
		s.ID, s.Type, s.Activation, s.Bias, s.Response)
}

func (ng *DefaultNodeGene) Copy() NodeGene {
	return &DefaultNodeGene{spec: ng.spec}
}

// Mutate adjusts bias and response. Input nodes carry no parameters and are left alone.
func (ng *DefaultNodeGene) Mutate(config *GenomeConfig, rng *rand.Rand) {
	if ng.spec.Type == InputNode {
		return
	}
	ng.spec.Bias = mutateFloatAttribute(rng, ng.spec.Bias, config.BiasMutateRate, config.BiasReplaceRate,
		config.BiasMutatePower, config.BiasInitMean, config.BiasInitStdev, config.BiasMinValue, config.BiasMaxValue)
	ng.spec.Response = mutateFloatAttribute(rng, ng.spec.Response, config.ResponseMutateRate, config.ResponseReplaceRate,
		config.ResponseMutatePower, config.ResponseInitMean, config.ResponseInitStdev, config.ResponseMinValue, config.ResponseMaxValue)
}

// Child inherits bias and response independently from either parent.
func (ng *DefaultNodeGene) Child(other NodeGene, rng *rand.Rand) NodeGene {
	child := &DefaultNodeGene{spec: ng.spec}
	o := other.Spec()
	if coin(rng) {
		child.spec.Bias = o.Bias
	}
	if coin(rng) {
		child.spec.Response = o.Response
	}
	return child
}

// --------------------------- ConnectionGene ---------------------------

// DefaultConnectionGene represents a weighted, switchable edge.
type DefaultConnectionGene struct {
	spec ConnectionSpec
}

func (cg *DefaultConnectionGene) Spec() ConnectionSpec { return cg.spec }

func (cg *DefaultConnectionGene) Key() ConnKey { return cg.spec.Key() }

func (cg *DefaultConnectionGene) SetEnabled(enabled bool) { cg.spec.Enabled = enabled }

func (cg *DefaultConnectionGene) String() string {
	s := cg.spec
	return fmt.Sprintf("Conn(%d->%d, Weight: %.3f, Enabled: %t, Innov: %d)",
		s.Source, s.Target, s.Weight, s.Enabled, s.Innovation)
}

func (cg *DefaultConnectionGene) Copy() ConnectionGene {
	return &DefaultConnectionGene{spec: cg.spec}
}

// Mutate perturbs the weight and occasionally flips the enabled flag.
// Flipping never breaks acyclicity: a disabled gene still satisfies the
// feedforward predicate it was created under.
func (cg *DefaultConnectionGene) Mutate(config *GenomeConfig, rng *rand.Rand) {
	cg.spec.Weight = mutateFloatAttribute(rng, cg.spec.Weight, config.WeightMutateRate, config.WeightReplaceRate,
		config.WeightMutatePower, 0, config.WeightStdev, config.WeightMinValue, config.WeightMaxValue)
	if config.EnabledMutateRate > 0 && rng.Float64() < config.EnabledMutateRate {
		cg.spec.Enabled = !cg.spec.Enabled
	}
}

// Child inherits weight and enabled flag independently from either parent.
func (cg *DefaultConnectionGene) Child(other ConnectionGene, rng *rand.Rand) ConnectionGene {
	child := &DefaultConnectionGene{spec: cg.spec}
	o := other.Spec()
	if coin(rng) {
		child.spec.Weight = o.Weight
	}
	if coin(rng) {
		child.spec.Enabled = o.Enabled
	}
	return child
}

// --------------------------- Natural ordering ---------------------------

// GeneOrdering is the natural ordering of connection genes. Distance uses it
// to tell excess genes from disjoint ones and String uses it to sort the dump.
type GeneOrdering func(a, b ConnectionSpec) int

// OrderByWeight compares by weight, then by key. This is the legacy ordering:
// it makes excess/disjoint classification depend on weights rather than on
// history.
func OrderByWeight(a, b ConnectionSpec) int {
	if c := cmp.Compare(a.Weight, b.Weight); c != 0 {
		return c
	}
	return cmp.Compare(a.Key(), b.Key())
}

// OrderByInnovation compares by innovation number, then by key, as in the NEAT paper.
func OrderByInnovation(a, b ConnectionSpec) int {
	if c := cmp.Compare(a.Innovation, b.Innovation); c != 0 {
		return c
	}
	return cmp.Compare(a.Key(), b.Key())
}

func orderingFor(name string) (GeneOrdering, error) {
	switch name {
	case OrderingWeight:
		return OrderByWeight, nil
	case OrderingInnovation:
		return OrderByInnovation, nil
	default:
		return nil, fmt.Errorf("invalid excess_ordering '%s'", name)
	}
}

// --------------------------- Attribute Helpers ---------------------------

// mutateFloatAttribute perturbs value with probability mutateRate, replaces it
// with a fresh draw with probability replaceRate, and otherwise keeps it.
// A single draw decides between the three outcomes.
func mutateFloatAttribute(rng *rand.Rand, value, mutateRate, replaceRate, mutatePower, initMean, initStdev, minVal, maxVal float64) float64 {
	r := rng.Float64()
	if r < mutateRate {
		return clamp(value+gauss(rng, 0, mutatePower), minVal, maxVal)
	}
	if r < mutateRate+replaceRate {
		return clamp(gauss(rng, initMean, initStdev), minVal, maxVal)
	}
	return value
}
