package nn

import (
	"fmt"

	"github.com/baldhumanity/neat-chromosome/neat"
)

// neuralNode represents a node during network activation.
// It stores the pre-fetched activation function and node properties.
type neuralNode struct {
	ID           int
	Bias         float64
	Response     float64
	ActivationFn neat.ActivationFunc
	Incoming     []link
}

type link struct {
	Source int
	Weight float64
}

// FeedForwardNetwork is the phenotype of a feedforward chromosome.
type FeedForwardNetwork struct {
	NumInputs     int
	OutputIDs     []int
	NodeEvalOrder []int // hidden nodes in chromosome order, then outputs
	Nodes         map[int]neuralNode
}

// CreateFeedForwardNetwork builds a runnable network from a feedforward
// chromosome. The chromosome's hidden order is already a topological order,
// so no sort is needed. Only enabled connections take part.
func CreateFeedForwardNetwork(c *neat.Chromosome) (*FeedForwardNetwork, error) {
	if !c.IsFeedforward() {
		return nil, fmt.Errorf("cannot create FeedForwardNetwork for recurrent chromosome %d", c.ID())
	}

	specs := c.Nodes()
	nodes := make(map[int]neuralNode, len(specs))
	var outputIDs []int
	for _, s := range specs {
		if s.Type == neat.InputNode {
			continue
		}
		actFn, err := neat.GetActivation(s.Activation)
		if err != nil {
			return nil, fmt.Errorf("failed to get activation function '%s' for node %d: %w", s.Activation, s.ID, err)
		}
		nodes[s.ID] = neuralNode{ID: s.ID, Bias: s.Bias, Response: s.Response, ActivationFn: actFn}
		if s.Type == neat.OutputNode {
			outputIDs = append(outputIDs, s.ID)
		}
	}

	for _, cs := range c.Connections() {
		if !cs.Enabled {
			continue
		}
		node, ok := nodes[cs.Target]
		if !ok {
			return nil, fmt.Errorf("connection %d->%d enters unknown node", cs.Source, cs.Target)
		}
		node.Incoming = append(node.Incoming, link{Source: cs.Source, Weight: cs.Weight})
		nodes[cs.Target] = node
	}

	order := append(c.HiddenOrder(), outputIDs...)
	return &FeedForwardNetwork{
		NumInputs:     c.NumInputs(),
		OutputIDs:     outputIDs,
		NodeEvalOrder: order,
		Nodes:         nodes,
	}, nil
}

// Activate computes the network's output for a given slice of input values.
// Each node outputs activation(response * (bias + Σ weight*input)). Inputs
// occupy node ids 1..NumInputs. A node with no enabled input still fires on
// its bias.
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != net.NumInputs {
		return nil, fmt.Errorf("mismatch between input count (%d) and network input nodes (%d)", len(inputs), net.NumInputs)
	}

	values := make(map[int]float64, net.NumInputs+len(net.Nodes))
	for i, v := range inputs {
		values[i+1] = v
	}
	for _, id := range net.NodeEvalOrder {
		node := net.Nodes[id]
		sum := node.Bias
		for _, in := range node.Incoming {
			sum += values[in.Source] * in.Weight
		}
		values[id] = node.ActivationFn(sum * node.Response)
	}

	outputs := make([]float64, len(net.OutputIDs))
	for i, id := range net.OutputIDs {
		outputs[i] = values[id]
	}
	return outputs, nil
}
