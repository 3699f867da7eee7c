// Package neat is the root of a Go implementation of the genome core of
// NeuroEvolution of Augmenting Topologies (NEAT).
//
// The chromosome is the genetic encoding of one network: node genes with
// dense ids, connection genes keyed by their endpoints, and, for the
// feedforward variant, a hidden-node order that keeps the network acyclic.
// Population management, speciation and fitness evaluation live outside the
// core; cmd/neatctl shows one way to drive it.
//
// This implementation follows the paper by Kenneth O. Stanley and Risto
// Miikkulainen and the neat-python lineage of implementations.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("configs/xor.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//	env, err := neat.NewEnvironment(&config.Genome, neat.WithSeed(1))
//	if err != nil {
//		log.Fatalf("Error creating environment: %v", err)
//	}
//
//	parent, _ := neat.NewChromosome(env)
//	parent.Mutate()
//	parent.SetFitness(evaluate(parent))
//
//	other, _ := neat.NewChromosome(env)
//	other.SetFitness(evaluate(other))
//
//	child, err := parent.Crossover(other)
//	if err != nil {
//		log.Fatalf("Error in crossover: %v", err)
//	}
//	fmt.Println(child.Distance(parent))
package neat
