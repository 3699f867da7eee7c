package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/baldhumanity/neat-chromosome/internal/lineage"
	"github.com/baldhumanity/neat-chromosome/neat"
	"github.com/baldhumanity/neat-chromosome/neat/nn"
)

// XOR inputs and expected outputs.
var xorInputs = [][]float64{
	{0.0, 0.0},
	{0.0, 1.0},
	{1.0, 0.0},
	{1.0, 1.0},
}
var xorOutputs = []float64{0.0, 1.0, 1.0, 0.0}

var (
	xorConfigPath  string
	xorSeed        int64
	xorGenerations int
	xorStoreKind   string
	xorDBPath      string
	xorCheckpoint  string
	xorMetrics     bool
)

var xorCmd = &cobra.Command{
	Use:   "xor",
	Short: "Evolve a network that computes XOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		config, err := neat.LoadConfig(xorConfigPath)
		if err != nil {
			return err
		}
		if config.Genome.NumInputs != 2 || config.Genome.NumOutputs != 1 {
			return fmt.Errorf("xor needs 2 inputs and 1 output, config has %d and %d",
				config.Genome.NumInputs, config.Genome.NumOutputs)
		}
		if !config.Genome.FeedForward {
			return errors.New("xor evaluates feedforward networks, set feed_forward = True")
		}

		opts := []neat.Option{neat.WithLogger(logger)}
		if cmd.Flags().Changed("seed") {
			opts = append(opts, neat.WithSeed(xorSeed))
		}
		env, err := neat.NewEnvironment(&config.Genome, opts...)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := lineage.NewStore(xorStoreKind, xorDBPath)
		if err != nil {
			return err
		}
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("init %s store: %w", xorStoreKind, err)
		}
		defer store.Close()

		generations := xorGenerations
		if generations <= 0 {
			generations = config.Neat.MaxGenerations
		}
		m := newMetrics()
		runID := uuid.NewString()
		return runXOR(ctx, cmd.OutOrStdout(), env, config, store, runOptions{
			runID:        runID,
			generations:  generations,
			checkpoint:   xorCheckpoint,
			printMetrics: xorMetrics,
		}, m)
	},
}

func init() {
	xorCmd.Flags().StringVarP(&xorConfigPath, "config", "c", "configs/xor.ini", "config file (INI, or YAML by extension)")
	xorCmd.Flags().Int64Var(&xorSeed, "seed", 0, "random seed (default: time based)")
	xorCmd.Flags().IntVarP(&xorGenerations, "generations", "g", 0, "generation limit (default: max_generations)")
	xorCmd.Flags().StringVar(&xorStoreKind, "store", "memory", "lineage store backend (memory, sqlite)")
	xorCmd.Flags().StringVar(&xorDBPath, "db-path", "neat-lineage.db", "sqlite database path")
	xorCmd.Flags().StringVar(&xorCheckpoint, "checkpoint", "", "write the final population to this checkpoint file")
	xorCmd.Flags().BoolVar(&xorMetrics, "metrics", false, "print run metrics on exit")
}

type runOptions struct {
	runID        string
	generations  int
	checkpoint   string
	printMetrics bool
}

func runXOR(ctx context.Context, out io.Writer, env *neat.Environment, config *neat.Config, store lineage.Store, opts runOptions, m *metrics) error {
	if opts.generations <= 0 {
		return fmt.Errorf("generation limit must be positive, got %d", opts.generations)
	}
	e, err := newEvolver(env, config, store, opts.runID, m)
	if err != nil {
		return err
	}

	var winner *neat.Chromosome
	for range opts.generations {
		winner, err = e.RunGeneration(ctx, evalXOR)
		if err != nil {
			return fmt.Errorf("generation %d failed: %w", e.generation, err)
		}
		if winner != nil {
			break
		}
	}

	if opts.checkpoint != "" {
		if err := neat.SaveChromosomes(opts.checkpoint, e.population); err != nil {
			return err
		}
		env.Logger.Info("checkpoint saved", "path", opts.checkpoint, "chromosomes", len(e.population))
	}

	best := winner
	if best == nil {
		fmt.Fprintf(out, "No winner found within %d generations.\n", opts.generations)
		best = e.best
	}
	if err := printChromosome(out, best, opts.runID); err != nil {
		return err
	}
	ancestors, err := lineage.Ancestors(ctx, store, opts.runID, best.ID())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Recorded ancestors: %d\n", len(ancestors))

	if opts.printMetrics {
		return m.write(out)
	}
	return nil
}

func printChromosome(out io.Writer, c *neat.Chromosome, runID string) error {
	hidden, enabled := c.Size()
	fmt.Fprintf(out, "\nBest chromosome (run %s, id %d, fitness %.4f, hidden %d, enabled %d):\n%s\n",
		runID, c.ID(), fitnessOf(c), hidden, enabled, c)

	net, err := nn.CreateFeedForwardNetwork(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\n Input | Expected | Output")
	fmt.Fprintln(out, "-----------------------------")
	for i, inputs := range xorInputs {
		output, err := net.Activate(inputs)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, " %v |   %.1f    | %.4f\n", inputs, xorOutputs[i], output[0])
	}
	return nil
}

// evalXOR scores each chromosome as 4 minus its summed squared error.
func evalXOR(chromosomes []*neat.Chromosome) error {
	if len(chromosomes) == 0 {
		return errors.New("cannot evaluate fitness for empty population")
	}
	for _, c := range chromosomes {
		net, err := nn.CreateFeedForwardNetwork(c)
		if err != nil {
			return fmt.Errorf("chromosome %d: %w", c.ID(), err)
		}
		sumSquaredError := 0.0
		for i, inputs := range xorInputs {
			outputs, err := net.Activate(inputs)
			if err != nil {
				return fmt.Errorf("chromosome %d: %w", c.ID(), err)
			}
			diff := outputs[0] - xorOutputs[i]
			sumSquaredError += diff * diff
		}
		c.SetFitness(4.0 - sumSquaredError)
	}
	return nil
}
