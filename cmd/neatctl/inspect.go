package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baldhumanity/neat-chromosome/neat"
)

var inspectConfigPath string

var inspectCmd = &cobra.Command{
	Use:   "inspect <checkpoint>",
	Short: "Print every chromosome stored in a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		config, err := neat.LoadConfig(inspectConfigPath)
		if err != nil {
			return err
		}
		env, err := neat.NewEnvironment(&config.Genome, neat.WithLogger(logger))
		if err != nil {
			return err
		}
		chromosomes, err := neat.LoadChromosomes(args[0], env)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, c := range chromosomes {
			hidden, enabled := c.Size()
			fitness, ok := c.Fitness()
			fitnessText := "unevaluated"
			if ok {
				fitnessText = fmt.Sprintf("%.4f", fitness)
			}
			fmt.Fprintf(out, "Chromosome %d (parents %d, %d; species %d; fitness %s; hidden %d; enabled %d)\n%s\n\n",
				c.ID(), c.Parent1ID(), c.Parent2ID(), c.SpeciesID, fitnessText, hidden, enabled, c)
		}
		logger.Info("checkpoint inspected", "path", args[0], "chromosomes", len(chromosomes))
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectConfigPath, "config", "c", "configs/xor.ini", "config the checkpoint was written with")
}
