package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baldhumanity/neat-chromosome/internal/lineage"
	"github.com/baldhumanity/neat-chromosome/neat"
)

var (
	ancestryConfigPath string
	ancestryDBPath     string
	ancestryRunID      string
	ancestryID         int
	ancestryDump       bool
)

var ancestryCmd = &cobra.Command{
	Use:   "ancestry",
	Short: "List the recorded ancestors of a chromosome",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store := lineage.NewSQLiteStore(ancestryDBPath)
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("open lineage database: %w", err)
		}
		defer store.Close()

		ancestors, err := lineage.Ancestors(ctx, store, ancestryRunID, ancestryID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d ancestors of chromosome %d in run %s\n", len(ancestors), ancestryID, ancestryRunID)
		for _, rec := range ancestors {
			s := rec.Snapshot
			fmt.Fprintf(out, "  %6d  gen %4d  species %3d  parents %6d %6d  hidden %3d  enabled %3d  fitness %.4f\n",
				s.ID, rec.Generation, s.SpeciesID, s.Parent1ID, s.Parent2ID, rec.Hidden, rec.Enabled, s.Fitness)
		}
		if !ancestryDump {
			return nil
		}

		config, err := neat.LoadConfig(ancestryConfigPath)
		if err != nil {
			return err
		}
		env, err := neat.NewEnvironment(&config.Genome)
		if err != nil {
			return err
		}
		for _, rec := range ancestors {
			c, err := rec.Restore(env)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nChromosome %d:\n%s\n", c.ID(), c)
		}
		return nil
	},
}

func init() {
	ancestryCmd.Flags().StringVar(&ancestryDBPath, "db-path", "neat-lineage.db", "sqlite database written by xor --store sqlite")
	ancestryCmd.Flags().StringVar(&ancestryRunID, "run", "", "run id printed by xor")
	ancestryCmd.Flags().IntVar(&ancestryID, "id", 0, "chromosome id")
	ancestryCmd.Flags().BoolVar(&ancestryDump, "dump", false, "print the genes of every ancestor")
	ancestryCmd.Flags().StringVarP(&ancestryConfigPath, "config", "c", "configs/xor.ini", "config used by the run, needed with --dump")
	_ = ancestryCmd.MarkFlagRequired("run")
	_ = ancestryCmd.MarkFlagRequired("id")
}
