// Command neatctl drives the chromosome core from the outside: it evolves
// XOR solvers, inspects chromosome checkpoints and walks recorded lineage.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	logLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "neatctl",
	Short: "Evolve and inspect NEAT chromosomes",
	Long: `neatctl exercises the NEAT chromosome core.

It provides:
  - xor: a small generational run on the XOR task
  - inspect: a dump of every chromosome in a checkpoint
  - ancestry: the recorded ancestors of one chromosome`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(xorCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(ancestryCmd)
}

// newLogger builds the text logger shared by every command.
func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}
