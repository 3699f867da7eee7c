package neat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Accepted values for GenomeConfig.InitialConnection.
const (
	ConnectUnconnected = "unconnected"
	ConnectMinimal     = "minimal"
	ConnectFull        = "full"
)

// Accepted values for GenomeConfig.ExcessOrdering.
const (
	OrderingWeight     = "weight"
	OrderingInnovation = "innovation"
)

// Accepted values for GenomeConfig.CrossoverTieBreak.
const (
	TieBreakFirst   = "first"
	TieBreakShorter = "shorter"
)

// Config stores the configuration parameters read from a config file.
type Config struct {
	Neat   NeatConfig   `yaml:"neat"`
	Genome GenomeConfig `yaml:"genome"`
}

// NeatConfig holds parameters for the outer evolutionary loop. The chromosome
// core never reads them; they are consumed by callers such as neatctl.
type NeatConfig struct {
	PopSize                int     `ini:"pop_size" yaml:"pop_size"`
	MaxGenerations         int     `ini:"max_generations" yaml:"max_generations"`
	FitnessThreshold       float64 `ini:"fitness_threshold" yaml:"fitness_threshold"`
	CompatibilityThreshold float64 `ini:"compatibility_threshold" yaml:"compatibility_threshold"`
	SurvivalThreshold      float64 `ini:"survival_threshold" yaml:"survival_threshold"`
	MaxStagnation          int     `ini:"max_stagnation" yaml:"max_stagnation"`   // Generations without improvement before a species is removed
	SpeciesElitism         int     `ini:"species_elitism" yaml:"species_elitism"` // Fittest species protected from stagnation
}

// GenomeConfig holds parameters specific to the structure and mutation of chromosomes.
// It is read-only for the lifetime of every chromosome built from it.
type GenomeConfig struct {
	// --- Topology ---
	NumInputs         int    `ini:"num_inputs" yaml:"num_inputs"`
	NumOutputs        int    `ini:"num_outputs" yaml:"num_outputs"`
	NumHidden         int    `ini:"num_hidden" yaml:"num_hidden"` // Hidden nodes every founder starts with, see AddHiddenNodes
	FeedForward       bool   `ini:"feed_forward" yaml:"feed_forward"` // If true, chromosomes carry a hidden-node order and stay acyclic
	Activation        string `ini:"activation" yaml:"activation"`     // Activation for every non-input node
	InitialConnection string `ini:"initial_connection" yaml:"initial_connection"`

	// --- Structural mutation thresholds, checked in this order against one draw ---
	NodeAddProb    float64 `ini:"node_add_prob" yaml:"node_add_prob"`
	ConnAddProb    float64 `ini:"conn_add_prob" yaml:"conn_add_prob"`
	NodeDeleteProb float64 `ini:"node_delete_prob" yaml:"node_delete_prob"`
	ConnDeleteProb float64 `ini:"conn_delete_prob" yaml:"conn_delete_prob"`

	// --- Connection Gene parameters ---
	WeightStdev       float64 `ini:"weight_stdev" yaml:"weight_stdev"` // Initial weights ~ Normal(0, WeightStdev)
	WeightMutateRate  float64 `ini:"weight_mutate_rate" yaml:"weight_mutate_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power" yaml:"weight_mutate_power"`
	WeightReplaceRate float64 `ini:"weight_replace_rate" yaml:"weight_replace_rate"`
	WeightMinValue    float64 `ini:"weight_min_value" yaml:"weight_min_value"`
	WeightMaxValue    float64 `ini:"weight_max_value" yaml:"weight_max_value"`
	EnabledMutateRate float64 `ini:"enabled_mutate_rate" yaml:"enabled_mutate_rate"`

	// --- Node Gene parameters ---
	BiasInitMean    float64 `ini:"bias_init_mean" yaml:"bias_init_mean"`
	BiasInitStdev   float64 `ini:"bias_init_stdev" yaml:"bias_init_stdev"`
	BiasMutateRate  float64 `ini:"bias_mutate_rate" yaml:"bias_mutate_rate"`
	BiasMutatePower float64 `ini:"bias_mutate_power" yaml:"bias_mutate_power"`
	BiasReplaceRate float64 `ini:"bias_replace_rate" yaml:"bias_replace_rate"`
	BiasMinValue    float64 `ini:"bias_min_value" yaml:"bias_min_value"`
	BiasMaxValue    float64 `ini:"bias_max_value" yaml:"bias_max_value"`

	ResponseInitMean    float64 `ini:"response_init_mean" yaml:"response_init_mean"`
	ResponseInitStdev   float64 `ini:"response_init_stdev" yaml:"response_init_stdev"`
	ResponseMutateRate  float64 `ini:"response_mutate_rate" yaml:"response_mutate_rate"`
	ResponseMutatePower float64 `ini:"response_mutate_power" yaml:"response_mutate_power"`
	ResponseReplaceRate float64 `ini:"response_replace_rate" yaml:"response_replace_rate"`
	ResponseMinValue    float64 `ini:"response_min_value" yaml:"response_min_value"`
	ResponseMaxValue    float64 `ini:"response_max_value" yaml:"response_max_value"`

	// --- Compatibility distance ---
	ExcessCoefficient   float64 `ini:"compatibility_excess_coefficient" yaml:"compatibility_excess_coefficient"`
	DisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient" yaml:"compatibility_disjoint_coefficient"`
	WeightCoefficient   float64 `ini:"compatibility_weight_coefficient" yaml:"compatibility_weight_coefficient"`
	ExcessOrdering      string  `ini:"excess_ordering" yaml:"excess_ordering"` // "weight" (legacy) or "innovation"

	// --- Crossover ---
	CrossoverTieBreak string `ini:"crossover_tie_break" yaml:"crossover_tie_break"` // "first" or "shorter"
}

// DefaultConfig returns a configuration with the defaults every loader starts from.
// Keys missing from a config file keep these values.
func DefaultConfig() *Config {
	return &Config{
		Neat: NeatConfig{
			PopSize:                150,
			MaxGenerations:         300,
			FitnessThreshold:       3.9,
			CompatibilityThreshold: 3.0,
			SurvivalThreshold:      0.2,
			MaxStagnation:          15,
			SpeciesElitism:         2,
		},
		Genome: *DefaultGenomeConfig(),
	}
}

// DefaultGenomeConfig returns the genome defaults for a 2-input, 1-output feedforward network.
func DefaultGenomeConfig() *GenomeConfig {
	return &GenomeConfig{
		NumInputs:         2,
		NumOutputs:        1,
		FeedForward:       true,
		Activation:        "sigmoid",
		InitialConnection: ConnectFull,

		NodeAddProb:    0.03,
		ConnAddProb:    0.08,
		NodeDeleteProb: 0.0,
		ConnDeleteProb: 0.09,

		WeightStdev:       1.0,
		WeightMutateRate:  0.8,
		WeightMutatePower: 0.5,
		WeightReplaceRate: 0.1,
		WeightMinValue:    -30,
		WeightMaxValue:    30,
		EnabledMutateRate: 0.01,

		BiasInitMean:    0.0,
		BiasInitStdev:   1.0,
		BiasMutateRate:  0.7,
		BiasMutatePower: 0.5,
		BiasReplaceRate: 0.1,
		BiasMinValue:    -30,
		BiasMaxValue:    30,

		ResponseInitMean: 1.0,
		ResponseMinValue: -30,
		ResponseMaxValue: 30,

		ExcessCoefficient:   1.0,
		DisjointCoefficient: 1.0,
		WeightCoefficient:   0.4,
		ExcessOrdering:      OrderingWeight,

		CrossoverTieBreak: TieBreakFirst,
	}
}

// LoadConfig loads configuration parameters from an INI file, or from YAML when
// the path ends in .yaml or .yml.
func LoadConfig(filePath string) (*Config, error) {
	var (
		config *Config
		err    error
	)
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		config, err = loadYAML(filePath)
	default:
		config, err = loadINI(filePath)
	}
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadINI(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := DefaultConfig()
	if err := cfg.Section("NEAT").MapTo(&config.Neat); err != nil {
		return nil, fmt.Errorf("failed to map [NEAT] section: %w", err)
	}
	if err := cfg.Section("DefaultGenome").MapTo(&config.Genome); err != nil {
		return nil, fmt.Errorf("failed to map [DefaultGenome] section: %w", err)
	}

	// Inline comments are kept by IgnoreInlineComment, strip them from the string keys.
	config.Genome.Activation = cleanIniString(config.Genome.Activation)
	config.Genome.InitialConnection = cleanIniString(config.Genome.InitialConnection)
	config.Genome.ExcessOrdering = cleanIniString(config.Genome.ExcessOrdering)
	config.Genome.CrossoverTieBreak = cleanIniString(config.Genome.CrossoverTieBreak)
	return config, nil
}

func loadYAML(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filePath, err)
	}
	return config, nil
}

// Validate checks the loop and genome sections.
func (c *Config) Validate() error {
	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if c.Neat.CompatibilityThreshold < 0 {
		return fmt.Errorf("config error: compatibility_threshold cannot be negative")
	}
	if c.Neat.SurvivalThreshold < 0 || c.Neat.SurvivalThreshold > 1 {
		return fmt.Errorf("config error: survival_threshold must be between 0 and 1")
	}
	if c.Neat.MaxStagnation <= 0 {
		return fmt.Errorf("config error: max_stagnation must be positive")
	}
	if c.Neat.SpeciesElitism < 0 {
		return fmt.Errorf("config error: species_elitism cannot be negative")
	}
	return c.Genome.Validate()
}

// Validate checks every genome parameter the chromosome core reads.
func (gc *GenomeConfig) Validate() error {
	if gc.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if gc.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if gc.NumHidden < 0 {
		return fmt.Errorf("config error: num_hidden cannot be negative")
	}
	if _, err := GetActivation(gc.Activation); err != nil {
		return fmt.Errorf("config error: activation: %w", err)
	}
	switch gc.InitialConnection {
	case ConnectUnconnected, ConnectMinimal, ConnectFull:
	default:
		return fmt.Errorf("config error: invalid initial_connection '%s'", gc.InitialConnection)
	}

	probs := []struct {
		name  string
		value float64
	}{
		{"node_add_prob", gc.NodeAddProb},
		{"conn_add_prob", gc.ConnAddProb},
		{"node_delete_prob", gc.NodeDeleteProb},
		{"conn_delete_prob", gc.ConnDeleteProb},
		{"weight_mutate_rate", gc.WeightMutateRate},
		{"weight_replace_rate", gc.WeightReplaceRate},
		{"enabled_mutate_rate", gc.EnabledMutateRate},
		{"bias_mutate_rate", gc.BiasMutateRate},
		{"bias_replace_rate", gc.BiasReplaceRate},
		{"response_mutate_rate", gc.ResponseMutateRate},
		{"response_replace_rate", gc.ResponseReplaceRate},
	}
	for _, p := range probs {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", p.name)
		}
	}

	if gc.WeightStdev <= 0 {
		return fmt.Errorf("config error: weight_stdev must be positive")
	}
	if gc.WeightMutatePower < 0 || gc.BiasMutatePower < 0 || gc.ResponseMutatePower < 0 {
		return fmt.Errorf("config error: mutate powers cannot be negative")
	}
	if gc.BiasInitStdev < 0 || gc.ResponseInitStdev < 0 {
		return fmt.Errorf("config error: init stdevs cannot be negative")
	}
	if gc.WeightMaxValue < gc.WeightMinValue {
		return fmt.Errorf("config error: weight_max_value cannot be less than weight_min_value")
	}
	if gc.BiasMaxValue < gc.BiasMinValue {
		return fmt.Errorf("config error: bias_max_value cannot be less than bias_min_value")
	}
	if gc.ResponseMaxValue < gc.ResponseMinValue {
		return fmt.Errorf("config error: response_max_value cannot be less than response_min_value")
	}
	if gc.ExcessCoefficient < 0 || gc.DisjointCoefficient < 0 || gc.WeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility coefficients cannot be negative")
	}
	if _, err := orderingFor(gc.ExcessOrdering); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	switch gc.CrossoverTieBreak {
	case TieBreakFirst, TieBreakShorter:
	default:
		return fmt.Errorf("config error: invalid crossover_tie_break '%s'", gc.CrossoverTieBreak)
	}
	return nil
}

// EffectiveMutationRates reports how often each structural operator fires.
// Mutate reuses a single uniform draw across the thresholds, so an operator
// only fires in the slice of [0,1) that no earlier threshold already covers;
// a threshold at or below an earlier one is unreachable. The remainder is the
// probability of the perturbation path.
func (gc *GenomeConfig) EffectiveMutationRates() map[MutationKind]float64 {
	rates := make(map[MutationKind]float64, 5)
	covered := 0.0
	for _, t := range []struct {
		kind MutationKind
		prob float64
	}{
		{MutationAddNode, gc.NodeAddProb},
		{MutationAddConnection, gc.ConnAddProb},
		{MutationDeleteNode, gc.NodeDeleteProb},
		{MutationDeleteConnection, gc.ConnDeleteProb},
	} {
		if t.prob > covered {
			rates[t.kind] = t.prob - covered
			covered = t.prob
		} else {
			rates[t.kind] = 0
		}
	}
	rates[MutationPerturb] = 1 - covered
	return rates
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
