package mutation

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/AgnopraxLab/LineFuzz/config"
	"github.com/AgnopraxLab/LineFuzz/mutation/lines"
)

// MutationConfig holds configuration for mutation operations
type MutationConfig struct {
	Enabled bool
	Seed    int64 // Random seed, 0 means use current time

	Lines LineMutationConfig

	MaxMutationSize int // Inputs above this size are not mutated

	LogMutations bool // Log every applied mutation at debug level
}

// LineMutationConfig holds line operator settings
type LineMutationConfig struct {
	// Relative operator weights; operators missing or at zero are never picked.
	Weights map[lines.Op]int

	// Upper bound for RepeatLine copies, 0 means the full range.
	MaxRepetitions int

	// Allow the experimental permutation operator.
	Experimental bool
}

// DefaultMutationConfig returns a default mutation configuration
func DefaultMutationConfig() *MutationConfig {
	weights := make(map[lines.Op]int, len(lines.AllOps))
	for _, op := range lines.AllOps {
		weights[op] = 1
	}
	return &MutationConfig{
		Enabled: true,
		Lines: LineMutationConfig{
			Weights:        weights,
			MaxRepetitions: 64,
		},
		MaxMutationSize: 1024 * 1024, // 1MB
	}
}

// FromConfig derives the mutation settings from the file configuration.
// LogMutations is left to the caller, which knows the effective log level.
func FromConfig(cfg *config.Config) (*MutationConfig, error) {
	mc := DefaultMutationConfig()
	mc.Enabled = cfg.Fuzzing.Enabled
	mc.Seed = cfg.Fuzzing.Seed
	mc.MaxMutationSize = cfg.Fuzzing.MaxInputSize
	mc.Lines.MaxRepetitions = cfg.Fuzzing.MaxRepetitions
	mc.Lines.Experimental = cfg.Fuzzing.Experimental

	mc.Lines.Weights = make(map[lines.Op]int, len(cfg.Operators))
	for name, w := range cfg.Operators {
		op, err := lines.ParseOp(name)
		if err != nil {
			return nil, errors.Wrap(err, "invalid operators section")
		}
		mc.Lines.Weights[op] = w
	}
	if _, ok := mc.Lines.Weights[lines.OpPermuteLines]; !ok && mc.Lines.Experimental {
		mc.Lines.Weights[lines.OpPermuteLines] = 1
	}
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	return mc, nil
}

// Validate validates the mutation configuration
func (c *MutationConfig) Validate() error {
	if c.MaxMutationSize <= 0 {
		return errors.Newf("max_mutation_size must be positive, got %d", c.MaxMutationSize)
	}
	if c.Lines.MaxRepetitions < 0 || c.Lines.MaxRepetitions > lines.MaxRepetitions {
		return errors.Newf("lines.max_repetitions must be within [0, %d], got %d", lines.MaxRepetitions, c.Lines.MaxRepetitions)
	}
	if len(c.EnabledOps()) == 0 {
		return errors.New("no line operator has a positive weight")
	}
	return nil
}

// EnabledOps lists operators with a positive weight in a stable order. The
// experimental operator is only included when allowed.
func (c *MutationConfig) EnabledOps() []lines.Op {
	var ops []lines.Op
	for op, w := range c.Lines.Weights {
		if w <= 0 {
			continue
		}
		if op == lines.OpPermuteLines && !c.Lines.Experimental {
			continue
		}
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Clone creates a deep copy of the mutation configuration
func (c *MutationConfig) Clone() *MutationConfig {
	clone := *c
	clone.Lines.Weights = make(map[lines.Op]int, len(c.Lines.Weights))
	for op, w := range c.Lines.Weights {
		clone.Lines.Weights[op] = w
	}
	return &clone
}
