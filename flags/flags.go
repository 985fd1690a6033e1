package flags

import (
	"runtime"

	"github.com/urfave/cli/v2"
)

var (
	SeedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "Seed for the RNG, (Default = RandomSeed)",
		Value: 0,
	}
	FileFlag = &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "Input file to mutate",
	}
	CorpusFlag = &cli.StringFlag{
		Name:  "corpus",
		Usage: "Directory of seed inputs",
	}
	LocationFlag = &cli.StringFlag{
		Name:  "outdir",
		Usage: "Location to place artefacts",
		Value: "/tmp",
	}
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML configuration file",
	}
	OperatorFlag = &cli.StringFlag{
		Name:    "operator",
		Aliases: []string{"o"},
		Usage:   "Line operator to apply (delete_line, delete_sequential_lines, duplicate_line, copy_line_close_by, repeat_line, swap_line, permute_lines); random when empty",
	}
	CursorFlag = &cli.IntFlag{
		Name:  "cursor",
		Usage: "Byte offset lines are counted from (-1 = random)",
		Value: -1,
	}
	CountFlag = &cli.IntFlag{
		Name:  "count",
		Usage: "Number of mutations that should be generated",
		Value: 1,
	}
	ThreadFlag = &cli.IntFlag{
		Name:  "parallel",
		Usage: "Number of parallel executions to use.",
		Value: runtime.NumCPU(),
	}
	MaxRepetitionsFlag = &cli.IntFlag{
		Name:  "max-repetitions",
		Usage: "Upper bound for repeat_line copies (0 = full range)",
		Value: 64,
	}
	HexFlag = &cli.BoolFlag{
		Name:  "hex",
		Usage: "Print outputs as 0x-prefixed hex instead of writing files",
	}
	VerbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "sets the verbosity level (-4: DEBUG, 0: INFO, 4: WARN, 8: ERROR)",
		Value: 0,
	}
)
