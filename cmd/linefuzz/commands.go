package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/AgnopraxLab/LineFuzz/config"
	"github.com/AgnopraxLab/LineFuzz/flags"
	"github.com/AgnopraxLab/LineFuzz/fuzzer"
	"github.com/AgnopraxLab/LineFuzz/fuzzing"
	"github.com/AgnopraxLab/LineFuzz/mutation"
	"github.com/AgnopraxLab/LineFuzz/mutation/lines"
	"github.com/AgnopraxLab/LineFuzz/mutation/strategies"
	"github.com/AgnopraxLab/LineFuzz/storage"
	"github.com/AgnopraxLab/LineFuzz/utils"
)

func newLogger(c *cli.Context) *utils.Logger {
	logger := utils.NewWriterLogger(c.App.ErrWriter)
	logger.SetLevel(utils.LevelFromVerbosity(c.Int(flags.VerbosityFlag.Name)))
	return logger
}

func mutate(c *cli.Context) error {
	logger := newLogger(c)

	path := c.String(flags.FileFlag.Name)
	if path == "" {
		return errors.New("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	cfg := mutation.DefaultMutationConfig()
	cfg.Seed = c.Int64(flags.SeedFlag.Name)
	cfg.Lines.MaxRepetitions = c.Int(flags.MaxRepetitionsFlag.Name)
	cfg.LogMutations = logger.Level() == utils.LevelDebug

	var fixed *lines.Op
	if name := c.String(flags.OperatorFlag.Name); name != "" {
		op, err := lines.ParseOp(name)
		if err != nil {
			return err
		}
		fixed = &op
		cfg.Lines.Experimental = op == lines.OpPermuteLines
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var (
		store strategies.Store
		files *storage.FileStore
	)
	if c.Bool(flags.HexFlag.Name) {
		store = storage.NewMemoryStore(0)
	} else {
		files, err = storage.NewFileStore(c.String(flags.LocationFlag.Name), 0)
		if err != nil {
			return err
		}
		store = files
	}

	rng := fuzzing.NewRandGen(cfg.Seed)
	rng.SetMaxRepetitions(cfg.Lines.MaxRepetitions)
	lm := strategies.NewLineMutator(rng, store)
	m := mutation.NewMutator(cfg, logger)
	m.RegisterStrategy(lm)
	logger.Debug("Mutating %s (%d bytes) with seed %d", path, len(data), rng.Seed())

	for i := 0; i < c.Int(flags.CountFlag.Name); i++ {
		key := fmt.Sprintf("mutate-%d", i)

		var out []byte
		if fixed != nil {
			cursor := c.Int(flags.CursorFlag.Name)
			if cursor < 0 {
				cursor = rng.Cursor(len(data))
			}
			out, err = lm.Apply(*fixed, key, data, cursor)
		} else {
			var res *mutation.MutationResult
			if res, err = m.MutateKey(key, data); err == nil {
				out = res.MutatedData
			}
		}
		if err != nil {
			return errors.Wrapf(err, "mutation %d failed", i)
		}

		if files == nil {
			fmt.Fprintln(c.App.Writer, hexutil.Encode(out))
			store.Release(key)
			continue
		}
		written, created, err := files.Flush(key)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintln(c.App.Writer, written)
		}
	}

	for op, st := range lm.Stats() {
		logger.Info("%s: applied=%d passthrough=%d failed=%d", op, st.Applied, st.PassThrough, st.Failed)
	}
	return nil
}

func campaign(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String(flags.ConfigFlag.Name); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if c.IsSet(flags.CorpusFlag.Name) {
		cfg.Fuzzing.CorpusDir = c.String(flags.CorpusFlag.Name)
	}
	if c.IsSet(flags.LocationFlag.Name) {
		cfg.Output.Directory = c.String(flags.LocationFlag.Name)
	}
	if c.IsSet(flags.SeedFlag.Name) {
		cfg.Fuzzing.Seed = c.Int64(flags.SeedFlag.Name)
	}
	if c.IsSet(flags.CountFlag.Name) {
		cfg.Fuzzing.Iterations = c.Int(flags.CountFlag.Name)
	}
	if c.IsSet(flags.ThreadFlag.Name) {
		cfg.Fuzzing.Threads = c.Int(flags.ThreadFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(c)
	if !c.IsSet(flags.VerbosityFlag.Name) {
		logger.SetLevel(utils.ParseLevel(cfg.Log.Level))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := fuzzer.RunFromConfig(ctx, cfg, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintf(c.App.Writer, "iterations=%d written=%d duplicates=%d skipped=%d\n",
		stats.Iterations, stats.Written, stats.Duplicates, stats.Skipped)
	return nil
}
