// Copyright 2024 Fudong and Hosen
// This file is part of the D2PFuzz library.
//
// The D2PFuzz library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The D2PFuzz library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the D2PFuzz library. If not, see <http://www.gnu.org/licenses/>.

// Package fuzzer runs line mutation campaigns over a seed corpus.
package fuzzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/AgnopraxLab/LineFuzz/config"
	"github.com/AgnopraxLab/LineFuzz/fuzzing"
	"github.com/AgnopraxLab/LineFuzz/mutation"
	"github.com/AgnopraxLab/LineFuzz/mutation/lines"
	"github.com/AgnopraxLab/LineFuzz/mutation/strategies"
	"github.com/AgnopraxLab/LineFuzz/storage"
	"github.com/AgnopraxLab/LineFuzz/utils"
)

// Seed is one corpus entry.
type Seed struct {
	Name string
	Data []byte
}

// Stats summarises a campaign.
type Stats struct {
	Iterations int64
	Written    int64
	Duplicates int64
	Skipped    int64
	PerOp      map[lines.Op]strategies.OpStats
}

// Campaign mutates seeds repeatedly and persists distinct outputs.
type Campaign struct {
	config      *mutation.MutationConfig
	store       *storage.FileStore
	lineMutator *strategies.LineMutator
	mutator     *mutation.Mutator
	logger      *utils.Logger
	threads     int

	iterations atomic.Int64
	written    atomic.Int64
	duplicates atomic.Int64
	skipped    atomic.Int64
}

// NewCampaign registers a line mutator writing into a file store rooted at
// outDir.
func NewCampaign(cfg *mutation.MutationConfig, outDir string, threads int, logger *utils.Logger) (*Campaign, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid mutation config")
	}
	store, err := storage.NewFileStore(outDir, 0)
	if err != nil {
		return nil, err
	}
	if threads < 1 {
		threads = 1
	}
	rng := fuzzing.NewRandGen(cfg.Seed)
	logger.Info("Campaign seed: %d", rng.Seed())

	lm := strategies.NewLineMutator(rng, store)
	m := mutation.NewMutator(cfg, logger)
	m.RegisterStrategy(lm)
	return &Campaign{
		config:      cfg,
		store:       store,
		lineMutator: lm,
		mutator:     m,
		logger:      logger,
		threads:     threads,
	}, nil
}

// LoadCorpus reads every regular file in dir, in name order. Empty files and
// files above maxSize are skipped.
func LoadCorpus(dir string, maxSize int) ([]Seed, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read corpus directory %s", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var seeds []Seed
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read seed %s", e.Name())
		}
		if len(data) == 0 || (maxSize > 0 && len(data) > maxSize) {
			continue
		}
		seeds = append(seeds, Seed{Name: e.Name(), Data: data})
	}
	return seeds, nil
}

// Run performs iterations mutations spread round-robin over seeds across the
// configured threads. Cancelling ctx stops the mutator and ends the run
// early; the campaign cannot be restarted afterwards.
func (c *Campaign) Run(ctx context.Context, seeds []Seed, iterations int) (*Stats, error) {
	if len(seeds) == 0 {
		return nil, errors.New("empty corpus")
	}
	stop := context.AfterFunc(ctx, c.mutator.Stop)
	defer stop()

	var (
		wg      sync.WaitGroup
		next    atomic.Int64
		errChan = make(chan error, c.threads)
	)
	for i := 0; i < c.threads; i++ {
		wg.Add(1)
		go func(threadID int) {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				n := next.Add(1) - 1
				if n >= int64(iterations) {
					return
				}
				seed := seeds[n%int64(len(seeds))]
				if err := c.step(threadID, n, seed); err != nil {
					if !errors.Is(err, mutation.ErrStopped) {
						errChan <- errors.Wrapf(err, "thread %d", threadID)
					}
					return
				}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(errChan)
	}()

	var firstErr error
	for err := range errChan {
		if firstErr == nil {
			firstErr = err
		}
	}

	stats := c.Stats()
	c.logger.Info("Campaign finished: %d iterations, %d written, %d duplicates, %d skipped",
		stats.Iterations, stats.Written, stats.Duplicates, stats.Skipped)
	if firstErr != nil {
		return stats, firstErr
	}
	return stats, ctx.Err()
}

// step runs one mutation. Operator errors mark the seed as unusable for this
// round. A stopped or disabled mutator and storage failures end the thread.
func (c *Campaign) step(threadID int, n int64, seed Seed) error {
	key := fmt.Sprintf("%s#%d", seed.Name, n)

	res, err := c.mutator.MutateKey(key, seed.Data)
	if errors.Is(err, mutation.ErrStopped) || errors.Is(err, mutation.ErrDisabled) {
		return err
	}
	c.iterations.Add(1)
	if err != nil {
		c.skipped.Add(1)
		c.logger.Warn("Skipping %s: %v", seed.Name, err)
		return nil
	}
	out := res.MutatedData
	if c.config.LogMutations {
		c.logger.Debug("[%d] %s on %s -> %s", threadID, res.Op, seed.Name, hexutil.Encode(head(out, 16)))
	}
	if len(out) == 0 {
		c.skipped.Add(1)
		c.store.Release(key)
		return nil
	}

	path, created, err := c.store.Flush(key)
	if err != nil {
		return err
	}
	if created {
		c.written.Add(1)
		c.logger.Debug("Wrote %s", path)
	} else {
		c.duplicates.Add(1)
	}
	return nil
}

// Stats returns the counters so far.
func (c *Campaign) Stats() *Stats {
	return &Stats{
		Iterations: c.iterations.Load(),
		Written:    c.written.Load(),
		Duplicates: c.duplicates.Load(),
		Skipped:    c.skipped.Load(),
		PerOp:      c.lineMutator.Stats(),
	}
}

// OutputDir returns where outputs are written.
func (c *Campaign) OutputDir() string {
	return c.store.Dir()
}

func head(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// RunFromConfig loads the corpus named by cfg and runs a full campaign.
// Per-mutation traces follow the logger's level rather than cfg.Log.Level.
func RunFromConfig(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*Stats, error) {
	mc, err := mutation.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	mc.LogMutations = logger.Level() == utils.LevelDebug
	seeds, err := LoadCorpus(cfg.Fuzzing.CorpusDir, cfg.Fuzzing.MaxInputSize)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded %d seeds from %s", len(seeds), cfg.Fuzzing.CorpusDir)

	c, err := NewCampaign(mc, cfg.GetOutputPath(), cfg.Fuzzing.Threads, logger)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, seeds, cfg.Fuzzing.Iterations)
}
