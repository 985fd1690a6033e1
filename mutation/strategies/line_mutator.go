package strategies

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/AgnopraxLab/LineFuzz/fuzzing"
	"github.com/AgnopraxLab/LineFuzz/mutation"
	"github.com/AgnopraxLab/LineFuzz/mutation/lines"
)

// Store is the sink LineMutator writes into. Buffers are released once the
// caller is done with them.
type Store interface {
	lines.Sink
	Release(key string)
}

// OpStats counts outcomes for one operator.
type OpStats struct {
	Applied     int
	PassThrough int
	Failed      int
}

// LineMutator implements mutation strategies that edit line structure
type LineMutator struct {
	rng    *fuzzing.RandGen
	store  Store
	engine *lines.Engine
	seq    atomic.Uint64

	mu    sync.Mutex
	stats map[lines.Op]*OpStats
}

// NewLineMutator creates a new line mutator writing through store
func NewLineMutator(rng *fuzzing.RandGen, store Store) *LineMutator {
	return &LineMutator{
		rng:    rng,
		store:  store,
		engine: lines.NewEngine(rng, store),
		stats:  make(map[lines.Op]*OpStats),
	}
}

// Name returns the name of this mutation strategy
func (l *LineMutator) Name() string {
	return "Line Structure Mutator"
}

// CanMutate checks if this strategy can mutate the given data
func (l *LineMutator) CanMutate(data []byte) bool {
	return len(data) > 0
}

// Priority returns the priority of this strategy
func (l *LineMutator) Priority() int {
	return 50
}

// Mutate applies one weighted line operator at a random cursor and returns
// the logical content of the result.
func (l *LineMutator) Mutate(data []byte, config *mutation.MutationConfig) ([]byte, error) {
	key := fmt.Sprintf("line-%d", l.seq.Add(1))
	out, _, err := l.MutateKey(key, data, config)
	if err != nil {
		return nil, err
	}
	defer l.store.Release(key)
	return bytes.Clone(out), nil
}

// MutateKey is Mutate writing under a caller-chosen key. The returned slice
// aliases the stored buffer without its terminator and stays valid until the
// key is released.
func (l *LineMutator) MutateKey(key string, data []byte, config *mutation.MutationConfig) ([]byte, lines.Op, error) {
	op, err := l.chooseOp(config)
	if err != nil {
		return nil, 0, err
	}
	l.rng.SetMaxRepetitions(config.Lines.MaxRepetitions)
	out, err := l.Apply(op, key, data, l.rng.Cursor(len(data)))
	return out, op, err
}

// Apply runs op at cursor, records the outcome and strips the terminator.
func (l *LineMutator) Apply(op lines.Op, key string, data []byte, cursor int) ([]byte, error) {
	out, err := l.engine.Apply(op, key, data, cursor)

	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.stats[op]
	if !ok {
		st = &OpStats{}
		l.stats[op] = st
	}
	if err != nil {
		st.Failed++
		return nil, errors.Wrapf(err, "%s at cursor %d", op, cursor)
	}
	content := out[:len(out)-1]
	if bytes.Equal(content, data) {
		st.PassThrough++
	} else {
		st.Applied++
	}
	return content, nil
}

// chooseOp draws an operator proportionally to its configured weight.
func (l *LineMutator) chooseOp(config *mutation.MutationConfig) (lines.Op, error) {
	ops := config.EnabledOps()
	total := 0
	for _, op := range ops {
		total += config.Lines.Weights[op]
	}
	if total == 0 {
		return 0, errors.New("no line operator enabled")
	}

	pick := l.rng.Intn(total)
	for _, op := range ops {
		pick -= config.Lines.Weights[op]
		if pick < 0 {
			return op, nil
		}
	}
	return ops[len(ops)-1], nil
}

// Stats returns a copy of the per-operator counters.
func (l *LineMutator) Stats() map[lines.Op]OpStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[lines.Op]OpStats, len(l.stats))
	for op, st := range l.stats {
		out[op] = *st
	}
	return out
}
