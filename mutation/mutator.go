package mutation

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/AgnopraxLab/LineFuzz/mutation/lines"
	"github.com/AgnopraxLab/LineFuzz/utils"
)

var (
	// ErrStopped is returned by Mutate and MutateKey after Stop.
	ErrStopped = errors.New("mutator stopped")

	// ErrDisabled is returned when the configuration turns mutation off.
	ErrDisabled = errors.New("mutation is disabled")

	// ErrNoStrategy is returned when no registered strategy accepts the input.
	ErrNoStrategy = errors.New("no suitable mutation strategy found")
)

// MutationStrategy defines the interface for different mutation strategies
type MutationStrategy interface {
	// Name returns the name of the mutation strategy
	Name() string

	// Mutate applies mutation to the input data and returns mutated data
	Mutate(data []byte, config *MutationConfig) ([]byte, error)

	// CanMutate checks if this strategy can mutate the given data
	CanMutate(data []byte) bool

	// Priority returns the priority of this strategy (higher = more priority)
	Priority() int
}

// KeyedStrategy writes its output into a store under a caller-chosen key,
// so the caller can flush or release it by that key afterwards.
type KeyedStrategy interface {
	MutationStrategy

	// MutateKey returns the stored output without its terminator and the
	// operator that produced it.
	MutateKey(key string, data []byte, config *MutationConfig) ([]byte, lines.Op, error)
}

// MutationResult represents the result of a mutation operation
type MutationResult struct {
	Key          string // Set by MutateKey
	Op           lines.Op
	OriginalData []byte // Set by Mutate
	MutatedData  []byte
	Strategy     string
	Timestamp    time.Time
	Success      bool
	Error        error
}

// Mutator is the main mutation manager that coordinates different strategies.
// Mutate and MutateKey may be called from several goroutines once all
// strategies are registered.
type Mutator struct {
	strategies []MutationStrategy
	config     *MutationConfig
	logger     *utils.Logger
	ctx        context.Context
	cancel     context.CancelFunc

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewMutator creates a new mutation manager
func NewMutator(config *MutationConfig, logger *utils.Logger) *Mutator {
	ctx, cancel := context.WithCancel(context.Background())

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Mutator{
		strategies: make([]MutationStrategy, 0),
		config:     config,
		logger:     logger,
		rng:        rand.New(rand.NewSource(seed)),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RegisterStrategy registers a new mutation strategy
func (m *Mutator) RegisterStrategy(strategy MutationStrategy) {
	m.strategies = append(m.strategies, strategy)
	m.logger.Info("Registered mutation strategy: %s", strategy.Name())
}

// Mutate applies mutation using the most suitable strategy
func (m *Mutator) Mutate(data []byte) (*MutationResult, error) {
	if err := m.check(data); err != nil {
		return nil, err
	}
	selectedStrategy, err := m.pick(data, false)
	if err != nil {
		return nil, err
	}

	result := &MutationResult{
		OriginalData: make([]byte, len(data)),
		Strategy:     selectedStrategy.Name(),
		Timestamp:    time.Now(),
	}
	copy(result.OriginalData, data)

	mutatedData, err := selectedStrategy.Mutate(data, m.config)
	if err != nil {
		result.Success = false
		result.Error = err
		m.logger.Error("Mutation failed with strategy %s: %v", selectedStrategy.Name(), err)
		return result, err
	}

	result.MutatedData = mutatedData
	result.Success = true
	if m.config.LogMutations {
		m.logger.Debug("Mutated %d bytes into %d using strategy %s", len(data), len(mutatedData), selectedStrategy.Name())
	}

	return result, nil
}

// MutateKey is Mutate restricted to keyed strategies. The output stays in the
// strategy's store under key; MutatedData aliases it. Strategy failures are
// returned with the partial result and left to the caller to log.
func (m *Mutator) MutateKey(key string, data []byte) (*MutationResult, error) {
	if err := m.check(data); err != nil {
		return nil, err
	}
	selectedStrategy, err := m.pick(data, true)
	if err != nil {
		return nil, err
	}

	result := &MutationResult{
		Key:       key,
		Strategy:  selectedStrategy.Name(),
		Timestamp: time.Now(),
	}
	mutatedData, op, err := selectedStrategy.(KeyedStrategy).MutateKey(key, data, m.config)
	result.Op = op
	if err != nil {
		result.Error = err
		return result, err
	}

	result.MutatedData = mutatedData
	result.Success = true
	if m.config.LogMutations {
		m.logger.Debug("Mutated %d bytes into %d using %s/%s", len(data), len(mutatedData), selectedStrategy.Name(), op)
	}
	return result, nil
}

// MutateMultiple applies multiple mutations to the same data
func (m *Mutator) MutateMultiple(data []byte, count int) ([]*MutationResult, error) {
	if count <= 0 {
		return nil, errors.Newf("invalid mutation count: %d", count)
	}

	results := make([]*MutationResult, 0, count)
	for i := 0; i < count; i++ {
		result, err := m.Mutate(data)
		if errors.Is(err, ErrStopped) {
			return results, err
		}
		if err != nil {
			m.logger.Warn("Mutation %d/%d failed: %v", i+1, count, err)
			continue
		}
		results = append(results, result)
	}

	return results, nil
}

// check applies the stop, enable and size gates shared by every entry point.
func (m *Mutator) check(data []byte) error {
	if m.ctx.Err() != nil {
		return ErrStopped
	}
	if len(data) == 0 {
		return errors.New("empty input data")
	}
	if !m.config.Enabled {
		return ErrDisabled
	}
	if len(data) > m.config.MaxMutationSize {
		return errors.Newf("input of %d bytes exceeds max_mutation_size %d", len(data), m.config.MaxMutationSize)
	}
	return nil
}

func (m *Mutator) pick(data []byte, keyed bool) (MutationStrategy, error) {
	suitableStrategies := make([]MutationStrategy, 0)
	for _, strategy := range m.strategies {
		if _, ok := strategy.(KeyedStrategy); keyed && !ok {
			continue
		}
		if strategy.CanMutate(data) {
			suitableStrategies = append(suitableStrategies, strategy)
		}
	}

	if len(suitableStrategies) == 0 {
		return nil, ErrNoStrategy
	}
	return m.selectStrategy(suitableStrategies), nil
}

// selectStrategy picks randomly among the highest-priority strategies
func (m *Mutator) selectStrategy(strategies []MutationStrategy) MutationStrategy {
	if len(strategies) == 1 {
		return strategies[0]
	}

	maxPriority := strategies[0].Priority()
	for _, strategy := range strategies[1:] {
		if strategy.Priority() > maxPriority {
			maxPriority = strategy.Priority()
		}
	}

	highPriorityStrategies := make([]MutationStrategy, 0)
	for _, strategy := range strategies {
		if strategy.Priority() == maxPriority {
			highPriorityStrategies = append(highPriorityStrategies, strategy)
		}
	}

	m.mu.Lock()
	index := m.rng.Intn(len(highPriorityStrategies))
	m.mu.Unlock()
	return highPriorityStrategies[index]
}

// Stop stops the mutator; later Mutate calls fail with ErrStopped
func (m *Mutator) Stop() {
	m.cancel()
	m.logger.Info("Mutator stopped")
}
