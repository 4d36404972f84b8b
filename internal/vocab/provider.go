package vocab

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State is the loading lifecycle of the vocabulary store.
type State int

const (
	StateNotStarted State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Provider owns the single store instance and its readiness state. The store
// reference is published exactly once through an atomic pointer; query paths
// read it without taking the mutex. Loading is not cancellable: it runs to
// Ready or Failed.
type Provider struct {
	mu      sync.Mutex
	state   State
	loadErr error
	store   atomic.Pointer[Store]
	logger  *zap.Logger
}

// NewProvider creates a provider in StateNotStarted.
func NewProvider(logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{logger: logger}
}

// Load builds the store from src synchronously. A load may only start from
// NotStarted or Failed; a concurrent or completed load is an error.
func (p *Provider) Load(src Source) error {
	if err := p.begin(src); err != nil {
		return err
	}
	start := time.Now()
	store, err := src.Load()
	if err != nil {
		p.fail(src, err)
		return err
	}
	p.publish(src, store, start)
	return nil
}

// LoadBackground starts Load in a goroutine and returns immediately. The
// provider answers ErrUnavailable until the load completes. A load already
// in flight (or done) makes this a no-op.
func (p *Provider) LoadBackground(src Source) {
	go func() {
		_ = p.Load(src)
	}()
}

func (p *Provider) begin(src Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateLoading:
		return fmt.Errorf("load already in progress")
	case StateReady:
		return fmt.Errorf("store already loaded")
	}
	p.state = StateLoading
	p.loadErr = nil
	p.logger.Info("model load started", zap.String("source", src.Describe()))
	return nil
}

func (p *Provider) fail(src Source, err error) {
	p.mu.Lock()
	p.state = StateFailed
	p.loadErr = err
	p.mu.Unlock()
	p.logger.Error("model load failed", zap.String("source", src.Describe()), zap.Error(err))
}

func (p *Provider) publish(src Source, store *Store, start time.Time) {
	p.store.Store(store)
	p.mu.Lock()
	p.state = StateReady
	p.mu.Unlock()
	p.logger.Info("model loaded",
		zap.String("source", src.Describe()),
		zap.Int("vocabulary", store.Size()),
		zap.Int("dimensions", store.Dimension()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// State returns the current lifecycle state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Ready reports whether the store can be queried.
func (p *Provider) Ready() bool {
	return p.store.Load() != nil
}

// Store returns the loaded store, or ErrUnavailable while it is not ready.
// After a failed load the error still matches ErrUnavailable via errors.Is
// and carries the underlying load failure.
func (p *Provider) Store() (*Store, error) {
	if s := p.store.Load(); s != nil {
		return s, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateFailed && p.loadErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, p.loadErr)
	}
	return nil, ErrUnavailable
}

// Err returns the load failure when in StateFailed, else nil.
func (p *Provider) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateFailed {
		return p.loadErr
	}
	return nil
}
