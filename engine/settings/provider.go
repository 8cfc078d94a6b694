package settings

import (
	"sync"

	"go.uber.org/zap"
)

// Provider resolves the settings a module reads. A borrowed Source set by the caller takes precedence;
// otherwise the provider lazily creates and owns a Source holding the defaults.
type Provider[T any] struct {
	mu       *sync.Mutex
	name     string
	defaults func() T
	logger   *zap.Logger

	borrowed *Source[T]
	owned    *Source[T]
}

// NewProvider creates a provider whose owned fallback is named name and initialised from defaults.
//
// Parameters:
//   - name: the name of the owned fallback source, e.g. "Foam Auto-generated Settings"
//   - defaults: returns the default value
//   - logger: the logger passed to the owned source, may be nil
//
// Returns:
//   - *Provider[T]: the new provider
func NewProvider[T any](name string, defaults func() T, logger *zap.Logger) *Provider[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider[T]{
		mu:       &sync.Mutex{},
		name:     name,
		defaults: defaults,
		logger:   logger,
	}
}

// Borrow makes src the source the provider resolves to. Passing nil returns to the owned fallback.
// The provider never modifies a borrowed source.
func (p *Provider[T]) Borrow(src *Source[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.borrowed = src
}

// Borrowed reports whether a caller supplied source is in use.
func (p *Provider[T]) Borrowed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.borrowed != nil
}

// Source returns the borrowed source, or the owned fallback which is created on first use.
//
// Returns:
//   - *Source[T]: the source to read
func (p *Provider[T]) Source() *Source[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.borrowed != nil {
		return p.borrowed
	}
	if p.owned == nil {
		p.owned = NewSource(p.name, p.defaults(), WithLogger(p.logger))
		p.logger.Debug("created default settings", zap.String("settings", p.name))
	}
	return p.owned
}

// Get returns the current value of Source.
func (p *Provider[T]) Get() T {
	return p.Source().Get()
}
