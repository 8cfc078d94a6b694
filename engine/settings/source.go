// Package settings provides named, shareable settings values that simulation modules borrow.
//
// A Source is owned by whoever created it. Modules only read it, so one Source may drive several
// modules, and replacing its value takes effect on the next frame without reconstructing anything.
package settings

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-ocean/common"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Validator is implemented by settings types that can reject invalid values.
type Validator interface {
	Validate() error
}

// Source holds the current value of a settings type. Reads are lock free.
type Source[T any] struct {
	name     string
	value    atomic.Pointer[T]
	version  atomic.Uint64
	logger   *zap.Logger
	debounce time.Duration
}

// NewSource creates a settings source holding initial.
//
// Parameters:
//   - name: a human readable name used in logs
//   - initial: the starting value
//   - options: functional options such as WithLogger or WithDebounce
//
// Returns:
//   - *Source[T]: the new source
func NewSource[T any](name string, initial T, options ...SourceBuilderOption) *Source[T] {
	o := sourceOptions{
		logger:   zap.NewNop(),
		debounce: 250 * time.Millisecond,
	}
	for _, opt := range options {
		opt(&o)
	}
	s := &Source[T]{
		name:     common.Coalesce(name, "settings"),
		logger:   o.logger,
		debounce: o.debounce,
	}
	s.value.Store(&initial)
	return s
}

// Name returns the name the source was created with.
func (s *Source[T]) Name() string {
	return s.name
}

// Get returns the current value.
func (s *Source[T]) Get() T {
	return *s.value.Load()
}

// Version returns the number of times the value has been replaced.
func (s *Source[T]) Version() uint64 {
	return s.version.Load()
}

// Set replaces the current value.
//
// Parameters:
//   - v: the new value
//
// Returns:
//   - error: the validation error if T implements Validator and v is invalid; the value is then unchanged
func (s *Source[T]) Set(v T) error {
	if err := validate(v); err != nil {
		return fmt.Errorf("settings: invalid value for %q: %w", s.name, err)
	}
	s.value.Store(&v)
	s.version.Add(1)
	return nil
}

// Load decodes a YAML file over a copy of the current value and stores the result, so fields the file
// omits keep their current values.
//
// Parameters:
//   - path: the YAML file path
//
// Returns:
//   - error: an error if the file cannot be read, decoded or validated; the value is then unchanged
func (s *Source[T]) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("settings: failed to read %q: %w", path, err)
	}
	return s.Decode(data)
}

// Decode decodes YAML over a copy of the current value and stores the result.
func (s *Source[T]) Decode(data []byte) error {
	v := s.Get()
	if err := yaml.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("settings: failed to decode %q: %w", s.name, err)
	}
	return s.Set(v)
}

func validate[T any](v T) error {
	if val, ok := any(v).(Validator); ok {
		return val.Validate()
	}
	if val, ok := any(&v).(Validator); ok {
		return val.Validate()
	}
	return nil
}

// ErrNoPath is returned by Watch when no file path is given.
var ErrNoPath = errors.New("settings: no path to watch")
